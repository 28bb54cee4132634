package chat

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuslink/campuslink/internal/model"
)

// SessionParams wires one authenticated connection into the core. The
// store fields come from the tenant partition resolved at handshake time.
type SessionParams struct {
	Key         Key
	UserID      primitive.ObjectID
	Role        model.Role
	DisplayName string

	Channel  *Channel
	Registry *Registry
	Router   *Router
	Presence *Presence

	Messages MessageStore
	Groups   GroupStore
	Users    PresenceStore
	Location *time.Location

	RateLimit RateLimitConfig
	Logger    zerolog.Logger
}

// Session is the receive loop of one live connection. Frames are processed
// strictly one at a time to completion, so per-channel ordering is
// sequential; concurrency exists only across sessions.
type Session struct {
	key         Key
	userID      primitive.ObjectID
	role        model.Role
	displayName string

	channel  *Channel
	registry *Registry
	router   *Router
	presence *Presence

	messages MessageStore
	groups   GroupStore
	users    PresenceStore
	location *time.Location

	limiter *rateLimiter
	log     zerolog.Logger
}

// NewSession builds a session from its wiring.
func NewSession(p SessionParams) *Session {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Session{
		key:         p.Key,
		userID:      p.UserID,
		role:        p.Role,
		displayName: p.DisplayName,
		channel:     p.Channel,
		registry:    p.Registry,
		router:      p.Router,
		presence:    p.Presence,
		messages:    p.Messages,
		groups:      p.Groups,
		users:       p.Users,
		location:    loc,
		limiter:     newRateLimiter(p.RateLimit.Burst, p.RateLimit.RefillInterval),
		log: p.Logger.With().
			Str("tenant", p.Key.TenantID).
			Str("user", p.Key.UserID).
			Logger(),
	}
}

// Run registers the connection, marks the user online, and processes
// inbound frames until the channel closes. Cleanup runs exactly once: the
// identity-checked unregister reports whether this session still owned the
// registry slot, and only then does the offline flow fire. A session
// superseded by a reconnect must not broadcast its user as offline.
func (s *Session) Run(ctx context.Context) {
	s.channel.Open()
	s.registry.Register(s.key, s.channel)

	if err := s.presence.MarkOnline(ctx, s.users, s.role, s.userID); err != nil {
		s.log.Error().Err(err).Msg("writing online presence")
	}

	defer func() {
		s.channel.Close(websocket.CloseNormalClosure, "")
		if s.registry.Unregister(s.key, s.channel) {
			s.presence.MarkOffline(ctx, s.users, s.key, s.role, s.userID)
		}
	}()

	for {
		raw, err := s.channel.Receive()
		if err != nil {
			return
		}

		if !s.limiter.allow() {
			s.log.Warn().Msg("rate limit exceeded, discarding frame")
			continue
		}

		if err := s.handleFrame(ctx, raw); err != nil {
			s.log.Error().Err(err).Msg("unexpected frame handling failure")
			s.channel.Close(websocket.CloseInternalServerErr, "internal error")
			return
		}
	}
}

// handleFrame processes one frame. Per-frame failures are isolated: a
// malformed frame or a missing group drops that frame and keeps the loop
// going; a failed durable write surfaces an error frame to the sender. Only
// errors this method returns are fatal to the channel.
func (s *Session) handleFrame(ctx context.Context, raw []byte) error {
	frame, err := DecodeFrame(raw)
	if err != nil {
		s.log.Debug().Err(err).Msg("dropping malformed frame")
		return nil
	}

	err = s.router.Route(ctx, s, frame)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMalformedMessage):
		s.log.Debug().Err(err).Msg("dropping malformed frame")
		return nil
	case errors.Is(err, model.ErrGroupNotFound):
		s.log.Warn().Str("group", frame.GroupID).Msg("group not found, dropping frame")
		return nil
	case errors.Is(err, ErrPersistenceFailure):
		s.log.Error().Err(err).Msg("message persistence failed")
		if sendErr := s.channel.Send(encodeErrorFrame("failed to deliver message")); sendErr != nil {
			return sendErr
		}
		return nil
	default:
		return err
	}
}
