package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuslink/campuslink/internal/model"
)

// MessageStore is the durable write path the router needs from a tenant
// partition.
type MessageStore interface {
	Insert(ctx context.Context, m *model.Message) (*model.Message, error)
}

// GroupStore resolves group membership for fan-out.
type GroupStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Group, error)
}

// Router decides the recipients of an inbound frame, persists the message,
// and fans it out through the registry. It never holds channel references
// of its own; every delivery goes through a registry lookup at send time.
type Router struct {
	registry *Registry
	log      zerolog.Logger
}

// NewRouter builds a Router over the given registry.
func NewRouter(registry *Registry, logger zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		log:      logger.With().Str("component", "router").Logger(),
	}
}

// Route dispatches one inbound frame from sess. Unknown frame types are
// ignored. Fan-out only happens after the durable write succeeds; a
// persistence failure is returned wrapped in ErrPersistenceFailure and
// nothing is delivered.
func (r *Router) Route(ctx context.Context, sess *Session, f *InboundFrame) error {
	switch f.Type {
	case FrameTypeMessage:
		return r.routeDirect(ctx, sess, f)
	case FrameTypeGroupMessage:
		return r.routeGroup(ctx, sess, f)
	default:
		r.log.Debug().Str("type", f.Type).Msg("ignoring unknown frame type")
		return nil
	}
}

// routeDirect persists a direct message and delivers it to the receiver and
// back to the sender. Receiver existence is not checked before persisting;
// an absent or offline receiver just means no second delivery.
func (r *Router) routeDirect(ctx context.Context, sess *Session, f *InboundFrame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	receiverID, err := parseObjectID("receiverId", f.ReceiverID)
	if err != nil {
		return err
	}

	persisted, err := sess.messages.Insert(ctx, &model.Message{
		Content:    f.Content,
		SenderID:   sess.userID,
		ReceiverID: receiverID,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	payload := encodeDirectFrame(persisted, sess.location)
	r.deliver(Key{TenantID: sess.key.TenantID, UserID: receiverID.Hex()}, payload)
	// Echo to the sender so its UI converges on the persisted record.
	r.deliver(sess.key, payload)
	return nil
}

// routeGroup persists a group message and delivers it to every connected
// member except the sender. Sender membership is intentionally not
// enforced, matching the product's current behavior.
func (r *Router) routeGroup(ctx context.Context, sess *Session, f *InboundFrame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	groupID, err := parseObjectID("groupId", f.GroupID)
	if err != nil {
		return err
	}

	group, err := sess.groups.FindByID(ctx, groupID)
	if err != nil {
		return err
	}

	persisted, err := sess.messages.Insert(ctx, &model.Message{
		Content:  f.Content,
		SenderID: sess.userID,
		GroupID:  groupID,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	// The display name travels with the frame but is always the verified
	// one from the session, not whatever the client claimed.
	payload := encodeGroupFrame(persisted, sess.displayName, sess.location)

	for _, memberID := range group.Members {
		member := memberID.Hex()
		if member == sess.key.UserID {
			continue
		}
		r.deliver(Key{TenantID: sess.key.TenantID, UserID: member}, payload)
	}
	return nil
}

// deliver sends a payload to whichever connection currently holds key.
// Failures are isolated to that peer: the connection is closed and its own
// session cleans up, while the caller's fan-out continues.
func (r *Router) deliver(key Key, payload []byte) {
	conn, ok := r.registry.Lookup(key)
	if !ok {
		return
	}
	if err := conn.Send(payload); err != nil {
		r.log.Warn().Err(err).Str("tenant", key.TenantID).Str("user", key.UserID).
			Msg("dropping unresponsive peer")
		if errors.Is(err, ErrSendTimeout) {
			conn.Close(websocket.CloseGoingAway, "send timeout")
		}
	}
}
