package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/campuslink/campuslink/internal/model"
)

// PresenceStore is the durable presence write path of a tenant partition.
type PresenceStore interface {
	SetPresence(ctx context.Context, role model.Role, id primitive.ObjectID, status string, lastSeen time.Time) error
}

// Presence reconciles durable presence state with the connection registry
// and broadcasts offline transitions to a user's tenant peers.
type Presence struct {
	registry    *Registry
	concurrency int
	log         zerolog.Logger
}

// NewPresence builds a Presence notifier over the registry.
func NewPresence(registry *Registry, logger zerolog.Logger) *Presence {
	return &Presence{
		registry:    registry,
		concurrency: 16,
		log:         logger.With().Str("component", "presence").Logger(),
	}
}

// MarkOnline records a user as online. Registration in the registry already
// makes the user reachable, so no broadcast accompanies the write.
func (p *Presence) MarkOnline(ctx context.Context, store PresenceStore, role model.Role, id primitive.ObjectID) error {
	return store.SetPresence(ctx, role, id, model.StatusOnline, time.Now().UTC())
}

// MarkOffline records a user as offline with lastSeen = now, then
// broadcasts a user_offline event to every other live connection in the
// tenant. The durable write happens before the broadcast so a peer that
// re-queries presence on receipt sees the updated state. Delivery is
// best-effort per peer.
func (p *Presence) MarkOffline(ctx context.Context, store PresenceStore, key Key, role model.Role, id primitive.ObjectID) {
	if err := store.SetPresence(ctx, role, id, model.StatusOffline, time.Now().UTC()); err != nil {
		p.log.Error().Err(err).Str("tenant", key.TenantID).Str("user", key.UserID).
			Msg("writing offline presence")
	}

	payload := encodeOfflineFrame(key.UserID)
	peers := p.registry.TenantSnapshot(key.TenantID)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, peer := range peers {
		if peer.Key == key {
			continue
		}
		peer := peer
		g.Go(func() error {
			if err := peer.Conn.Send(payload); err != nil {
				p.log.Debug().Err(err).Str("tenant", peer.Key.TenantID).
					Str("user", peer.Key.UserID).Msg("offline notification failed")
			}
			return nil
		})
	}
	_ = g.Wait()
}
