// Package chat implements the real-time core: the live connection registry,
// the per-connection delivery channel, message routing with durable
// persistence, and presence reconciliation.
package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Key identifies the single registry slot a user occupies within a tenant.
type Key struct {
	TenantID string
	UserID   string
}

// Conn is the send side of a delivery channel as the registry and the
// fan-out paths see it. *Channel implements it; tests substitute fakes.
type Conn interface {
	Send(payload []byte) error
	Close(code int, reason string)
}

// Entry pairs a registry key with its live connection, used for tenant
// snapshots.
type Entry struct {
	Key  Key
	Conn Conn
}

// Registry is the process-wide table of live connections, keyed by
// (tenant, user). It owns the map exclusively: register, unregister, and
// enumeration are serialized under one mutex, and no network I/O ever
// happens while it is held; sends go through snapshots taken here.
type Registry struct {
	mu    sync.Mutex
	conns map[Key]Conn
	log   zerolog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		conns: make(map[Key]Conn),
		log:   logger.With().Str("component", "registry").Logger(),
	}
}

// Register installs conn as the live connection for key. A superseded
// connection is closed after the lock is released: the reconnecting client
// owns the slot and the stale socket must not linger.
func (r *Registry) Register(key Key, conn Conn) {
	r.mu.Lock()
	old := r.conns[key]
	r.conns[key] = conn
	total := len(r.conns)
	r.mu.Unlock()

	if old != nil && old != conn {
		r.log.Info().Str("tenant", key.TenantID).Str("user", key.UserID).
			Msg("closing superseded connection")
		old.Close(websocket.CloseNormalClosure, "superseded by new connection")
	}
	r.log.Debug().Str("tenant", key.TenantID).Str("user", key.UserID).
		Int("total", total).Msg("connection registered")
}

// Unregister removes the entry for key only if it still maps to conn, and
// reports whether it did. The identity check keeps a superseded session's
// late cleanup from evicting its replacement, and gates the offline flow to
// run exactly once.
func (r *Registry) Unregister(key Key, conn Conn) bool {
	r.mu.Lock()
	current, ok := r.conns[key]
	if ok && current == conn {
		delete(r.conns, key)
	} else {
		ok = false
	}
	total := len(r.conns)
	r.mu.Unlock()

	if ok {
		r.log.Debug().Str("tenant", key.TenantID).Str("user", key.UserID).
			Int("total", total).Msg("connection unregistered")
	}
	return ok
}

// Lookup returns the live connection for key, if any.
func (r *Registry) Lookup(key Key) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[key]
	return conn, ok
}

// TenantSnapshot returns a point-in-time copy of every live connection in a
// tenant. Callers send outside the registry lock.
func (r *Registry) TenantSnapshot(tenantID string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]Entry, 0, len(r.conns))
	for key, conn := range r.conns {
		if key.TenantID == tenantID {
			entries = append(entries, Entry{Key: key, Conn: conn})
		}
	}
	return entries
}

// Len returns the number of live connections across all tenants.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Drain closes every live connection, used during server shutdown. Entries
// are not removed here: each session still owns its cleanup, so the
// identity-checked unregister and the offline-presence flow run exactly
// once per connection. Closes happen after the lock is released; callers
// use Wait to block until the sessions have finished.
func (r *Registry) Drain(code int, reason string) {
	r.mu.Lock()
	draining := make([]Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		draining = append(draining, conn)
	}
	r.mu.Unlock()

	for _, conn := range draining {
		conn.Close(code, reason)
	}
	r.log.Info().Int("count", len(draining)).Msg("draining registry")
}

// Wait blocks until every session has unregistered itself or the timeout
// elapses, reporting whether the registry emptied in time.
func (r *Registry) Wait(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.Len() == 0 {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return r.Len() == 0
}
