package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records sends and closes for assertions. sendErr makes every
// Send fail, simulating an unresponsive peer.
type fakeConn struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	closed  bool
	code    int
	reason  string
}

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.code = code
	c.reason = reason
}

func (c *fakeConn) sentFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestRegistry() *Registry {
	return NewRegistry(zerolog.Nop())
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := newTestRegistry()
	key := Key{TenantID: "coep", UserID: "u1"}
	conn := &fakeConn{}

	registry.Register(key, conn)

	got, ok := registry.Lookup(key)
	require.True(t, ok)
	assert.Same(t, conn, got.(*fakeConn))
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryLookupAbsent(t *testing.T) {
	registry := newTestRegistry()

	_, ok := registry.Lookup(Key{TenantID: "coep", UserID: "nobody"})
	assert.False(t, ok)
}

func TestRegistryReplaceClosesSupersededConnection(t *testing.T) {
	registry := newTestRegistry()
	key := Key{TenantID: "coep", UserID: "u1"}
	old := &fakeConn{}
	fresh := &fakeConn{}

	registry.Register(key, old)
	registry.Register(key, fresh)

	got, ok := registry.Lookup(key)
	require.True(t, ok)
	assert.Same(t, fresh, got.(*fakeConn))
	assert.True(t, old.isClosed(), "superseded connection must be closed")
	assert.False(t, fresh.isClosed())
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryUnregisterIsIdentityChecked(t *testing.T) {
	registry := newTestRegistry()
	key := Key{TenantID: "coep", UserID: "u1"}
	old := &fakeConn{}
	fresh := &fakeConn{}

	registry.Register(key, old)
	registry.Register(key, fresh)

	// The superseded session's cleanup must not evict the replacement.
	assert.False(t, registry.Unregister(key, old))
	_, ok := registry.Lookup(key)
	assert.True(t, ok)

	assert.True(t, registry.Unregister(key, fresh))
	_, ok = registry.Lookup(key)
	assert.False(t, ok)

	// Second unregister reports false, gating the offline flow to once.
	assert.False(t, registry.Unregister(key, fresh))
}

func TestRegistryUnregisterAbsentKeyIsNoop(t *testing.T) {
	registry := newTestRegistry()
	assert.False(t, registry.Unregister(Key{TenantID: "coep", UserID: "u1"}, &fakeConn{}))
}

func TestRegistryTenantSnapshotIsTenantScoped(t *testing.T) {
	registry := newTestRegistry()
	registry.Register(Key{TenantID: "coep", UserID: "u1"}, &fakeConn{})
	registry.Register(Key{TenantID: "coep", UserID: "u2"}, &fakeConn{})
	registry.Register(Key{TenantID: "mit", UserID: "u3"}, &fakeConn{})

	entries := registry.TenantSnapshot("coep")
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Equal(t, "coep", entry.Key.TenantID)
	}

	assert.Empty(t, registry.TenantSnapshot("unknown"))
}

func TestRegistryDrainClosesEverything(t *testing.T) {
	registry := newTestRegistry()
	conns := []*fakeConn{{}, {}, {}}
	for i, conn := range conns {
		registry.Register(Key{TenantID: "coep", UserID: string(rune('a' + i))}, conn)
	}

	registry.Drain(1001, "server shutting down")

	for _, conn := range conns {
		assert.True(t, conn.isClosed())
	}

	// Entries survive the drain so each session's own unregister still
	// succeeds and owns the offline flow.
	assert.Equal(t, 3, registry.Len())
	for i, conn := range conns {
		assert.True(t, registry.Unregister(Key{TenantID: "coep", UserID: string(rune('a' + i))}, conn))
	}
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryWait(t *testing.T) {
	registry := newTestRegistry()
	key := Key{TenantID: "coep", UserID: "u1"}
	conn := &fakeConn{}
	registry.Register(key, conn)

	assert.False(t, registry.Wait(50*time.Millisecond), "wait fails while a session lingers")

	go func() {
		time.Sleep(20 * time.Millisecond)
		registry.Unregister(key, conn)
	}()
	assert.True(t, registry.Wait(time.Second))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := Key{TenantID: "coep", UserID: string(rune('a' + n%10))}
			conn := &fakeConn{}
			registry.Register(key, conn)
			registry.TenantSnapshot("coep")
			registry.Lookup(key)
			registry.Unregister(key, conn)
		}(i)
	}
	wg.Wait()
}
