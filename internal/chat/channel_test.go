package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTestChannel spins up a server that upgrades the first request and
// wraps it in an open Channel, then dials it. Returns the server-side
// channel and the client-side raw connection.
func dialTestChannel(t *testing.T, cfg ChannelConfig) (*Channel, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	channels := make(chan *Channel, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ch := NewChannel(conn, cfg)
		ch.Open()
		channels <- ch
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case ch := <-channels:
		t.Cleanup(func() { ch.Close(websocket.CloseNormalClosure, "") })
		return ch, client
	case <-time.After(2 * time.Second):
		t.Fatal("server never produced a channel")
		return nil, nil
	}
}

func testChannelConfig() ChannelConfig {
	return ChannelConfig{
		SendTimeout:    time.Second,
		MaxMessageSize: 64 * 1024,
		Logger:         zerolog.Nop(),
	}
}

func TestChannelRoundTrip(t *testing.T) {
	ch, client := dialTestChannel(t, testChannelConfig())

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	payload, err := ch.Receive()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"ping"}`, string(payload))

	require.NoError(t, ch.Send([]byte(`{"type":"pong"}`)))
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, got, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"pong"}`, string(got))
}

func TestChannelCloseSendsCloseCode(t *testing.T) {
	ch, client := dialTestChannel(t, testChannelConfig())

	ch.Close(websocket.ClosePolicyViolation, "invalid credential")

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation),
		"client should observe the policy-violation close code, got %v", err)
}

func TestChannelSendAfterClose(t *testing.T) {
	ch, _ := dialTestChannel(t, testChannelConfig())

	ch.Close(websocket.CloseNormalClosure, "")

	err := ch.Send([]byte("late"))
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestChannelReceiveAfterPeerDisconnect(t *testing.T) {
	ch, client := dialTestChannel(t, testChannelConfig())

	require.NoError(t, client.Close())

	_, err := ch.Receive()
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestChannelReadLimitEnforced(t *testing.T) {
	cfg := testChannelConfig()
	cfg.MaxMessageSize = 16
	ch, client := dialTestChannel(t, cfg)

	oversized := strings.Repeat("x", 64)
	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(oversized)))

	_, err := ch.Receive()
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestChannelCloseIsIdempotent(t *testing.T) {
	ch, _ := dialTestChannel(t, testChannelConfig())

	ch.Close(websocket.CloseNormalClosure, "")
	ch.Close(websocket.CloseInternalServerErr, "second close must be a no-op")
}
