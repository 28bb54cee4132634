package chat

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// writeWait bounds a single write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before the read
	// side gives up; pings go out at pingPeriod to keep it alive.
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// sendBuffer is the per-connection outbound queue depth.
	sendBuffer = 256
)

// ChannelConfig carries the per-connection transport limits.
type ChannelConfig struct {
	// SendTimeout bounds how long Send blocks on a full outbound queue
	// before the peer is treated as disconnected.
	SendTimeout time.Duration

	// MaxMessageSize caps inbound frame size in bytes.
	MaxMessageSize int64

	Logger zerolog.Logger
}

// Channel wraps one WebSocket connection as a bidirectional text-frame
// transport. Lifecycle is Connecting -> Open -> Closed; Closed is terminal
// and a reconnecting client gets a fresh Channel.
//
// The owner of the channel runs Receive in its own loop; Send may be called
// concurrently from any fan-out path and hands frames to the write pump.
type Channel struct {
	conn        *websocket.Conn
	send        chan []byte
	sendTimeout time.Duration
	log         zerolog.Logger

	openOnce  sync.Once
	closeOnce sync.Once
	closed    chan struct{}
}

// NewChannel wraps an upgraded connection. The channel stays in the
// connecting state until Open is called.
func NewChannel(conn *websocket.Conn, cfg ChannelConfig) *Channel {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 5 * time.Second
	}
	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Channel{
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		sendTimeout: cfg.SendTimeout,
		log:         cfg.Logger,
		closed:      make(chan struct{}),
	}
}

// Open transitions the channel to the open state exactly once: read
// deadlines and the pong handler are armed and the write pump starts.
func (c *Channel) Open() {
	c.openOnce.Do(func() {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn().Err(err).Msg("setting initial read deadline")
		}
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go c.writePump()
	})
}

// Receive blocks until the next text frame arrives or the channel closes.
func (c *Channel) Receive() ([]byte, error) {
	_, payload, err := c.conn.ReadMessage()
	if err != nil {
		c.logReadError(err)
		return nil, fmt.Errorf("%w: %v", ErrChannelClosed, err)
	}
	return payload, nil
}

// Send queues a text frame for delivery. It fails with ErrChannelClosed if
// the transport is gone and ErrSendTimeout if the peer's queue stays full
// past the configured bound; either way the caller should treat the peer
// as disconnected.
func (c *Channel) Send(payload []byte) error {
	select {
	case <-c.closed:
		return ErrChannelClosed
	default:
	}

	timer := time.NewTimer(c.sendTimeout)
	defer timer.Stop()

	select {
	case c.send <- payload:
		return nil
	case <-c.closed:
		return ErrChannelClosed
	case <-timer.C:
		return ErrSendTimeout
	}
}

// Close terminates the channel with the given close code. Safe to call
// multiple times and from any goroutine; only the first call takes effect.
func (c *Channel) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)

		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(code, reason)
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			if !isExpectedCloseError(err) {
				c.log.Debug().Err(err).Msg("writing close message")
			}
		}
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				c.log.Debug().Err(err).Msg("closing connection")
			}
		}
	})
}

func (c *Channel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close(websocket.CloseInternalServerErr, "write failure")
	}()

	for {
		select {
		case payload := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.log.Debug().Err(err).Msg("setting write deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					c.log.Debug().Err(err).Msg("writing frame")
				}
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			return
		}
	}
}

// logReadError keeps disconnect noise at debug level and surfaces only the
// genuinely unexpected read failures.
func (c *Channel) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn().Err(err).Msg("inbound frame exceeded size limit")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug().Err(err).Msg("peer disconnected")
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.log.Debug().Err(err).Msg("connection closed")
	default:
		c.log.Warn().Err(err).Msg("websocket read error")
	}
}

// isExpectedCloseError checks for the error strings that routinely show up
// when either side tears down a connection.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe")
}
