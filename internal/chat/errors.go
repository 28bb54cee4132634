package chat

import "errors"

var (
	// ErrChannelClosed is returned by Send once the underlying transport is
	// gone. It is caught and logged per target during fan-out, never
	// propagated to abort delivery to the remaining peers.
	ErrChannelClosed = errors.New("channel closed")

	// ErrSendTimeout is returned when a peer's send buffer stays full past
	// the configured bound. The peer is treated as disconnected.
	ErrSendTimeout = errors.New("send timed out")

	// ErrMalformedMessage marks an inbound frame missing its kind or a
	// required recipient field. The frame is dropped; the channel stays
	// open.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrPersistenceFailure wraps a failed durable write. Fan-out is
	// skipped and the sender gets an error frame.
	ErrPersistenceFailure = errors.New("persistence failure")
)
