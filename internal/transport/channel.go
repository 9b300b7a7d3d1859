package transport

import (
	"context"
	"errors"
	"time"
)

// ErrReceiveTimeout is returned by Receive when no message arrived in time.
// It is not a transport failure.
var ErrReceiveTimeout = errors.New("receive timeout")

// ErrClosed is returned once the channel has been closed locally.
var ErrClosed = errors.New("channel closed")

// Channel is a duplex text message connection to the transcription service.
type Channel interface {
	// Send writes one complete message. Safe for concurrent callers.
	Send(payload []byte) error

	// Receive waits at most timeout for the next message. It returns
	// ErrReceiveTimeout when the wait elapses and ctx.Err() when ctx ends first.
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)

	// Close releases the connection.
	Close() error
}
