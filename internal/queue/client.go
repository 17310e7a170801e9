package queue

import (
	"context"
	"time"
)

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message, opts ...SendOption) error
}

// Handler consumes one message. A returned error is logged by the backend;
// redelivery is governed by the pipeline, not the queue.
type Handler func(ctx context.Context, msg Message) error

// SendOptions holds per-send settings.
type SendOptions struct {
	Delay time.Duration
}

// SendOption customizes a Send call.
type SendOption func(*SendOptions)

// WithDelay defers delivery by d.
func WithDelay(d time.Duration) SendOption {
	return func(o *SendOptions) {
		if d > 0 {
			o.Delay = d
		}
	}
}

func resolveOptions(opts []SendOption) SendOptions {
	var out SendOptions
	for _, opt := range opts {
		opt(&out)
	}
	return out
}
