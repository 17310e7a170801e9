package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned when sending to a closed inline queue.
var ErrClosed = errors.New("queue closed")

// InlineClient runs messages in-process on a bounded goroutine pool.
// It is used in dev and tests where no broker is configured.
type InlineClient struct {
	mu      sync.RWMutex
	handler Handler
	closed  bool

	sem chan struct{}
	wg  sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewInlineClient returns an inline queue with the given concurrency.
func NewInlineClient(concurrency int) *InlineClient {
	if concurrency <= 0 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &InlineClient{
		sem:    make(chan struct{}, concurrency),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetHandler installs the consumer. Messages sent before a handler is set are dropped.
func (c *InlineClient) SetHandler(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

// Send schedules msg for asynchronous handling.
func (c *InlineClient) Send(_ context.Context, msg Message, opts ...SendOption) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	delay := resolveOptions(opts).Delay
	c.wg.Add(1)
	if delay <= 0 {
		go c.run(msg)
		return nil
	}
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			c.run(msg)
		case <-c.ctx.Done():
			c.wg.Done()
		}
	}()
	return nil
}

func (c *InlineClient) run(msg Message) {
	defer c.wg.Done()
	if c.ctx.Err() != nil {
		return
	}

	select {
	case c.sem <- struct{}{}:
	case <-c.ctx.Done():
		return
	}
	defer func() { <-c.sem }()

	c.mu.RLock()
	h := c.handler
	c.mu.RUnlock()
	if h == nil {
		return
	}
	_ = h(c.ctx, msg)
}

// Close stops accepting messages, cancels delayed ones, and waits for
// in-flight handlers to return.
func (c *InlineClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// Drain waits for all scheduled messages without closing the queue.
func (c *InlineClient) Drain() {
	c.wg.Wait()
}

var _ Client = (*InlineClient)(nil)
