package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Call is the cancellation handle of one submitted call.
type Call struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	cancelled bool
	delivered bool
}

func newCall(parent context.Context) *Call {
	ctx, cancel := context.WithCancel(parent)
	return &Call{
		id:     uuid.New().String(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID returns the call's unique identifier.
func (c *Call) ID() string {
	return c.id
}

// Cancel stops the call. Once Cancel returns the completion will not be
// invoked, even if the transport or a retry finishes later. In-flight
// transport is asked to stop through the call's context but may still
// complete silently.
func (c *Call) Cancel() {
	c.mu.Lock()
	c.cancelled = true
	c.mu.Unlock()
	c.cancel()
}

// IsCancelled reports whether Cancel was called.
func (c *Call) IsCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Done is closed when the call has finished, whether or not the completion
// was delivered.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the call has finished.
func (c *Call) Wait() {
	<-c.done
}

// deliver runs fn unless the call was cancelled or already delivered.
func (c *Call) deliver(fn func()) bool {
	c.mu.Lock()
	if c.cancelled || c.delivered {
		c.mu.Unlock()
		return false
	}
	c.delivered = true
	c.mu.Unlock()

	fn()
	return true
}

func (c *Call) finish() {
	c.cancel()
	close(c.done)
}
