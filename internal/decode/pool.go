// Package decode provides payload parsers and the worker pool that runs them
// off the dispatch path.
package decode

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of concurrently running decode jobs.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// NewPool creates a pool running at most size jobs at once. A size below 1
// uses GOMAXPROCS.
func NewPool(size int) *Pool {
	n := int64(size)
	if n < 1 {
		n = int64(runtime.GOMAXPROCS(0))
	}
	return &Pool{
		sem:  semaphore.NewWeighted(n),
		size: n,
	}
}

// Size returns the maximum number of concurrent jobs.
func (p *Pool) Size() int {
	return int(p.size)
}

// Go waits for a free slot and runs fn on a new goroutine. The returned
// channel is closed when fn returns. If ctx ends before a slot is free, fn
// is not run and ctx's error is returned.
func (p *Pool) Go(ctx context.Context, fn func()) (<-chan struct{}, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer p.sem.Release(1)
		fn()
	}()
	return done, nil
}
