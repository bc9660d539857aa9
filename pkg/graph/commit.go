package graph

import (
	"context"
	"sync/atomic"
)

// Commit tracks a queued write.
type Commit struct {
	id   *ID
	t    atomic.Uint64
	done chan struct{}
}

func newCommit(id *ID) *Commit {
	return &Commit{id: id, done: make(chan struct{})}
}

// ID returns the written node.
func (c *Commit) ID() *ID { return c.id }

// Time returns the time the write was committed at, or Epoch while it is
// still queued.
func (c *Commit) Time() Time {
	return TimeOf(c.t.Load())
}

// Done is closed once the write is committed and its refreshes have run.
func (c *Commit) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the write is committed or ctx is done.
func (c *Commit) Wait(ctx context.Context) (Time, error) {
	select {
	case <-c.done:
		return c.Time(), nil
	case <-ctx.Done():
		return Epoch, ctx.Err()
	}
}

func (c *Commit) commit(t Time) {
	c.t.Store(t.Uint64())
}

func (c *Commit) finish() {
	close(c.done)
}

// Future is the result of GetAsync.
type Future struct {
	done  chan struct{}
	value any
	err   error
}

// Done is closed when the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the read completes or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
