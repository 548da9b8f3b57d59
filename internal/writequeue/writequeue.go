// Package writequeue serializes positional writes to one target.
//
// Every logical file owns exactly one Queue. Writes are applied by a single
// worker goroutine in the order Write was called, so overlapping writes from
// different chunks never interleave at the byte level.
package writequeue

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("write queue closed")

// Target is the resource a Queue writes to.
type Target interface {
	WriteAt(ctx context.Context, p []byte, off int64) error
	io.Closer
}

type request struct {
	ctx  context.Context
	p    []byte
	off  int64
	done chan error
}

// Queue applies writes to a Target one at a time in submission order.
type Queue struct {
	target Target

	mu      sync.Mutex
	cond    *sync.Cond
	pending []*request
	closed  bool
	wg      sync.WaitGroup
}

// New starts a Queue writing to target. The Queue owns target and closes it
// in Close.
func New(target Target) *Queue {
	q := &Queue{target: target}
	q.cond = sync.NewCond(&q.mu)
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *Queue) run() {
	defer q.wg.Done()
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			return
		}

		req := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]

		q.mu.Unlock()
		err := req.ctx.Err()
		if err == nil {
			err = q.target.WriteAt(req.ctx, req.p, req.off)
		}
		req.done <- err
		q.mu.Lock()
	}
}

// Write enqueues p for position off and waits until it has been applied.
// p must not be modified until Write returns.
func (q *Queue) Write(ctx context.Context, p []byte, off int64) error {
	req := &request{ctx: ctx, p: p, off: off, done: make(chan error, 1)}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, req)
	q.cond.Signal()
	q.mu.Unlock()

	return <-req.done
}

// Pending returns the number of writes waiting to be applied.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting writes, waits for queued writes to finish and closes
// the target. Calling Close more than once returns ErrClosed.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.closed = true
	q.cond.Signal()
	q.mu.Unlock()

	q.wg.Wait()
	return q.target.Close()
}
