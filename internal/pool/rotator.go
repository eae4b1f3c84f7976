package pool

import (
	"context"
	"errors"
)

// ErrEmptyPool is returned when a rotator is built with no backends.
var ErrEmptyPool = errors.New("pool: no backends")

// Rotator is a FIFO of backends. Acquire takes the front entry, Release puts
// an entry at the back, so sequential acquire/release pairs walk the pool in
// round-robin order. An acquired backend is held by one session only.
//
// Rotator is safe for concurrent use.
type Rotator struct {
	queue chan *Backend
}

// NewRotator creates a rotator over backends in the given order.
func NewRotator(backends []*Backend) (*Rotator, error) {
	if len(backends) == 0 {
		return nil, ErrEmptyPool
	}
	r := &Rotator{queue: make(chan *Backend, len(backends))}
	for _, b := range backends {
		r.queue <- b
	}
	return r, nil
}

// Acquire removes and returns the front backend, waiting while every backend
// is held. It returns ctx.Err() if ctx is done first.
func (r *Rotator) Acquire(ctx context.Context) (*Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case b := <-r.queue:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire is Acquire without waiting.
func (r *Rotator) TryAcquire() (*Backend, bool) {
	select {
	case b := <-r.queue:
		return b, true
	default:
		return nil, false
	}
}

// Release appends b to the back of the pool. Releasing a backend that was
// not acquired panics.
func (r *Rotator) Release(b *Backend) {
	select {
	case r.queue <- b:
	default:
		panic("pool: release without matching acquire")
	}
}

// Len returns the number of backends currently available.
func (r *Rotator) Len() int {
	return len(r.queue)
}

// Size returns the total number of pool entries.
func (r *Rotator) Size() int {
	return cap(r.queue)
}
