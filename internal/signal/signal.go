// Package signal implements a single-assignment, multi-waiter completion
// signal. Exactly one writer resolves a signal exactly once, either
// successfully or with an error; any number of readers may wait concurrently
// and all observe the resolution. Resolution establishes a happens-before
// edge between the writer and every waiter.
package signal

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyResolved is returned by Resolve and Fail when the signal has
// already been resolved.
var ErrAlreadyResolved = errors.New("signal already resolved")

// Signal is a one-shot broadcast barrier.
type Signal struct {
	mu   sync.Mutex
	ch   chan struct{}
	err  error
	done bool
}

// New creates an unresolved signal.
func New() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Resolve marks the signal as successfully resolved and wakes all waiters.
// A second resolution attempt of any kind returns ErrAlreadyResolved.
func (s *Signal) Resolve() error {
	return s.settle(nil)
}

// Fail resolves the signal with an error. Waiters observe err instead of
// blocking forever; this is the injection point a scheduler uses when the
// owning worker dies before resolving.
func (s *Signal) Fail(err error) error {
	if err == nil {
		return s.settle(nil)
	}
	return s.settle(err)
}

func (s *Signal) settle(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return ErrAlreadyResolved
	}
	s.done = true
	s.err = err
	close(s.ch)
	return nil
}

// Wait blocks until the signal resolves or ctx is canceled. It returns the
// resolution error, if any, or the context's error on cancellation.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the signal resolves.
func (s *Signal) Done() <-chan struct{} {
	return s.ch
}

// Resolved reports whether the signal has been resolved.
func (s *Signal) Resolved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the resolution error, or nil if the signal resolved
// successfully or has not resolved yet.
func (s *Signal) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
