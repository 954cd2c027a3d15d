// File: internal/concurrency/signal.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Signal is a binary semaphore: Notify deposits a single permit that survives
// until a Wait consumes it, so a notification sent before the waiter arrives
// is never lost.

package concurrency

// Signal is a one-permit semaphore. The zero value is not usable.
type Signal struct {
	ch chan struct{}
}

// NewSignal returns an empty Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Notify deposits the permit. Extra notifications while it is held are dropped.
func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the permit is available and consumes it.
func (s *Signal) Wait() {
	<-s.ch
}

// TryWait consumes the permit if present.
func (s *Signal) TryWait() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
