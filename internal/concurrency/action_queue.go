// File: internal/concurrency/action_queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ActionQueue is the bounded FIFO that carries step requests from the control
// goroutine to the workers. Producers block while a bulk insert does not fit,
// consumers block while the queue is empty.

package concurrency

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/envpool/api"
)

// ErrBulkTooLarge is returned when a single bulk insert exceeds the capacity
// and could therefore never be admitted.
var ErrBulkTooLarge = fmt.Errorf("action queue: bulk larger than capacity: %w", api.ErrInvalidArgument)

// ActionSlice is one step request for one environment.
type ActionSlice struct {
	EnvID      int
	Order      int // slot index in sync mode, -1 otherwise
	ForceReset bool
}

// Unordered is the Order of a slice whose slot follows completion order.
const Unordered = -1

// ActionQueue is a blocking bounded FIFO of ActionSlice.
type ActionQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    *queue.Queue
	capacity int
	size     atomic.Int64 // mirror of items.Length() for lock-free diagnostics
}

// NewActionQueue creates a queue holding up to 2*numEnvs slices.
func NewActionQueue(numEnvs int) *ActionQueue {
	if numEnvs <= 0 {
		numEnvs = 1
	}
	q := &ActionQueue{
		items:    queue.New(),
		capacity: numEnvs * 2,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// EnqueueBulk appends all slices once they fit, preserving their order, and
// wakes every waiting consumer.
func (q *ActionQueue) EnqueueBulk(slices []ActionSlice) error {
	if len(slices) == 0 {
		return nil
	}
	if len(slices) > q.capacity {
		return fmt.Errorf("%w: %d > %d", ErrBulkTooLarge, len(slices), q.capacity)
	}
	q.mu.Lock()
	for q.items.Length()+len(slices) > q.capacity {
		q.notFull.Wait()
	}
	for _, s := range slices {
		q.items.Add(s)
	}
	q.size.Store(int64(q.items.Length()))
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	return nil
}

// Dequeue removes the oldest slice, blocking while the queue is empty.
func (q *ActionQueue) Dequeue() ActionSlice {
	q.mu.Lock()
	for q.items.Length() == 0 {
		q.notEmpty.Wait()
	}
	s := q.items.Remove().(ActionSlice)
	q.size.Store(int64(q.items.Length()))
	q.mu.Unlock()
	q.notFull.Signal()
	return s
}

// SizeApprox returns an instantaneous count for diagnostics only.
func (q *ActionQueue) SizeApprox() int {
	return int(q.size.Load())
}

// Cap returns the fixed capacity.
func (q *ActionQueue) Cap() int {
	return q.capacity
}
