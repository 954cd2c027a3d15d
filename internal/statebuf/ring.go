// File: internal/statebuf/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BufferRing lets several batches be in flight at once. Allocation n lands in
// cell (n / batch) % size and drain n in cell n % size; both counters only
// grow, so the k-th batch allocated is the k-th batch drained.
//
// A cell normally holds one buffer (tail). When allocation laps the ring onto
// a cell whose buffer is full but not yet drained, that buffer moves to the
// cell's backlog and a spare takes its place. Wait always drains the oldest
// buffer of the cell first, so completed rows are never overwritten.
//
// A position taken from allocCount always ends up as a slot: requests are
// validated before the position is taken, and an exhausted cell builds a
// buffer inline when no spare is ready.

package statebuf

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/envpool/array"
)

// DefaultWarmers is the number of background goroutines building spares.
const DefaultWarmers = 2

// RingConfig describes a BufferRing.
type RingConfig struct {
	Batch      int
	NumEnvs    int
	MaxPlayers int
	Fields     []array.ShapeSpec // unbatched state fields
	Size       int               // cells; 0 derives it from NumEnvs/Batch
	Warmers    int               // spare builders; 0 means DefaultWarmers, <0 none
	Spares     int               // handoff capacity; 0 means Size
}

// RingSize is the default cell count: enough for every env to be a batch
// ahead of the reader, doubled.
func RingSize(numEnvs, batch int) int {
	return (numEnvs/batch + 2) * 2
}

type cell struct {
	mu      sync.Mutex
	tail    atomic.Pointer[StateBuffer]
	backlog []*StateBuffer
	_       [cacheLinePad]byte
}

// BufferRing is the multi-buffer allocator shared by all workers.
type BufferRing struct {
	batch      int
	maxPlayers int
	cells      []cell

	allocCount atomic.Uint64
	_          [cacheLinePad]byte
	drainCount atomic.Uint64
	_          [cacheLinePad]byte

	replenish   *replenisher
	lastDrained *StateBuffer // owned by the reader goroutine
	closed      atomic.Bool
	swaps       atomic.Int64
}

// NewBufferRing builds the ring and starts its replenishment goroutines.
func NewBufferRing(cfg RingConfig) *BufferRing {
	size := cfg.Size
	if size <= 0 {
		size = RingSize(cfg.NumEnvs, cfg.Batch)
	}
	warmers := cfg.Warmers
	if warmers == 0 {
		warmers = DefaultWarmers
	}
	if warmers < 0 {
		warmers = 0
	}
	spares := cfg.Spares
	if spares <= 0 {
		spares = size
	}
	fields := append([]array.ShapeSpec(nil), cfg.Fields...)
	build := func() *StateBuffer {
		return NewStateBuffer(cfg.Batch, cfg.MaxPlayers, fields)
	}

	r := &BufferRing{
		batch:      cfg.Batch,
		maxPlayers: cfg.MaxPlayers,
		cells:      make([]cell, size),
	}
	for i := range r.cells {
		r.cells[i].tail.Store(build())
	}
	r.replenish = newReplenisher(warmers, spares, build)
	return r
}

// Allocate reserves a slot in the cell owning the next allocation position.
// An invalid request is rejected before it takes a position. If the cell's
// buffer is exhausted it is replaced and the allocation retried.
func (r *BufferRing) Allocate(numPlayers, order int) (*Slot, error) {
	if r.closed.Load() {
		return nil, ErrRingClosed
	}
	if numPlayers < 0 || numPlayers > r.maxPlayers {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPlayers, numPlayers, r.maxPlayers)
	}
	pos := r.allocCount.Add(1) - 1
	c := &r.cells[(pos/uint64(r.batch))%uint64(len(r.cells))]

	buf := c.tail.Load()
	for {
		slot, err := buf.Allocate(numPlayers, order)
		if !errors.Is(err, ErrBufferExhausted) {
			return slot, err
		}
		buf = r.replace(c, buf)
	}
}

// replace swaps the exhausted tail of c for a spare, building one inline if
// none is ready. A buffer that still holds undrained rows is parked in the
// backlog. If another allocator already replaced full, the current tail is
// returned.
func (r *BufferRing) replace(c *cell, full *StateBuffer) *StateBuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur := c.tail.Load(); cur != full {
		return cur
	}
	spare := r.replenish.take()
	if !full.Drained() {
		c.backlog = append(c.backlog, full)
	}
	c.tail.Store(spare)
	r.swaps.Add(1)
	return spare
}

// Wait drains the next batch in order. additional pre-credits slots the
// caller knows will never be allocated; the same credit is applied to the
// allocation counter so both sides keep pointing at the same batch.
//
// The returned arrays stay valid until the following Wait.
func (r *BufferRing) Wait(additional int) []array.Array {
	pos := r.drainCount.Add(1) - 1
	c := &r.cells[pos%uint64(len(r.cells))]

	c.mu.Lock()
	target := c.tail.Load()
	if len(c.backlog) > 0 {
		target = c.backlog[0]
	}
	c.mu.Unlock()

	out := target.Wait(additional)
	if additional > 0 {
		r.allocCount.Add(uint64(additional))
	}

	c.mu.Lock()
	switch {
	case len(c.backlog) > 0 && c.backlog[0] == target:
		c.backlog[0] = nil
		c.backlog = c.backlog[1:]
	case c.tail.Load() == target:
		c.tail.Store(r.replenish.take())
	}
	c.mu.Unlock()

	if r.lastDrained != nil {
		r.replenish.recycle(r.lastDrained)
	}
	r.lastDrained = target
	return out
}

// Size returns the number of cells.
func (r *BufferRing) Size() int { return len(r.cells) }

// Batch returns the batch size.
func (r *BufferRing) Batch() int { return r.batch }

// Stats returns counters for debug probes.
func (r *BufferRing) Stats() map[string]int64 {
	backlog := 0
	for i := range r.cells {
		c := &r.cells[i]
		c.mu.Lock()
		backlog += len(c.backlog)
		c.mu.Unlock()
	}
	return map[string]int64{
		"alloc_count":    int64(r.allocCount.Load()),
		"drain_count":    int64(r.drainCount.Load()),
		"swaps":          r.swaps.Load(),
		"backlog":        int64(backlog),
		"buffers_built":  r.replenish.built.Load(),
		"buffers_reused": r.replenish.reused.Load(),
		"spares_ready":   int64(len(r.replenish.spares)),
		"size":           int64(len(r.cells)),
	}
}

// Close rejects further allocations and stops the replenishment goroutines.
// Safe to call more than once.
func (r *BufferRing) Close() {
	if r.closed.CompareAndSwap(false, true) {
		r.replenish.close()
	}
}
