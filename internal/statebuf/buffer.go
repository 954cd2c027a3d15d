// File: internal/statebuf/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// StateBuffer holds one in-flight batch. Workers reserve disjoint rows with a
// single atomic add and write into them concurrently; the reader blocks in
// Wait until every expected slot reported completion.

package statebuf

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/internal/concurrency"
)

const cacheLinePad = 64

// StateBuffer is a slot allocator over batch shared rows and
// batch*maxPlayers player rows.
type StateBuffer struct {
	batch      int
	maxPlayers int
	arrays     []array.Array
	isPlayer   []bool

	offsets    packedOffsets
	_          [cacheLinePad]byte
	allocCount atomic.Int64 // granted slots; saturated at batch once drained
	_          [cacheLinePad]byte
	doneCount  atomic.Int64
	_          [cacheLinePad]byte

	ready   *concurrency.Signal
	drained atomic.Bool
}

// NewStateBuffer allocates storage for fields; shared fields get batch rows
// and per-player fields batch*maxPlayers rows.
func NewStateBuffer(batch, maxPlayers int, fields []array.ShapeSpec) *StateBuffer {
	if batch <= 0 || maxPlayers <= 0 {
		panic(fmt.Sprintf("statebuf: invalid batch %d or max players %d", batch, maxPlayers))
	}
	b := &StateBuffer{
		batch:      batch,
		maxPlayers: maxPlayers,
		arrays:     make([]array.Array, len(fields)),
		isPlayer:   make([]bool, len(fields)),
		ready:      concurrency.NewSignal(),
	}
	for i, f := range fields {
		rows := batch
		if f.IsPlayer() {
			rows = batch * maxPlayers
			b.isPlayer[i] = true
		}
		b.arrays[i] = array.New(f, rows)
	}
	return b
}

// Slot is the writable view of one reservation.
type Slot struct {
	Arrays       []array.Array // one entry per field, in spec order
	SharedIndex  int
	PlayerOffset int
	NumPlayers   int

	buf  *StateBuffer
	done bool
}

// Done reports the slot as written. Calls after the first are ignored.
func (s *Slot) Done() {
	if s.done {
		return
	}
	s.done = true
	s.buf.Done(1)
}

// Allocate reserves one shared row and numPlayers player rows. With order set
// and a single player per env the slot index is pinned to order instead of
// arrival order.
func (b *StateBuffer) Allocate(numPlayers, order int) (*Slot, error) {
	if numPlayers < 0 || numPlayers > b.maxPlayers {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPlayers, numPlayers, b.maxPlayers)
	}
	if !b.claim() {
		return nil, ErrBufferExhausted
	}
	off := b.offsets.reserve(numPlayers)
	shared, player := int(off.Shared), int(off.Player)
	if order != concurrency.Unordered && b.maxPlayers == 1 {
		shared, player = order, order
	}
	if shared < 0 || shared >= b.batch || player+numPlayers > b.batch*b.maxPlayers {
		panic(fmt.Errorf("%w: shared row %d, player rows [%d,%d) for batch %d x %d",
			ErrBufferOverflow, shared, player, player+numPlayers, b.batch, b.maxPlayers))
	}

	arrs := make([]array.Array, len(b.arrays))
	for i, a := range b.arrays {
		if b.isPlayer[i] {
			arrs[i] = a.Slice(player, player+numPlayers)
		} else {
			arrs[i] = a.Slice(shared, shared+1)
		}
	}
	return &Slot{
		Arrays:       arrs,
		SharedIndex:  shared,
		PlayerOffset: player,
		NumPlayers:   numPlayers,
		buf:          b,
	}, nil
}

// claim bumps the allocation guard unless it already reached batch.
func (b *StateBuffer) claim() bool {
	limit := int64(b.batch)
	for {
		n := b.allocCount.Load()
		if n >= limit {
			return false
		}
		if b.allocCount.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Done adds n completions. The reader is released exactly once, by the call
// that carries the count across batch.
func (b *StateBuffer) Done(n int) {
	if n <= 0 {
		return
	}
	now := b.doneCount.Add(int64(n))
	prev := now - int64(n)
	if limit := int64(b.batch); prev < limit && now >= limit {
		b.ready.Notify()
	}
}

// Wait pre-credits additional completions for slots that will never be
// allocated, blocks until the batch is complete and returns the filled rows.
// The offset and completion counters are cleared; the allocation guard stays
// saturated so the drained buffer takes no writes until Reset.
func (b *StateBuffer) Wait(additional int) []array.Array {
	if additional > 0 {
		b.Done(additional)
	}
	b.ready.Wait()

	off := b.offsets.load()
	if int(off.Shared) != b.batch-additional {
		panic(fmt.Errorf("%w: %d slots allocated, expected %d (batch %d, credited %d)",
			ErrSyncInvariant, off.Shared, b.batch-additional, b.batch, additional))
	}

	out := make([]array.Array, len(b.arrays))
	for i, a := range b.arrays {
		if b.isPlayer[i] {
			out[i] = a.Truncate(int(off.Player))
		} else {
			out[i] = a.Truncate(int(off.Shared))
		}
	}

	b.allocCount.Store(int64(b.batch))
	b.drained.Store(true)
	b.offsets.reset()
	b.doneCount.Store(0)
	return out
}

// Reset zeroes the storage and reopens the buffer for allocation.
func (b *StateBuffer) Reset() {
	for _, a := range b.arrays {
		a.Zero()
	}
	b.ready.TryWait()
	b.offsets.reset()
	b.doneCount.Store(0)
	b.drained.Store(false)
	b.allocCount.Store(0)
}

// Drained reports whether Wait handed this buffer out since the last Reset.
func (b *StateBuffer) Drained() bool {
	return b.drained.Load()
}

// Offsets returns the current player and shared offsets.
func (b *StateBuffer) Offsets() (player, shared int) {
	off := b.offsets.load()
	return int(off.Player), int(off.Shared)
}

// Batch returns the number of slots per batch.
func (b *StateBuffer) Batch() int { return b.batch }
