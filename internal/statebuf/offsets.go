// File: internal/statebuf/offsets.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package statebuf

import "sync/atomic"

// Layout of the packed offset word:
//
//	bits 63..32  player row offset
//	bits 31..0   shared row offset
//
// Both halves move together under a single fetch-add, so no reader can see a
// player range advance without the shared row that owns it.
const (
	sharedBits = 32
	sharedMask = 1<<sharedBits - 1
)

// offsets is the unpacked form of the word.
type offsets struct {
	Player uint32
	Shared uint32
}

func packOffsets(o offsets) uint64 {
	return uint64(o.Player)<<sharedBits | uint64(o.Shared)
}

func unpackOffsets(w uint64) offsets {
	return offsets{Player: uint32(w >> sharedBits), Shared: uint32(w & sharedMask)}
}

// reservation is the increment for one slot of numPlayers player rows.
func reservation(numPlayers int) uint64 {
	return packOffsets(offsets{Player: uint32(numPlayers), Shared: 1})
}

// packedOffsets is the atomic word. Shared never exceeds the batch size, so
// the low half cannot carry into the high half.
type packedOffsets struct {
	word atomic.Uint64
}

// reserve claims one shared row and numPlayers player rows and returns the
// offsets they start at.
func (p *packedOffsets) reserve(numPlayers int) offsets {
	inc := reservation(numPlayers)
	return unpackOffsets(p.word.Add(inc) - inc)
}

func (p *packedOffsets) load() offsets {
	return unpackOffsets(p.word.Load())
}

func (p *packedOffsets) reset() {
	p.word.Store(0)
}
