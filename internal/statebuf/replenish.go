// File: internal/statebuf/replenish.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// replenisher keeps a bounded supply of empty StateBuffers ready so neither
// the allocation path nor the drain path pays for constructing one. Drained
// buffers come back through recycled, get zeroed off the hot path and are
// handed out again.

package statebuf

import (
	"sync"
	"sync/atomic"
)

type replenisher struct {
	build    func() *StateBuffer
	spares   chan *StateBuffer
	recycled chan *StateBuffer
	stop     chan struct{}
	wg       sync.WaitGroup
	warmers  int

	built  atomic.Int64
	reused atomic.Int64
}

func newReplenisher(warmers, capacity int, build func() *StateBuffer) *replenisher {
	if capacity < 1 {
		capacity = 1
	}
	r := &replenisher{
		build:    build,
		spares:   make(chan *StateBuffer, capacity),
		recycled: make(chan *StateBuffer, capacity),
		stop:     make(chan struct{}),
		warmers:  warmers,
	}
	for i := 0; i < warmers; i++ {
		r.wg.Add(1)
		go r.run()
	}
	return r
}

func (r *replenisher) run() {
	defer r.wg.Done()
	for {
		var buf *StateBuffer
		select {
		case <-r.stop:
			return
		case buf = <-r.recycled:
			buf.Reset()
			r.reused.Add(1)
		default:
			buf = r.build()
			r.built.Add(1)
		}
		select {
		case r.spares <- buf:
		case <-r.stop:
			return
		}
	}
}

// tryTake returns a ready buffer without constructing one.
func (r *replenisher) tryTake() (*StateBuffer, bool) {
	select {
	case buf := <-r.spares:
		return buf, true
	default:
	}
	select {
	case buf := <-r.recycled:
		buf.Reset()
		r.reused.Add(1)
		return buf, true
	default:
		return nil, false
	}
}

// take returns a ready buffer, constructing one inline if none is waiting.
func (r *replenisher) take() *StateBuffer {
	if buf, ok := r.tryTake(); ok {
		return buf
	}
	r.built.Add(1)
	return r.build()
}

// recycle offers a drained buffer back. A full recycle queue drops it.
func (r *replenisher) recycle(buf *StateBuffer) {
	select {
	case r.recycled <- buf:
	default:
	}
}

// close stops the warmers, waits for them and releases whatever is queued.
func (r *replenisher) close() {
	close(r.stop)
	r.wg.Wait()
	for {
		select {
		case <-r.spares:
		case <-r.recycled:
		default:
			return
		}
	}
}
