// File: env/writer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Writer hands an env its slots in the state buffer for one step. Reserved
// fields are filled here; the env only writes its own fields.

package env

import (
	"errors"
	"fmt"

	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/envspec"
	"github.com/momentics/envpool/internal/concurrency"
	"github.com/momentics/envpool/internal/statebuf"
)

// ErrAlreadyAllocated is returned by a second Allocate in a step whose slot
// index is pinned.
var ErrAlreadyAllocated = errors.New("env: slot already allocated for this step")

// Allocator is the slot source a Writer draws from.
type Allocator interface {
	Allocate(numPlayers, order int) (*statebuf.Slot, error)
}

// Writer is valid for a single Reset or Step call.
type Writer struct {
	alloc   Allocator
	spec    *envspec.Spec
	envID   int
	order   int
	elapsed int
	states  []*State
}

// NewWriter prepares a writer for env envID. order pins the slot index
// (concurrency.Unordered otherwise); elapsed is the step count written into
// elapsed_step.
func NewWriter(alloc Allocator, spec *envspec.Spec, envID, order, elapsed int) *Writer {
	return &Writer{alloc: alloc, spec: spec, envID: envID, order: order, elapsed: elapsed}
}

// EnvID returns the id of the env being stepped.
func (w *Writer) EnvID() int { return w.envID }

// ElapsedStep returns the step count of the current episode.
func (w *Writer) ElapsedStep() int { return w.elapsed }

// Allocated returns how many slots were taken so far.
func (w *Writer) Allocated() int { return len(w.states) }

// Allocate reserves one shared row and numPlayers player rows and fills in
// the reserved fields.
func (w *Writer) Allocate(numPlayers int) (*State, error) {
	if w.order != concurrency.Unordered && len(w.states) > 0 {
		return nil, ErrAlreadyAllocated
	}
	slot, err := w.alloc.Allocate(numPlayers, w.order)
	if err != nil {
		return nil, fmt.Errorf("env %d: allocate %d players: %w", w.envID, numPlayers, err)
	}
	s := &State{spec: w.spec, slot: slot}
	s.Field(envspec.FieldEnvID).Int32s()[0] = int32(w.envID)
	s.Field(envspec.FieldElapsedStep).Int32s()[0] = int32(w.elapsed)
	ids := s.Field(envspec.FieldPlayersEnvID).Int32s()
	for i := range ids {
		ids[i] = int32(w.envID)
	}
	w.states = append(w.states, s)
	return s, nil
}

// Finish writes done and trunc into every allocated slot and releases them
// to the reader. It returns the number of slots released.
func (w *Writer) Finish(done, trunc bool) int {
	for _, s := range w.states {
		s.Field(envspec.FieldDone).Bools()[0] = done
		s.Field(envspec.FieldTrunc).Bools()[0] = trunc
		s.slot.Done()
	}
	n := len(w.states)
	w.states = nil
	return n
}

// State is the writable view of one allocated slot.
type State struct {
	spec *envspec.Spec
	slot *statebuf.Slot
}

// Field returns the rows reserved for a state field: one row for a shared
// field, NumPlayers rows for a per-player field. Unknown names panic.
func (s *State) Field(name string) array.Array {
	i, ok := s.spec.StateIndex(name)
	if !ok {
		panic(fmt.Errorf("%w: state field %q", envspec.ErrUnknownField, name))
	}
	return s.slot.Arrays[i]
}

// NumPlayers returns the number of player rows in the slot.
func (s *State) NumPlayers() int { return s.slot.NumPlayers }

// Index returns the slot's row in the batch.
func (s *State) Index() int { return s.slot.SharedIndex }
