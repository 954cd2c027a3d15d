// File: envspec/spec.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Spec binds a Config to the state and action fields of an environment type.
// Field indices are computed once here and handed to every consumer, so
// nothing looks fields up through package-level tables.

package envspec

import (
	"fmt"

	"github.com/momentics/envpool/api"
	"github.com/momentics/envpool/array"
)

// Reserved field names. They are written by the pool, not by environments.
const (
	FieldEnvID        = "env_id"
	FieldElapsedStep  = "elapsed_step"
	FieldDone         = "done"
	FieldTrunc        = "trunc"
	FieldPlayersEnvID = "players.env_id"
)

// ErrUnknownField is returned for a field name missing from the spec.
var ErrUnknownField = fmt.Errorf("envspec: unknown field: %w", api.ErrNotFound)

// ReservedState lists the state fields every pool writes.
func ReservedState() []array.ShapeSpec {
	return []array.ShapeSpec{
		array.Spec(FieldEnvID, array.Int32),
		array.Spec(FieldElapsedStep, array.Int32),
		array.Spec(FieldDone, array.Bool),
		array.Spec(FieldTrunc, array.Bool),
		array.Spec(FieldPlayersEnvID, array.Int32, array.PlayerDim),
	}
}

// ReservedAction lists the action fields every action batch carries.
func ReservedAction() []array.ShapeSpec {
	return []array.ShapeSpec{
		array.Spec(FieldEnvID, array.Int32),
		array.Spec(FieldPlayersEnvID, array.Int32, array.PlayerDim),
	}
}

// Spec is the immutable description of one pool.
type Spec struct {
	Config Config
	State  []array.ShapeSpec
	Action []array.ShapeSpec

	stateIndex  map[string]int
	actionIndex map[string]int
}

// New normalizes and validates cfg and prepends the reserved fields to the
// env-specific state and action fields.
func New(cfg Config, state, action []array.ShapeSpec) (*Spec, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Spec{
		Config:      cfg,
		State:       append(ReservedState(), state...),
		Action:      append(ReservedAction(), action...),
		stateIndex:  make(map[string]int),
		actionIndex: make(map[string]int),
	}
	if err := index(s.State, s.stateIndex); err != nil {
		return nil, err
	}
	if err := index(s.Action, s.actionIndex); err != nil {
		return nil, err
	}
	return s, nil
}

func index(fields []array.ShapeSpec, into map[string]int) error {
	for i, f := range fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if _, dup := into[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidConfig, f.Name)
		}
		into[f.Name] = i
	}
	return nil
}

// IsSync reports whether the pool runs in lock-step mode.
func (s *Spec) IsSync() bool { return s.Config.IsSync() }

// StateIndex returns the position of a state field.
func (s *Spec) StateIndex(name string) (int, bool) {
	i, ok := s.stateIndex[name]
	return i, ok
}

// ActionIndex returns the position of an action field.
func (s *Spec) ActionIndex(name string) (int, bool) {
	i, ok := s.actionIndex[name]
	return i, ok
}

// StateIndexes returns a copy of the state name→position table.
func (s *Spec) StateIndexes() map[string]int {
	out := make(map[string]int, len(s.stateIndex))
	for k, v := range s.stateIndex {
		out[k] = v
	}
	return out
}

// BatchedState returns the state fields sized for one batch: shared fields
// get BatchSize rows, per-player fields BatchSize*MaxNumPlayers rows.
func (s *Spec) BatchedState() []array.ShapeSpec {
	out := make([]array.ShapeSpec, len(s.State))
	for i, f := range s.State {
		if f.IsPlayer() {
			out[i] = f.Batch(s.Config.BatchSize * s.Config.MaxNumPlayers)
		} else {
			out[i] = f.Batch(s.Config.BatchSize)
		}
	}
	return out
}

// Action is a structured action: named arrays, env_id required.
type Action map[string]array.Array

// Flatten orders a structured action by the action spec. players.env_id
// defaults to env_id when every env has a single player.
func (s *Spec) Flatten(a Action) ([]array.Array, error) {
	ids, ok := a[FieldEnvID]
	if !ok {
		return nil, fmt.Errorf("%w: action without %q", ErrUnknownField, FieldEnvID)
	}
	out := make([]array.Array, len(s.Action))
	for i, f := range s.Action {
		v, ok := a[f.Name]
		if !ok {
			if f.Name == FieldPlayersEnvID {
				v = ids
			} else {
				return nil, fmt.Errorf("%w: action field %q missing", ErrUnknownField, f.Name)
			}
		}
		if v.DType() != f.DType {
			return nil, fmt.Errorf("%w: action field %q is %v, want %v", ErrInvalidConfig, f.Name, v.DType(), f.DType)
		}
		if v.RowSize() != f.RowSize() {
			return nil, fmt.Errorf("%w: action field %q has rows of %d, want %d", ErrInvalidConfig, f.Name, v.RowSize(), f.RowSize())
		}
		out[i] = v
	}
	for name := range a {
		if _, ok := s.actionIndex[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}
	return out, nil
}
