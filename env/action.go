// File: env/action.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package env

import (
	"fmt"

	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/envspec"
)

// Action is the part of an action batch addressed to one env: its own row of
// every shared field and the rows of every per-player field whose
// players.env_id names this env. The zero Action carries nothing.
type Action struct {
	spec    *envspec.Spec
	fields  []array.Array
	row     int
	players []int
}

// NewAction binds row of a flattened action batch (one array per action
// field, in spec order) and the given player rows.
func NewAction(spec *envspec.Spec, fields []array.Array, row int, players []int) Action {
	return Action{spec: spec, fields: fields, row: row, players: players}
}

// Empty reports whether no action is bound.
func (a Action) Empty() bool { return a.fields == nil }

// NumPlayers returns the number of player rows bound to this env.
func (a Action) NumPlayers() int { return len(a.players) }

func (a Action) field(name string) (array.Array, array.ShapeSpec) {
	if a.spec == nil {
		panic(fmt.Errorf("%w: empty action has no field %q", envspec.ErrUnknownField, name))
	}
	i, ok := a.spec.ActionIndex(name)
	if !ok {
		panic(fmt.Errorf("%w: action field %q", envspec.ErrUnknownField, name))
	}
	return a.fields[i], a.spec.Action[i]
}

// Field returns this env's row of a shared action field. For a per-player
// field it returns the row of the first bound player.
func (a Action) Field(name string) array.Array {
	arr, spec := a.field(name)
	if spec.IsPlayer() {
		return a.Player(name, 0)
	}
	return arr.Row(a.row)
}

// Player returns the k-th bound player's row of a per-player field.
func (a Action) Player(name string, k int) array.Array {
	arr, spec := a.field(name)
	if !spec.IsPlayer() {
		panic(fmt.Errorf("%w: %q is not a per-player field", envspec.ErrUnknownField, name))
	}
	if k < 0 || k >= len(a.players) {
		panic(fmt.Sprintf("env: player %d of %d", k, len(a.players)))
	}
	return arr.Row(a.players[k])
}

// Float returns the first element of a field row as float64, whatever its dtype.
func (a Action) Float(name string) float64 {
	return a.Field(name).Float64At(0)
}

// Int returns the first element of a field row truncated to int.
func (a Action) Int(name string) int {
	return int(a.Field(name).Float64At(0))
}
