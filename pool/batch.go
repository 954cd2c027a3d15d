// File: pool/batch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// StateBatch is the result of one Recv. Its arrays alias ring storage and
// stay valid until the next Recv; Clone detaches a copy.

package pool

import (
	"fmt"

	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/envspec"
)

// StateBatch holds one array per state field, in spec order.
type StateBatch struct {
	spec   *envspec.Spec
	arrays []array.Array
}

// Len returns the number of env rows in the batch.
func (b *StateBatch) Len() int {
	if len(b.arrays) == 0 {
		return 0
	}
	return b.arrays[0].Rows()
}

// Field returns the batched array of a state field.
func (b *StateBatch) Field(name string) (array.Array, error) {
	i, ok := b.spec.StateIndex(name)
	if !ok {
		return array.Array{}, fmt.Errorf("%w: state field %q", envspec.ErrUnknownField, name)
	}
	return b.arrays[i], nil
}

// MustField is Field that panics on an unknown name.
func (b *StateBatch) MustField(name string) array.Array {
	a, err := b.Field(name)
	if err != nil {
		panic(err)
	}
	return a
}

// EnvIDs returns the env_id column.
func (b *StateBatch) EnvIDs() []int32 {
	return b.MustField(envspec.FieldEnvID).Int32s()
}

// Arrays returns the underlying arrays in spec order.
func (b *StateBatch) Arrays() []array.Array {
	return b.arrays
}

// Clone copies the batch out of ring storage.
func (b *StateBatch) Clone() *StateBatch {
	out := &StateBatch{spec: b.spec, arrays: make([]array.Array, len(b.arrays))}
	for i, a := range b.arrays {
		out.arrays[i] = a.Clone()
	}
	return out
}
