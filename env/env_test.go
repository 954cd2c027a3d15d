package env

import (
	"errors"
	"testing"

	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/envspec"
	"github.com/momentics/envpool/internal/concurrency"
	"github.com/momentics/envpool/internal/statebuf"
)

func newSpec(t *testing.T, numEnvs, players int) *envspec.Spec {
	t.Helper()
	cfg := envspec.DefaultConfig()
	cfg.NumEnvs = numEnvs
	cfg.MaxNumPlayers = players
	spec, err := envspec.New(cfg,
		[]array.ShapeSpec{array.Spec("obs", array.Float32, 2)},
		[]array.ShapeSpec{
			array.Spec("act", array.Int32),
			array.Spec("move", array.Float32, array.PlayerDim),
		})
	if err != nil {
		t.Fatal(err)
	}
	return spec
}

func TestWriterFillsReservedFields(t *testing.T) {
	spec := newSpec(t, 2, 3)
	buf := statebuf.NewStateBuffer(2, 3, spec.State)

	w := NewWriter(buf, spec, 1, concurrency.Unordered, 7)
	s, err := w.Allocate(2)
	if err != nil {
		t.Fatal(err)
	}
	s.Field("obs").Float32s()[1] = 0.5
	if n := w.Finish(true, false); n != 1 {
		t.Fatalf("released %d slots", n)
	}

	w2 := NewWriter(buf, spec, 0, concurrency.Unordered, 0)
	if _, err := w2.Allocate(1); err != nil {
		t.Fatal(err)
	}
	w2.Finish(false, true)

	out := buf.Wait(0)
	get := func(name string) array.Array {
		i, _ := spec.StateIndex(name)
		return out[i]
	}
	if ids := get(envspec.FieldEnvID).Int32s(); ids[0] != 1 || ids[1] != 0 {
		t.Errorf("env_id %v", ids)
	}
	if steps := get(envspec.FieldElapsedStep).Int32s(); steps[0] != 7 {
		t.Errorf("elapsed_step %v", steps)
	}
	if done := get(envspec.FieldDone).Bools(); !done[0] || done[1] {
		t.Errorf("done %v", done)
	}
	if trunc := get(envspec.FieldTrunc).Bools(); trunc[0] || !trunc[1] {
		t.Errorf("trunc %v", trunc)
	}
	if pids := get(envspec.FieldPlayersEnvID).Int32s(); len(pids) != 3 || pids[0] != 1 || pids[1] != 1 || pids[2] != 0 {
		t.Errorf("players.env_id %v", pids)
	}
	if obs := get("obs").Float32s(); obs[1] != 0.5 {
		t.Errorf("obs %v", obs)
	}
}

func TestWriterPinnedSlotAllocatesOnce(t *testing.T) {
	spec := newSpec(t, 2, 1)
	buf := statebuf.NewStateBuffer(2, 1, spec.State)
	w := NewWriter(buf, spec, 1, 1, 0)
	s, err := w.Allocate(1)
	if err != nil {
		t.Fatal(err)
	}
	if s.Index() != 1 {
		t.Errorf("slot %d, want pinned 1", s.Index())
	}
	if _, err := w.Allocate(1); !errors.Is(err, ErrAlreadyAllocated) {
		t.Fatalf("got %v, want ErrAlreadyAllocated", err)
	}
}

func TestWriterPropagatesAllocationErrors(t *testing.T) {
	spec := newSpec(t, 1, 1)
	buf := statebuf.NewStateBuffer(1, 1, spec.State)
	w := NewWriter(buf, spec, 0, concurrency.Unordered, 0)
	if _, err := w.Allocate(2); !errors.Is(err, statebuf.ErrTooManyPlayers) {
		t.Fatalf("got %v, want ErrTooManyPlayers", err)
	}
}

func TestActionBinding(t *testing.T) {
	spec := newSpec(t, 2, 2)
	fields, err := spec.Flatten(envspec.Action{
		envspec.FieldEnvID:        array.MustOf("env_id", nil, []int32{1, 0}),
		envspec.FieldPlayersEnvID: array.MustOf("players.env_id", nil, []int32{0, 1, 1}),
		"act":                     array.MustOf("act", nil, []int32{5, 6}),
		"move":                    array.MustOf("move", nil, []float32{0.1, 0.2, 0.3}),
	})
	if err != nil {
		t.Fatal(err)
	}

	a := NewAction(spec, fields, 0, []int{1, 2}) // env 1
	if a.Empty() || a.NumPlayers() != 2 {
		t.Fatalf("action %+v", a)
	}
	if a.Int("act") != 5 {
		t.Errorf("act %d, want 5", a.Int("act"))
	}
	if got := a.Player("move", 1).Float32s()[0]; got != 0.3 {
		t.Errorf("second player move %v", got)
	}
	if got := a.Float("move"); got != float64(float32(0.2)) {
		t.Errorf("first player move %v", got)
	}
	if !(Action{}).Empty() {
		t.Error("zero action not empty")
	}
}

func TestActionUnknownFieldPanics(t *testing.T) {
	spec := newSpec(t, 1, 1)
	a := NewAction(spec, make([]array.Array, len(spec.Action)), 0, nil)
	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, envspec.ErrUnknownField) {
			t.Fatalf("recovered %v", err)
		}
	}()
	a.Field("nope")
}
