package cartpole

import (
	"math"
	"testing"

	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/env"
	"github.com/momentics/envpool/envspec"
	"github.com/momentics/envpool/internal/concurrency"
	"github.com/momentics/envpool/internal/statebuf"
)

func setup(t *testing.T, params map[string]any) (*envspec.Spec, *Env) {
	t.Helper()
	cfg := envspec.DefaultConfig()
	cfg.Params = params
	spec, err := Spec(cfg)
	if err != nil {
		t.Fatal(err)
	}
	e, err := New(spec, 0)
	if err != nil {
		t.Fatal(err)
	}
	return spec, e.(*Env)
}

func step(t *testing.T, spec *envspec.Spec, e *Env, action int32, reset bool) (obs []float32, reward float32) {
	t.Helper()
	buf := statebuf.NewStateBuffer(1, 1, spec.State)
	w := env.NewWriter(buf, spec, 0, concurrency.Unordered, e.steps)
	var err error
	if reset {
		err = e.Reset(w)
	} else {
		fields, ferr := spec.Flatten(envspec.Action{
			envspec.FieldEnvID: array.MustOf("env_id", nil, []int32{0}),
			"action":           array.MustOf("action", nil, []int32{action}),
		})
		if ferr != nil {
			t.Fatal(ferr)
		}
		err = e.Step(w, env.NewAction(spec, fields, 0, []int{0}))
	}
	if err != nil {
		t.Fatal(err)
	}
	w.Finish(e.IsDone(), false)
	out := buf.Wait(0)
	oi, _ := spec.StateIndex("obs")
	ri, _ := spec.StateIndex("reward")
	return out[oi].Float32s(), out[ri].Float32s()[0]
}

func TestCartPoleResetIsSmall(t *testing.T) {
	spec, e := setup(t, nil)
	if !e.IsDone() {
		t.Fatal("fresh env must ask for a reset")
	}
	obs, _ := step(t, spec, e, 0, true)
	for i, v := range obs {
		if math.Abs(float64(v)) > 0.05 {
			t.Errorf("obs[%d] = %v outside [-0.05, 0.05]", i, v)
		}
	}
	if e.IsDone() {
		t.Error("done right after reset")
	}
}

func TestCartPoleFallsWhenPushedOneWay(t *testing.T) {
	spec, e := setup(t, nil)
	step(t, spec, e, 0, true)
	var reward float32 = 1
	for i := 0; i < DefaultMaxSteps && !e.IsDone(); i++ {
		_, reward = step(t, spec, e, 1, false)
	}
	if !e.IsDone() {
		t.Fatal("pole never fell")
	}
	if e.steps >= DefaultMaxSteps || reward != 0 {
		t.Errorf("steps %d reward %v, want an early fall with zero reward", e.steps, reward)
	}
}

func TestCartPoleMaxSteps(t *testing.T) {
	spec, e := setup(t, map[string]any{"max_steps": 3})
	step(t, spec, e, 0, true)
	for i := 0; i < 3; i++ {
		if e.IsDone() {
			t.Fatalf("done after %d steps", i)
		}
		step(t, spec, e, int32(i%2), false)
	}
	if !e.IsDone() {
		t.Error("not done at max_steps")
	}
}

func TestCartPoleSeeding(t *testing.T) {
	spec, a := setup(t, nil)
	_, b := setup(t, nil)
	oa, _ := step(t, spec, a, 0, true)
	ob, _ := step(t, spec, b, 0, true)
	for i := range oa {
		if oa[i] != ob[i] {
			t.Fatalf("same seed gave %v and %v", oa, ob)
		}
	}
	other, _ := New(spec, 1)
	oc, _ := step(t, spec, other.(*Env), 0, true)
	if oc[0] == oa[0] && oc[2] == oa[2] {
		t.Error("env 1 reproduced env 0's start state")
	}
}
