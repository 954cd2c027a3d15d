// File: env/cartpole/cartpole.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package cartpole is the classic pole-balancing control task.
//
// Params:
//
//	max_steps  episode limit reported as done (default 500)
package cartpole

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/env"
	"github.com/momentics/envpool/envspec"
)

const (
	gravity        = 9.81
	massCart       = 1.0
	massPole       = 0.1
	length         = 0.5
	totalMass      = massCart + massPole
	poleMassLength = massPole * length
	forceMax       = 10.0
	tau            = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12.0 * math.Pi / 180.0

	// DefaultMaxSteps is the episode limit without a max_steps param.
	DefaultMaxSteps = 500
)

// StateFields are the env-specific state fields: obs is
// [x, x_dot, theta, theta_dot].
func StateFields() []array.ShapeSpec {
	return []array.ShapeSpec{
		{Name: "obs", DType: array.Float32, Shape: []int{4}, Min: math.Inf(-1), Max: math.Inf(1)},
		array.Spec("reward", array.Float32),
	}
}

// ActionFields are the env-specific action fields: 0 pushes left, anything
// else right.
func ActionFields() []array.ShapeSpec {
	return []array.ShapeSpec{
		{Name: "action", DType: array.Int32, Min: 0, Max: 1},
	}
}

// Spec builds the spec for a cartpole pool.
func Spec(cfg envspec.Config) (*envspec.Spec, error) {
	return envspec.New(cfg, StateFields(), ActionFields())
}

// Env is one cart with its pole.
type Env struct {
	x, xDot, theta, thetaDot float64

	steps    int
	maxSteps int
	done     bool
	rng      *rand.Rand
}

// New is an env.Factory. Env i is seeded with Seed+i.
func New(spec *envspec.Spec, envID int) (env.Env, error) {
	maxSteps := spec.Config.IntParam("max_steps", DefaultMaxSteps)
	if maxSteps <= 0 {
		return nil, fmt.Errorf("%w: max_steps %d", envspec.ErrInvalidConfig, maxSteps)
	}
	if spec.Config.MaxNumPlayers != 1 {
		return nil, fmt.Errorf("%w: cartpole is single-player", envspec.ErrInvalidConfig)
	}
	return &Env{
		maxSteps: maxSteps,
		done:     true,
		rng:      rand.New(rand.NewSource(spec.Config.Seed + int64(envID))),
	}, nil
}

var _ env.Factory = New

func (e *Env) Reset(w *env.Writer) error {
	e.x = e.rng.Float64()*0.1 - 0.05
	e.xDot = e.rng.Float64()*0.1 - 0.05
	e.theta = e.rng.Float64()*0.1 - 0.05
	e.thetaDot = e.rng.Float64()*0.1 - 0.05
	e.steps = 0
	e.done = false
	return e.write(w, 0)
}

func (e *Env) Step(w *env.Writer, a env.Action) error {
	force := forceMax
	if a.Empty() || a.Int("action") == 0 {
		force = -forceMax
	}

	cosTheta := math.Cos(e.theta)
	sinTheta := math.Sin(e.theta)
	temp := (force + poleMassLength*e.thetaDot*e.thetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) / (length * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	e.x += tau * e.xDot
	e.xDot += tau * xAcc
	e.theta += tau * e.thetaDot
	e.thetaDot += tau * thetaAcc
	e.steps++

	fell := e.x < -xThreshold || e.x > xThreshold || e.theta < -thetaThreshold || e.theta > thetaThreshold
	e.done = fell || e.steps >= e.maxSteps
	reward := float32(1)
	if fell {
		reward = 0
	}
	return e.write(w, reward)
}

func (e *Env) IsDone() bool { return e.done }

func (e *Env) write(w *env.Writer, reward float32) error {
	s, err := w.Allocate(1)
	if err != nil {
		return err
	}
	obs := s.Field("obs").Float32s()
	obs[0], obs[1], obs[2], obs[3] = float32(e.x), float32(e.xDot), float32(e.theta), float32(e.thetaDot)
	s.Field("reward").Float32s()[0] = reward
	return nil
}
