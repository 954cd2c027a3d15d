// File: env/dummy/dummy.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package dummy is a do-nothing environment for exercising pools. It reports
// its own id and step count, echoes the action as reward and can be told to
// sleep or fail.
//
// Params:
//
//	episode_len  steps per episode (default 20)
//	step_delay   sleep per step, "1ms" or nanoseconds (default 0)
//	fail_every   every n-th step fails before writing anything (default 0, never)
//	num_players  players per step (default max_num_players)
package dummy

import (
	"errors"
	"fmt"
	"time"

	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/env"
	"github.com/momentics/envpool/envspec"
)

// ErrInjected is returned by steps selected through fail_every.
var ErrInjected = errors.New("dummy: injected step failure")

// StateFields are the env-specific state fields.
func StateFields() []array.ShapeSpec {
	return []array.ShapeSpec{
		array.Spec("obs", array.Float32, 2),
		array.Spec("reward", array.Float32),
		array.Spec("players.id", array.Int32, array.PlayerDim),
	}
}

// ActionFields are the env-specific action fields.
func ActionFields() []array.ShapeSpec {
	return []array.ShapeSpec{
		array.Spec("action", array.Int32),
	}
}

// Spec builds the spec for a dummy pool.
func Spec(cfg envspec.Config) (*envspec.Spec, error) {
	return envspec.New(cfg, StateFields(), ActionFields())
}

// Env is one dummy instance.
type Env struct {
	id         int
	episodeLen int
	delay      time.Duration
	failEvery  int
	players    int

	steps int // steps in the current episode
	total int // steps since construction
}

// New is an env.Factory.
func New(spec *envspec.Spec, envID int) (env.Env, error) {
	cfg := spec.Config
	e := &Env{
		id:         envID,
		episodeLen: cfg.IntParam("episode_len", 20),
		delay:      cfg.DurationParam("step_delay", 0),
		failEvery:  cfg.IntParam("fail_every", 0),
		players:    cfg.IntParam("num_players", cfg.MaxNumPlayers),
	}
	if e.episodeLen <= 0 {
		return nil, fmt.Errorf("%w: episode_len %d", envspec.ErrInvalidConfig, e.episodeLen)
	}
	if e.players < 0 || e.players > cfg.MaxNumPlayers {
		return nil, fmt.Errorf("%w: num_players %d exceeds max_num_players %d",
			envspec.ErrInvalidConfig, e.players, cfg.MaxNumPlayers)
	}
	return e, nil
}

var _ env.Factory = New

func (e *Env) Reset(w *env.Writer) error {
	e.steps = 0
	return e.write(w, 0)
}

func (e *Env) Step(w *env.Writer, a env.Action) error {
	e.total++
	if e.failEvery > 0 && e.total%e.failEvery == 0 {
		return fmt.Errorf("env %d step %d: %w", e.id, e.total, ErrInjected)
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.steps++
	var reward float32
	if !a.Empty() {
		reward = float32(a.Int("action"))
	}
	return e.write(w, reward)
}

func (e *Env) IsDone() bool {
	return e.steps >= e.episodeLen
}

func (e *Env) write(w *env.Writer, reward float32) error {
	s, err := w.Allocate(e.players)
	if err != nil {
		return err
	}
	obs := s.Field("obs").Float32s()
	obs[0] = float32(e.id)
	obs[1] = float32(e.steps)
	s.Field("reward").Float32s()[0] = reward
	ids := s.Field("players.id").Int32s()
	for i := range ids {
		ids[i] = int32(i)
	}
	return nil
}
