// File: env/env.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package env defines what a pool needs from an environment. An environment
// is stepped by one worker at a time and writes its results straight into
// the shared state buffer through a Writer.

package env

import (
	"github.com/momentics/envpool/envspec"
)

// Env is one simulation instance. Implementations need no locking: the pool
// never calls two methods of the same Env concurrently.
type Env interface {
	// Reset starts a new episode and writes its initial observation.
	Reset(w *Writer) error
	// Step advances one tick with the bound action and writes the result.
	Step(w *Writer, a Action) error
	// IsDone reports whether the episode ended and the next step must reset.
	IsDone() bool
}

// Factory builds the env with the given id. It is called once per id at
// pool construction.
type Factory func(spec *envspec.Spec, envID int) (Env, error)
