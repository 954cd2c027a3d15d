// File: pool/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"errors"
	"fmt"

	"github.com/momentics/envpool/api"
)

var (
	// ErrInvalidEnvID rejects an env id outside [0, num_envs).
	ErrInvalidEnvID = fmt.Errorf("pool: env id out of range: %w", api.ErrInvalidArgument)

	// ErrDuplicateEnvID rejects a call naming the same env twice.
	ErrDuplicateEnvID = fmt.Errorf("pool: env id repeated in one call: %w", api.ErrInvalidArgument)

	// ErrMalformedAction rejects an action batch that does not match the spec.
	ErrMalformedAction = fmt.Errorf("pool: malformed action batch: %w", api.ErrInvalidArgument)

	// ErrTooManyInFlight rejects a lock-step Send or Reset that would put more
	// envs in flight than one batch holds.
	ErrTooManyInFlight = fmt.Errorf("pool: more envs in flight than batch_size: %w", api.ErrInvalidArgument)

	// ErrClosed is returned by every call after Close.
	ErrClosed = fmt.Errorf("pool: closed: %w", api.ErrClosed)

	// errNoState marks a step that returned without writing a slot.
	errNoState = errors.New("env returned without writing state")
)
