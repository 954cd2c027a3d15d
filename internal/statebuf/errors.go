// File: internal/statebuf/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package statebuf

import (
	"fmt"

	"github.com/momentics/envpool/api"
)

var (
	// ErrBufferExhausted means every slot of the batch has been handed out;
	// the caller should move on to another buffer.
	ErrBufferExhausted = fmt.Errorf("state buffer exhausted: %w", api.ErrResourceExhausted)

	// ErrTooManyPlayers rejects an allocation wider than max_num_players.
	ErrTooManyPlayers = fmt.Errorf("too many players requested: %w", api.ErrInvalidArgument)

	// ErrRingClosed is returned by allocations after Close.
	ErrRingClosed = fmt.Errorf("buffer ring is shutting down: %w", api.ErrClosed)

	// ErrBufferOverflow and ErrSyncInvariant are raised as panics: they mean
	// the slot arithmetic itself is wrong and the batch cannot be trusted.
	ErrBufferOverflow = fmt.Errorf("state buffer overflow: %w", api.ErrInternal)
	ErrSyncInvariant  = fmt.Errorf("state buffer synchronization error: %w", api.ErrInternal)
)
