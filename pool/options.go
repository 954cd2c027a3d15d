// File: pool/options.go
// Package pool defines functional options for Pool construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import "log/slog"

// Option customizes pool initialization.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	id          string
	ringSize    int
	ringWarmers int
	ringSpares  int
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithID overrides the generated pool id used in logs and config snapshots.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithRingSize sets the number of state buffer cells.
// Defaults to (num_envs/batch_size + 2) * 2.
func WithRingSize(n int) Option {
	return func(o *options) {
		o.ringSize = n
	}
}

// WithRingWarmers sets the number of goroutines preparing spare buffers.
// Negative disables them; spares are then only recycled drained buffers.
func WithRingWarmers(n int) Option {
	return func(o *options) {
		o.ringWarmers = n
	}
}

// WithRingSpares bounds how many prepared spare buffers are kept.
func WithRingSpares(n int) Option {
	return func(o *options) {
		o.ringSpares = n
	}
}
