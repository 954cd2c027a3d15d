// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"github.com/momentics/envpool/api"
	"github.com/momentics/envpool/control"
)

// ControlAdapter merges a config snapshot, metrics and debug probes behind api.Control.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

var _ api.Control = (*ControlAdapter)(nil)

// NewControlAdapter wires the given stores; nil arguments get fresh ones.
// Platform probes are registered on the debug registry.
func NewControlAdapter(cfg *control.ConfigStore, metrics *control.MetricsRegistry, debug *control.DebugProbes) *ControlAdapter {
	if cfg == nil {
		cfg = control.NewConfigStore()
	}
	if metrics == nil {
		metrics = control.NewMetricsRegistry()
	}
	if debug == nil {
		debug = control.NewDebugProbes()
	}
	control.RegisterPlatformProbes(debug)
	return &ControlAdapter{config: cfg, metrics: metrics, debug: debug}
}

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

// Stats returns metrics and counters as-is and probe results under "debug.".
func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	debugStats := c.debug.DumpState()
	combined := make(map[string]any, len(stats)+len(debugStats))
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range debugStats {
		combined["debug."+k] = v
	}
	return combined
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

// Metrics exposes the registry so owners can hand out counters.
func (c *ControlAdapter) Metrics() *control.MetricsRegistry { return c.metrics }
