// Package api
// Author: momentics
//
// Named probes for inspecting a running pool.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState evaluates every probe and returns the results by name.
	DumpState() map[string]any

	// RegisterProbe adds or replaces a named probe.
	RegisterProbe(name string, fn func() any)

	// Names lists the registered probes.
	Names() []string
}
