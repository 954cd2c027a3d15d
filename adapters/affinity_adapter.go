// File: adapters/affinity_adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
// Description:
//   Adapter implementing the api.Affinity interface on top of the affinity
//   package. Each worker owns one adapter; it is not shared between goroutines.

package adapters

import (
	"github.com/momentics/envpool/affinity"
	"github.com/momentics/envpool/api"
)

// AffinityAdapter tracks the CPU its owning goroutine is pinned to.
type AffinityAdapter struct {
	currentCPU int
	pinned     bool
}

var _ api.Affinity = (*AffinityAdapter)(nil)

// NewAffinityAdapter creates an unpinned adapter.
func NewAffinityAdapter() *AffinityAdapter {
	return &AffinityAdapter{currentCPU: -1}
}

// Pin locks the calling goroutine to its OS thread and binds it to cpuID.
func (a *AffinityAdapter) Pin(cpuID int) error {
	if err := affinity.Pin(cpuID); err != nil {
		return err
	}
	a.currentCPU = cpuID
	a.pinned = true
	return nil
}

// Unpin clears the binding; a no-op when not pinned.
func (a *AffinityAdapter) Unpin() error {
	if !a.pinned {
		return nil
	}
	a.pinned = false
	a.currentCPU = -1
	return affinity.Unpin()
}

// Get returns the pinned CPU or -1.
func (a *AffinityAdapter) Get() (int, error) {
	return a.currentCPU, nil
}
