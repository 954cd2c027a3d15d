// Package api
// Author: momentics@gmail.com
//
// CPU affinity for worker threads.

package api

// Affinity controls which CPU the calling OS thread runs on.
type Affinity interface {
	// Pin locks the current goroutine to its OS thread and binds it to cpuID.
	Pin(cpuID int) error
	// Unpin removes the binding and releases the OS thread.
	Unpin() error
	// Get returns the CPU the caller was last pinned to, or -1.
	Get() (cpuID int, err error)
}
