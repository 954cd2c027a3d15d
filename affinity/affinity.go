// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_windows.go, etc.) guarded by build tags.

package affinity

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
)

// ErrUnsupported is returned where thread affinity cannot be set.
var ErrUnsupported = errors.New("affinity: not supported on this platform")

// SetAffinity pins the current OS thread to a given logical CPU on supported platforms.
// The caller must hold the thread with runtime.LockOSThread for the pin to stick.
// The CPU must belong to the set the process started with.
func SetAffinity(cpuID int) error {
	if !slices.Contains(startup, cpuID) {
		return fmt.Errorf("affinity: cpu %d not in usable set %v", cpuID, startup)
	}
	return setAffinityPlatform(cpuID)
}

// ClearAffinity lets the current OS thread run on every CPU the process
// started with again.
func ClearAffinity() error {
	return clearAffinityPlatform(startup)
}

// CPUs returns the CPUs the process was allowed to run on at startup, in
// ascending order. Under a restricted cpuset this is a subset of
// 0..NumCPU-1 and need not start at 0.
func CPUs() []int {
	return slices.Clone(startup)
}

// Allowed returns the CPUs the current thread may run on.
func Allowed() ([]int, error) {
	return allowedPlatform()
}

// Pin locks the calling goroutine to its OS thread and binds that thread to cpuID.
// On failure the goroutine is unlocked again.
func Pin(cpuID int) error {
	runtime.LockOSThread()
	if err := SetAffinity(cpuID); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// Unpin clears the binding set by Pin and releases the OS thread.
func Unpin() error {
	defer runtime.UnlockOSThread()
	return ClearAffinity()
}

// WorkerCPU returns the CPU for worker i. offset and i index into CPUs(),
// wrapping around. A negative offset disables pinning and yields -1.
func WorkerCPU(offset, i int) int {
	if offset < 0 {
		return -1
	}
	return startup[(offset+i)%len(startup)]
}

// startup is the usable CPU set, read before any worker pins itself.
var startup = startupCPUs()

func startupCPUs() []int {
	cpus, err := allowedPlatform()
	if err == nil && len(cpus) > 0 {
		return cpus
	}
	cpus = make([]int, runtime.NumCPU())
	for i := range cpus {
		cpus[i] = i
	}
	return cpus
}
