//go:build windows
// +build windows

// File: affinity/affinity_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows implementation through SetThreadAffinityMask.

package affinity

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                   = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadAffinityMask  = kernel32.NewProc("SetThreadAffinityMask")
	procGetProcessAffinityMask = kernel32.NewProc("GetProcessAffinityMask")
)

func setMask(mask uintptr) error {
	ret, _, err := procSetThreadAffinityMask.Call(uintptr(windows.CurrentThread()), mask)
	if ret == 0 {
		return err
	}
	return nil
}

func setAffinityPlatform(cpuID int) error {
	return setMask(uintptr(1) << cpuID)
}

func clearAffinityPlatform(cpus []int) error {
	var mask uintptr
	for _, cpu := range cpus {
		mask |= uintptr(1) << cpu
	}
	return setMask(mask)
}

func allowedPlatform() ([]int, error) {
	var procMask, sysMask uintptr
	ret, _, err := procGetProcessAffinityMask.Call(uintptr(windows.CurrentProcess()),
		uintptr(unsafe.Pointer(&procMask)), uintptr(unsafe.Pointer(&sysMask)))
	if ret == 0 {
		return nil, err
	}
	cpus := make([]int, 0, runtime.NumCPU())
	for i := 0; i < int(unsafe.Sizeof(procMask))*8; i++ {
		if procMask&(uintptr(1)<<i) != 0 {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
