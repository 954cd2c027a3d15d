//go:build !linux && !windows
// +build !linux,!windows

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

func setAffinityPlatform(int) error { return ErrUnsupported }

func clearAffinityPlatform([]int) error { return nil }

func allowedPlatform() ([]int, error) { return nil, ErrUnsupported }
