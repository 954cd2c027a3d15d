// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, configuration snapshots and debug introspection for pools.
//
// Provides concurrent-safe state handling primitives including:
//   - Snapshot config reads and ENVPOOL_* loading from dotenv files
//   - Lock-free counters for worker hot paths
//   - State export, debug hooks, and probe registration
//
// This package is cross-platform and build-tag-partitioned as needed.
package control
