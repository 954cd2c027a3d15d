// Package pool
// Author: momentics <momentics@gmail.com>
//
// Vectorized environment pool. A fixed set of worker goroutines steps many
// environments concurrently; the caller talks to them through Send, Reset
// and Recv from a single control goroutine.
//
// With batch_size equal to num_envs and one player per env the pool runs in
// lock-step: every Recv returns one row per env sent, in submission order.
// With a smaller batch Recv returns the first batch_size results to finish.
// See pool.go for the orchestrator and worker.go for the step loop.
package pool
