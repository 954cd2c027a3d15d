// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Blocking primitives shared by the pool engine: the bounded action queue
// between the control goroutine and the workers, and the one-permit Signal
// used to hand a completed batch to its reader.
package concurrency
