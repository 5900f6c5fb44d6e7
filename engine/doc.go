// Package engine is the request-facing side of vidpipe: pipeline and node
// editing, the readiness gate and dispatch onto the task queue.
//
// Engine calls return as soon as their store writes (and for Execute, the
// enqueue) are done. Execution happens in queue workers; completion
// arrives later through the callback router.
package engine
