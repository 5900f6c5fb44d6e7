// Package executor runs one node's work. The registry maps node types to
// executors; a queue worker resolves the executor for each task.
//
// Compute executors open a new execution attempt, then submit the node to
// the compute backend and return. The backend reports the result later
// through the callback router. Asset executors finish locally.
package executor
