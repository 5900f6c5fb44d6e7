// Package lifecycle implements the execution state machine of a node.
//
// ExecutionStarted issues a fresh process token; ExecutionUpdated,
// ExecutionSucceeded and ExecutionFailed only act when they carry the token
// currently stored on the node and the node is in_progress. Anything else
// is a stale call and a silent no-op, reported through Outcome.Applied.
// Every operation runs under store.UpdateLocked, so the read, compare and
// write of the token happen while the node is locked.
package lifecycle
