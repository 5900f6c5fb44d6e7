// Package queue carries dispatch tasks from the readiness gate to the
// executors.
//
// A Queue is the hand-off; a Worker drains it with a fixed number of
// goroutines and calls a Handler per task. Tasks are acknowledged when
// dequeued, before the handler runs, so a worker that dies mid-task loses
// it: delivery is at-most-once. A lost task leaves the node pending, or
// in_progress if it had started, where the admin fail route recovers it.
// A task delivered twice re-runs the executor, whose ExecutionStarted
// supersedes the earlier attempt's token.
//
// Backends live in subpackages:
//
//   - queue/memory: buffered channel, single process
//   - queue/redisq: Redis list (LPUSH / BRPOP)
//   - queue/kafkaq: Kafka topic read by the worker's consumer group
package queue
