// Package callback routes compute completion reports to the execution
// lifecycle.
//
// Reports arrive at least once and in any order, over HTTP or a Kafka
// topic. A report is stale when the node has no running attempt, when it
// names an attempt other than the current one, or when the node is no
// longer in progress. Stale reports are counted and dropped. The
// freshness check here is a plain read; the lifecycle re-checks the token
// under the row lock, so a report that races a new attempt still lands as
// a no-op.
package callback
