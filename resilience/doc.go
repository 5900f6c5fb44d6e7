// Package resilience holds the two fault-tolerance primitives vidpipe uses
// around its external collaborators: a circuit breaker guarding compute
// submissions and an exponential-backoff retry for queue hand-off and
// consumer loops.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("compute"))
//	err := cb.Execute(func() error { return invoker.Submit(ctx, inv) })
package resilience
