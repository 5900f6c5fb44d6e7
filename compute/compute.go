// Package compute submits work to the external media backend. Submission
// is fire-and-forget: the backend acknowledges receipt and reports the
// result later through a callback.
package compute

import (
	"context"
	"time"

	"github.com/kbukum/vidpipe/observability"
)

// Invocation is one asynchronous request to a compute function.
type Invocation struct {
	Function string         `json:"function"`
	Payload  map[string]any `json:"payload"`
}

// Invoker submits invocations. Submit returns nil only when the backend
// acknowledged acceptance; every other outcome is a SUBMISSION_FAILED
// AppError.
type Invoker interface {
	Submit(ctx context.Context, inv Invocation) error
}

// Instrumented records submission metrics around an Invoker.
type Instrumented struct {
	next    Invoker
	metrics *observability.Metrics
}

// Instrument wraps next.
func Instrument(next Invoker, m *observability.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: m}
}

func (i *Instrumented) Submit(ctx context.Context, inv Invocation) error {
	start := time.Now()
	err := i.next.Submit(ctx, inv)
	i.metrics.RecordSubmission(ctx, inv.Function, err == nil, time.Since(start))
	return err
}
