package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation is a traced unit of engine work.
//
//	ctx, op := observability.StartOperation(ctx, "engine.execute", attribute.String(AttrNodeID, id))
//	defer func() { op.End(err) }()
type Operation struct {
	Name  string
	start time.Time
	span  trace.Span
}

// StartOperation opens a span named name carrying attrs.
func StartOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	ctx, span := StartSpan(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Operation{Name: name, start: time.Now(), span: span}
}

// SetAttributes adds attributes to the operation's span.
func (op *Operation) SetAttributes(attrs ...attribute.KeyValue) {
	op.span.SetAttributes(attrs...)
}

// End closes the span, marking it as an error when err is non-nil.
func (op *Operation) End(err error) {
	if err != nil {
		op.span.RecordError(err)
		op.span.SetStatus(codes.Error, err.Error())
	}
	op.span.End()
}

// Duration returns the time since the operation started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.start)
}
