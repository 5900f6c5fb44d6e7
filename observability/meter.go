package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeter installs a periodic OTLP/HTTP meter provider as the global one.
func InitMeter(ctx context.Context, cfg Config, svc ServiceInfo) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(svc)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.ExportInterval()))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns the vidpipe meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(tracerName)
}

// Metrics holds the vidpipe instruments.
type Metrics struct {
	lifecycleTotal     metric.Int64Counter
	callbackTotal      metric.Int64Counter
	submissionTotal    metric.Int64Counter
	submissionDuration metric.Float64Histogram
	taskTotal          metric.Int64Counter
	taskDuration       metric.Float64Histogram
	tasksActive        metric.Int64UpDownCounter
	requestTotal       metric.Int64Counter
	requestDuration    metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	if m.lifecycleTotal, err = meter.Int64Counter("vidpipe.lifecycle.total",
		metric.WithDescription("Lifecycle operations by operation and whether they applied")); err != nil {
		return nil, fmt.Errorf("creating vidpipe.lifecycle.total: %w", err)
	}
	if m.callbackTotal, err = meter.Int64Counter("vidpipe.callback.total",
		metric.WithDescription("Routed callbacks by result")); err != nil {
		return nil, fmt.Errorf("creating vidpipe.callback.total: %w", err)
	}
	if m.submissionTotal, err = meter.Int64Counter("vidpipe.submission.total",
		metric.WithDescription("Compute submissions by function and outcome")); err != nil {
		return nil, fmt.Errorf("creating vidpipe.submission.total: %w", err)
	}
	if m.submissionDuration, err = meter.Float64Histogram("vidpipe.submission.duration",
		metric.WithDescription("Time to obtain a compute acknowledgement"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating vidpipe.submission.duration: %w", err)
	}
	if m.taskTotal, err = meter.Int64Counter("vidpipe.task.total",
		metric.WithDescription("Queue tasks processed by executor and outcome")); err != nil {
		return nil, fmt.Errorf("creating vidpipe.task.total: %w", err)
	}
	if m.taskDuration, err = meter.Float64Histogram("vidpipe.task.duration",
		metric.WithDescription("Executor run time per task"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating vidpipe.task.duration: %w", err)
	}
	if m.tasksActive, err = meter.Int64UpDownCounter("vidpipe.task.active",
		metric.WithDescription("Tasks currently being executed")); err != nil {
		return nil, fmt.Errorf("creating vidpipe.task.active: %w", err)
	}
	if m.requestTotal, err = meter.Int64Counter("vidpipe.http.request.total",
		metric.WithDescription("HTTP requests by route and status")); err != nil {
		return nil, fmt.Errorf("creating vidpipe.http.request.total: %w", err)
	}
	if m.requestDuration, err = meter.Float64Histogram("vidpipe.http.request.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating vidpipe.http.request.duration: %w", err)
	}
	return &m, nil
}

// RecordLifecycle counts one lifecycle operation. applied is false for stale no-ops.
func (m *Metrics) RecordLifecycle(ctx context.Context, operation string, applied bool) {
	if m == nil {
		return
	}
	m.lifecycleTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("applied", applied),
	))
}

// Callback results.
const (
	CallbackSucceeded = "succeeded"
	CallbackFailed    = "failed"
	CallbackStale     = "stale"
	CallbackError     = "error"
)

// RecordCallback counts one routed callback.
func (m *Metrics) RecordCallback(ctx context.Context, executorType, result string) {
	if m == nil {
		return
	}
	m.callbackTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("executor", executorType),
		attribute.String("result", result),
	))
}

// RecordSubmission counts one compute submission and its latency.
func (m *Metrics) RecordSubmission(ctx context.Context, function string, accepted bool, d time.Duration) {
	if m == nil {
		return
	}
	m.submissionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("function", function),
		attribute.Bool("accepted", accepted),
	))
	m.submissionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("function", function)))
}

// TaskStarted marks a task as in flight.
func (m *Metrics) TaskStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.tasksActive.Add(ctx, 1)
}

// TaskFinished records a processed task.
func (m *Metrics) TaskFinished(ctx context.Context, executorType string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.tasksActive.Add(ctx, -1)
	m.taskTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("executor", executorType),
		attribute.String("status", status),
	))
	m.taskDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("executor", executorType)))
}

// RecordRequest records a served HTTP request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}
