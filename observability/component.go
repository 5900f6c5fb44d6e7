package observability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/vidpipe/component"
	"github.com/kbukum/vidpipe/logger"
)

// Component owns the tracer and meter providers and the Metrics built on them.
type Component struct {
	cfg     Config
	svc     ServiceInfo
	log     *logger.Logger
	tp      *sdktrace.TracerProvider
	mp      *sdkmetric.MeterProvider
	metrics *Metrics
}

var _ component.Component = (*Component)(nil)

// NewComponent creates the observability component. Metrics are available
// immediately: they record against a no-op meter until Start installs the
// OTLP provider.
func NewComponent(cfg Config, svc ServiceInfo, log *logger.Logger) (*Component, error) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter(tracerName))
	if err != nil {
		return nil, err
	}
	return &Component{cfg: cfg, svc: svc, log: log.WithComponent("observability"), metrics: m}, nil
}

func (c *Component) Name() string { return "observability" }

// Metrics returns the current instruments.
func (c *Component) Metrics() *Metrics { return c.metrics }

func (c *Component) Start(ctx context.Context) error {
	if c.cfg.Tracing {
		tp, err := InitTracer(ctx, c.cfg, c.svc)
		if err != nil {
			return err
		}
		c.tp = tp
	}
	if c.cfg.Metrics {
		mp, err := InitMeter(ctx, c.cfg, c.svc)
		if err != nil {
			return err
		}
		c.mp = mp
		m, err := NewMetrics(Meter())
		if err != nil {
			return err
		}
		*c.metrics = *m
	}
	c.log.Info("Observability started", map[string]interface{}{
		"tracing":  c.cfg.Tracing,
		"metrics":  c.cfg.Metrics,
		"endpoint": c.cfg.Endpoint,
	})
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.tp != nil {
		if err := c.tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if c.mp != nil {
		if err := c.mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    c.Name(),
		Type:    "otel",
		Details: fmt.Sprintf("tracing=%v metrics=%v endpoint=%s", c.cfg.Tracing, c.cfg.Metrics, c.cfg.Endpoint),
	}
}
