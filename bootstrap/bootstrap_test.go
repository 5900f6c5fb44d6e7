package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/vidpipe/component"
	"github.com/kbukum/vidpipe/config"
	"github.com/kbukum/vidpipe/logger"
)

type testConfig struct {
	config.ServiceConfig `mapstructure:",squash"`
	invalid              bool
}

func (c *testConfig) Validate() error {
	if c.invalid {
		return errors.New("bad")
	}
	return c.ServiceConfig.Validate()
}

type recorder struct {
	name   string
	events *[]string
	status component.HealthStatus
}

func (r *recorder) Name() string { return r.name }
func (r *recorder) Start(context.Context) error {
	*r.events = append(*r.events, "start:"+r.name)
	return nil
}
func (r *recorder) Stop(context.Context) error {
	*r.events = append(*r.events, "stop:"+r.name)
	return nil
}
func (r *recorder) Health(context.Context) component.Health {
	status := r.status
	if status == "" {
		status = component.StatusHealthy
	}
	return component.Health{Name: r.name, Status: status}
}
func (r *recorder) Describe() component.Description {
	return component.Description{Name: r.name, Type: "test", Details: "recording"}
}

func newTestApp(t *testing.T, out *bytes.Buffer) *App[*testConfig] {
	t.Helper()
	app, err := NewApp(&testConfig{}, WithLogger(logger.Nop()), WithSummaryOutput(out), WithGracefulTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func TestNewApp_ValidatesConfig(t *testing.T) {
	if _, err := NewApp(&testConfig{invalid: true}, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewApp_AppliesDefaults(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(t, &out)
	if app.Name != "vidpipe" || app.Cfg.Environment != "development" {
		t.Errorf("app = %s env=%s", app.Name, app.Cfg.Environment)
	}
}

func TestRunTask_Lifecycle(t *testing.T) {
	var out bytes.Buffer
	var events []string
	app := newTestApp(t, &out)
	if err := app.RegisterComponent(&recorder{name: "database", events: &events}); err != nil {
		t.Fatal(err)
	}
	app.OnStart(func(context.Context) error {
		events = append(events, "onStart")
		return nil
	})
	app.OnConfigure(func(_ context.Context, a *App[*testConfig]) error {
		events = append(events, "configure")
		return a.RegisterComponent(&recorder{name: "queue-worker", events: &events})
	})
	app.OnReady(func(context.Context) error {
		events = append(events, "onReady")
		return nil
	})
	app.OnStop(func(context.Context) error {
		events = append(events, "onStop")
		return nil
	})
	app.Summary.TrackExecutors("asset", "merge-videos")
	app.Summary.TrackRoute("GET", "/health")

	err := app.RunTask(context.Background(), func(context.Context) error {
		events = append(events, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}

	want := "start:database,onStart,configure,start:queue-worker,onReady,task,onStop,stop:queue-worker,stop:database"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("events:\n got %s\nwant %s", got, want)
	}
	for _, s := range []string{"queue-worker [healthy] test: recording", "asset, merge-videos", "/health"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("summary missing %q:\n%s", s, out.String())
		}
	}
}

func TestRunTask_ReturnsTaskError(t *testing.T) {
	var out bytes.Buffer
	app := newTestApp(t, &out)
	boom := errors.New("boom")
	if err := app.RunTask(context.Background(), func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	var out bytes.Buffer
	var events []string
	app := newTestApp(t, &out)
	_ = app.RegisterComponent(&recorder{name: "http-server", events: &events})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(events, ","); got != "start:http-server,stop:http-server" {
		t.Errorf("events = %s", got)
	}
}

func TestReadyCheck(t *testing.T) {
	var out bytes.Buffer
	var events []string
	app := newTestApp(t, &out)
	_ = app.RegisterComponent(&recorder{name: "redis", events: &events, status: component.StatusUnhealthy})
	if err := app.ReadyCheck(context.Background()); err == nil || !strings.Contains(err.Error(), "redis=unhealthy") {
		t.Errorf("err = %v", err)
	}
}
