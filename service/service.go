package service

import (
	"context"
	"fmt"

	"github.com/kbukum/vidpipe/api"
	"github.com/kbukum/vidpipe/bootstrap"
	"github.com/kbukum/vidpipe/callback"
	"github.com/kbukum/vidpipe/component"
	"github.com/kbukum/vidpipe/compute"
	"github.com/kbukum/vidpipe/compute/httpinvoke"
	"github.com/kbukum/vidpipe/compute/lambda"
	"github.com/kbukum/vidpipe/config"
	"github.com/kbukum/vidpipe/database"
	"github.com/kbukum/vidpipe/engine"
	"github.com/kbukum/vidpipe/executor"
	"github.com/kbukum/vidpipe/kafka"
	"github.com/kbukum/vidpipe/kafka/consumer"
	"github.com/kbukum/vidpipe/kafka/producer"
	"github.com/kbukum/vidpipe/lifecycle"
	"github.com/kbukum/vidpipe/logger"
	"github.com/kbukum/vidpipe/observability"
	"github.com/kbukum/vidpipe/output"
	"github.com/kbukum/vidpipe/queue"
	"github.com/kbukum/vidpipe/redis"
	"github.com/kbukum/vidpipe/schema"
	"github.com/kbukum/vidpipe/server"
	"github.com/kbukum/vidpipe/sse"
	"github.com/kbukum/vidpipe/storage"
	"github.com/kbukum/vidpipe/storage/local"
	"github.com/kbukum/vidpipe/store"
	"github.com/kbukum/vidpipe/store/gormstore"
	"github.com/kbukum/vidpipe/util"
	"github.com/kbukum/vidpipe/validation"

	// The S3 provider registers itself.
	_ "github.com/kbukum/vidpipe/storage/s3"
)

// Mode selects what a process runs.
type Mode int

const (
	// ModeServe runs the HTTP API, plus workers when queue.workers > 0.
	ModeServe Mode = iota
	// ModeWorker runs only queue workers.
	ModeWorker
)

func (m Mode) String() string {
	if m == ModeWorker {
		return "worker"
	}
	return "serve"
}

// App is the bootstrap app over vidpipe's config.
type App = bootstrap.App[*config.AppConfig]

// Infra holds the components started before configure. Redis is nil
// unless enabled. Storage is nil in worker mode, and Server is set by
// configure in serve mode.
type Infra struct {
	Observability *observability.Component
	Database      *database.Component
	Redis         *redis.Component
	Storage       *storage.Component
	Server        *server.Server
}

// Wire registers infrastructure on app and a configure step that builds
// everything else once infrastructure is up.
func Wire(app *App, mode Mode) (*Infra, error) {
	cfg := app.Cfg
	if mode == ModeWorker && cfg.Queue.Backend == queue.BackendMemory {
		return nil, fmt.Errorf("queue.backend %q only works inside serve; use redis or kafka for a separate worker", cfg.Queue.Backend)
	}

	obs, err := observability.NewComponent(cfg.Observability, observability.ServiceInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	infra := &Infra{Observability: obs, Database: database.NewComponent(cfg.Database, app.Logger)}
	comps := []component.Component{obs, infra.Database}
	if cfg.Redis.Enabled {
		infra.Redis = redis.NewComponent(cfg.Redis, app.Logger)
		comps = append(comps, infra.Redis)
	}
	if mode == ModeServe {
		infra.Storage = storage.NewComponent(cfg.Storage, app.Logger)
		comps = append(comps, infra.Storage)
	}
	for _, c := range comps {
		if err := app.RegisterComponent(c); err != nil {
			return nil, err
		}
	}

	app.OnConfigure(func(ctx context.Context, a *App) error {
		return configure(ctx, a, mode, infra)
	})
	return infra, nil
}

// configure runs after infrastructure has started. Components it
// registers are started in order: event publisher, kafka, task queue,
// worker, HTTP server, event hub, event relay. Shutdown reverses that.
func configure(ctx context.Context, app *App, mode Mode, infra *Infra) error {
	cfg := app.Cfg
	log := app.Logger
	metrics := infra.Observability.Metrics()

	st := gormstore.New(infra.Database.DB())

	// With Redis, node events go through pub/sub so a separate worker's
	// transitions reach the serving hub too.
	var hub *sse.Hub
	var notifier lifecycle.Notifier
	if mode == ModeServe {
		hub = sse.NewHub(cfg.Events, log)
		notifier = hub
	}
	if infra.Redis != nil {
		pub := sse.NewPublisher(infra.Redis.Client(), cfg.Events.Channel, cfg.Events.ClientBuffer, log)
		// Registered before the worker and server so it flushes after them.
		if err := app.RegisterComponent(pub); err != nil {
			return err
		}
		notifier = pub
	}
	lc := lifecycle.New(st, log, lifecycle.WithMetrics(metrics), lifecycle.WithNotifier(notifier))

	inv, err := newInvoker(ctx, cfg.Compute, log)
	if err != nil {
		return err
	}
	executors := executor.NewBuiltin(cfg.Compute, compute.Instrument(inv, metrics), lc, st, log)
	app.Summary.TrackExecutors(executors.Types()...)

	var kc *kafka.Component
	var prod *producer.Producer
	if cfg.Kafka.Enabled {
		kc = kafka.NewComponent(cfg.Kafka, log)
		if prod, err = producer.New(cfg.Kafka, log); err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		kc.SetProducer(prod)
	}

	q, err := newQueue(cfg, infra, prod, log)
	if err != nil {
		return err
	}
	router := callback.NewRouter(st, lc, log, metrics)

	if kc != nil {
		if mode == ModeServe && cfg.Kafka.CallbackTopic != "" {
			c, err := consumer.New(cfg.Kafka, cfg.Kafka.CallbackTopic, log)
			if err != nil {
				return fmt.Errorf("callback consumer: %w", err)
			}
			kc.AddRunner(consumer.Bind(c, router.MessageHandler()))
			app.Summary.TrackConsumer("callbacks", cfg.Kafka.GroupID, cfg.Kafka.CallbackTopic)
		}
		if err := app.RegisterComponent(kc); err != nil {
			return err
		}
	}
	if err := app.RegisterComponent(newQueueComponent(cfg.Queue.Backend, q)); err != nil {
		return err
	}

	workers := cfg.Queue.Workers
	if mode == ModeWorker {
		workers = max(workers, 1)
	}
	if workers > 0 {
		w := queue.NewWorker(q, executor.Handler(st, executors), workers, log,
			queue.WithMetrics(metrics),
			queue.WithTaskTimeout(cfg.Queue.TaskDuration()),
		)
		if err := app.RegisterComponent(w); err != nil {
			return err
		}
	}
	if mode == ModeWorker {
		return nil
	}

	eng := engine.New(engine.Deps{
		Store:     st,
		Validator: validation.New(schema.MustBuiltin()),
		Executors: executors,
		Queue:     q,
		Lifecycle: lc,
		Logger:    log,
	})
	infra.Server = newHTTPServer(app, eng, router, st, hub, infra, metrics)
	if err := app.RegisterComponent(server.NewComponent(infra.Server)); err != nil {
		return err
	}
	// Registered after the server so open streams close before it drains.
	if err := app.RegisterComponent(sse.NewComponent(hub)); err != nil {
		return err
	}
	if infra.Redis != nil {
		return app.RegisterComponent(sse.NewRelay(infra.Redis.Client(), cfg.Events.Channel, hub, log))
	}
	return nil
}

func newHTTPServer(app *App, eng *engine.Engine, router *callback.Router, st store.Store, hub *sse.Hub, infra *Infra, metrics *observability.Metrics) *server.Server {
	cfg := app.Cfg
	srv := server.New(cfg.Server, app.Logger)
	srv.ApplyMiddleware(metrics)
	srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)

	resolver := output.NewResolver(st, infra.Storage.Signer(), cfg.Output.TTL())
	h := api.New(eng, router, resolver, schema.MustBuiltin())
	h.Register(srv.GinEngine())
	h.RegisterEvents(srv.GinEngine(), hub)
	if signer, ok := infra.Storage.Provider().(*local.Signer); ok {
		api.RegisterMedia(srv.GinEngine(), signer)
	}
	for _, r := range srv.GinEngine().Routes() {
		app.Summary.TrackRoute(r.Method, r.Path)
	}
	return srv
}

func newInvoker(ctx context.Context, cfg compute.Config, log *logger.Logger) (compute.Invoker, error) {
	fields := map[string]interface{}{"backend": cfg.Backend}
	switch cfg.Backend {
	case compute.BackendLambda:
		fields["region"] = cfg.Region
		if cfg.AccessKey != "" {
			fields["access_key"] = util.MaskSecret(cfg.AccessKey, 4)
		}
		log.Info("Compute backend configured", fields)
		inv, err := lambda.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("compute: %w", err)
		}
		return inv, nil
	default:
		fields["base_url"] = cfg.BaseURL
		if cfg.BearerToken != "" {
			fields["bearer_token"] = util.MaskSecret(cfg.BearerToken, 4)
		}
		log.Info("Compute backend configured", fields)
		inv, err := httpinvoke.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("compute: %w", err)
		}
		return inv, nil
	}
}
