// Package bootstrap runs a vidpipe process: it starts registered
// components in order, runs configure callbacks, waits for a signal and
// stops everything in reverse.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*config.AppConfig]) error {
//	    return a.RegisterComponent(worker)
//	})
//	err = app.Run(ctx)
package bootstrap
