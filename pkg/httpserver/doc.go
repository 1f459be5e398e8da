// Package httpserver is a thin wrapper over net/http that the entitlement
// service binary uses: environment-driven timeouts, signal-driven graceful
// shutdown, and a probe handler that aggregates store healthchecks.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server stopped", logger.Error(err))
//	}
//
// Run blocks until the context ends or an interrupt/TERM signal arrives.
// Listen errors are wrapped with ErrStart, shutdown errors with ErrShutdown.
package httpserver
