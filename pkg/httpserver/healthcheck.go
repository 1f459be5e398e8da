package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/lunaria/entitlement/pkg/logger"
)

// HealthCheckHandler serves liveness and readiness probes.
//
// With no dependency probes it answers 200 "ALIVE". With probes supplied
// (pg.Healthcheck, redis.Healthcheck, ...) it runs each and answers 200
// "READY", or 500 "NOT_READY" when any of them fail.
func HealthCheckHandler(ctx context.Context, log *slog.Logger, probes ...func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(probes) == 0 {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ALIVE"))
			return
		}

		for _, probe := range probes {
			if err := probe(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("NOT_READY"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("READY"))
	}
}
