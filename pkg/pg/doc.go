// Package pg bootstraps the PostgreSQL layer shared by the usage event log
// and the subscription record replica: pooled connectivity with retry,
// goose schema migrations, a health probe, and error classification helpers.
//
// The package keeps a deliberately small surface over pgx/v5 and goose/v3 so
// stores can depend on it without being locked into anything beyond the
// drivers themselves.
//
// Typical startup:
//
//	var cfg pg.Config
//	// populate cfg from the environment, e.g. via pkg/config.Load
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
//	probe := pg.Healthcheck(pool)
//
// Stores classify driver errors with [IsNotFoundError] and
// [IsDuplicateKeyError] instead of matching SQLSTATE codes inline; the latter
// is what turns an idempotency key replay into a duplicate-event result
// rather than a hard failure.
package pg
