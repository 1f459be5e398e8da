// Package logger provides slog-based structured logging with environment
// presets, static attributes, and context-driven attribute injection.
//
//	log := logger.New(
//	    logger.WithProduction("entitlement"),
//	    logger.WithContextValue("request_id", requestIDKey{}),
//	)
//	log.InfoContext(ctx, "usage recorded",
//	    logger.Component("entitlement.recorder"),
//	    logger.UserID(userID),
//	    logger.Feature("numerology"),
//	)
//
// Attr helpers (Error, UserID, Feature, TierID, Component, ...) keep log
// keys consistent across the module.
package logger
