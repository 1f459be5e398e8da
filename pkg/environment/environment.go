// Package environment names the application environments and provides
// context helpers for passing the active one around.
package environment

import "context"

// Environment represents application environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

type contextKey struct{}

// WithContext adds the environment to the context.
func WithContext(ctx context.Context, env string) context.Context {
	return context.WithValue(ctx, contextKey{}, env)
}

// FromContext retrieves the environment from the context.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	env, _ := ctx.Value(contextKey{}).(string)
	return env
}

// IsProduction checks if the environment from context is production.
func IsProduction(ctx context.Context) bool {
	env := FromContext(ctx)
	return env == string(Production) || env == "prod"
}

// IsDevelopment checks if the environment from context is development.
func IsDevelopment(ctx context.Context) bool {
	env := FromContext(ctx)
	return env == string(Development) || env == "dev"
}
