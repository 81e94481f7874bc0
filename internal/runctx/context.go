// Package runctx carries the name of the query being refreshed through
// request contexts, so connectors can tag their log lines.
package runctx

import (
	"context"
	"log/slog"
)

type queryKey struct{}

// WithQueryName returns a new context carrying the query name.
func WithQueryName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, queryKey{}, name)
}

// QueryNameFromContext retrieves the query name if present.
// Returns ("", false) if none is set.
func QueryNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(queryKey{}).(string)
	return name, ok
}

// Logger returns logger tagged with the query name from ctx, or logger
// itself when the context carries none.
func Logger(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if name, ok := QueryNameFromContext(ctx); ok && name != "" {
		return logger.With("query_name", name)
	}
	return logger
}
