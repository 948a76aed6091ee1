// Package ctxkeys holds the context keys shared by the API middleware and
// handlers. It is a leaf package to avoid import cycles.
package ctxkeys

import "context"

// Key is the named type for all API context keys.
// A named type avoids collisions with string keys from other packages
// (context.Value compares both type and value).
type Key string

const (
	// WorkspaceID is the active workspace, from JWT claims or the configured default.
	WorkspaceID Key = "workspace_id"

	// UserID is the authenticated user. Empty for anonymous callers.
	UserID Key = "user_id"

	// CorrelationID ties one request to its trace lines and audit row.
	CorrelationID Key = "correlation_id"
)

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// String returns the value stored under key, or "" when absent.
func String(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}
