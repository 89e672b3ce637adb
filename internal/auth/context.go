package auth

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// identityContextKey is the context key for the authenticated username.
const identityContextKey contextKey = "identity"

// ContextWithUsername stores the authenticated username on the context.
func ContextWithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, identityContextKey, username)
}

// UsernameFromContext retrieves the authenticated username from the context.
// Returns empty string if the request did not pass authentication.
func UsernameFromContext(ctx context.Context) string {
	username, ok := ctx.Value(identityContextKey).(string)
	if !ok {
		return ""
	}
	return username
}
