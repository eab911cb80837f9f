// Package middleware implements the request pipeline as an explicit chain:
// request-id injection, structured request logging, fault translation, rate
// limiting, and bearer authentication, in that order around the route
// handlers.
package middleware

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	identityKey
)

// Identity is the authenticated caller attached to the request context once
// token verification succeeds. Handlers read identity exclusively from here;
// they never re-parse the token.
type Identity struct {
	UserID   string
	Email    string
	Metadata map[string]any
}

// WithRequestID stores the request's correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom returns the correlation id, or "" outside the pipeline.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithIdentity attaches the authenticated caller.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom reports the authenticated caller, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
