// internal/auth/context.go
//
// Request-context helpers for the authenticated identity and the Access
// read-model.
//
// Usage
// -----
//     // Gate attaches the read-model once per request.
//     ctx = auth.WithAccess(ctx, acc)
//
//     // Handlers and templates consume it.
//     acc := auth.AccessFrom(ctx)
//     if acc.ShowHeader() { … }

package auth

import "context"

type accessKey struct{}
type userKey struct{}

// WithAccess returns a context carrying acc.
func WithAccess(ctx context.Context, acc Access) context.Context {
	return context.WithValue(ctx, accessKey{}, acc)
}

// AccessFrom returns the read-model, or the zero Access (open route, not
// authenticated) when none was attached.
func AccessFrom(ctx context.Context) Access {
	acc, _ := ctx.Value(accessKey{}).(Access)
	return acc
}

// WithUser attaches the display identity decoded from the token.
func WithUser(ctx context.Context, h Hint) context.Context {
	return context.WithValue(ctx, userKey{}, h)
}

// User returns the display identity, if any.
func User(ctx context.Context) (Hint, bool) {
	h, ok := ctx.Value(userKey{}).(Hint)
	return h, ok
}
