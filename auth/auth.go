// Package auth resolves the calling user's identity. Every workflow
// operation takes the caller from the context; a missing or forged identity
// fails with an authentication error before any authorization check runs.
package auth

import (
	"context"

	"github.com/tripweave/tripweave-core/errors"
)

// Identity is the authenticated caller.
type Identity struct {
	ID    string
	Email string
}

type contextKey struct{}

// WithIdentity returns a context carrying the caller's identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// IdentityFromContext extracts the caller from the context. Returns an
// authentication error when no identity is present or the identity has no
// user ID.
func IdentityFromContext(ctx context.Context) (Identity, error) {
	identity, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || identity.ID == "" {
		return Identity{}, errors.Unauthenticated("no authenticated user in context")
	}
	return identity, nil
}
