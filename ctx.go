package auth

import (
	"context"

	"github.com/goliatone/go-router"

	"github.com/certiweb/go-auth/middleware/gate"
)

// WithContext sets the principal in the given context
func WithContext(ctx context.Context, p *Principal) context.Context {
	return gate.WithPrincipal(ctx, p)
}

// FromContext finds the principal in the context.
func FromContext(ctx context.Context) (*Principal, bool) {
	return gate.PrincipalFromContext(ctx)
}

// PrincipalFromRouter reads the principal the gate attached to the request
func PrincipalFromRouter(c router.Context, key ...string) (*Principal, bool) {
	k := ""
	if len(key) > 0 {
		k = key[0]
	}
	return gate.PrincipalFromLocals(c, k)
}

// TokenFromContext returns the jti, subject and expiry of the token that
// admitted the request.
func TokenFromContext(ctx context.Context) (gate.VerifiedToken, bool) {
	return gate.TokenFromContext(ctx)
}
