package gate

import (
	"context"

	"github.com/goliatone/go-router"
)

type contextKey struct {
	name string
}

var principalCtxKey = &contextKey{"principal"}
var tokenCtxKey = &contextKey{"token"}

// WithPrincipal sets the principal in the given context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext finds the principal in the context. A nil
// principal stored by a public route or the legacy pass-through reports ok
// as false.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey).(*Principal)
	return p, ok && p != nil
}

// WithToken stores the verified token details in the context
func WithToken(ctx context.Context, tok VerifiedToken) context.Context {
	return context.WithValue(ctx, tokenCtxKey, tok)
}

// TokenFromContext returns the verified token of an admitted request
func TokenFromContext(ctx context.Context) (VerifiedToken, bool) {
	tok, ok := ctx.Value(tokenCtxKey).(VerifiedToken)
	return tok, ok
}

// PrincipalFromLocals reads the principal the gate stored under key.
func PrincipalFromLocals(c router.Context, key string) (*Principal, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	p, ok := c.Locals(key).(*Principal)
	return p, ok && p != nil
}
