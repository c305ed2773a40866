package gate

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

const (
	DefaultContextKey = "principal"
	DefaultAuthScheme = "Bearer"
)

var (
	ErrMissingToken    = errors.New("missing authorization header")
	ErrMalformedHeader = errors.New("malformed authorization header")
	ErrRevokedToken    = errors.New("token has been revoked")
	ErrUnresolved      = errors.New("principal not found")
)

// TokenVerifier validates a raw token. It mirrors the token service in the
// auth package so this package stays free of import cycles.
type TokenVerifier interface {
	VerifyToken(token string) (VerifiedToken, error)
}

// PrincipalFinder resolves a subject id. A nil principal with a nil error
// means the subject does not exist.
type PrincipalFinder interface {
	FindPrincipalByID(ctx context.Context, id string) (*Principal, error)
}

// PrincipalFinderFunc adapts a function to PrincipalFinder.
type PrincipalFinderFunc func(ctx context.Context, id string) (*Principal, error)

func (f PrincipalFinderFunc) FindPrincipalByID(ctx context.Context, id string) (*Principal, error) {
	return f(ctx, id)
}

// RevocationChecker reports revoked token ids.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Logger is the subset of the auth logger the gate writes to.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type Config struct {
	Verifier    TokenVerifier
	Principals  PrincipalFinder
	Revocations RevocationChecker

	// Filter skips the gate entirely when it returns true.
	Filter func(router.Context) bool
	// ErrorHandler writes the rejection. The default answers 401 with the
	// same body for every reason.
	ErrorHandler func(c router.Context, d Decision) error
	// ForbiddenHandler writes the RequireRole rejection. Default 403.
	ForbiddenHandler func(c router.Context, p *Principal) error
	// Classify maps a verifier error to a reason. The default recognises
	// jwt.ErrTokenExpired anywhere in the chain.
	Classify func(error) FailureReason
	// OnDecision observes every evaluated request, public routes excluded.
	OnDecision func(c router.Context, d Decision)

	Logger     Logger
	ContextKey string
	AuthScheme string

	// AllowUnresolvedPrincipal admits a valid token whose subject no longer
	// resolves, with a nil principal attached. Off by default.
	AllowUnresolvedPrincipal bool
}

// Gate admits or rejects requests based on a bearer token.
type Gate struct {
	cfg Config
}

// New builds a gate. It panics when the verifier or the principal finder
// is missing, since the process must not serve traffic without them.
func New(config ...Config) *Gate {
	return &Gate{cfg: GetDefaultConfig(config...)}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Verifier == nil {
		panic("AUTH: gate configuration: Verifier is required.")
	}

	if cfg.Principals == nil {
		panic("AUTH: gate configuration: Principals is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if strings.TrimSpace(cfg.AuthScheme) == "" {
		cfg.AuthScheme = DefaultAuthScheme
	}
	cfg.AuthScheme = strings.TrimSpace(cfg.AuthScheme)

	if cfg.Classify == nil {
		cfg.Classify = DefaultClassify
	}

	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, _ Decision) error {
			return c.JSON(router.StatusUnauthorized, map[string]string{"message": "unauthorized"})
		}
	}

	if cfg.ForbiddenHandler == nil {
		cfg.ForbiddenHandler = func(c router.Context, _ *Principal) error {
			return c.JSON(router.StatusForbidden, map[string]string{"message": "forbidden"})
		}
	}

	return cfg
}

// DefaultClassify tells expired tokens apart from every other failure.
func DefaultClassify(err error) FailureReason {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ReasonExpiredToken
	}
	return ReasonInvalidToken
}

// Config returns the resolved configuration
func (g *Gate) Config() Config {
	return g.cfg
}

// Evaluate runs the checks for one request given the raw Authorization
// header value. It has no side effects besides the collaborator calls.
func (g *Gate) Evaluate(ctx context.Context, header string) Decision {
	raw, err := ExtractBearer(header, g.cfg.AuthScheme)
	if err != nil {
		if errors.Is(err, ErrMissingToken) {
			return reject(ReasonMissingToken, err)
		}
		return reject(ReasonMalformedHeader, err)
	}

	tok, err := g.cfg.Verifier.VerifyToken(raw)
	if err != nil {
		return reject(g.cfg.Classify(err), err)
	}

	if g.cfg.Revocations != nil && tok.TokenID != "" {
		revoked, err := g.cfg.Revocations.IsRevoked(ctx, tok.TokenID)
		if err != nil {
			return reject(ReasonLookupFailed, err)
		}
		if revoked {
			return reject(ReasonRevokedToken, ErrRevokedToken)
		}
	}

	principal, err := g.cfg.Principals.FindPrincipalByID(ctx, tok.Subject)
	if err != nil {
		return reject(ReasonLookupFailed, err)
	}

	if principal == nil {
		if !g.cfg.AllowUnresolvedPrincipal {
			return reject(ReasonPrincipalNotFound, ErrUnresolved)
		}
		g.cfg.Logger.Warn("gate admitted token with unresolved principal", "subject", tok.Subject)
	}

	return admit(principal, tok)
}

// Handler returns the middleware for a route. Public routes are admitted
// with no principal attached and no header inspection.
func (g *Gate) Handler(public bool) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if public {
				return next(c)
			}

			if g.cfg.Filter != nil && g.cfg.Filter(c) {
				return next(c)
			}

			ctx := requestContext(c)
			d := g.Evaluate(ctx, c.GetString(router.HeaderAuthorization, ""))
			if g.cfg.OnDecision != nil {
				g.cfg.OnDecision(c, d)
			}

			if !d.Admitted {
				g.cfg.Logger.Warn("gate rejected request",
					"reason", string(d.Reason),
					"method", c.Method(),
					"path", c.Path(),
					"error", d.Err,
				)
				return g.cfg.ErrorHandler(c, d)
			}

			c.Locals(g.cfg.ContextKey, d.Principal)

			ctx = WithPrincipal(ctx, d.Principal)
			ctx = WithToken(ctx, d.Token)
			c.SetContext(ctx)

			return next(c)
		}
	}
}

// Protect is Handler(false)
func (g *Gate) Protect() router.MiddlewareFunc {
	return g.Handler(false)
}

// RequireRole must wrap a handler already behind Protect. It answers 403
// when the admitted principal holds none of roles.
func (g *Gate) RequireRole(roles ...string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			p, _ := PrincipalFromLocals(c, g.cfg.ContextKey)
			if !p.HasRole(roles...) {
				if g.cfg.OnDecision != nil {
					g.cfg.OnDecision(c, Decision{Principal: p, Reason: ReasonForbidden})
				}
				g.cfg.Logger.Warn("gate forbade request",
					"roles", roles,
					"method", c.Method(),
					"path", c.Path(),
				)
				return g.cfg.ForbiddenHandler(c, p)
			}
			return next(c)
		}
	}
}

func requestContext(c router.Context) context.Context {
	if ctx := c.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// ExtractBearer parses "<scheme> <token>". The scheme is case insensitive.
func ExtractBearer(header, authScheme string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}

	l := len(authScheme)
	if l == 0 || len(header) <= l+1 || !strings.EqualFold(header[:l], authScheme) || header[l] != ' ' {
		return "", ErrMalformedHeader
	}

	token := strings.TrimSpace(header[l+1:])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedHeader
	}
	return token, nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
