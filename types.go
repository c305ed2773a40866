package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"

	"github.com/certiweb/go-auth/middleware/gate"
)

// Logger is the structured logging contract used across the package.
// glog loggers satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Principal is the read only identity attached to an admitted request.
type Principal = gate.Principal

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetAuthScheme() string
	GetContextKey() string
	GetAllowUnresolvedPrincipal() bool
	GetBcryptCost() int
}

// TokenIssuer mints and verifies bearer tokens.
type TokenIssuer interface {
	Issue(principal Principal) (string, error)
	Verify(token string) (string, error)
	Validate(token string) (*JWTClaims, error)
	VerifyToken(token string) (gate.VerifiedToken, error)
}

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) (bool, error)
}

// RevocationStore keeps the token ids that must be rejected before they
// expire. Implementations live in this package (database) and in
// revocation/redisstore.
type RevocationStore interface {
	Revoke(ctx context.Context, jti, subject string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

func defaultLogger() Logger {
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("auth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	).GetLogger("auth")
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards every entry. Handy in tests.
func NopLogger() Logger { return nopLogger{} }
