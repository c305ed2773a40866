package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"

	"github.com/certiweb/go-auth/middleware/gate"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenServiceImpl issues and verifies HS256 tokens. After construction it
// is read only and safe for concurrent use.
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

var (
	_ TokenIssuer        = (*TokenServiceImpl)(nil)
	_ gate.TokenVerifier = (*TokenServiceImpl)(nil)
)

// NewTokenService creates a new TokenService instance. A zero ttl means
// DefaultTokenTTL. An empty signing key is accepted here and reported as
// ErrConfiguration on first use.
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defaultLogger()
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		audience:   audience,
		logger:     logger,
		now:        time.Now,
	}
}

// NewTokenServiceFromConfig reads the signing options from cfg. It fails
// fast when the signing key is empty.
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	if cfg == nil || isBlank(cfg.GetSigningKey()) {
		return nil, ErrConfiguration
	}
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenTTL(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
	), nil
}

// WithClock replaces the time source. Tests use it to cross the expiry
// boundary without waiting.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// TTL returns the configured token lifetime
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Issue creates a token for principal expiring ttl from now.
func (ts *TokenServiceImpl) Issue(principal Principal) (string, error) {
	if len(ts.signingKey) == 0 {
		return "", ErrConfiguration
	}
	if isBlank(principal.ID) || isBlank(principal.DisplayName) {
		return "", ErrInvalidPrincipal
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   principal.ID,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID:      principal.ID,
		Name:     principal.DisplayName,
		UserRole: principal.Role,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}
	if len(ts.signingKey) == 0 {
		return "", ErrConfiguration
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Verify returns the subject id of a valid token. It is a pure function of
// the token, the clock and the key.
func (ts *TokenServiceImpl) Verify(tokenString string) (string, error) {
	claims, err := ts.Validate(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject(), nil
}

// VerifyToken implements gate.TokenVerifier
func (ts *TokenServiceImpl) VerifyToken(tokenString string) (gate.VerifiedToken, error) {
	claims, err := ts.Validate(tokenString)
	if err != nil {
		return gate.VerifiedToken{}, err
	}
	return gate.VerifiedToken{
		Subject:   claims.Subject(),
		TokenID:   claims.TokenID(),
		ExpiresAt: claims.Expires(),
	}, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (*JWTClaims, error) {
	if len(ts.signingKey) == 0 {
		return nil, ErrConfiguration
	}
	if strings.TrimSpace(tokenString) == "" {
		return nil, ErrTokenMissing
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, withCause(ErrTokenExpired, err, nil)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, withCause(ErrTokenSignatureInvalid, err, nil)
		default:
			ts.logger.Debug("token service rejected token", "error", err)
			return nil, withCause(ErrTokenMalformed, err, nil)
		}
	}

	if !token.Valid || isBlank(claims.Subject()) {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// ClassifyTokenError maps token service errors to gate reasons.
func ClassifyTokenError(err error) gate.FailureReason {
	if IsTokenExpiredError(err) {
		return gate.ReasonExpiredToken
	}
	return gate.ReasonInvalidToken
}
