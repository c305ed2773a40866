package auth

import (
	"github.com/certiweb/go-auth/middleware/gate"
)

// TokenVerifierFunc adapts a function into a gate.TokenVerifier.
type TokenVerifierFunc func(tokenString string) (gate.VerifiedToken, error)

func (f TokenVerifierFunc) VerifyToken(tokenString string) (gate.VerifiedToken, error) {
	if f == nil {
		return gate.VerifiedToken{}, ErrConfiguration
	}
	return f(tokenString)
}

// MultiTokenVerifier tries verifiers in order until one succeeds. Only a
// signature mismatch moves on to the next verifier, so retired signing keys
// keep validating tokens issued before a rotation.
type MultiTokenVerifier struct {
	verifiers []gate.TokenVerifier
}

// NewMultiTokenVerifier filters nil verifiers.
func NewMultiTokenVerifier(verifiers ...gate.TokenVerifier) *MultiTokenVerifier {
	filtered := make([]gate.TokenVerifier, 0, len(verifiers))
	for _, v := range verifiers {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenVerifier{verifiers: filtered}
}

func (m *MultiTokenVerifier) VerifyToken(tokenString string) (gate.VerifiedToken, error) {
	var lastErr error
	for _, v := range m.verifiers {
		tok, err := v.VerifyToken(tokenString)
		if err == nil {
			return tok, nil
		}
		if IsSignatureError(err) {
			lastErr = err
			continue
		}
		return gate.VerifiedToken{}, err
	}
	if lastErr != nil {
		return gate.VerifiedToken{}, lastErr
	}
	return gate.VerifiedToken{}, ErrConfiguration
}

// NewRotatingVerifier verifies with current first, then with a verifier for
// each retired key sharing the current issuer, audience and clock.
func NewRotatingVerifier(current *TokenServiceImpl, retiredKeys ...string) gate.TokenVerifier {
	if len(retiredKeys) == 0 {
		return current
	}

	verifiers := []gate.TokenVerifier{current}
	for _, key := range retiredKeys {
		if isBlank(key) {
			continue
		}
		retired := NewTokenService([]byte(key), current.TTL(), current.issuer, current.audience, current.logger).
			WithClock(current.now)
		verifiers = append(verifiers, retired)
	}
	return NewMultiTokenVerifier(verifiers...)
}

var _ gate.TokenVerifier = (*MultiTokenVerifier)(nil)
