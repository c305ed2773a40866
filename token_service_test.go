package auth_test

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/certiweb/go-auth"
	"github.com/certiweb/go-auth/middleware/gate"
)

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestTokenService(clock *fakeClock, secret string) *auth.TokenServiceImpl {
	return auth.NewTokenService([]byte(secret), auth.DefaultTokenTTL, "", nil, auth.NopLogger()).
		WithClock(clock.Now)
}

func ana() auth.Principal {
	return auth.Principal{ID: "42", DisplayName: "Ana", Role: auth.RoleUser}
}

func TestTokenServiceIssueAndVerify(t *testing.T) {
	clock := &fakeClock{now: t0}
	ts := newTestTokenService(clock, "secret-A")

	token, err := ts.Issue(ana())
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	subject, err := ts.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "42", subject)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, auth.RoleUser, claims.Role())
	assert.Equal(t, "42", claims.UserID())
	assert.True(t, t0.Equal(claims.IssuedAt()))
	assert.True(t, t0.Add(7*24*time.Hour).Equal(claims.Expires()))
	assert.NotEmpty(t, claims.TokenID())
	assert.Equal(t, ana(), claims.Principal())
}

func TestTokenServiceIssueUniqueTokenIDs(t *testing.T) {
	ts := newTestTokenService(&fakeClock{now: t0}, "secret-A")

	first := issueAndVerify(t, ts, ana())
	second := issueAndVerify(t, ts, ana())

	assert.NotEqual(t, first.TokenID, second.TokenID)
}

func TestTokenServiceConcurrentUse(t *testing.T) {
	ts := newTestTokenService(&fakeClock{now: t0}, "secret-A")

	const workers = 16
	var wg sync.WaitGroup
	ids := make(chan string, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			p := auth.Principal{ID: fmt.Sprintf("user-%d", i), DisplayName: "Ana", Role: auth.RoleUser}
			token, err := ts.Issue(p)
			if err != nil {
				errs <- err
				return
			}

			tok, err := ts.VerifyToken(token)
			if err != nil {
				errs <- err
				return
			}
			if tok.Subject != p.ID {
				errs <- fmt.Errorf("worker %d: subject %q", i, tok.Subject)
				return
			}
			ids <- tok.TokenID
		}(i)
	}

	wg.Wait()
	close(errs)
	close(ids)

	for err := range errs {
		assert.NoError(t, err)
	}

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "token id %s issued twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)
}

func issueAndVerify(t *testing.T, ts *auth.TokenServiceImpl, p auth.Principal) gate.VerifiedToken {
	t.Helper()
	token, err := ts.Issue(p)
	require.NoError(t, err)
	tok, err := ts.VerifyToken(token)
	require.NoError(t, err)
	return tok
}

func TestTokenServiceExpiryBoundary(t *testing.T) {
	clock := &fakeClock{now: t0}
	ts := newTestTokenService(clock, "secret-A")

	token, err := ts.Issue(ana())
	require.NoError(t, err)

	tests := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{name: "just issued", now: t0},
		{name: "one day later", now: t0.Add(24 * time.Hour)},
		{name: "one second before expiry", now: t0.Add(7*24*time.Hour - time.Second)},
		{name: "at expiry", now: t0.Add(7 * 24 * time.Hour), expired: true},
		{name: "after expiry", now: t0.Add(8 * 24 * time.Hour), expired: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.now = tt.now
			subject, err := ts.Verify(token)
			if !tt.expired {
				require.NoError(t, err)
				assert.Equal(t, "42", subject)
				return
			}
			require.Error(t, err)
			assert.True(t, auth.IsTokenExpiredError(err))
			assert.Equal(t, gate.ReasonExpiredToken, auth.ClassifyTokenError(err))
			assert.Empty(t, subject)
		})
	}
}

func TestTokenServiceRejectsOtherSecret(t *testing.T) {
	clock := &fakeClock{now: t0}
	token, err := newTestTokenService(clock, "secret-A").Issue(ana())
	require.NoError(t, err)

	_, err = newTestTokenService(clock, "secret-B").Verify(token)
	require.Error(t, err)
	assert.True(t, auth.IsSignatureError(err))
	assert.False(t, auth.IsTokenExpiredError(err))
	assert.Equal(t, gate.ReasonInvalidToken, auth.ClassifyTokenError(err))
}

func TestTokenServiceRejectsTamperedTokens(t *testing.T) {
	clock := &fakeClock{now: t0}
	ts := newTestTokenService(clock, "secret-A")

	token, err := ts.Issue(ana())
	require.NoError(t, err)
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tamperedSig := parts[0] + "." + parts[1] + "." + string(sig)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), `"sub":"42"`, `"sub":"1"`, 1)
	require.NotEqual(t, string(payload), forged)
	tamperedPayload := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(forged)) + "." + parts[2]

	for name, tampered := range map[string]string{"signature": tamperedSig, "payload": tamperedPayload} {
		t.Run(name, func(t *testing.T) {
			subject, err := ts.Verify(tampered)
			require.Error(t, err)
			assert.True(t, auth.IsSignatureError(err))
			assert.Empty(t, subject)
		})
	}
}

func TestTokenServiceRejectsMalformedTokens(t *testing.T) {
	logger := &MockLogger{}
	logger.On("Debug", "token service rejected token", mock.Anything).Return()

	ts := auth.NewTokenService([]byte("secret-A"), 0, "", nil, logger).WithClock((&fakeClock{now: t0}).Now)

	for _, raw := range []string{"not-a-jwt", "a.b.c", "eyJhbGciOiJIUzI1NiJ9..sig"} {
		_, err := ts.Verify(raw)
		require.Error(t, err, raw)
		assert.True(t, auth.IsMalformedError(err), raw)
		assert.Equal(t, gate.ReasonInvalidToken, auth.ClassifyTokenError(err))
	}

	logger.AssertExpectations(t)
}

func TestTokenServiceRejectsEmptyToken(t *testing.T) {
	ts := newTestTokenService(&fakeClock{now: t0}, "secret-A")

	_, err := ts.Verify("")
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))

	_, err = ts.Verify("   ")
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenServiceRejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{now: t0}
	ts := newTestTokenService(clock, "secret-A")

	claims := jwt.RegisteredClaims{
		Subject:   "42",
		ExpiresAt: jwt.NewNumericDate(t0.Add(time.Hour)),
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	hs384, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte("secret-A"))
	require.NoError(t, err)

	for name, raw := range map[string]string{"none": none, "HS384": hs384} {
		t.Run(name, func(t *testing.T) {
			_, err := ts.Verify(raw)
			require.Error(t, err)
			assert.False(t, auth.IsTokenExpiredError(err))
		})
	}
}

func TestTokenServiceRequiresExpiry(t *testing.T) {
	ts := newTestTokenService(&fakeClock{now: t0}, "secret-A")

	token, err := ts.SignClaims(&auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "42"},
	})
	require.NoError(t, err)

	_, err = ts.Verify(token)
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenServiceEmptyKey(t *testing.T) {
	ts := newTestTokenService(&fakeClock{now: t0}, "")

	_, err := ts.Issue(ana())
	require.Error(t, err)
	assert.True(t, auth.IsConfigurationError(err))

	_, err = ts.Verify("a.b.c")
	assert.True(t, auth.IsConfigurationError(err))
}

func TestTokenServiceInvalidPrincipal(t *testing.T) {
	ts := newTestTokenService(&fakeClock{now: t0}, "secret-A")

	for _, p := range []auth.Principal{
		{ID: "", DisplayName: "Ana"},
		{ID: "42", DisplayName: " "},
	} {
		_, err := ts.Issue(p)
		require.Error(t, err)
		assert.Equal(t, auth.ErrInvalidPrincipal, err)
	}
}

func TestTokenServiceIssuerAndAudience(t *testing.T) {
	clock := &fakeClock{now: t0}
	issuer := auth.NewTokenService([]byte("k"), time.Hour, "certiweb", jwt.ClaimStrings{"api"}, auth.NopLogger()).WithClock(clock.Now)
	other := auth.NewTokenService([]byte("k"), time.Hour, "someone-else", jwt.ClaimStrings{"api"}, auth.NopLogger()).WithClock(clock.Now)

	token, err := issuer.Issue(ana())
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.NoError(t, err)

	_, err = other.Verify(token)
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))
}

type testConfig struct {
	key string
	ttl time.Duration
}

func (c testConfig) GetSigningKey() string             { return c.key }
func (c testConfig) GetTokenTTL() time.Duration        { return c.ttl }
func (c testConfig) GetIssuer() string                 { return "" }
func (c testConfig) GetAudience() []string             { return nil }
func (c testConfig) GetAuthScheme() string             { return "Bearer" }
func (c testConfig) GetContextKey() string             { return "principal" }
func (c testConfig) GetAllowUnresolvedPrincipal() bool { return false }
func (c testConfig) GetBcryptCost() int                { return 4 }

func TestNewTokenServiceFromConfig(t *testing.T) {
	_, err := auth.NewTokenServiceFromConfig(testConfig{key: " "}, nil)
	require.Error(t, err)
	assert.True(t, auth.IsConfigurationError(err))

	ts, err := auth.NewTokenServiceFromConfig(testConfig{key: "secret", ttl: time.Hour}, auth.NopLogger())
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ts.TTL())

	ts, err = auth.NewTokenServiceFromConfig(testConfig{key: "secret"}, auth.NopLogger())
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultTokenTTL, ts.TTL())
}

func TestRotatingVerifierAcceptsRetiredKeys(t *testing.T) {
	clock := &fakeClock{now: t0}
	oldToken, err := newTestTokenService(clock, "old-key").Issue(ana())
	require.NoError(t, err)
	foreignToken, err := newTestTokenService(clock, "foreign-key").Issue(ana())
	require.NoError(t, err)

	current := newTestTokenService(clock, "new-key")
	newToken, err := current.Issue(ana())
	require.NoError(t, err)

	verifier := auth.NewRotatingVerifier(current, "old-key", "")

	for _, token := range []string{oldToken, newToken} {
		tok, err := verifier.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, "42", tok.Subject)
	}

	_, err = verifier.VerifyToken(foreignToken)
	require.Error(t, err)
	assert.True(t, auth.IsSignatureError(err))

	clock.now = t0.Add(30 * 24 * time.Hour)
	_, err = verifier.VerifyToken(oldToken)
	require.Error(t, err)
	assert.True(t, auth.IsTokenExpiredError(err))

	assert.Same(t, current, auth.NewRotatingVerifier(current))
}
