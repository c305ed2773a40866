package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"

	"github.com/certiweb/go-auth/middleware/gate"
)

// Auther drives registration, login and logout on top of the users store,
// the hasher and the token service.
type Auther struct {
	repo         RepositoryManager
	hasher       PasswordHasher
	tokenService *TokenServiceImpl
	revocations  RevocationStore
	logger       Logger
	activitySink ActivitySink
	useHashid    bool

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, tokenService *TokenServiceImpl, hasher PasswordHasher) *Auther {
	if hasher == nil {
		hasher = NewHasher()
	}
	return &Auther{
		repo:         repo,
		hasher:       hasher,
		tokenService: tokenService,
		logger:       defaultLogger(),
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithRevocationStore enables logout. Without a store Logout is a no-op
// and tokens live until they expire.
func (s *Auther) WithRevocationStore(store RevocationStore) *Auther {
	s.revocations = store
	return s
}

// WithHashidUserIDs derives new user ids from their email
func (s *Auther) WithHashidUserIDs(enabled bool) *Auther {
	s.useHashid = enabled
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() *TokenServiceImpl {
	return s.tokenService
}

// Revocations returns the configured store, nil when logout is disabled
func (s *Auther) Revocations() RevocationStore {
	return s.revocations
}

// Register creates the account and issues its first token.
func (s *Auther) Register(ctx context.Context, msg RegisterUserMessage) (*User, string, error) {
	var created *User
	msg.UseHashid = msg.UseHashid || s.useHashid
	msg.OnResponse = func(u *User) { created = u }

	if err := NewRegisterUserHandler(s.repo, s.hasher).Execute(ctx, msg); err != nil {
		s.logger.Warn("Register failed", "email", msg.Email, "error", err)
		return nil, "", err
	}

	token, err := s.tokenService.Issue(*created.Principal())
	if err != nil {
		s.logger.Error("Register token issue error", "error", err)
		return nil, "", err
	}

	s.emitAuthEvent(ctx, ActivityEventUserRegistered, created.ID.String(), map[string]any{
		"plan": created.Plan,
	})

	return created, token, nil
}

// Login verifies the credentials and returns a fresh token. Unknown emails
// and wrong passwords yield the same error.
func (s *Auther) Login(ctx context.Context, email, password string) (*User, string, error) {
	if isBlank(email) || isBlank(password) {
		return nil, "", ErrMismatchedHashAndPassword
	}

	user, err := s.repo.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			// keep timing close to the known user path
			_, _ = s.hasher.VerifyPassword(password, s.placeholderHash())
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", map[string]any{
				"identifier": email,
				"error":      ErrIdentityNotFound.Error(),
			})
			return nil, "", ErrMismatchedHashAndPassword
		}
		s.logger.Error("Login find user error", "error", err)
		return nil, "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	ok, err := s.hasher.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			s.logger.Warn("Login password verification error", "user_id", user.ID.String(), "error", err)
		}
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, user.ID.String(), map[string]any{
			"identifier": email,
		})
		return nil, "", ErrMismatchedHashAndPassword
	}

	token, err := s.tokenService.Issue(*user.Principal())
	if err != nil {
		s.logger.Error("Login token issue error", "error", err)
		return nil, "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, user.ID.String(), nil)

	return user, token, nil
}

// Logout revokes the token that authenticated the request.
func (s *Auther) Logout(ctx context.Context, tok gate.VerifiedToken) error {
	if s.revocations == nil {
		s.logger.Debug("Logout without revocation store, token stays valid until expiry", "subject", tok.Subject)
		return nil
	}

	if isBlank(tok.TokenID) {
		return ErrTokenMalformed
	}

	if err := s.revocations.Revoke(ctx, tok.TokenID, tok.Subject, tok.ExpiresAt); err != nil {
		s.logger.Error("Logout revoke error", "error", err)
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, tok.Subject, map[string]any{
		"jti": tok.TokenID,
	})
	return nil
}

// MigratePasswords rehashes legacy plaintext passwords and returns how
// many were changed.
func (s *Auther) MigratePasswords(ctx context.Context) (int, error) {
	migrated := 0
	err := NewMigratePasswordsHandler(s.repo, s.hasher, s.logger).Execute(ctx, MigratePasswordsMessage{
		OnResponse: func(n int) { migrated = n },
	})
	if err != nil {
		return 0, err
	}

	s.emitAuthEvent(ctx, ActivityEventPasswordsMigrated, "", map[string]any{
		"migrated": migrated,
	})
	return migrated, nil
}

func (s *Auther) placeholderHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.HashPassword("placeholder-password")
	})
	return s.dummyHash
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}
