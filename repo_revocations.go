package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RevokedTokens is the database backed RevocationStore.
type RevokedTokens interface {
	RevocationStore
	RevokeTx(ctx context.Context, tx bun.IDB, jti, subject string, expiresAt time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type revokedTokens struct {
	db  *bun.DB
	now func() time.Time
}

var _ RevokedTokens = (*revokedTokens)(nil)

func NewRevokedTokensRepository(db *bun.DB) RevokedTokens {
	return &revokedTokens{db: db, now: time.Now}
}

// Revoke adds the token id to the denylist. Revoking twice is a no-op.
func (r *revokedTokens) Revoke(ctx context.Context, jti, subject string, expiresAt time.Time) error {
	return r.RevokeTx(ctx, r.db, jti, subject, expiresAt)
}

func (r *revokedTokens) RevokeTx(ctx context.Context, tx bun.IDB, jti, subject string, expiresAt time.Time) error {
	if strings.TrimSpace(jti) == "" {
		return ErrInvalidInput.Clone().WithMetadata(map[string]any{"field": "jti"})
	}

	record := &RevokedToken{
		JTI:       jti,
		Subject:   subject,
		ExpiresAt: expiresAt.UTC(),
		RevokedAt: r.now().UTC(),
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (jti) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke token")
	}
	return nil
}

// IsRevoked checks if a token id is on the denylist
func (r *revokedTokens) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*RevokedToken)(nil)).
		Where("?TableAlias.jti = ?", jti).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check revoked token")
	}
	return exists, nil
}

// DeleteExpired removes entries whose token would fail expiry checks anyway
func (r *revokedTokens) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*RevokedToken)(nil)).
		Where("expires_at < ?", now.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryInternal, "failed to purge revoked tokens")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
