package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// MigratePasswordsMessage rehashes every stored password that is not a
// bcrypt hash yet. Accounts imported from the legacy store kept plaintext.
type MigratePasswordsMessage struct {
	OnResponse func(migrated int)
}

func (e MigratePasswordsMessage) Type() string { return "user.passwords.migrate" }

type MigratePasswordsHandler struct {
	repo   RepositoryManager
	hasher PasswordHasher
	logger Logger
}

func NewMigratePasswordsHandler(repo RepositoryManager, hasher PasswordHasher, logger Logger) *MigratePasswordsHandler {
	if hasher == nil {
		hasher = NewHasher()
	}
	if logger == nil {
		logger = defaultLogger()
	}
	return &MigratePasswordsHandler{repo: repo, hasher: hasher, logger: logger}
}

func (h *MigratePasswordsHandler) Execute(ctx context.Context, event MigratePasswordsMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password migration",
		)
	default:
	}

	migrated := 0
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		records, err := h.repo.Users().ListUsersTx(ctx, tx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
		}

		for _, user := range records {
			if IsHashed(user.PasswordHash) {
				continue
			}

			if isBlank(user.PasswordHash) {
				h.logger.Warn("password migration skipped user without password", "user_id", user.ID.String())
				continue
			}

			if len(user.PasswordHash) > MaxPasswordBytes {
				h.logger.Warn("password migration skipped password over the bcrypt limit", "user_id", user.ID.String())
				continue
			}

			hash, err := h.hasher.HashPassword(user.PasswordHash)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash legacy password").
					WithMetadata(map[string]any{"user_id": user.ID.String()})
			}

			if err := h.repo.Users().UpdatePasswordHashTx(ctx, tx, user.ID, hash); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store migrated password").
					WithMetadata(map[string]any{"user_id": user.ID.String()})
			}
			migrated++
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.logger.Info("password migration finished", "migrated", migrated)

	if event.OnResponse != nil {
		event.OnResponse(migrated)
	}
	return nil
}
