package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// AdminSeed describes the bootstrap administrator
type AdminSeed struct {
	Name     string
	Email    string
	Password string
	Plan     string
}

// SeedAdmin creates the administrator account unless the email is already
// registered. It reports whether a user was created.
func (s *Auther) SeedAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	if isBlank(seed.Email) || isBlank(seed.Password) {
		return false, nil
	}

	_, err := s.repo.Users().GetByEmail(ctx, seed.Email)
	if err == nil {
		s.logger.Debug("admin seed skipped, account exists", "email", seed.Email)
		return false, nil
	}
	if !repository.IsRecordNotFound(err) {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up admin account")
	}

	if seed.Name == "" {
		seed.Name = "Administrator"
	}
	if seed.Plan == "" {
		seed.Plan = "admin"
	}

	var created *User
	err = NewRegisterUserHandler(s.repo, s.hasher).Execute(ctx, RegisterUserMessage{
		Name:       seed.Name,
		Email:      seed.Email,
		Password:   seed.Password,
		Plan:       seed.Plan,
		Role:       RoleAdmin,
		UseHashid:  s.useHashid,
		OnResponse: func(u *User) { created = u },
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("admin account seeded", "email", created.Email)
	s.emitAuthEvent(ctx, ActivityEventAdminSeeded, created.ID.String(), nil)
	return true, nil
}
