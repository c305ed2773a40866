package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the credential record. PasswordHash is only ever written with a
// value produced by the Hasher and never serialized.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Plan          string     `bun:"plan,notnull" json:"plan,omitempty"`
	Role          UserRole   `bun:"role,notnull" json:"role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Principal projects the non secret fields of the user
func (u *User) Principal() *Principal {
	if u == nil {
		return nil
	}
	return &Principal{
		ID:          u.ID.String(),
		DisplayName: u.Name,
		Role:        u.Role,
	}
}

// RevokedToken is a denylist entry. Rows past ExpiresAt can be purged since
// the token would fail verification anyway.
type RevokedToken struct {
	bun.BaseModel `bun:"table:revoked_tokens,alias:rvk"`
	JTI           string    `bun:"jti,pk" json:"jti"`
	Subject       string    `bun:"subject,notnull" json:"subject"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
	RevokedAt     time.Time `bun:"revoked_at,notnull" json:"revoked_at"`
}
