package auth

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt reads in full. Anything past
// it would be ignored, so longer passwords are refused outright.
const MaxPasswordBytes = 72

// PasswordLength checks the bcrypt byte limit. validation.Length counts
// runes, so it cannot express it.
var PasswordLength = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if len(s) > MaxPasswordBytes {
		return fmt.Errorf("must be no more than %d bytes long", MaxPasswordBytes)
	}
	return nil
})

// Hasher wraps bcrypt. It holds no mutable state and can be shared.
type Hasher struct {
	cost int
}

var _ PasswordHasher = Hasher{}

// NewHasher returns a Hasher. A cost outside bcrypt's range falls back to
// the build default.
func NewHasher(cost ...int) Hasher {
	c := passwordHashCost()
	if len(cost) > 0 && cost[0] >= bcrypt.MinCost && cost[0] <= bcrypt.MaxCost {
		c = cost[0]
	}
	return Hasher{cost: c}
}

// Cost returns the bcrypt work factor
func (h Hasher) Cost() int {
	if h.cost == 0 {
		return passwordHashCost()
	}
	return h.cost
}

// HashPassword will generate a salted password hash
func (h Hasher) HashPassword(password string) (string, error) {
	if err := checkPassword(password); err != nil {
		return "", err
	}

	out, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost())
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}
	return string(out), nil
}

// VerifyPassword reports whether password produced hash. A mismatch is not
// an error.
func (h Hasher) VerifyPassword(password, hash string) (bool, error) {
	if err := checkPassword(password); err != nil {
		return false, err
	}
	if isBlank(hash) {
		return false, withCause(ErrInvalidInput, nil, map[string]any{"field": "hash"})
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to compare password hash")
	}
}

// HashPassword hashes with the default Hasher
func HashPassword(password string) (string, error) {
	return NewHasher().HashPassword(password)
}

// ComparePasswordAndHash returns ErrMismatchedHashAndPassword when the
// password does not match.
func ComparePasswordAndHash(password, hash string) error {
	ok, err := NewHasher().VerifyPassword(password, hash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

// IsHashed reports whether value looks like a bcrypt hash. Stored values
// that fail this check are legacy plaintext awaiting migration.
func IsHashed(value string) bool {
	if len(value) < 4 || !strings.HasPrefix(value, "$2") {
		return false
	}
	if _, err := bcrypt.Cost([]byte(value)); err != nil {
		return false
	}
	return true
}

func checkPassword(password string) error {
	if isBlank(password) {
		return withCause(ErrInvalidInput, nil, map[string]any{"field": "password"})
	}
	if len(password) > MaxPasswordBytes {
		return withCause(ErrInvalidInput, nil, map[string]any{
			"field":     "password",
			"max_bytes": MaxPasswordBytes,
		})
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
