//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

// Race builds are slow enough without a production work factor.
func passwordHashCost() int {
	return bcrypt.DefaultCost
}
