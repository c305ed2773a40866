package auth_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/certiweb/go-auth"
)

func TestHasherRoundTrip(t *testing.T) {
	h := auth.NewHasher(bcrypt.MinCost)

	hash, err := h.HashPassword("s3cret!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$2"))
	assert.NotContains(t, hash, "s3cret!")

	ok, err := h.VerifyPassword("s3cret!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.VerifyPassword("s3cret?", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasherSaltsEachHash(t *testing.T) {
	h := auth.NewHasher(bcrypt.MinCost)

	first, err := h.HashPassword("same-password")
	require.NoError(t, err)
	second, err := h.HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	for _, hash := range []string{first, second} {
		ok, err := h.VerifyPassword("same-password", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestHasherRejectsBlankInput(t *testing.T) {
	h := auth.NewHasher(bcrypt.MinCost)

	_, err := h.HashPassword("")
	require.Error(t, err)
	assert.True(t, auth.IsInvalidInputError(err))

	_, err = h.HashPassword("   ")
	assert.True(t, auth.IsInvalidInputError(err))

	_, err = h.VerifyPassword("", "$2a$04$abc")
	assert.True(t, auth.IsInvalidInputError(err))

	_, err = h.VerifyPassword("pw", "")
	assert.True(t, auth.IsInvalidInputError(err))

	tooLong := strings.Repeat("a", auth.MaxPasswordBytes+1)
	_, err = h.HashPassword(tooLong)
	assert.True(t, auth.IsInvalidInputError(err))

	_, err = h.VerifyPassword(tooLong, "$2a$04$abc")
	assert.True(t, auth.IsInvalidInputError(err))
}

func TestHasherDoesNotTruncate(t *testing.T) {
	h := auth.NewHasher(bcrypt.MinCost)
	limit := strings.Repeat("a", auth.MaxPasswordBytes)

	hash, err := h.HashPassword(limit)
	require.NoError(t, err)

	ok, err := h.VerifyPassword(limit, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.VerifyPassword(limit+"zzz", hash)
	assert.False(t, ok, "a longer password sharing the first 72 bytes must not verify")
	assert.True(t, auth.IsInvalidInputError(err))
}

func TestHasherCorruptHash(t *testing.T) {
	h := auth.NewHasher(bcrypt.MinCost)

	ok, err := h.VerifyPassword("pw", "not-a-bcrypt-hash")
	assert.False(t, ok)
	require.Error(t, err)
	assert.False(t, auth.IsInvalidInputError(err))
}

func TestNewHasherCost(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, auth.NewHasher(bcrypt.MinCost).Cost())
	assert.Equal(t, auth.NewHasher().Cost(), auth.NewHasher(99).Cost())
	assert.Equal(t, auth.NewHasher().Cost(), auth.NewHasher(0).Cost())
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := auth.NewHasher(bcrypt.MinCost).HashPassword("pw-123")
	require.NoError(t, err)

	require.NoError(t, auth.ComparePasswordAndHash("pw-123", hash))

	err = auth.ComparePasswordAndHash("pw-124", hash)
	require.Error(t, err)
	assert.Equal(t, auth.ErrMismatchedHashAndPassword, err)
}

func TestIsHashed(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{name: "bcrypt hash", value: string(hash), expected: true},
		{name: "plaintext", value: "password123", expected: false},
		{name: "empty", value: "", expected: false},
		{name: "prefix only", value: "$2a$", expected: false},
		{name: "truncated hash", value: string(hash[:20]), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsHashed(tt.value))
		})
	}
}

func TestHasherConcurrentUse(t *testing.T) {
	h := auth.NewHasher(bcrypt.MinCost)

	shared, err := h.HashPassword("shared-password")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers*2)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			password := fmt.Sprintf("password-%d", i)
			hash, err := h.HashPassword(password)
			if err != nil {
				errs <- err
				return
			}

			if ok, err := h.VerifyPassword(password, hash); err != nil || !ok {
				errs <- fmt.Errorf("worker %d: own hash did not verify: ok=%v err=%v", i, ok, err)
			}
			if ok, err := h.VerifyPassword("shared-password", shared); err != nil || !ok {
				errs <- fmt.Errorf("worker %d: shared hash did not verify: ok=%v err=%v", i, ok, err)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
