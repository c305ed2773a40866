package auth

import (
	stderrors "errors"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidInput          = "INVALID_INPUT"
	TextCodeConfiguration         = "CONFIGURATION_ERROR"
	TextCodeInvalidPrincipal      = "INVALID_PRINCIPAL"
	TextCodeTokenMissing          = "TOKEN_MISSING"
	TextCodeTokenMalformed        = "TOKEN_MALFORMED"
	TextCodeTokenSignatureInvalid = "TOKEN_SIGNATURE_INVALID"
	TextCodeTokenExpired          = "TOKEN_EXPIRED"
	TextCodeTokenRevoked          = "TOKEN_REVOKED"
	TextCodeUnauthenticated       = "UNAUTHENTICATED"
	TextCodeUnauthorized          = "UNAUTHORIZED"
	TextCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	TextCodeIdentityNotFound      = "IDENTITY_NOT_FOUND"
	TextCodeEmailExists           = "EMAIL_ALREADY_EXISTS"
)

// ErrInvalidInput is returned for empty or malformed arguments to the
// hasher or the token issuer.
var ErrInvalidInput = errors.New("invalid input", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidInput).
	WithCode(errors.CodeBadRequest)

// ErrConfiguration is returned when the signing secret is unset.
var ErrConfiguration = errors.New("auth configuration error: signing key is required", errors.CategoryInternal).
	WithTextCode(TextCodeConfiguration).
	WithCode(errors.CodeInternal)

// ErrInvalidPrincipal is returned when issuing a token for a principal
// without a stable identifier or display name.
var ErrInvalidPrincipal = errors.New("principal requires an id and a display name", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidPrincipal).
	WithCode(errors.CodeBadRequest)

var ErrTokenMissing = errors.New("token is missing", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMissing).
	WithCode(errors.CodeUnauthorized)

var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

var ErrTokenSignatureInvalid = errors.New("token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenSignatureInvalid).
	WithCode(errors.CodeUnauthorized)

var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

var ErrTokenRevoked = errors.New("token has been revoked", errors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthenticated is the generic, user facing rejection. It never says
// which check failed.
var ErrUnauthenticated = errors.New("unauthorized", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrUnauthorized is returned when the principal is known but lacks the
// role the route requires.
var ErrUnauthorized = errors.New("forbidden", errors.CategoryAuthz).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeForbidden)

// ErrMismatchedHashAndPassword covers both unknown identifiers and wrong
// passwords during login.
var ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

var ErrEmailAlreadyExists = errors.New("email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(errors.CodeConflict)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return hasTextCode(err, TextCodeTokenExpired)
}

// IsMalformedError will check for malformed tokens or headers
func IsMalformedError(err error) bool {
	return hasTextCode(err, TextCodeTokenMalformed) || hasTextCode(err, TextCodeTokenMissing)
}

// IsSignatureError will check for tokens signed with a different key
func IsSignatureError(err error) bool {
	return hasTextCode(err, TextCodeTokenSignatureInvalid)
}

// IsInvalidInputError reports validation failures from the hasher or issuer
func IsInvalidInputError(err error) bool {
	return hasTextCode(err, TextCodeInvalidInput)
}

// IsConfigurationError reports a missing signing key
func IsConfigurationError(err error) bool {
	return hasTextCode(err, TextCodeConfiguration)
}

func hasTextCode(err error, code string) bool {
	for err != nil {
		if richErr, ok := err.(*errors.Error); ok && richErr.TextCode == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// withCause returns a copy of the sentinel carrying err as its source, so
// callers can still match the underlying library error.
func withCause(sentinel *errors.Error, err error, metadata map[string]any) *errors.Error {
	clone := sentinel.Clone()
	clone.Source = err
	if len(metadata) > 0 {
		clone = clone.WithMetadata(metadata)
	}
	return clone
}
