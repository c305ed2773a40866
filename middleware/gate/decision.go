package gate

import (
	"slices"
	"time"
)

// FailureReason explains why a request was rejected. It is logged and
// counted, never sent to the client.
type FailureReason string

const (
	ReasonNone              FailureReason = "none"
	ReasonMissingToken      FailureReason = "missing_token"
	ReasonMalformedHeader   FailureReason = "malformed_header"
	ReasonInvalidToken      FailureReason = "invalid_token"
	ReasonExpiredToken      FailureReason = "expired_token"
	ReasonRevokedToken      FailureReason = "revoked_token"
	ReasonPrincipalNotFound FailureReason = "principal_not_found"
	ReasonLookupFailed      FailureReason = "lookup_failed"
	ReasonForbidden         FailureReason = "forbidden"
)

// Principal is the resolved, read only identity of the caller.
type Principal struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Role        string `json:"role,omitempty"`
}

// HasRole reports whether the principal holds any of roles
func (p *Principal) HasRole(roles ...string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(roles, p.Role)
}

// VerifiedToken is what the gate needs to know about a token that passed
// signature and expiry checks.
type VerifiedToken struct {
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

// Decision is the outcome of evaluating one request.
type Decision struct {
	Admitted  bool
	Principal *Principal
	Reason    FailureReason
	Token     VerifiedToken
	// Err is the underlying cause. Server side only.
	Err error
}

func admit(p *Principal, tok VerifiedToken) Decision {
	return Decision{Admitted: true, Principal: p, Reason: ReasonNone, Token: tok}
}

func reject(reason FailureReason, err error) Decision {
	return Decision{Admitted: false, Reason: reason, Err: err}
}
