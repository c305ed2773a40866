// Package auth provides credential verification and bearer token request
// authorization for the CertiWeb API.
//
// Core pieces:
//   - Hasher wraps bcrypt. Hashes are salted, so hashing the same password
//     twice yields two strings that both verify.
//   - TokenServiceImpl issues HS256 tokens carrying the subject id, display
//     name and role, valid for seven days. Verification has zero leeway and
//     reports expiry apart from signature or format failures.
//   - The gate (middleware/gate) reads "Authorization: Bearer <token>",
//     verifies it, resolves the principal through the users store and
//     attaches it to the request. Every rejection is the same 401; the cause
//     is only logged.
//
// Around the core the package carries the bun users store, registration
// and login (Auther), optional token revocation for logout, legacy password
// migration and a go-router controller exposing the JSON API.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther for
//     registration, login, logout and password migration. Sinks run best
//     effort (errors are logged) so they never block authentication.
package auth
