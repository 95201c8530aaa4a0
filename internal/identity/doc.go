// Package identity adapts the external identity/credential service consumed
// by the authorization core.
//
// The Provider interface covers credential verification, identity record
// management and profile storage. The session store is written against the
// interface only; concrete implementations are:
//
//   - LocalProvider: user records in the local database with Argon2id
//     password hashing.
//   - LDAPProvider: credential verification against an LDAP or Active
//     Directory server, with profiles still stored locally.
//   - OIDCProvider: OAuth2/OpenID Connect login flow against an external
//     identity provider; the callback resolves a local record by email.
//
// # Error taxonomy
//
// Credential failures (ErrInvalidCredentials, ErrAccountDisabled) are
// distinct from infrastructure failures (wrapped database or network
// errors) so callers can log outages with detail while showing the user a
// generic message, and never confuse the two. ErrProfileNotFound marks an
// authenticated identity without a profile record; the session store treats
// it as a login failure, not a crash.
package identity
