package identity

import "context"

// Credential is the result of a successful credential verification.
type Credential struct {
	// ID is the opaque, provider-issued identity id.
	ID string
	// Email is the verified login address.
	Email string
	// TOTPSecret is the second-factor secret; empty when 2FA is off for the account.
	TOTPSecret string
}

// Profile is the persisted profile data attached to an identity.
type Profile struct {
	// Name is the display name.
	Name string
	// Role is the role name held by the identity.
	Role string
	// Permissions is the explicit permission list. The admin short-circuit is
	// never materialized here.
	Permissions []string
}

// IdentityPatch lists the mutable identity fields for UpdateIdentity.
// Nil fields are left untouched.
type IdentityPatch struct {
	Email  *string
	Secret *string
}

// Provider is the external identity/credential service consumed by the
// session store. Implementations must keep credential failures
// (ErrInvalidCredentials, ErrAccountDisabled) distinguishable from
// infrastructure failures.
type Provider interface {
	// VerifyCredential checks an email/secret pair and returns the matching
	// identity on success.
	VerifyCredential(ctx context.Context, email, secret string) (*Credential, error)

	// SignOut invalidates the provider-side session of the given identity.
	SignOut(ctx context.Context, id string) error

	// FetchProfile loads the profile record for an identity.
	// Returns ErrProfileNotFound when the identity has no profile.
	FetchProfile(ctx context.Context, id string) (*Profile, error)

	// CreateIdentity registers a new identity and returns its issued id.
	CreateIdentity(ctx context.Context, email, secret string) (string, error)

	// UpdateIdentity applies the patch to the identity record.
	UpdateIdentity(ctx context.Context, id string, patch IdentityPatch) error

	// DeleteIdentity removes the identity and its profile.
	// Returns ErrSeedAdminImmutable for the seed administrator.
	DeleteIdentity(ctx context.Context, id string) error

	// UpsertProfile creates or replaces the profile record of an identity.
	UpsertProfile(ctx context.Context, id string, profile Profile) error
}
