package identity

import "errors"

var (
	// ErrInvalidCredentials is returned when the email/password pair does not
	// match a record. It is never logged together with the secret.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountDisabled is returned when attempting to authenticate a disabled account.
	ErrAccountDisabled = errors.New("user account is disabled")

	// ErrProfileNotFound is returned when an identity exists but has no profile record.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrUserNotFound is returned when an identity record cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailExists is returned when attempting to create an identity with an
	// email that already exists.
	ErrEmailExists = errors.New("user with this email already exists")

	// ErrSeedAdminImmutable is returned when attempting to delete the seed
	// administrator record. The rule is id-based, not role-based, so an
	// administrator cannot lock everyone out by deleting the bootstrap account.
	ErrSeedAdminImmutable = errors.New("the seed administrator cannot be deleted")
)
