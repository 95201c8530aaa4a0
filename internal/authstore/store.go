package authstore

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/catalog"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/registry"
)

// Identity is the authenticated identity held by a store.
type Identity struct {
	ID          string
	Email       string
	Name        string
	Role        string
	Permissions []string
}

// NewUser carries the fields for creating a user account.
type NewUser struct {
	Name        string
	Email       string
	Role        string
	Password    string
	Permissions []string
}

// UserPatch lists the mutable account fields for UpdateUser.
// Nil fields are left untouched.
type UserPatch struct {
	Name  *string
	Email *string
	Role  *string
}

// Store holds the authenticated identity of one session and performs all
// permission checks and account mutations through its identity provider.
type Store struct {
	provider identity.Provider

	mu      sync.Mutex
	busy    bool
	gen     uint64
	current *Identity
}

// New creates a session store backed by the given identity provider.
func New(provider identity.Provider) *Store {
	return &Store{provider: provider}
}

// beginOp marks the store busy and returns the current generation. A second
// login or mutation while one is in flight gets ErrBusy.
func (s *Store) beginOp() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return 0, ErrBusy
	}

	s.busy = true

	return s.gen, nil
}

func (s *Store) endOp() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Login verifies the credential pair and, when the account has 2FA enabled,
// the TOTP code. On success the store holds the resolved identity and true is
// returned. On any failure the store keeps whatever identity it held before,
// and false is returned; credential rejections are logged without the secret,
// infrastructure failures with their error.
func (s *Store) Login(ctx context.Context, email, secret, otpCode string) bool {
	gen, err := s.beginOp()
	if err != nil {
		log.Warn().Str("email", email).Msg("login rejected, another operation is in progress")

		return false
	}
	defer s.endOp()

	cred, err := s.provider.VerifyCredential(ctx, email, secret)
	if err != nil {
		switch {
		case isCredentialError(err):
			log.Warn().Str("email", email).Err(err).Msg("login failed")
		default:
			log.Error().Str("email", email).Err(err).Msg("identity provider unavailable during login")
		}

		return false
	}

	if cred.TOTPSecret != "" && !totp.Validate(otpCode, cred.TOTPSecret) {
		log.Warn().Str("email", email).Msg("login failed, invalid one-time code")

		return false
	}

	profile, err := s.provider.FetchProfile(ctx, cred.ID)
	if err != nil {
		log.Error().Str("id", cred.ID).Err(err).Msg("failed to fetch profile during login")

		return false
	}

	return s.install(gen, &Identity{
		ID:          cred.ID,
		Email:       cred.Email,
		Name:        profile.Name,
		Role:        profile.Role,
		Permissions: slices.Clone(profile.Permissions),
	})
}

// Resume re-establishes an already-authenticated identity, either from a
// persisted session snapshot or after an external (OIDC) login. It performs
// no credential check; callers must only pass identities that were verified
// elsewhere.
func (s *Store) Resume(ctx context.Context, id, email string) bool {
	gen, err := s.beginOp()
	if err != nil {
		log.Warn().Str("id", id).Msg("resume rejected, another operation is in progress")

		return false
	}
	defer s.endOp()

	profile, err := s.provider.FetchProfile(ctx, id)
	if err != nil {
		log.Error().Str("id", id).Err(err).Msg("failed to fetch profile during resume")

		return false
	}

	return s.install(gen, &Identity{
		ID:          id,
		Email:       email,
		Name:        profile.Name,
		Role:        profile.Role,
		Permissions: slices.Clone(profile.Permissions),
	})
}

// install commits a resolved identity unless a logout happened while the
// provider calls were in flight.
func (s *Store) install(gen uint64, ident *Identity) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		log.Warn().Str("id", ident.ID).Msg("discarding login result, session was closed while it was in flight")

		return false
	}

	s.current = ident

	return true
}

// Logout clears the held identity unconditionally and then notifies the
// provider. A provider-side sign-out failure is logged and otherwise ignored;
// the local session is already gone. Logout is never blocked by the busy
// flag: an operation still in flight will find the generation bumped and
// discard its result.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()

	ident := s.current
	s.current = nil
	s.gen++

	s.mu.Unlock()

	if ident == nil {
		return
	}

	if err := s.provider.SignOut(ctx, ident.ID); err != nil {
		log.Warn().Str("id", ident.ID).Err(err).Msg("provider sign-out failed, local session already cleared")
	}
}

// Dispose drops the held identity without contacting the provider. Used when
// the owning web session is evicted.
func (s *Store) Dispose() {
	s.mu.Lock()
	s.current = nil
	s.gen++
	s.mu.Unlock()
}

// LoggedIn reports whether the store holds an authenticated identity. A nil
// store holds none; callers handed a revoked session read it as anonymous.
func (s *Store) LoggedIn() bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current != nil
}

// CurrentIdentity returns a copy of the held identity, or nil when no one is
// logged in. Safe on a nil store.
func (s *Store) CurrentIdentity() *Identity {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}

	ident := *s.current
	ident.Permissions = slices.Clone(s.current.Permissions)

	return &ident
}

// HasPermission reports whether the held identity may use the given
// permission. The admin role and the "all" sentinel imply everything,
// evaluated here and nowhere else; any other identity needs the exact id in
// its permission list. With no identity held, or a nil store, the answer is
// always false.
func (s *Store) HasPermission(perm string) bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return false
	}

	if s.current.Role == registry.RoleAdmin {
		return true
	}

	for _, p := range s.current.Permissions {
		if p == catalog.PermAll || p == perm {
			return true
		}
	}

	return false
}

// AddUser creates a new account with its profile. A nil permission list falls
// back to the defaults of the chosen role. Provider errors are propagated
// unmodified.
func (s *Store) AddUser(ctx context.Context, user NewUser) (string, error) {
	if _, err := s.beginOp(); err != nil {
		return "", err
	}
	defer s.endOp()

	perms := user.Permissions
	if perms == nil {
		perms = registry.DefaultPermissions(user.Role)
	}

	id, err := s.provider.CreateIdentity(ctx, user.Email, user.Password)
	if err != nil {
		return "", err
	}

	err = s.provider.UpsertProfile(ctx, id, identity.Profile{
		Name:        user.Name,
		Role:        user.Role,
		Permissions: perms,
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("id", id).Str("email", user.Email).Str("role", user.Role).Msg("user created")

	return id, nil
}

// UpdateUser applies the patch to an account. When the patched account is the
// one currently logged in, the held identity is refreshed so the session
// reflects the change immediately.
func (s *Store) UpdateUser(ctx context.Context, id string, patch UserPatch) error {
	gen, err := s.beginOp()
	if err != nil {
		return err
	}
	defer s.endOp()

	profile, err := s.provider.FetchProfile(ctx, id)
	if err != nil {
		return err
	}

	if patch.Email != nil {
		if err := s.provider.UpdateIdentity(ctx, id, identity.IdentityPatch{Email: patch.Email}); err != nil {
			return err
		}
	}

	if patch.Name != nil {
		profile.Name = *patch.Name
	}

	if patch.Role != nil {
		profile.Role = *patch.Role
	}

	if err := s.provider.UpsertProfile(ctx, id, *profile); err != nil {
		return err
	}

	s.refreshCurrent(gen, id, func(ident *Identity) {
		if patch.Email != nil {
			ident.Email = *patch.Email
		}

		ident.Name = profile.Name
		ident.Role = profile.Role
	})

	return nil
}

// UpdateUserPermissions replaces the explicit permission list of an account.
func (s *Store) UpdateUserPermissions(ctx context.Context, id string, perms []string) error {
	gen, err := s.beginOp()
	if err != nil {
		return err
	}
	defer s.endOp()

	profile, err := s.provider.FetchProfile(ctx, id)
	if err != nil {
		return err
	}

	profile.Permissions = perms
	if err := s.provider.UpsertProfile(ctx, id, *profile); err != nil {
		return err
	}

	s.refreshCurrent(gen, id, func(ident *Identity) {
		ident.Permissions = slices.Clone(perms)
	})

	return nil
}

// UpdateUserPassword sets a new password on an account. The secret is handed
// straight to the provider and not kept anywhere in the store.
func (s *Store) UpdateUserPassword(ctx context.Context, id, password string) error {
	if _, err := s.beginOp(); err != nil {
		return err
	}
	defer s.endOp()

	return s.provider.UpdateIdentity(ctx, id, identity.IdentityPatch{Secret: &password})
}

// DeleteUser removes an account and its profile. Deleting the identity that
// is currently logged in clears the session as well.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	gen, err := s.beginOp()
	if err != nil {
		return err
	}
	defer s.endOp()

	if err := s.provider.DeleteIdentity(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.gen == gen && s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()

	log.Info().Str("id", id).Msg("user deleted")

	return nil
}

// refreshCurrent applies an in-place update to the held identity when it is
// the target of a mutation. A generation bump since the operation started
// means the session was closed meanwhile; the update is dropped.
func (s *Store) refreshCurrent(gen uint64, id string, apply func(*Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.current == nil || s.current.ID != id {
		return
	}

	apply(s.current)
}

func isCredentialError(err error) bool {
	return errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, identity.ErrAccountDisabled)
}
