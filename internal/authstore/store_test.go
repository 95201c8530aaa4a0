package authstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/catalog"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/registry"
)

type fakeUser struct {
	id         string
	email      string
	secret     string
	totpSecret string
	profile    identity.Profile
}

// fakeProvider is an in-memory identity.Provider for store tests. Error
// fields, when set, override the corresponding call. verifyGate, when set,
// blocks VerifyCredential until the channel is closed and signals entry on
// verifyEntered, which lets tests interleave a logout with an in-flight login.
type fakeProvider struct {
	mu      sync.Mutex
	users   map[string]*fakeUser
	byEmail map[string]string
	nextID  int

	verifyErr  error
	fetchErr   error
	signOutErr error

	verifyGate    chan struct{}
	verifyEntered chan struct{}

	signedOut []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		users:   make(map[string]*fakeUser),
		byEmail: make(map[string]string),
	}
}

func (p *fakeProvider) addUser(email, secret, totpSecret string, profile identity.Profile) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := fmt.Sprintf("usr_%d", p.nextID)

	p.users[id] = &fakeUser{id: id, email: email, secret: secret, totpSecret: totpSecret, profile: profile}
	p.byEmail[email] = id

	return id
}

func (p *fakeProvider) VerifyCredential(_ context.Context, email, secret string) (*identity.Credential, error) {
	if p.verifyGate != nil {
		p.verifyEntered <- struct{}{}
		<-p.verifyGate
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.verifyErr != nil {
		return nil, p.verifyErr
	}

	id, ok := p.byEmail[email]
	if !ok || p.users[id].secret != secret {
		return nil, identity.ErrInvalidCredentials
	}

	u := p.users[id]

	return &identity.Credential{ID: u.id, Email: u.email, TOTPSecret: u.totpSecret}, nil
}

func (p *fakeProvider) SignOut(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.signedOut = append(p.signedOut, id)

	return p.signOutErr
}

func (p *fakeProvider) FetchProfile(_ context.Context, id string) (*identity.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fetchErr != nil {
		return nil, p.fetchErr
	}

	u, ok := p.users[id]
	if !ok {
		return nil, identity.ErrProfileNotFound
	}

	profile := u.profile

	return &profile, nil
}

func (p *fakeProvider) CreateIdentity(_ context.Context, email, secret string) (string, error) {
	p.mu.Lock()

	if _, exists := p.byEmail[email]; exists {
		p.mu.Unlock()

		return "", identity.ErrEmailExists
	}

	p.mu.Unlock()

	return p.addUser(email, secret, "", identity.Profile{}), nil
}

func (p *fakeProvider) UpdateIdentity(_ context.Context, id string, patch identity.IdentityPatch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[id]
	if !ok {
		return identity.ErrUserNotFound
	}

	if patch.Email != nil {
		delete(p.byEmail, u.email)
		u.email = *patch.Email
		p.byEmail[u.email] = id
	}

	if patch.Secret != nil {
		u.secret = *patch.Secret
	}

	return nil
}

func (p *fakeProvider) DeleteIdentity(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[id]
	if !ok {
		return identity.ErrUserNotFound
	}

	delete(p.byEmail, u.email)
	delete(p.users, id)

	return nil
}

func (p *fakeProvider) UpsertProfile(_ context.Context, id string, profile identity.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	u, ok := p.users[id]
	if !ok {
		return identity.ErrUserNotFound
	}

	u.profile = profile

	return nil
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	provider.addUser("maria@example.com", "s3nh4", "", identity.Profile{
		Name:        "Maria",
		Role:        registry.RoleEditor,
		Permissions: []string{catalog.PermNCRegistro},
	})

	store := New(provider)

	assert.False(t, store.Login(ctx, "maria@example.com", "errada", ""))
	assert.Nil(t, store.CurrentIdentity())

	require.True(t, store.Login(ctx, "maria@example.com", "s3nh4", ""))

	ident := store.CurrentIdentity()
	require.NotNil(t, ident)
	assert.Equal(t, "maria@example.com", ident.Email)
	assert.Equal(t, "Maria", ident.Name)
	assert.Equal(t, registry.RoleEditor, ident.Role)

	// a later failed login keeps the session intact
	assert.False(t, store.Login(ctx, "maria@example.com", "errada", ""))
	assert.True(t, store.LoggedIn())
	assert.Equal(t, ident.ID, store.CurrentIdentity().ID)
}

func TestLoginProviderOutage(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	provider.verifyErr = errors.New("connection refused")

	store := New(provider)

	assert.False(t, store.Login(ctx, "maria@example.com", "s3nh4", ""))
	assert.Nil(t, store.CurrentIdentity())
	assert.False(t, store.HasPermission(catalog.PermDashboard))
}

func TestLoginProfileFetchFails(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	provider.addUser("maria@example.com", "s3nh4", "", identity.Profile{Role: registry.RoleViewer})
	provider.fetchErr = errors.New("timeout")

	store := New(provider)

	// a valid credential with no reachable profile must not half-populate the store
	assert.False(t, store.Login(ctx, "maria@example.com", "s3nh4", ""))
	assert.Nil(t, store.CurrentIdentity())
}

func TestLoginWithTOTP(t *testing.T) {
	ctx := context.Background()

	const secret = "JBSWY3DPEHPK3PXP"

	provider := newFakeProvider()
	provider.addUser("ana@example.com", "s3nh4", secret, identity.Profile{Role: registry.RoleViewer})

	store := New(provider)

	assert.False(t, store.Login(ctx, "ana@example.com", "s3nh4", ""))
	assert.False(t, store.Login(ctx, "ana@example.com", "s3nh4", "000000"))
	assert.Nil(t, store.CurrentIdentity())

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	assert.True(t, store.Login(ctx, "ana@example.com", "s3nh4", code))
	assert.True(t, store.LoggedIn())
}

func TestResume(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	id := provider.addUser("sso@example.com", "", "", identity.Profile{
		Name: "SSO User",
		Role: registry.RoleViewer,
	})

	store := New(provider)

	require.True(t, store.Resume(ctx, id, "sso@example.com"))

	ident := store.CurrentIdentity()
	require.NotNil(t, ident)
	assert.Equal(t, id, ident.ID)
	assert.Equal(t, "SSO User", ident.Name)

	assert.False(t, store.Resume(ctx, "usr_missing", "ghost@example.com"))
	// the failed resume must not clear the held identity
	assert.True(t, store.LoggedIn())
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	id := provider.addUser("maria@example.com", "s3nh4", "", identity.Profile{Role: registry.RoleAdmin})

	store := New(provider)
	require.True(t, store.Login(ctx, "maria@example.com", "s3nh4", ""))

	store.Logout(ctx)

	assert.Nil(t, store.CurrentIdentity())
	assert.False(t, store.HasPermission(catalog.PermDashboard))
	assert.Equal(t, []string{id}, provider.signedOut)

	// logging out with no session held is a no-op
	store.Logout(ctx)
	assert.Len(t, provider.signedOut, 1)
}

func TestLogoutClearsEvenWhenSignOutFails(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	provider.addUser("maria@example.com", "s3nh4", "", identity.Profile{Role: registry.RoleAdmin})
	provider.signOutErr = errors.New("provider unreachable")

	store := New(provider)
	require.True(t, store.Login(ctx, "maria@example.com", "s3nh4", ""))

	store.Logout(ctx)

	assert.Nil(t, store.CurrentIdentity())
	assert.False(t, store.LoggedIn())
}

func TestHasPermission(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		profile identity.Profile
		perm    string
		allowed bool
	}{
		{
			name:    "admin implies catalog permission",
			profile: identity.Profile{Role: registry.RoleAdmin},
			perm:    catalog.PermAdminUsuarios,
			allowed: true,
		},
		{
			name: "admin implies permission added after account creation",
			// no explicit list at all; the short-circuit must not depend on one
			profile: identity.Profile{Role: registry.RoleAdmin},
			perm:    "modulo-novo",
			allowed: true,
		},
		{
			name:    "all sentinel grants everything",
			profile: identity.Profile{Role: registry.RoleEditor, Permissions: []string{catalog.PermAll}},
			perm:    catalog.PermAdminPerfis,
			allowed: true,
		},
		{
			name:    "exact membership",
			profile: identity.Profile{Role: registry.RoleEditor, Permissions: []string{catalog.PermNCRegistro}},
			perm:    catalog.PermNCRegistro,
			allowed: true,
		},
		{
			name:    "missing from list",
			profile: identity.Profile{Role: registry.RoleEditor, Permissions: []string{catalog.PermNCRegistro}},
			perm:    catalog.PermNCAnalise,
			allowed: false,
		},
		{
			name:    "custom profile has no implicit grants",
			profile: identity.Profile{Role: "Gerente", Permissions: nil},
			perm:    catalog.PermDashboard,
			allowed: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider := newFakeProvider()
			provider.addUser("u@example.com", "x", "", tc.profile)

			store := New(provider)
			require.True(t, store.Login(ctx, "u@example.com", "x", ""))

			assert.Equal(t, tc.allowed, store.HasPermission(tc.perm))
		})
	}

	// no identity held
	store := New(newFakeProvider())
	assert.False(t, store.HasPermission(catalog.PermDashboard))
}

func TestBusyRejectsConcurrentOperation(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	provider.addUser("maria@example.com", "s3nh4", "", identity.Profile{Role: registry.RoleAdmin})
	provider.verifyGate = make(chan struct{})
	provider.verifyEntered = make(chan struct{})

	store := New(provider)

	done := make(chan bool)
	go func() {
		done <- store.Login(ctx, "maria@example.com", "s3nh4", "")
	}()

	<-provider.verifyEntered

	// a mutation while the login is still in flight must fail fast
	_, err := store.AddUser(ctx, NewUser{Email: "x@example.com", Role: registry.RoleViewer})
	assert.ErrorIs(t, err, ErrBusy)

	assert.False(t, store.Login(ctx, "maria@example.com", "s3nh4", ""))

	close(provider.verifyGate)
	assert.True(t, <-done)
}

func TestLogoutDiscardsInFlightLogin(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	provider.addUser("maria@example.com", "s3nh4", "", identity.Profile{Role: registry.RoleAdmin})
	provider.verifyGate = make(chan struct{})
	provider.verifyEntered = make(chan struct{})

	store := New(provider)

	done := make(chan bool)
	go func() {
		done <- store.Login(ctx, "maria@example.com", "s3nh4", "")
	}()

	<-provider.verifyEntered

	// the session closes while the provider call is still pending
	store.Logout(ctx)
	close(provider.verifyGate)

	assert.False(t, <-done)
	assert.Nil(t, store.CurrentIdentity())
}

func TestAddUser(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	store := New(provider)

	id, err := store.AddUser(ctx, NewUser{
		Name:     "Carlos",
		Email:    "carlos@example.com",
		Role:     registry.RoleViewer,
		Password: "inicial",
	})
	require.NoError(t, err)

	profile, err := provider.FetchProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Carlos", profile.Name)
	assert.Equal(t, registry.RoleViewer, profile.Role)
	// nil permission list falls back to the role defaults
	assert.Equal(t, registry.DefaultPermissions(registry.RoleViewer), profile.Permissions)

	// explicit list wins over the defaults
	id2, err := store.AddUser(ctx, NewUser{
		Name:        "Rita",
		Email:       "rita@example.com",
		Role:        registry.RoleEditor,
		Password:    "x",
		Permissions: []string{catalog.PermNCAnalise},
	})
	require.NoError(t, err)

	profile, err = provider.FetchProfile(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, []string{catalog.PermNCAnalise}, profile.Permissions)

	// provider errors come back unmodified
	_, err = store.AddUser(ctx, NewUser{Email: "carlos@example.com", Role: registry.RoleViewer})
	assert.ErrorIs(t, err, identity.ErrEmailExists)
}

func TestUpdateUserRefreshesCurrentIdentity(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	id := provider.addUser("maria@example.com", "s3nh4", "", identity.Profile{
		Name: "Maria",
		Role: registry.RoleAdmin,
	})

	store := New(provider)
	require.True(t, store.Login(ctx, "maria@example.com", "s3nh4", ""))

	newName := "Maria Silva"
	newRole := registry.RoleEditor
	require.NoError(t, store.UpdateUser(ctx, id, UserPatch{Name: &newName, Role: &newRole}))

	ident := store.CurrentIdentity()
	require.NotNil(t, ident)
	assert.Equal(t, "Maria Silva", ident.Name)
	assert.Equal(t, registry.RoleEditor, ident.Role)

	// demoted from admin, the short-circuit no longer applies
	assert.False(t, store.HasPermission(catalog.PermAdminUsuarios))
}

func TestUpdateUserPermissionsRefreshesCurrentIdentity(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	id := provider.addUser("jose@example.com", "s3nh4", "", identity.Profile{
		Name:        "José",
		Role:        registry.RoleEditor,
		Permissions: []string{catalog.PermNCRegistro},
	})

	store := New(provider)
	require.True(t, store.Login(ctx, "jose@example.com", "s3nh4", ""))

	require.True(t, store.HasPermission(catalog.PermNCRegistro))
	require.False(t, store.HasPermission(catalog.PermNCAnalise))

	err := store.UpdateUserPermissions(ctx, id, []string{catalog.PermNCAnalise})
	require.NoError(t, err)

	assert.False(t, store.HasPermission(catalog.PermNCRegistro))
	assert.True(t, store.HasPermission(catalog.PermNCAnalise))
}

func TestUpdateUserPermissionsOtherUserLeavesSessionAlone(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	provider.addUser("admin@example.com", "x", "", identity.Profile{Role: registry.RoleAdmin})
	other := provider.addUser("other@example.com", "x", "", identity.Profile{Role: registry.RoleViewer})

	store := New(provider)
	require.True(t, store.Login(ctx, "admin@example.com", "x", ""))

	require.NoError(t, store.UpdateUserPermissions(ctx, other, []string{catalog.PermAll}))

	ident := store.CurrentIdentity()
	require.NotNil(t, ident)
	assert.Equal(t, registry.RoleAdmin, ident.Role)
	assert.Empty(t, ident.Permissions)
}

func TestUpdateUserPassword(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	id := provider.addUser("maria@example.com", "antiga", "", identity.Profile{Role: registry.RoleViewer})

	store := New(provider)

	require.NoError(t, store.UpdateUserPassword(ctx, id, "nova"))

	_, err := provider.VerifyCredential(ctx, "maria@example.com", "antiga")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	cred, err := provider.VerifyCredential(ctx, "maria@example.com", "nova")
	require.NoError(t, err)
	assert.Equal(t, id, cred.ID)
}

func TestDeleteUser(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	provider.addUser("admin@example.com", "x", "", identity.Profile{Role: registry.RoleAdmin})
	other := provider.addUser("other@example.com", "x", "", identity.Profile{Role: registry.RoleViewer})

	store := New(provider)
	require.True(t, store.Login(ctx, "admin@example.com", "x", ""))

	require.NoError(t, store.DeleteUser(ctx, other))
	assert.True(t, store.LoggedIn())

	assert.ErrorIs(t, store.DeleteUser(ctx, other), identity.ErrUserNotFound)
}

func TestDeleteUserSelfClearsSession(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	id := provider.addUser("admin@example.com", "x", "", identity.Profile{Role: registry.RoleAdmin})

	store := New(provider)
	require.True(t, store.Login(ctx, "admin@example.com", "x", ""))

	require.NoError(t, store.DeleteUser(ctx, id))
	assert.Nil(t, store.CurrentIdentity())
}

func TestCurrentIdentityReturnsCopy(t *testing.T) {
	ctx := context.Background()

	provider := newFakeProvider()
	provider.addUser("maria@example.com", "x", "", identity.Profile{
		Role:        registry.RoleEditor,
		Permissions: []string{catalog.PermNCRegistro},
	})

	store := New(provider)
	require.True(t, store.Login(ctx, "maria@example.com", "x", ""))

	ident := store.CurrentIdentity()
	ident.Permissions[0] = "adulterado"
	ident.Role = registry.RoleAdmin

	assert.True(t, store.HasPermission(catalog.PermNCRegistro))
	assert.False(t, store.HasPermission(catalog.PermAdminUsuarios))
}

func TestNilStoreReadsAsAnonymous(t *testing.T) {
	// a handler can be left holding a nil store after a concurrent logout
	// revoked the session; reads must answer as anonymous, not panic
	var store *Store

	assert.False(t, store.LoggedIn())
	assert.Nil(t, store.CurrentIdentity())
	assert.False(t, store.HasPermission(catalog.PermDashboard))
}
