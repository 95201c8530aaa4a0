package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/authstore"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/catalog"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/registry"
)

// stubProvider serves a single fixed account.
type stubProvider struct {
	profile identity.Profile
}

func (p *stubProvider) VerifyCredential(_ context.Context, email, _ string) (*identity.Credential, error) {
	return &identity.Credential{ID: "usr_1", Email: email}, nil
}

func (p *stubProvider) SignOut(context.Context, string) error { return nil }

func (p *stubProvider) FetchProfile(context.Context, string) (*identity.Profile, error) {
	profile := p.profile
	return &profile, nil
}

func (p *stubProvider) CreateIdentity(context.Context, string, string) (string, error) {
	return "", nil
}

func (p *stubProvider) UpdateIdentity(context.Context, string, identity.IdentityPatch) error {
	return nil
}

func (p *stubProvider) DeleteIdentity(context.Context, string) error { return nil }

func (p *stubProvider) UpsertProfile(context.Context, string, identity.Profile) error { return nil }

func loggedInStore(t *testing.T, profile identity.Profile) *authstore.Store {
	t.Helper()

	store := authstore.New(&stubProvider{profile: profile})
	require.True(t, store.Login(context.Background(), "u@example.com", "x", ""))

	return store
}

func TestCheck(t *testing.T) {
	testCases := []struct {
		name    string
		profile identity.Profile
		perm    string
		verdict Verdict
	}{
		{
			name:    "granted permission allows",
			profile: identity.Profile{Role: registry.RoleEditor, Permissions: []string{catalog.PermNCRegistro}},
			perm:    catalog.PermNCRegistro,
			verdict: Allow,
		},
		{
			name:    "missing permission redirects to default",
			profile: identity.Profile{Role: registry.RoleEditor, Permissions: []string{catalog.PermNCRegistro}},
			perm:    catalog.PermAdminUsuarios,
			verdict: RedirectToDefault,
		},
		{
			name:    "admin passes any guard",
			profile: identity.Profile{Role: registry.RoleAdmin},
			perm:    catalog.PermAdminPerfis,
			verdict: Allow,
		},
		{
			name: "unknown permission id fails closed even for admin",
			// a typo in a route registration must never open the page
			profile: identity.Profile{Role: registry.RoleAdmin},
			perm:    "permissao-com-typo",
			verdict: RedirectToDefault,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := loggedInStore(t, tc.profile)
			assert.Equal(t, tc.verdict, Check(store, tc.perm))
		})
	}
}

func TestCheckUnauthenticated(t *testing.T) {
	assert.Equal(t, RedirectToLogin, Check(nil, catalog.PermDashboard))

	store := authstore.New(&stubProvider{})
	assert.Equal(t, RedirectToLogin, Check(store, catalog.PermDashboard))

	// logging out drops access immediately
	logged := loggedInStore(t, identity.Profile{Role: registry.RoleAdmin})
	logged.Logout(context.Background())
	assert.Equal(t, RedirectToLogin, Check(logged, catalog.PermDashboard))
}
