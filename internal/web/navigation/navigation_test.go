package navigation

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

func TestNewContext(t *testing.T) {
	ctx := NewContext("Test Page", "section1", "page1")

	assert.Equal(t, "Test Page", ctx.PageTitle)
	assert.Equal(t, "section1", ctx.ActiveSection)
	assert.Equal(t, "page1", ctx.ActivePage)
	assert.NotNil(t, ctx.Breadcrumbs)
	assert.Empty(t, ctx.Breadcrumbs)
}

func TestContext_AddBreadcrumb_Chaining(t *testing.T) {
	ctx := NewContext("Test Page", "section1", "page1").
		AddBreadcrumb("Home", "/", false).
		AddBreadcrumb("Administração", "/admin/user", false).
		AddBreadcrumb("Usuários", "/admin/user", true)

	assert.Len(t, ctx.Breadcrumbs, 3)
	assert.Equal(t, "Home", ctx.Breadcrumbs[0].Title)
	assert.Equal(t, "Administração", ctx.Breadcrumbs[1].Title)
	assert.True(t, ctx.Breadcrumbs[2].Active)
}

func TestContext_IsActive(t *testing.T) {
	ctx := NewContext("Test Page", "admin", "user")

	assert.True(t, ctx.IsActive("admin", "user"))
	assert.False(t, ctx.IsActive("dashboard", "user"))
	assert.False(t, ctx.IsActive("admin", "profile"))

	assert.True(t, ctx.IsSectionActive("admin"))
	assert.False(t, ctx.IsSectionActive("dashboard"))
}

// stubProvider serves one fixed account.
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

func TestMenuFollowsPermissions(t *testing.T) {
	store := loggedInStore(t, identity.Profile{
		Role: registry.RoleEditor,
		Permissions: []string{
			catalog.PermDashboard,
			catalog.PermNCRegistro,
		},
	})

	menu := Menu(store, "/nc")

	require.Len(t, menu, 2)
	assert.Equal(t, catalog.ModuleDashboard, menu[0].Title)
	assert.Equal(t, catalog.ModuleNC, menu[1].Title)

	require.Len(t, menu[1].Items, 1)
	assert.Equal(t, "Registro de NC", menu[1].Items[0].Title)
	assert.Equal(t, "/nc", menu[1].Items[0].URL)
	assert.True(t, menu[1].Items[0].Active)

	// the admin section never shows up without its permissions
	for _, section := range menu {
		assert.NotEqual(t, catalog.ModuleAdmin, section.Title)
	}
}

func TestMenuAdminSeesEverything(t *testing.T) {
	store := loggedInStore(t, identity.Profile{Role: registry.RoleAdmin})

	menu := Menu(store, "/dashboard")

	// every catalog entry is visible, grouped by module
	var total int
	for _, section := range menu {
		total += len(section.Items)
	}

	assert.Len(t, menu, len(catalog.Groups()))
	assert.Equal(t, len(catalog.IDs()), total)
}

func TestMenuEmptyWithoutSession(t *testing.T) {
	store := authstore.New(&stubProvider{})

	assert.Empty(t, Menu(store, "/dashboard"))
}

func TestMenuNilStore(t *testing.T) {
	assert.Empty(t, Menu(nil, "/dashboard"))
}
