package session

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/authstore"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
)

// stubProvider serves one fixed account for resume/login.
type stubProvider struct {
	fetchErr error
}

func (p *stubProvider) VerifyCredential(_ context.Context, email, _ string) (*identity.Credential, error) {
	return &identity.Credential{ID: "usr_1", Email: email}, nil
}

func (p *stubProvider) SignOut(context.Context, string) error { return nil }

func (p *stubProvider) FetchProfile(context.Context, string) (*identity.Profile, error) {
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}

	return &identity.Profile{Name: "Maria", Role: "editor"}, nil
}

func (p *stubProvider) CreateIdentity(context.Context, string, string) (string, error) {
	return "", nil
}

func (p *stubProvider) UpdateIdentity(context.Context, string, identity.IdentityPatch) error {
	return nil
}

func (p *stubProvider) DeleteIdentity(context.Context, string) error { return nil }

func (p *stubProvider) UpsertProfile(context.Context, string, identity.Profile) error { return nil }

func TestIssueAndLookup(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{}
	manager := NewManager(memory.New(), provider, time.Hour)

	store := authstore.New(provider)
	require.True(t, store.Login(ctx, "maria@example.com", "x", ""))

	token, err := manager.Issue(store)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// same live instance comes back
	assert.Same(t, store, manager.Lookup(ctx, token))

	// unknown and empty tokens resolve to nothing
	assert.Nil(t, manager.Lookup(ctx, "deadbeef"))
	assert.Nil(t, manager.Lookup(ctx, ""))
}

func TestIssueRequiresLogin(t *testing.T) {
	provider := &stubProvider{}
	manager := NewManager(memory.New(), provider, time.Hour)

	_, err := manager.Issue(authstore.New(provider))
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLookupResumesAfterRestart(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{}
	backend := memory.New()

	manager := NewManager(backend, provider, time.Hour)

	store := authstore.New(provider)
	require.True(t, store.Login(ctx, "maria@example.com", "x", ""))

	token, err := manager.Issue(store)
	require.NoError(t, err)

	// a fresh manager on the same backend simulates a process restart
	restarted := NewManager(backend, provider, time.Hour)

	resumed := restarted.Lookup(ctx, token)
	require.NotNil(t, resumed)
	assert.NotSame(t, store, resumed)

	ident := resumed.CurrentIdentity()
	require.NotNil(t, ident)
	assert.Equal(t, "usr_1", ident.ID)
	assert.Equal(t, "maria@example.com", ident.Email)
	assert.Equal(t, "Maria", ident.Name)

	// the resumed instance is cached for the next request
	assert.Same(t, resumed, restarted.Lookup(ctx, token))
}

func TestLookupResumeFailsWhenProviderDown(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{}
	backend := memory.New()

	manager := NewManager(backend, provider, time.Hour)

	store := authstore.New(provider)
	require.True(t, store.Login(ctx, "maria@example.com", "x", ""))

	token, err := manager.Issue(store)
	require.NoError(t, err)

	provider.fetchErr = assert.AnError

	restarted := NewManager(backend, provider, time.Hour)
	assert.Nil(t, restarted.Lookup(ctx, token))
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{}
	manager := NewManager(memory.New(), provider, time.Hour)

	store := authstore.New(provider)
	require.True(t, store.Login(ctx, "maria@example.com", "x", ""))

	token, err := manager.Issue(store)
	require.NoError(t, err)

	manager.Revoke(ctx, token)

	// the store was logged out and the snapshot deleted
	assert.False(t, store.LoggedIn())
	assert.Nil(t, manager.Lookup(ctx, token))

	// revoking twice is harmless
	manager.Revoke(ctx, token)
}
