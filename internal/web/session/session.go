// Package session maps session cookies to per-session authorization stores.
//
// Each logged-in browser session owns one authstore.Store. The manager keeps
// the live stores in memory and persists a small identity snapshot per token
// in a storage backend, so a session survives a process restart: on the first
// request after a restart the snapshot is used to resume the store from the
// identity provider.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"github.com/rs/zerolog/log"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/authstore"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
)

// CookieName is the name of the session cookie.
const CookieName = "session"

const tokenBytes = 32

// snapshot is the persisted part of a session: just enough to resume the
// store from the identity provider. Permissions are never persisted; they are
// re-fetched on resume so revocations take effect across restarts.
type snapshot struct {
	IdentityID string
	Email      string
}

// Manager owns the token-to-store mapping.
type Manager struct {
	storage  storage.Storage
	provider identity.Provider
	expiry   time.Duration

	mu     sync.RWMutex
	stores map[string]*authstore.Store
}

// NewManager creates a session manager on the given storage backend.
func NewManager(backend storage.Storage, provider identity.Provider, expiry time.Duration) *Manager {
	if backend == nil {
		panic("storage is nil")
	}

	return &Manager{
		storage:  backend,
		provider: provider,
		expiry:   expiry,
		stores:   make(map[string]*authstore.Store),
	}
}

// GenerateToken generates a new secure random session token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// Issue registers a logged-in store under a fresh token and persists its
// identity snapshot.
func (m *Manager) Issue(store *authstore.Store) (string, error) {
	ident := store.CurrentIdentity()
	if ident == nil {
		return "", ErrNotLoggedIn
	}

	token, err := GenerateToken()
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(snapshot{IdentityID: ident.ID, Email: ident.Email})
	if err != nil {
		return "", err
	}

	if err := m.storage.Set(token, out, m.expiry); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.stores[token] = store
	m.mu.Unlock()

	return token, nil
}

// Lookup returns the store behind a token, resuming it from the persisted
// snapshot when the live instance is gone (process restart). Returns nil for
// unknown or expired tokens.
func (m *Manager) Lookup(ctx context.Context, token string) *authstore.Store {
	if token == "" {
		return nil
	}

	m.mu.RLock()
	store, ok := m.stores[token]
	m.mu.RUnlock()

	if ok {
		return store
	}

	byteData, err := m.storage.Get(token)
	if err != nil || byteData == nil {
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(byteData, &snap); err != nil {
		log.Warn().Err(err).Msg("discarding corrupt session snapshot")

		return nil
	}

	store = authstore.New(m.provider)
	if !store.Resume(ctx, snap.IdentityID, snap.Email) {
		return nil
	}

	m.mu.Lock()
	// another request may have resumed the same token concurrently; keep the
	// instance that won
	if existing, ok := m.stores[token]; ok {
		store = existing
	} else {
		m.stores[token] = store
	}
	m.mu.Unlock()

	return store
}

// Revoke closes the session behind a token: the store is logged out, the
// live instance dropped and the snapshot deleted.
func (m *Manager) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}

	m.mu.Lock()
	store, ok := m.stores[token]
	delete(m.stores, token)
	m.mu.Unlock()

	if ok {
		store.Logout(ctx)
	}

	if err := m.storage.Delete(token); err != nil {
		log.Error().Err(err).Msg("failed to delete session snapshot")
	}
}

// Resolve returns the store owning the current request, or nil when the
// request carries no valid session cookie.
func (m *Manager) Resolve(c *fiber.Ctx) *authstore.Store {
	return m.Lookup(c.Context(), c.Cookies(CookieName))
}
