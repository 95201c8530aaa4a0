package oidc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/authstore"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/config"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/guard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/registry"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/session"
)

const (
	// LoginPath is the path to initiate OIDC login.
	LoginPath = handler.RootPath + "auth/oidc/login"

	// CallbackPath is the path for OIDC callback.
	CallbackPath = handler.RootPath + "auth/oidc/callback"

	stateTTL = 5 * time.Minute
)

// Service is the OIDC handler service.
type Service struct {
	handler.Service
	cfg          *config.Config
	provider     identity.Provider
	oidcProvider *identity.OIDCProvider
	sessions     *session.Manager

	stateMu    sync.Mutex
	stateStore map[string]time.Time
}

// Handler is the OIDC handler.
var Handler = Service{
	stateStore: make(map[string]time.Time),
}

// Init initializes the OIDC handler. When OIDC is disabled or the provider
// cannot be reached the routes are simply not registered; password login
// keeps working.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, provider identity.Provider, sessions *session.Manager) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.provider = provider
	s.sessions = sessions

	if !cfg.Auth.OIDC.Enabled {
		return
	}

	oidcProvider, err := identity.NewOIDCProvider(context.Background(), &cfg.Auth.OIDC, db)
	if err != nil {
		if errors.Is(err, identity.ErrOIDCDisabled) {
			log.Info().Msg("oidc authentication is disabled by configuration")
		} else {
			log.Warn().Err(err).Msg("failed to initialize oidc provider, oidc login disabled")
		}

		return
	}

	s.oidcProvider = oidcProvider

	log.Info().Msg("oidc authentication provider initialized")

	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)

	go s.cleanupStates()
}

// Login initiates the OIDC login flow.
func (s *Service) Login(c *fiber.Ctx) error {
	state, err := identity.GenerateState()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate state token")

		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}

	s.stateMu.Lock()
	s.stateStore[state] = time.Now().Add(stateTTL)
	s.stateMu.Unlock()

	return c.Redirect(s.oidcProvider.AuthCodeURL(state))
}

// Callback finishes the OIDC login flow: the code is exchanged for verified
// claims, the claims mapped to a local account (provisioned as viewer on
// first login), and a session issued the same way a password login would.
func (s *Service) Callback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		log.Error().Msg("missing code or state in oidc callback")

		return c.Status(fiber.StatusBadRequest).SendString("Invalid callback parameters")
	}

	if !s.consumeState(state) {
		log.Error().Msg("invalid or expired oidc state token")

		return c.Status(fiber.StatusBadRequest).SendString("Invalid state token")
	}

	claims, err := s.oidcProvider.Exchange(c.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("oidc authentication failed")

		return c.Status(fiber.StatusUnauthorized).SendString("Authentication failed")
	}

	user, err := s.oidcProvider.ResolveUser(c.Context(), claims,
		registry.RoleViewer, registry.DefaultPermissions(registry.RoleViewer))
	if err != nil {
		log.Error().Err(err).Str("email", claims.Email).Msg("failed to resolve oidc user")

		return c.Status(fiber.StatusUnauthorized).SendString("Authentication failed")
	}

	store := authstore.New(s.provider)
	if !store.Resume(c.Context(), user.ID, user.Email) {
		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}

	token, err := s.sessions.Issue(store)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue session")

		return c.Status(fiber.StatusInternalServerError).SendString("Internal server error")
	}

	cookieSettings := &fiber.Cookie{
		Name:     session.CookieName,
		Value:    token,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	c.Cookie(cookieSettings)

	log.Info().Str("id", user.ID).Str("email", user.Email).Msg("user logged in via oidc")

	return c.Redirect(guard.DefaultPath)
}

// consumeState validates and invalidates a state token; each one is single use.
func (s *Service) consumeState(state string) bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	expiration, exists := s.stateStore[state]
	if !exists {
		return false
	}

	delete(s.stateStore, state)

	return time.Now().Before(expiration)
}

// cleanupStates periodically removes expired state tokens.
func (s *Service) cleanupStates() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()

		s.stateMu.Lock()
		for state, expiration := range s.stateStore {
			if now.After(expiration) {
				delete(s.stateStore, state)
			}
		}
		s.stateMu.Unlock()
	}
}
