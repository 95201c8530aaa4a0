// Package login provides the login page and form handler.
package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/authstore"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/config"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/guard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	// TemplateName is the name of the login template.
	TemplateName = "login"
)

// Form is the login form payload.
type Form struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	OTPCode  string `form:"otp_code"`
}

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	provider identity.Provider
	sessions *session.Manager
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, provider identity.Provider, sessions *session.Manager) error {
	if app == nil || cfg == nil || provider == nil || sessions == nil {
		return errors.New("app, cfg, provider or sessions is nil")
	}

	s.cfg = cfg
	s.provider = provider
	s.sessions = sessions

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

// Get handles the login page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.Render(TemplateName, s.viewData(""))
}

// Post handles the login form submission. A fresh store is created per
// attempt; only a successful attempt gets a session cookie.
func (s *Service) Post(c *fiber.Ctx) error {
	form := new(Form)
	if err := c.BodyParser(form); err != nil {
		return err
	}

	store := authstore.New(s.provider)

	if !store.Login(c.Context(), form.Email, form.Password, form.OTPCode) {
		return c.Render(TemplateName, s.viewData("E-mail ou senha inválidos"))
	}

	token, err := s.sessions.Issue(store)
	if err != nil {
		log.Error().Err(err).Msg("failed to issue session")

		return c.Render(TemplateName, s.viewData("Erro interno, tente novamente"))
	}

	s.setCookie(c, token)

	return c.Redirect(guard.DefaultPath)
}

func (s *Service) viewData(errMsg string) fiber.Map {
	return fiber.Map{
		"title":        s.cfg.Title,
		"ldap_enabled": s.cfg.Auth.LDAP.Enabled,
		"oidc_enabled": s.cfg.Auth.OIDC.Enabled,
		"error":        errMsg,
	}
}

func (s *Service) setCookie(c *fiber.Ctx, token string) {
	cookieSettings := &fiber.Cookie{
		Name:     session.CookieName,
		Value:    token,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)
}
