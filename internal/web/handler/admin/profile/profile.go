// Package profile provides handlers for managing access profiles (custom
// roles) in the admin area.
package profile

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/catalog"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/config"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/guard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/registry"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/dashboard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/navigation"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/session"
)

const (
	// Path is the base path for profile management.
	Path = handler.RootPath + "admin/profile"

	// TemplateList is the template for listing profiles.
	TemplateList = "admin/profile/list"
)

// Service provides CRUD operations for access profiles.
type Service struct {
	handler.Service
	cfg       *config.Config
	registry  *registry.Registry
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, sessions *session.Manager) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.registry = registry.New(db)
	s.validator = validator.New()

	perm := func() fiber.Handler {
		return guard.RequirePermission(sessions, catalog.PermAdminPerfis)
	}

	app.Get(Path, perm(), s.List)
	app.Post(Path, perm(), s.Create)
	app.Post(Path+"/:name/delete", perm(), s.Delete)
}

func (s *Service) nav() *navigation.Context {
	return navigation.NewContext("Perfis de Acesso", "admin", "profile").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Administração", "#", false).
		AddBreadcrumb("Perfis de Acesso", Path, true)
}

func (s *Service) renderList(c *fiber.Ctx, status int, errMsg string) error {
	roles, err := s.registry.Roles()
	if err != nil {
		log.Error().Err(err).Msg("failed to load profiles")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": s.nav(),
			"Error":      "Falha ao carregar perfis",
		}, handler.BaseLayout)
	}

	return c.Status(status).Render(TemplateList, fiber.Map{
		"Navigation": s.nav(),
		"Menu":       navigation.Menu(guard.StoreFromCtx(c), Path),
		"Roles":      roles,
		"Error":      errMsg,
	}, handler.BaseLayout)
}

// List shows every registered profile, built-ins first.
func (s *Service) List(c *fiber.Ctx) error {
	return s.renderList(c, fiber.StatusOK, "")
}

// Create registers a new custom profile.
func (s *Service) Create(c *fiber.Ctx) error {
	var in struct {
		Name string `form:"name" validate:"required,max=100"`
	}

	if err := c.BodyParser(&in); err != nil {
		return s.renderList(c, fiber.StatusBadRequest, "Dados do formulário inválidos")
	}

	if err := s.validator.Struct(in); err != nil {
		return s.renderList(c, fiber.StatusBadRequest, "Informe o nome do perfil")
	}

	if _, err := s.registry.CreateProfile(in.Name); err != nil {
		log.Warn().Err(err).Str("name", in.Name).Msg("failed to create profile")

		switch {
		case errors.Is(err, registry.ErrEmptyProfileName):
			return s.renderList(c, fiber.StatusBadRequest, "O nome do perfil não pode ser vazio")
		case errors.Is(err, registry.ErrProfileExists):
			return s.renderList(c, fiber.StatusBadRequest, "Já existe um perfil com este nome")
		default:
			return s.renderList(c, fiber.StatusInternalServerError, "Falha ao criar perfil")
		}
	}

	return c.Redirect(Path)
}

// Delete removes a custom profile. Holders are reassigned to viewer by the
// registry; built-ins are refused.
func (s *Service) Delete(c *fiber.Ctx) error {
	name := c.Params("name")
	if name == "" {
		return c.Redirect(Path)
	}

	if err := s.registry.DeleteProfile(name); err != nil {
		log.Warn().Err(err).Str("name", name).Msg("failed to delete profile")

		switch {
		case errors.Is(err, registry.ErrBuiltinProfile):
			return s.renderList(c, fiber.StatusForbidden, "Perfis internos não podem ser excluídos")
		case errors.Is(err, registry.ErrProfileNotFound):
			return s.renderList(c, fiber.StatusNotFound, "Perfil não encontrado")
		default:
			return s.renderList(c, fiber.StatusInternalServerError, "Falha ao excluir perfil")
		}
	}

	return c.Redirect(Path)
}
