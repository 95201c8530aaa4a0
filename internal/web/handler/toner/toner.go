// Package toner provides handlers for the toner stock module: the guarded
// listing and the registration/edit forms.
package toner

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/catalog"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/config"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/models"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/guard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/dashboard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/navigation"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/session"
)

const (
	// Path is the base path for the toner module.
	Path = handler.RootPath + "toner"

	// TemplateList is the template for the stock listing.
	TemplateList = "toner/list"
	// TemplateForm is the template for registering/editing a cartridge.
	TemplateForm = "toner/form"
)

// Form is the toner registration form payload.
type Form struct {
	Modelo     string `form:"modelo"     validate:"required,max=100"`
	Impressora string `form:"impressora" validate:"max=150"`
	Setor      string `form:"setor"      validate:"max=100"`
	Quantidade int    `form:"quantidade" validate:"min=0"`
	Minimo     int    `form:"minimo"     validate:"min=0"`
}

// Service provides the toner module handlers.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes. The listing is reachable with either the consult or
// the register permission; every mutation needs the register permission.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, sessions *session.Manager) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.validator = validator.New()

	app.Get(Path,
		guard.RequireAnyPermission(sessions, catalog.PermConsultaToners, catalog.PermCadastroToners),
		s.List,
	)
	app.Get(Path+"/new",
		guard.RequirePermission(sessions, catalog.PermCadastroToners),
		s.New,
	)
	app.Post(Path,
		guard.RequirePermission(sessions, catalog.PermCadastroToners),
		s.Create,
	)
	app.Get(Path+"/:id/edit",
		guard.RequirePermission(sessions, catalog.PermCadastroToners),
		s.Edit,
	)
	app.Post(Path+"/:id",
		guard.RequirePermission(sessions, catalog.PermCadastroToners),
		s.Update,
	)
	app.Post(Path+"/:id/delete",
		guard.RequirePermission(sessions, catalog.PermCadastroToners),
		s.Delete,
	)
}

func (s *Service) nav(pageTitle string) *navigation.Context {
	return navigation.NewContext(pageTitle, "toner", "toner").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Toners", Path, true)
}

// List shows the stock with the below-minimum flag per cartridge.
func (s *Service) List(c *fiber.Ctx) error {
	var toners []models.Toner

	if err := s.db.Order("modelo ASC").Find(&toners).Error; err != nil {
		log.Error().Err(err).Msg("failed to load toners")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": s.nav("Toners"),
			"Error":      "Falha ao carregar o estoque",
		}, handler.BaseLayout)
	}

	store := guard.StoreFromCtx(c)

	return c.Render(TemplateList, fiber.Map{
		"Navigation": s.nav("Toners"),
		"Menu":       navigation.Menu(store, Path),
		"Toners":     toners,
		"CanEdit":    store.HasPermission(catalog.PermCadastroToners),
	}, handler.BaseLayout)
}

// New shows the registration form.
func (s *Service) New(c *fiber.Ctx) error {
	return c.Render(TemplateForm, fiber.Map{
		"Navigation": s.nav("Novo Toner"),
		"Menu":       navigation.Menu(guard.StoreFromCtx(c), Path),
		"Toner":      models.Toner{},
		"IsCreate":   true,
	}, handler.BaseLayout)
}

// Create registers a new cartridge.
func (s *Service) Create(c *fiber.Ctx) error {
	form := new(Form)

	if err := c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Novo Toner"),
			"Error":      "Dados do formulário inválidos",
			"IsCreate":   true,
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Novo Toner"),
			"Error":      "Corrija os campos destacados",
			"IsCreate":   true,
		}, handler.BaseLayout)
	}

	toner := models.Toner{
		Modelo:     form.Modelo,
		Impressora: form.Impressora,
		Setor:      form.Setor,
		Quantidade: form.Quantidade,
		Minimo:     form.Minimo,
	}

	if err := s.db.Create(&toner).Error; err != nil {
		log.Error().Err(err).Msg("failed to create toner")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Novo Toner"),
			"Error":      "Falha ao registrar toner",
			"IsCreate":   true,
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Edit shows the edit form.
func (s *Service) Edit(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	var toner models.Toner
	if err := s.db.First(&toner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Falha ao carregar toner",
		}, handler.BaseLayout)
	}

	return c.Render(TemplateForm, fiber.Map{
		"Navigation": s.nav("Editar Toner"),
		"Menu":       navigation.Menu(guard.StoreFromCtx(c), Path),
		"Toner":      toner,
		"IsCreate":   false,
	}, handler.BaseLayout)
}

// Update applies changes to a cartridge.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	form := new(Form)

	if err := c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Dados do formulário inválidos",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Error": "Corrija os campos destacados",
		}, handler.BaseLayout)
	}

	var toner models.Toner
	if err := s.db.First(&toner, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Redirect(Path)
		}

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Falha ao carregar toner",
		}, handler.BaseLayout)
	}

	toner.Modelo = form.Modelo
	toner.Impressora = form.Impressora
	toner.Setor = form.Setor
	toner.Quantidade = form.Quantidade
	toner.Minimo = form.Minimo

	if err := s.db.Save(&toner).Error; err != nil {
		log.Error().Err(err).Uint64("id", id).Msg("failed to update toner")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Error": "Falha ao atualizar toner",
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// Delete removes a cartridge record.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	if err := s.db.Delete(&models.Toner{}, id).Error; err != nil {
		log.Error().Err(err).Uint64("id", id).Msg("failed to delete toner")
	}

	return c.Redirect(Path)
}
