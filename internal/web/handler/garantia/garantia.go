// Package garantia provides handlers for the warranty claim module.
package garantia

import (
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
	// Path is the base path for the warranty module.
	Path = handler.RootPath + "garantia"

	// TemplateList is the template for the claim listing.
	TemplateList = "garantia/list"
	// TemplateForm is the template for registering a claim.
	TemplateForm = "garantia/form"
)

// Form is the warranty claim form payload.
type Form struct {
	Produto    string `form:"produto"     validate:"required,max=200"`
	NotaFiscal string `form:"nota_fiscal" validate:"max=60"`
	Fornecedor string `form:"fornecedor"  validate:"max=150"`
	Defeito    string `form:"defeito"     validate:"required"`
}

// Service provides the warranty module handlers.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
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
	s.db = db
	s.validator = validator.New()

	app.Get(Path,
		guard.RequireAnyPermission(sessions, catalog.PermGarantiaConsulta, catalog.PermGarantiaRegistro),
		s.List,
	)
	app.Get(Path+"/new",
		guard.RequirePermission(sessions, catalog.PermGarantiaRegistro),
		s.New,
	)
	app.Post(Path,
		guard.RequirePermission(sessions, catalog.PermGarantiaRegistro),
		s.Create,
	)
	app.Post(Path+"/:id/status",
		guard.RequirePermission(sessions, catalog.PermGarantiaRegistro),
		s.UpdateStatus,
	)
}

func (s *Service) nav(pageTitle string) *navigation.Context {
	return navigation.NewContext(pageTitle, "garantia", "garantia").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Garantias", Path, true)
}

// List shows the warranty claims, newest first.
func (s *Service) List(c *fiber.Ctx) error {
	var garantias []models.Garantia

	if err := s.db.Order("created_at DESC").Find(&garantias).Error; err != nil {
		log.Error().Err(err).Msg("failed to load warranty claims")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": s.nav("Garantias"),
			"Error":      "Falha ao carregar garantias",
		}, handler.BaseLayout)
	}

	store := guard.StoreFromCtx(c)

	return c.Render(TemplateList, fiber.Map{
		"Navigation":  s.nav("Garantias"),
		"Menu":        navigation.Menu(store, Path),
		"Garantias":   garantias,
		"CanRegister": store.HasPermission(catalog.PermGarantiaRegistro),
	}, handler.BaseLayout)
}

// New shows the claim registration form.
func (s *Service) New(c *fiber.Ctx) error {
	return c.Render(TemplateForm, fiber.Map{
		"Navigation": s.nav("Registrar Garantia"),
		"Menu":       navigation.Menu(guard.StoreFromCtx(c), Path),
	}, handler.BaseLayout)
}

// Create registers a new warranty claim.
func (s *Service) Create(c *fiber.Ctx) error {
	form := new(Form)

	if err := c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Registrar Garantia"),
			"Error":      "Dados do formulário inválidos",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Registrar Garantia"),
			"Error":      "Corrija os campos destacados",
		}, handler.BaseLayout)
	}

	garantia := models.Garantia{
		Produto:    form.Produto,
		NotaFiscal: form.NotaFiscal,
		Fornecedor: form.Fornecedor,
		Defeito:    form.Defeito,
		Status:     models.GarantiaAberta,
	}

	if err := s.db.Create(&garantia).Error; err != nil {
		log.Error().Err(err).Msg("failed to create warranty claim")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Registrar Garantia"),
			"Error":      "Falha ao registrar garantia",
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// UpdateStatus moves a claim through its lifecycle.
func (s *Service) UpdateStatus(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	status := models.GarantiaStatus(c.FormValue("status"))

	switch status {
	case models.GarantiaAberta, models.GarantiaEnviada, models.GarantiaConcluida:
	default:
		return c.Redirect(Path)
	}

	err = s.db.Model(&models.Garantia{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		log.Error().Err(err).Uint64("id", id).Msg("failed to update warranty status")
	}

	return c.Redirect(Path)
}
