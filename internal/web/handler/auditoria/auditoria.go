// Package auditoria provides handlers for the internal audit module: the
// report listing and the scheduling forms.
package auditoria

import (
	"strconv"
	"time"

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
	// Path is the base path for the audit module.
	Path = handler.RootPath + "auditoria"

	// TemplateList is the template for the audit report listing.
	TemplateList = "auditoria/list"
	// TemplateForm is the template for scheduling an audit.
	TemplateForm = "auditoria/form"

	dateLayout = "2006-01-02"
)

// Form is the audit scheduling form payload.
type Form struct {
	Titulo      string `form:"titulo"      validate:"required,max=200"`
	Setor       string `form:"setor"       validate:"max=100"`
	Auditor     string `form:"auditor"     validate:"max=150"`
	Data        string `form:"data"        validate:"required"`
	Observacoes string `form:"observacoes"`
}

// Service provides the audit module handlers.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	validator *validator.Validate
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes. Reports are readable with either audit permission;
// scheduling and status changes need the agenda permission.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, sessions *session.Manager) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.validator = validator.New()

	app.Get(Path,
		guard.RequireAnyPermission(sessions, catalog.PermAuditoriaRelatorios, catalog.PermAuditoriaAgenda),
		s.List,
	)
	app.Get(Path+"/new",
		guard.RequirePermission(sessions, catalog.PermAuditoriaAgenda),
		s.New,
	)
	app.Post(Path,
		guard.RequirePermission(sessions, catalog.PermAuditoriaAgenda),
		s.Create,
	)
	app.Post(Path+"/:id/status",
		guard.RequirePermission(sessions, catalog.PermAuditoriaAgenda),
		s.UpdateStatus,
	)
}

func (s *Service) nav(pageTitle string) *navigation.Context {
	return navigation.NewContext(pageTitle, "auditoria", "auditoria").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Auditorias", Path, true)
}

// List shows the audit entries, newest scheduled date first.
func (s *Service) List(c *fiber.Ctx) error {
	var auditorias []models.Auditoria

	if err := s.db.Order("data DESC").Find(&auditorias).Error; err != nil {
		log.Error().Err(err).Msg("failed to load audits")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": s.nav("Auditorias"),
			"Error":      "Falha ao carregar auditorias",
		}, handler.BaseLayout)
	}

	store := guard.StoreFromCtx(c)

	return c.Render(TemplateList, fiber.Map{
		"Navigation": s.nav("Auditorias"),
		"Menu":       navigation.Menu(store, Path),
		"Auditorias": auditorias,
		"CanAgendar": store.HasPermission(catalog.PermAuditoriaAgenda),
	}, handler.BaseLayout)
}

// New shows the scheduling form.
func (s *Service) New(c *fiber.Ctx) error {
	return c.Render(TemplateForm, fiber.Map{
		"Navigation": s.nav("Agendar Auditoria"),
		"Menu":       navigation.Menu(guard.StoreFromCtx(c), Path),
	}, handler.BaseLayout)
}

// Create schedules a new audit.
func (s *Service) Create(c *fiber.Ctx) error {
	form := new(Form)

	if err := c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Agendar Auditoria"),
			"Error":      "Dados do formulário inválidos",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Agendar Auditoria"),
			"Error":      "Corrija os campos destacados",
		}, handler.BaseLayout)
	}

	data, err := time.Parse(dateLayout, form.Data)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Agendar Auditoria"),
			"Error":      "Data inválida",
		}, handler.BaseLayout)
	}

	auditoria := models.Auditoria{
		Titulo:      form.Titulo,
		Setor:       form.Setor,
		Auditor:     form.Auditor,
		Data:        data,
		Status:      models.AuditoriaAgendada,
		Observacoes: form.Observacoes,
	}

	if err := s.db.Create(&auditoria).Error; err != nil {
		log.Error().Err(err).Msg("failed to create audit")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Agendar Auditoria"),
			"Error":      "Falha ao agendar auditoria",
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// UpdateStatus moves an audit through its lifecycle.
func (s *Service) UpdateStatus(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Redirect(Path)
	}

	status := models.AuditoriaStatus(c.FormValue("status"))

	switch status {
	case models.AuditoriaAgendada, models.AuditoriaRealizada, models.AuditoriaCancelada:
	default:
		return c.Redirect(Path)
	}

	err = s.db.Model(&models.Auditoria{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		log.Error().Err(err).Uint64("id", id).Msg("failed to update audit status")
	}

	return c.Redirect(Path)
}
