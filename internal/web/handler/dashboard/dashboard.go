// Package dashboard provides the dashboard handler with the quality
// indicators summary.
package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/catalog"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/config"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/models"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/guard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/navigation"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/session"
)

const (
	// Path is the path to the dashboard page.
	Path = handler.RootPath + "dashboard"

	// TemplateName is the name of the dashboard template.
	TemplateName = "dashboard/dashboard"
)

// Summary holds the indicator counts shown on the dashboard cards.
type Summary struct {
	TonersBaixoEstoque  int64
	AuditoriasAgendadas int64
	GarantiasAbertas    int64
	NCAbertas           int64
}

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, sessions *session.Manager) {
	if app == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db

	app.Get(Path,
		guard.RequirePermission(sessions, catalog.PermDashboard),
		s.Get,
	)
}

// Get handles the dashboard page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	store := guard.StoreFromCtx(c)
	ident := store.CurrentIdentity()

	nav := navigation.NewContext("Painel", "dashboard", "dashboard").
		AddBreadcrumb("Home", Path, false).
		AddBreadcrumb("Painel", Path, true)

	summary, err := s.loadSummary(c)
	if err != nil {
		log.Error().Err(err).Msg("failed to load dashboard summary")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load dashboard")
	}

	return c.Render(TemplateName, fiber.Map{
		"Navigation": nav,
		"Menu":       navigation.Menu(store, Path),
		"User":       ident,
		"Summary":    summary,
		"Title":      s.cfg.Title,
	}, handler.BaseLayout)
}

func (s *Service) loadSummary(c *fiber.Ctx) (*Summary, error) {
	var (
		summary Summary
		db      = s.db.WithContext(c.Context())
	)

	err := db.Model(&models.Toner{}).
		Where("quantidade < minimo").
		Count(&summary.TonersBaixoEstoque).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Auditoria{}).
		Where("status = ?", models.AuditoriaAgendada).
		Count(&summary.AuditoriasAgendadas).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Garantia{}).
		Where("status <> ?", models.GarantiaConcluida).
		Count(&summary.GarantiasAbertas).Error
	if err != nil {
		return nil, err
	}

	err = db.Model(&models.NaoConformidade{}).
		Where("status <> ?", models.NCEncerrada).
		Count(&summary.NCAbertas).Error
	if err != nil {
		return nil, err
	}

	return &summary, nil
}
