// Package nc provides handlers for the non-conformity module. Registration
// and analysis are separate features behind separate permissions: inspectors
// register findings, reviewers analyse and close them.
package nc

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
	// Path is the base path for the non-conformity module.
	Path = handler.RootPath + "nc"

	// AnalysisPath is the path for the analysis queue.
	AnalysisPath = Path + "/analise"

	// TemplateList is the template for the non-conformity listing.
	TemplateList = "nc/list"
	// TemplateForm is the template for registering a non-conformity.
	TemplateForm = "nc/form"
	// TemplateAnalysis is the template for the analysis form.
	TemplateAnalysis = "nc/analise"
)

// RegisterForm is the registration form payload.
type RegisterForm struct {
	Descricao string `form:"descricao" validate:"required"`
	Origem    string `form:"origem"    validate:"max=100"`
	Setor     string `form:"setor"     validate:"max=100"`
	Gravidade string `form:"gravidade" validate:"required,oneof=leve moderada grave"`
}

// AnalysisForm is the analysis form payload.
type AnalysisForm struct {
	Analise       string `form:"analise"        validate:"required"`
	AcaoCorretiva string `form:"acao_corretiva"`
	Encerrar      bool   `form:"encerrar"`
}

// Service provides the non-conformity module handlers.
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
		guard.RequireAnyPermission(sessions, catalog.PermNCRegistro, catalog.PermNCAnalise),
		s.List,
	)
	app.Get(Path+"/new",
		guard.RequirePermission(sessions, catalog.PermNCRegistro),
		s.New,
	)
	app.Post(Path,
		guard.RequirePermission(sessions, catalog.PermNCRegistro),
		s.Create,
	)
	app.Get(AnalysisPath,
		guard.RequirePermission(sessions, catalog.PermNCAnalise),
		s.AnalysisQueue,
	)
	app.Get(AnalysisPath+"/:id",
		guard.RequirePermission(sessions, catalog.PermNCAnalise),
		s.AnalysisForm,
	)
	app.Post(AnalysisPath+"/:id",
		guard.RequirePermission(sessions, catalog.PermNCAnalise),
		s.Analyse,
	)
}

func (s *Service) nav(pageTitle string) *navigation.Context {
	return navigation.NewContext(pageTitle, "nc", "nc").
		AddBreadcrumb("Home", dashboard.Path, false).
		AddBreadcrumb("Não Conformidades", Path, true)
}

// List shows every non-conformity, open ones first.
func (s *Service) List(c *fiber.Ctx) error {
	var ncs []models.NaoConformidade

	err := s.db.
		Order("CASE status WHEN 'aberta' THEN 0 WHEN 'em-analise' THEN 1 ELSE 2 END, created_at DESC").
		Find(&ncs).Error
	if err != nil {
		log.Error().Err(err).Msg("failed to load non-conformities")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": s.nav("Não Conformidades"),
			"Error":      "Falha ao carregar não conformidades",
		}, handler.BaseLayout)
	}

	store := guard.StoreFromCtx(c)

	return c.Render(TemplateList, fiber.Map{
		"Navigation":  s.nav("Não Conformidades"),
		"Menu":        navigation.Menu(store, Path),
		"NCs":         ncs,
		"CanRegister": store.HasPermission(catalog.PermNCRegistro),
		"CanAnalyse":  store.HasPermission(catalog.PermNCAnalise),
	}, handler.BaseLayout)
}

// New shows the registration form.
func (s *Service) New(c *fiber.Ctx) error {
	return c.Render(TemplateForm, fiber.Map{
		"Navigation": s.nav("Registrar NC"),
		"Menu":       navigation.Menu(guard.StoreFromCtx(c), Path),
	}, handler.BaseLayout)
}

// Create registers a new non-conformity attributed to the logged-in user.
func (s *Service) Create(c *fiber.Ctx) error {
	form := new(RegisterForm)

	if err := c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Registrar NC"),
			"Error":      "Dados do formulário inválidos",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Registrar NC"),
			"Error":      "Corrija os campos destacados",
		}, handler.BaseLayout)
	}

	var registradoPor string

	if ident := guard.StoreFromCtx(c).CurrentIdentity(); ident != nil {
		registradoPor = ident.ID
	}

	nc := models.NaoConformidade{
		Descricao:     form.Descricao,
		Origem:        form.Origem,
		Setor:         form.Setor,
		Gravidade:     form.Gravidade,
		Status:        models.NCAberta,
		RegistradoPor: registradoPor,
	}

	if err := s.db.Create(&nc).Error; err != nil {
		log.Error().Err(err).Msg("failed to create non-conformity")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateForm, fiber.Map{
			"Navigation": s.nav("Registrar NC"),
			"Error":      "Falha ao registrar não conformidade",
		}, handler.BaseLayout)
	}

	return c.Redirect(Path)
}

// AnalysisQueue lists the non-conformities waiting for analysis.
func (s *Service) AnalysisQueue(c *fiber.Ctx) error {
	var ncs []models.NaoConformidade

	err := s.db.
		Where("status <> ?", models.NCEncerrada).
		Order("created_at ASC").
		Find(&ncs).Error
	if err != nil {
		log.Error().Err(err).Msg("failed to load analysis queue")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateList, fiber.Map{
			"Navigation": s.nav("Análise de NC"),
			"Error":      "Falha ao carregar fila de análise",
		}, handler.BaseLayout)
	}

	return c.Render(TemplateList, fiber.Map{
		"Navigation": s.nav("Análise de NC"),
		"Menu":       navigation.Menu(guard.StoreFromCtx(c), AnalysisPath),
		"NCs":        ncs,
		"IsQueue":    true,
		"CanAnalyse": true,
	}, handler.BaseLayout)
}

// AnalysisForm shows the analysis form for one entry.
func (s *Service) AnalysisForm(c *fiber.Ctx) error {
	nc, err := s.load(c)
	if err != nil || nc == nil {
		return c.Redirect(AnalysisPath)
	}

	return c.Render(TemplateAnalysis, fiber.Map{
		"Navigation": s.nav("Análise de NC"),
		"Menu":       navigation.Menu(guard.StoreFromCtx(c), AnalysisPath),
		"NC":         nc,
	}, handler.BaseLayout)
}

// Analyse records the root-cause analysis and corrective action, moving the
// entry to em-analise or encerrada.
func (s *Service) Analyse(c *fiber.Ctx) error {
	nc, err := s.load(c)
	if err != nil || nc == nil {
		return c.Redirect(AnalysisPath)
	}

	form := new(AnalysisForm)

	if err := c.BodyParser(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateAnalysis, fiber.Map{
			"Navigation": s.nav("Análise de NC"),
			"NC":         nc,
			"Error":      "Dados do formulário inválidos",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render(TemplateAnalysis, fiber.Map{
			"Navigation": s.nav("Análise de NC"),
			"NC":         nc,
			"Error":      "Informe a análise da causa raiz",
		}, handler.BaseLayout)
	}

	nc.Analise = form.Analise
	nc.AcaoCorretiva = form.AcaoCorretiva
	nc.Status = models.NCEmAnalise

	if form.Encerrar {
		nc.Status = models.NCEncerrada
	}

	if err := s.db.Save(nc).Error; err != nil {
		log.Error().Err(err).Uint64("id", nc.ID).Msg("failed to save analysis")

		return c.Status(fiber.StatusInternalServerError).Render(TemplateAnalysis, fiber.Map{
			"Navigation": s.nav("Análise de NC"),
			"NC":         nc,
			"Error":      "Falha ao salvar análise",
		}, handler.BaseLayout)
	}

	return c.Redirect(AnalysisPath)
}

func (s *Service) load(c *fiber.Ctx) (*models.NaoConformidade, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return nil, err
	}

	var nc models.NaoConformidade
	if err := s.db.First(&nc, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Uint64("id", id).Msg("failed to load non-conformity")
		}

		return nil, err
	}

	return &nc, nil
}
