// Package web assembles the fiber application: template engine, middleware
// chain, session manager and the feature handlers with their permission
// guards.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/storage"
	"github.com/gofiber/template/html/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/config"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
	fiberlogger "github.com/GoSGQ-Admin/GoSGQ-Admin/internal/logger/adapter/fiber"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/admin/profile"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/admin/user"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/auditoria"
	oidchandler "github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/auth/oidc"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/dashboard"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/garantia"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/login"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/logout"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/nc"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/handler/toner"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web/session"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	sessions     *session.Manager
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the console.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration, database,
// identity provider and session storage backend.
func New(cfg *config.Config, db *gorm.DB, provider identity.Provider, sessionStorage storage.Storage) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	httpFS := http.FS(templateEmbedFS{embeddedTemplates})
	templateEngine := html.NewFileSystem(httpFS, ".gohtml")

	// in debug mode, use local filesystem for templates
	if cfg.DevMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.ShouldReload = true

		log.Warn().Msg("debug mode enabled: using local filesystem for templates")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			Views:          templateEngine,
		},
	)

	// a panicking handler answers 500 instead of taking the process down
	if !cfg.Webserver.DisableRecover {
		app.Use(fiberrecover.New())
	}

	// access logging
	app.Use(fiberlogger.New(fiberlogger.Config{Config: cfg.Log}))

	// serve embedded static files
	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:       http.FS(embeddedStaticFiles),
				PathPrefix: "static",
				Browse:     cfg.Webserver.BrowseStatic,
			},
		),
	)

	sessions := session.NewManager(sessionStorage, provider, cfg.Webserver.Session.ExpiryTime)

	// require a session for everything beyond the open prefixes
	app.Use(AuthMiddleware(sessions))

	service := &Service{
		cfg:      cfg,
		App:      app,
		db:       db,
		sessions: sessions,
	}

	// init handlers (they register their own routes with permission checks)
	if err := login.Handler.Init(app, cfg, provider, sessions); err != nil {
		log.Fatal().Err(err).Msg("failed to init login handler")
	}

	logout.Handler.Init(app, cfg, sessions)
	oidchandler.Handler.Init(app, cfg, db, provider, sessions)
	dashboard.Handler.Init(app, cfg, db, sessions)
	toner.Handler.Init(app, cfg, db, sessions)
	auditoria.Handler.Init(app, cfg, db, sessions)
	garantia.Handler.Init(app, cfg, db, sessions)
	nc.Handler.Init(app, cfg, db, sessions)
	user.Handler.Init(app, cfg, db, sessions)
	profile.Handler.Init(app, cfg, db, sessions)

	// redirect root to dashboard
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(dashboard.Path)
	})

	return service
}
