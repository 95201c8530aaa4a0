// Package daemon wires the application together: database, identity
// provider, session storage and the web service.
package daemon

import (
	"fmt"

	"github.com/gofiber/storage"
	sessionmysql "github.com/gofiber/storage/mysql"
	sessionpostgres "github.com/gofiber/storage/postgres"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/config"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/dsn"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/models"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/registry"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	webService *web.Service
	addr       string
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	return d.webService.Start(d.addr)
}

// WaitShutdown blocks until the web service finished its graceful shutdown.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db := openDatabase(cfg)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Setting{},
		&models.Toner{},
		&models.Auditoria{},
		&models.Garantia{},
		&models.NaoConformidade{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	if err := registry.SeedBuiltins(db); err != nil {
		log.Fatal().Err(err).Msg("failed to seed builtin roles")
	}

	seed(cfg, db)

	provider := newProvider(cfg, db)

	return &Daemon{
		webService: web.New(cfg, db, provider, newSessionStorage(cfg)),
		addr:       fmt.Sprintf(":%d", cfg.Webserver.Port),
	}
}

// openDatabase opens the gorm handle for the configured engine.
func openDatabase(cfg *config.Config) *gorm.DB {
	var dialector gorm.Dialector

	switch cfg.DB.GormEngine {
	case config.GormEnginePostgres:
		dialector = gormpostgres.Open(dsn.Create(cfg))
	default:
		dialector = gormmysql.Open(dsn.Create(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	return db
}

// newSessionStorage creates the session snapshot storage on the same engine
// as the main database.
func newSessionStorage(cfg *config.Config) storage.Storage {
	if cfg.DB.GormEngine == config.GormEnginePostgres {
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	}

	return sessionmysql.New(sessionmysql.Config{
		ConnectionURI: dsn.Create(cfg),
		Table:         "sessions",
	})
}

// newProvider selects the identity provider: LDAP verification with local
// profiles when enabled, plain local accounts otherwise.
func newProvider(cfg *config.Config, db *gorm.DB) identity.Provider {
	if cfg.Auth.LDAP.Enabled {
		provider, err := identity.NewLDAPProvider(&cfg.Auth.LDAP, db)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize ldap provider")
		}

		log.Info().Str("host", cfg.Auth.LDAP.Host).Msg("ldap credential verification enabled")

		return provider
	}

	return identity.NewLocalProvider(db)
}
