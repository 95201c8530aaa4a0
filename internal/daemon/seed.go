package daemon

import (
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/config"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/controller/setting"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/models"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/identity"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/registry"
)

// seed creates the initial administrator account when the user table is
// empty and records its id in the settings table. The recorded id is what
// makes the account immutable to deletion, whoever holds the admin role
// later.
func seed(cfg *config.Config, db *gorm.DB) {
	var count int64

	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to count users")
	}

	if count > 0 {
		return
	}

	email := cfg.Auth.Seed.AdminEmail
	if email == "" {
		email = "admin@localhost"
	}

	name := cfg.Auth.Seed.AdminName
	if name == "" {
		name = "Administrador"
	}

	password := cfg.Auth.Seed.AdminPassword
	if password == "" {
		password = "changeme"

		log.Warn().Msg("seed admin created with the default password, change it after the first login")
	}

	admin := models.User{
		ID:       identity.NewUserID(),
		Active:   true,
		Email:    email,
		Name:     name,
		Password: models.HashPassword(password),
		Role:     registry.RoleAdmin,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin user")
	}

	_, err := setting.Create(db, setting.SeedAdminID, []byte(admin.ID))
	if err != nil && !errors.Is(err, setting.ErrSettingAlreadyExists) {
		log.Fatal().Err(err).Msg("failed to record seed admin id")
	}

	log.Info().Str("id", admin.ID).Str("email", email).Msg("seed admin user created")
}
