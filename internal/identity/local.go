package identity

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/controller/setting"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/models"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/uniuri"
)

const (
	whereID    = "id = ?"
	whereEmail = "email = ?"

	// userIDLen is the random part length of issued user ids.
	userIDLen = 20
)

// LocalProvider implements Provider against the local database.
type LocalProvider struct {
	db *gorm.DB
}

// NewLocalProvider creates a new local identity provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db: db,
	}
}

// NewUserID issues a new opaque user id.
func NewUserID() string {
	return "usr_" + uniuri.NewLen(userIDLen)
}

// VerifyCredential authenticates an email/password pair against the local database.
func (p *LocalProvider) VerifyCredential(ctx context.Context, email, secret string) (*Credential, error) {
	var user models.User

	err := p.db.WithContext(ctx).Where(whereEmail, email).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.Active {
		return nil, ErrAccountDisabled
	}

	if !user.VerifyPassword(secret) {
		return nil, ErrInvalidCredentials
	}

	return &Credential{
		ID:         user.ID,
		Email:      user.Email,
		TOTPSecret: user.TOTPSecret,
	}, nil
}

// SignOut invalidates the provider-side session. The local provider keeps no
// server-side session state, so there is nothing to revoke.
func (p *LocalProvider) SignOut(_ context.Context, _ string) error {
	return nil
}

// FetchProfile loads the profile fields of a user record.
func (p *LocalProvider) FetchProfile(ctx context.Context, id string) (*Profile, error) {
	var user models.User

	err := p.db.WithContext(ctx).Where(whereID, id).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	return &Profile{
		Name:        user.Name,
		Role:        user.Role,
		Permissions: user.Permissions,
	}, nil
}

// CreateIdentity registers a new local user and returns the issued id.
// The profile fields are filled by a subsequent UpsertProfile call.
func (p *LocalProvider) CreateIdentity(ctx context.Context, email, secret string) (string, error) {
	var existing models.User

	err := p.db.WithContext(ctx).Where(whereEmail, email).First(&existing).Error
	if err == nil {
		return "", ErrEmailExists
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to check existing user: %w", err)
	}

	user := models.User{
		ID:         NewUserID(),
		Active:     true,
		Email:      email,
		Password:   models.HashPassword(secret),
		AuthSource: models.AuthSourceLocal,
	}

	if err := p.db.WithContext(ctx).Create(&user).Error; err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	return user.ID, nil
}

// UpdateIdentity applies the patch to the identity record, field by field.
func (p *LocalProvider) UpdateIdentity(ctx context.Context, id string, patch IdentityPatch) error {
	var user models.User

	err := p.db.WithContext(ctx).Where(whereID, id).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to query user: %w", err)
	}

	updates := map[string]interface{}{}

	if patch.Email != nil && *patch.Email != user.Email {
		var other models.User
		if err := p.db.WithContext(ctx).Where(whereEmail, *patch.Email).First(&other).Error; err == nil {
			return ErrEmailExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing email: %w", err)
		}

		updates["email"] = *patch.Email
	}

	if patch.Secret != nil {
		updates["password"] = models.HashPassword(*patch.Secret)
	}

	if len(updates) == 0 {
		return nil
	}

	return p.db.WithContext(ctx).Model(&models.User{}).
		Where(whereID, id).
		Updates(updates).Error
}

// DeleteIdentity removes a user record. The seed administrator, whose id is
// recorded in the settings table at seed time, is refused unconditionally.
func (p *LocalProvider) DeleteIdentity(ctx context.Context, id string) error {
	seedID, err := setting.Get(p.db, setting.SeedAdminID)
	if err != nil && !errors.Is(err, setting.ErrSettingNotFound) {
		return fmt.Errorf("failed to read seed admin id: %w", err)
	}

	if seedID != nil && string(seedID.Value) == id {
		return ErrSeedAdminImmutable
	}

	result := p.db.WithContext(ctx).Where(whereID, id).Delete(&models.User{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpsertProfile replaces the profile fields of an existing user record.
func (p *LocalProvider) UpsertProfile(ctx context.Context, id string, profile Profile) error {
	var user models.User

	err := p.db.WithContext(ctx).Where(whereID, id).First(&user).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to query user: %w", err)
	}

	user.Name = profile.Name
	user.Role = profile.Role
	user.Permissions = profile.Permissions

	if err := p.db.WithContext(ctx).Save(&user).Error; err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}
