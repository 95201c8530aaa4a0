// Package registry manages the set of known role names: the three built-in
// roles plus the custom access profiles created at runtime.
//
// Built-in roles are immutable. Custom profiles may be created and deleted;
// deleting one reassigns every holder to the viewer role inside the same
// transaction, so no user record is ever left with a role that is absent
// from the registry.
//
// Profile name uniqueness is byte-exact on the trimmed name. Names are
// treated as opaque strings; "Gerente" and "gerente" are two different
// profiles (decision recorded in DESIGN.md).
package registry

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/catalog"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/models"
)

// Built-in role names.
const (
	// RoleAdmin implies every catalog permission dynamically.
	RoleAdmin = "admin"
	// RoleEditor is the default working role.
	RoleEditor = "editor"
	// RoleViewer is the read-only role; holders of deleted profiles fall back to it.
	RoleViewer = "viewer"
)

var (
	// ErrEmptyProfileName is returned when creating a profile with an empty or whitespace-only name.
	ErrEmptyProfileName = errors.New("profile name cannot be empty")
	// ErrProfileExists is returned when creating a profile whose name is already registered.
	ErrProfileExists = errors.New("profile already exists")
	// ErrProfileNotFound is returned when the named profile is not registered.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrBuiltinProfile is returned when attempting to delete a built-in role.
	ErrBuiltinProfile = errors.New("built-in roles cannot be deleted")
)

const whereName = "name = ?"

// Registry provides access to the role/profile registry.
type Registry struct {
	db *gorm.DB
}

// New creates a new role registry.
func New(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Builtin reports whether the given name is one of the fixed roles.
func Builtin(name string) bool {
	return name == RoleAdmin || name == RoleEditor || name == RoleViewer
}

// DefaultPermissions returns the permission list implied by a built-in role
// when a new user is created with it. The admin role carries no materialized
// list; its permissions are evaluated dynamically by the session store.
// Custom profiles start empty.
func DefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return nil
	case RoleEditor:
		return []string{
			catalog.PermDashboard,
			catalog.PermCadastroToners,
			catalog.PermConsultaToners,
			catalog.PermAuditoriaAgenda,
			catalog.PermAuditoriaRelatorios,
			catalog.PermGarantiaRegistro,
			catalog.PermGarantiaConsulta,
			catalog.PermNCRegistro,
			catalog.PermNCAnalise,
		}
	case RoleViewer:
		return []string{
			catalog.PermDashboard,
			catalog.PermConsultaToners,
			catalog.PermAuditoriaRelatorios,
			catalog.PermGarantiaConsulta,
		}
	default:
		return nil
	}
}

// Roles returns every registered role, built-ins first.
func (r *Registry) Roles() ([]models.Role, error) {
	var roles []models.Role

	err := r.db.Order("builtin DESC, name ASC").Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return roles, nil
}

// Exists reports whether the given role name is registered.
func (r *Registry) Exists(name string) (bool, error) {
	var count int64

	err := r.db.Model(&models.Role{}).Where(whereName, name).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}

	return count > 0, nil
}

// CreateProfile registers a new custom profile. The name is trimmed; empty
// and duplicate names are rejected before any write.
func (r *Registry) CreateProfile(name string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyProfileName
	}

	exists, err := r.Exists(name)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, ErrProfileExists
	}

	role := models.Role{Name: name}
	if err := r.db.Create(&role).Error; err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return &role, nil
}

// DeleteProfile removes a custom profile. Every user holding the profile is
// reassigned to viewer in the same transaction, so the registry never leaves
// a dangling role reference behind.
func (r *Registry) DeleteProfile(name string) error {
	if Builtin(name) {
		return ErrBuiltinProfile
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var role models.Role

		err := tx.Where(whereName, name).First(&role).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProfileNotFound
		}

		if err != nil {
			return fmt.Errorf("failed to query profile: %w", err)
		}

		if role.Builtin {
			return ErrBuiltinProfile
		}

		if err := tx.Model(&models.User{}).
			Where("role = ?", name).
			Update("role", RoleViewer).Error; err != nil {
			return fmt.Errorf("failed to reassign users: %w", err)
		}

		if err := tx.Delete(&role).Error; err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}

		return nil
	})
}

// SeedBuiltins inserts the three fixed roles if they are missing.
func SeedBuiltins(db *gorm.DB) error {
	builtins := []models.Role{
		{Name: RoleAdmin, Description: "Acesso total", Builtin: true},
		{Name: RoleEditor, Description: "Edição dos módulos da qualidade", Builtin: true},
		{Name: RoleViewer, Description: "Somente consulta", Builtin: true},
	}

	for _, role := range builtins {
		var count int64
		if err := db.Model(&models.Role{}).Where(whereName, role.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check builtin role: %w", err)
		}

		if count > 0 {
			continue
		}

		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("failed to seed builtin role: %w", err)
		}
	}

	return nil
}
