package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/catalog"
	"github.com/GoSGQ-Admin/GoSGQ-Admin/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(&models.Role{}, &models.User{})
	require.NoError(t, err, "failed to migrate test database")

	require.NoError(t, SeedBuiltins(db))

	return db
}

func TestSeedBuiltins(t *testing.T) {
	db := setupTestDB(t)

	// seeding twice must not duplicate
	require.NoError(t, SeedBuiltins(db))

	reg := New(db)

	roles, err := reg.Roles()
	require.NoError(t, err)
	assert.Len(t, roles, 3)

	for _, role := range roles {
		assert.True(t, role.Builtin)
		assert.True(t, Builtin(role.Name))
	}
}

func TestCreateProfile(t *testing.T) {
	db := setupTestDB(t)
	reg := New(db)

	testCases := []struct {
		name          string
		profileName   string
		expectedError error
	}{
		{name: "valid name", profileName: "Gerente"},
		{name: "empty name", profileName: "", expectedError: ErrEmptyProfileName},
		{name: "whitespace only", profileName: "   ", expectedError: ErrEmptyProfileName},
		{name: "duplicate", profileName: "Gerente", expectedError: ErrProfileExists},
		{name: "duplicate after trim", profileName: "  Gerente  ", expectedError: ErrProfileExists},
		{name: "different case is a different profile", profileName: "gerente"},
		{name: "builtin name collides", profileName: "admin", expectedError: ErrProfileExists},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			role, err := reg.CreateProfile(tc.profileName)
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			assert.False(t, role.Builtin)
		})
	}

	// exactly one "Gerente" entry survived the duplicate attempts
	var count int64
	require.NoError(t, db.Model(&models.Role{}).Where("name = ?", "Gerente").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDeleteProfileReassignsUsers(t *testing.T) {
	db := setupTestDB(t)
	reg := New(db)

	_, err := reg.CreateProfile("Gerente")
	require.NoError(t, err)

	users := []models.User{
		{ID: "usr_1", Email: "a@example.com", Role: "Gerente", Active: true},
		{ID: "usr_2", Email: "b@example.com", Role: "Gerente", Active: true},
		{ID: "usr_3", Email: "c@example.com", Role: RoleEditor, Active: true},
	}
	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}

	require.NoError(t, reg.DeleteProfile("Gerente"))

	// profile gone from the registry
	exists, err := reg.Exists("Gerente")
	require.NoError(t, err)
	assert.False(t, exists)

	// every holder fell back to viewer, other roles untouched
	var reassigned []models.User
	require.NoError(t, db.Where("role = ?", RoleViewer).Find(&reassigned).Error)
	assert.Len(t, reassigned, 2)

	var editor models.User
	require.NoError(t, db.Where("id = ?", "usr_3").First(&editor).Error)
	assert.Equal(t, RoleEditor, editor.Role)

	// no user keeps a role that is absent from the registry
	var all []models.User
	require.NoError(t, db.Find(&all).Error)
	for _, u := range all {
		ok, err := reg.Exists(u.Role)
		require.NoError(t, err)
		assert.True(t, ok, "user %s holds unregistered role %q", u.ID, u.Role)
	}
}

func TestDeleteProfileGuards(t *testing.T) {
	db := setupTestDB(t)
	reg := New(db)

	assert.ErrorIs(t, reg.DeleteProfile(RoleAdmin), ErrBuiltinProfile)
	assert.ErrorIs(t, reg.DeleteProfile(RoleViewer), ErrBuiltinProfile)
	assert.ErrorIs(t, reg.DeleteProfile("Inexistente"), ErrProfileNotFound)
}

func TestDefaultPermissions(t *testing.T) {
	// admin carries no materialized list; the short-circuit is dynamic
	assert.Nil(t, DefaultPermissions(RoleAdmin))

	// built-in defaults only contain catalog permissions
	for _, role := range []string{RoleEditor, RoleViewer} {
		for _, perm := range DefaultPermissions(role) {
			assert.True(t, catalog.Known(perm), "role %s default %q not in catalog", role, perm)
		}
	}

	// custom profiles start with nothing
	assert.Nil(t, DefaultPermissions("Gerente"))
}
