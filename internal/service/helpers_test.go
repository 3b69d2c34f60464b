package service

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/config"
	"github.com/hvkoch/verleihsystem/internal/hash"
	"github.com/hvkoch/verleihsystem/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))
	return db
}

func seedRole(t *testing.T, db *gorm.DB, name string, system bool, perms ...string) models.Role {
	t.Helper()
	role := models.Role{Name: name, IsSystem: system}
	require.NoError(t, db.Create(&role).Error)
	for _, p := range perms {
		require.NoError(t, db.Create(&models.RolePermission{RoleID: role.ID, Permission: p}).Error)
	}
	return role
}

func seedUser(t *testing.T, db *gorm.DB, username, password string, active bool, roles ...models.Role) models.User {
	t.Helper()
	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)
	user := models.User{
		Username:     username,
		Email:        username + "@school.example",
		PasswordHash: pwHash,
		Active:       active,
	}
	require.NoError(t, db.Create(&user).Error)
	if !active {
		// The default:true tag makes GORM drop a zero-value Active on
		// insert, so write the column explicitly.
		require.NoError(t, db.Model(&user).Update("active", false).Error)
	}
	for _, role := range roles {
		require.NoError(t, db.Create(&models.UserRole{UserID: user.ID, RoleID: role.ID}).Error)
	}
	return user
}
