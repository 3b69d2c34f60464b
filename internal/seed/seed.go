// Package seed provisions the built-in roles and the initial administrator
// account on startup.
package seed

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/authz"
	"github.com/hvkoch/verleihsystem/internal/hash"
	"github.com/hvkoch/verleihsystem/internal/logging"
	"github.com/hvkoch/verleihsystem/internal/models"
)

var systemRoles = map[string][]string{
	authz.RoleAdministrator: {authz.PermAll},
	authz.RoleMediencoach: {
		authz.PermAssetsManage,
		authz.PermLendingsManage,
		authz.PermContainersManage,
		authz.PermReportsManage,
	},
	authz.RoleLehrer:   {authz.PermAssetsView, authz.PermLendingsView},
	authz.RoleSchueler: nil,
}

// EnsureSystemRoles creates the built-in roles and their permission sets
// when missing. Existing rows are left alone so local changes survive
// restarts.
func EnsureSystemRoles(ctx context.Context, db *gorm.DB) error {
	for name, perms := range systemRoles {
		var role models.Role
		err := db.WithContext(ctx).Where("name = ?", name).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			role = models.Role{Name: name, IsSystem: true}
			err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(&role).Error; err != nil {
					return err
				}
				for _, p := range perms {
					rp := models.RolePermission{RoleID: role.ID, Permission: p}
					if err := tx.Create(&rp).Error; err != nil {
						return err
					}
				}
				return nil
			})
		}
		if err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
		if !role.IsSystem {
			if err := db.WithContext(ctx).Model(&role).Update("is_system", true).Error; err != nil {
				return fmt.Errorf("seed role %s: %w", name, err)
			}
		}
	}
	return nil
}

// EnsureAdminUser creates the initial administrator when no active
// administrator exists yet. The account starts with a forced password
// change.
func EnsureAdminUser(ctx context.Context, db *gorm.DB, username, email, password string) error {
	if password == "" {
		logging.FromContext(ctx).Warn("no ADMIN_PASSWORD set, skipping admin seed")
		return nil
	}

	var count int64
	err := db.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("users.active = ?", true).
		Where("LOWER(roles.name) IN ?", []string{"admin", "administrator"}).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("count administrators: %w", err)
	}
	if count > 0 {
		return nil
	}

	var adminRole models.Role
	if err := db.WithContext(ctx).
		Where("name = ?", authz.RoleAdministrator).
		First(&adminRole).Error; err != nil {
		return fmt.Errorf("administrator role missing: %w", err)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	user := models.User{
		Username:            username,
		Email:               email,
		PasswordHash:        pwHash,
		Active:              true,
		ForcePasswordChange: true,
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserRole{UserID: user.ID, RoleID: adminRole.ID}).Error
	})
}
