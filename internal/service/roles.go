package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/authz"
	"github.com/hvkoch/verleihsystem/internal/models"
)

type RoleService struct {
	DB *gorm.DB
}

func NewRoleService(db *gorm.DB) *RoleService {
	return &RoleService{DB: db}
}

// RoleWithPermissions mirrors a role plus its assigned permission strings.
type RoleWithPermissions struct {
	models.Role
	Permissions []string `json:"permissions"`
}

// List returns every role, system roles first, each with its permissions.
func (s *RoleService) List(ctx context.Context) ([]RoleWithPermissions, error) {
	var roles []models.Role
	if err := s.DB.WithContext(ctx).
		Order("is_system DESC, name ASC").
		Find(&roles).Error; err != nil {
		return nil, err
	}

	out := make([]RoleWithPermissions, 0, len(roles))
	for _, role := range roles {
		perms, err := s.rolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RoleWithPermissions{Role: role, Permissions: perms})
	}
	return out, nil
}

func (s *RoleService) Get(ctx context.Context, id uint) (*RoleWithPermissions, error) {
	var role models.Role
	if err := s.DB.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	perms, err := s.rolePermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	return &RoleWithPermissions{Role: role, Permissions: perms}, nil
}

// Create adds a role with its permission set. A taken name is rejected with
// a distinct error, never silently overwritten.
func (s *RoleService) Create(ctx context.Context, name string, permissions []string) (*RoleWithPermissions, error) {
	if err := validatePermissions(permissions); err != nil {
		return nil, err
	}
	if taken, err := s.nameTaken(ctx, name, 0); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.ErrDuplicateRoleName
	}

	role := models.Role{Name: name}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ErrDuplicateRoleName
			}
			return err
		}
		return insertPermissions(tx, role.ID, permissions)
	})
	if err != nil {
		return nil, err
	}
	return &RoleWithPermissions{Role: role, Permissions: permissions}, nil
}

// Update renames the role (allowed for system roles too) and replaces the
// permission set wholesale. Replacement is delete-all-then-insert inside a
// single transaction: a partial failure rolls back entirely.
func (s *RoleService) Update(ctx context.Context, id uint, name string, permissions []string) (*RoleWithPermissions, error) {
	if err := validatePermissions(permissions); err != nil {
		return nil, err
	}

	var role models.Role
	if err := s.DB.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if taken, err := s.nameTaken(ctx, name, id); err != nil {
		return nil, err
	} else if taken {
		return nil, apperr.ErrDuplicateRoleName
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role.Name = name
		if err := tx.Save(&role).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ErrDuplicateRoleName
			}
			return err
		}
		if err := tx.Where("role_id = ?", role.ID).
			Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		return insertPermissions(tx, role.ID, permissions)
	})
	if err != nil {
		return nil, err
	}
	return &RoleWithPermissions{Role: role, Permissions: permissions}, nil
}

// Delete removes a role together with its permission assignments and every
// user assignment referencing it, atomically. System roles cannot be
// deleted.
func (s *RoleService) Delete(ctx context.Context, id uint) error {
	var role models.Role
	if err := s.DB.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}
	if role.IsSystem {
		return apperr.ErrSystemRole
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).
			Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", role.ID).
			Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&role).Error
	})
}

func (s *RoleService) rolePermissions(ctx context.Context, roleID uint) ([]string, error) {
	var perms []string
	err := s.DB.WithContext(ctx).
		Model(&models.RolePermission{}).
		Where("role_id = ?", roleID).
		Order("permission ASC").
		Pluck("permission", &perms).Error
	return perms, err
}

func (s *RoleService) nameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.Role{}).
		Where("name = ? AND id <> ?", name, excludeID).
		Count(&count).Error
	return count > 0, err
}

func validatePermissions(perms []string) error {
	for _, p := range perms {
		if !authz.Known(p) {
			return apperr.ErrUnknownPermission
		}
	}
	return nil
}

func insertPermissions(tx *gorm.DB, roleID uint, perms []string) error {
	for _, p := range perms {
		rp := models.RolePermission{RoleID: roleID, Permission: p}
		if err := tx.Where(&rp).FirstOrCreate(&rp).Error; err != nil {
			return err
		}
	}
	return nil
}
