package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/authz"
	"github.com/hvkoch/verleihsystem/internal/hash"
	"github.com/hvkoch/verleihsystem/internal/models"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

type UserWithRoles struct {
	models.User
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleIDs   []uint
}

// Create registers a new account. New accounts start with a forced
// password change.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.ErrNoCredentials
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", in.Username, in.Email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperr.ErrUserAlreadyExists
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Username:            in.Username,
		Email:               in.Email,
		PasswordHash:        pwHash,
		FirstName:           in.FirstName,
		LastName:            in.LastName,
		Active:              true,
		ForcePasswordChange: true,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.ErrUserAlreadyExists
			}
			return err
		}
		for _, roleID := range in.RoleIDs {
			if err := tx.Create(&models.UserRole{UserID: user.ID, RoleID: roleID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context) ([]UserWithRoles, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Order("username ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	resolver := authz.NewResolver(s.DB)
	out := make([]UserWithRoles, 0, len(users))
	for _, u := range users {
		roles, perms := resolver.Resolve(ctx, u.ID)
		out = append(out, UserWithRoles{User: u, Roles: roles, Permissions: perms})
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*UserWithRoles, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	roles, perms := authz.NewResolver(s.DB).Resolve(ctx, user.ID)
	return &UserWithRoles{User: user, Roles: roles, Permissions: perms}, nil
}

type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
}

func (s *UserService) Update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if err := s.DB.WithContext(ctx).Save(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.ErrUserAlreadyExists
		}
		return nil, err
	}
	return &user, nil
}

// SetActive toggles the activation flag. Deactivating the last active
// administrator is rejected before any write.
func (s *UserService) SetActive(ctx context.Context, id uint, active bool) error {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}

	if !active && user.Active {
		if err := s.guardLastAdministrator(ctx, user.ID); err != nil {
			return err
		}
	}
	return s.DB.WithContext(ctx).Model(&user).Update("active", active).Error
}

// Delete removes the user with their role assignments and direct grants.
// The last active administrator cannot be deleted.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}
	if user.Active {
		if err := s.guardLastAdministrator(ctx, user.ID); err != nil {
			return err
		}
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).
			Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).
			Delete(&models.UserPermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}

// AssignRoles replaces the user's role set atomically. Stripping the
// administrator role off the last active administrator is rejected.
func (s *UserService) AssignRoles(ctx context.Context, userID uint, roleIDs []uint) error {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}

	keepsAdmin := false
	if len(roleIDs) > 0 {
		var names []string
		if err := s.DB.WithContext(ctx).Model(&models.Role{}).
			Where("id IN ?", roleIDs).
			Pluck("name", &names).Error; err != nil {
			return err
		}
		if len(names) != len(roleIDs) {
			return apperr.ErrNotFound
		}
		for _, n := range names {
			if authz.IsAdministrator(n) {
				keepsAdmin = true
			}
		}
	}
	if user.Active && !keepsAdmin {
		if err := s.guardLastAdministrator(ctx, user.ID); err != nil {
			return err
		}
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if err := tx.Create(&models.UserRole{UserID: userID, RoleID: roleID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Grant adds a direct permission. Granting an already-present pair is a
// no-op, not an error.
func (s *UserService) Grant(ctx context.Context, userID uint, permission string) error {
	if !authz.Known(permission) {
		return apperr.ErrUnknownPermission
	}
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}
	up := models.UserPermission{UserID: userID, Permission: permission}
	return s.DB.WithContext(ctx).Where(&up).FirstOrCreate(&up).Error
}

// Revoke removes a direct permission; revoking a grant that does not exist
// is also a no-op.
func (s *UserService) Revoke(ctx context.Context, userID uint, permission string) error {
	return s.DB.WithContext(ctx).
		Where("user_id = ? AND permission = ?", userID, permission).
		Delete(&models.UserPermission{}).Error
}

// guardLastAdministrator rejects an operation that would leave the system
// without any active administrator. The count excludes the target user, so
// a result of zero means the target is the only one left.
func (s *UserService) guardLastAdministrator(ctx context.Context, excludeUserID uint) error {
	count, err := s.CountActiveAdministrators(ctx, excludeUserID)
	if err != nil {
		return err
	}

	targetIsAdmin, err := s.holdsAdministratorRole(ctx, excludeUserID)
	if err != nil {
		return err
	}
	if targetIsAdmin && count == 0 {
		return apperr.ErrLastAdministrator
	}
	return nil
}

// CountActiveAdministrators counts active users holding the administrator
// role, matching the legacy "admin" synonym case-insensitively.
func (s *UserService) CountActiveAdministrators(ctx context.Context, excludeUserID uint) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.User{}).
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("users.active = ? AND users.id <> ?", true, excludeUserID).
		Where("LOWER(roles.name) IN ?", []string{"admin", "administrator"}).
		Distinct("users.id").
		Count(&count).Error
	return count, err
}

func (s *UserService) holdsAdministratorRole(ctx context.Context, userID uint) (bool, error) {
	var names []string
	err := s.DB.WithContext(ctx).
		Table("roles").
		Select("roles.name").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Scan(&names).Error
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if authz.IsAdministrator(n) {
			return true, nil
		}
	}
	return false, nil
}
