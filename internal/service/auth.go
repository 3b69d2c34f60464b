package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/authz"
	"github.com/hvkoch/verleihsystem/internal/hash"
	"github.com/hvkoch/verleihsystem/internal/logging"
	"github.com/hvkoch/verleihsystem/internal/models"
	"github.com/hvkoch/verleihsystem/internal/tokens"
)

type AuthService struct {
	DB       *gorm.DB
	Secret   []byte
	Resolver *authz.Resolver
}

func NewAuthService(db *gorm.DB, secret []byte) *AuthService {
	return &AuthService{DB: db, Secret: secret, Resolver: authz.NewResolver(db)}
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
	Claims    tokens.Claims
}

// Login verifies the credentials, resolves the caller's effective role and
// permission sets and mints a session token carrying them.
//
// The identifier matches username or email. Unknown identifier and wrong
// password both reject with the identical invalid-credentials error so
// accounts cannot be enumerated. Inactive accounts reject distinctly.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if identifier == "" || password == "" {
		return nil, apperr.ErrNoCredentials
	}

	var user models.User
	err := s.DB.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		l.Error("user lookup failed", "error", err)
		return nil, apperr.ErrInternal
	}

	if !user.Active {
		l.Warn("login rejected", "reason", "account disabled", "user_id", user.ID)
		return nil, apperr.ErrAccountDisabled
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login rejected", "user_id", user.ID)
		return nil, apperr.ErrInvalidCredentials
	}

	roles, permissions := s.Resolver.Resolve(ctx, user.ID)

	expiresAt := time.Now().Add(tokens.TTL)
	claims := tokens.New(user.ID, user.Username, roles, permissions, expiresAt)
	token, err := tokens.Sign(claims, s.Secret)
	if err != nil {
		l.Error("token signing failed", "error", err)
		return nil, apperr.ErrInternal
	}

	l.Info("login successful", "user_id", user.ID, "role", claims.Role)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: &user, Claims: claims}, nil
}

// ChangePassword verifies the current password before storing the new hash
// and clears the forced-change flag.
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, current, updated string) error {
	if current == "" || updated == "" {
		return apperr.ErrNoCredentials
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrNotFound
		}
		return err
	}
	if !hash.CheckPassword(user.PasswordHash, current) {
		return apperr.ErrInvalidCredentials
	}

	pwHash, err := hash.HashPassword(updated)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(&user).
		Updates(map[string]any{"password_hash": pwHash, "force_password_change": false}).Error
}
