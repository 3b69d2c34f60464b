// Package tokens issues and verifies the signed session tokens that carry
// identity and authorization claims between login and every later request.
package tokens

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hvkoch/verleihsystem/internal/apperr"
)

// TTL is the fixed validity window. Tokens are never refreshed; after
// expiry the client has to log in again.
const TTL = 24 * time.Hour

type Claims struct {
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim back into the numeric user id.
func (c *Claims) UserID() uint {
	id, _ := strconv.ParseUint(c.Subject, 10, 64)
	return uint(id)
}

func New(userID uint, username string, roles, permissions []string, expiresAt time.Time) Claims {
	primary := ""
	if len(roles) > 0 {
		primary = roles[0]
	}
	return Claims{
		Username:    username,
		Role:        primary,
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
}

func Sign(claims Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Parse verifies signature and expiry and maps every failure onto one of
// the rejection kinds the guard surfaces: apperr.ErrTokenExpired,
// apperr.ErrInvalidToken or apperr.ErrInternal.
func Parse(tokenStr string, secret []byte) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperr.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, apperr.ErrInvalidToken
		default:
			return nil, apperr.ErrInternal
		}
	}
	if !tkn.Valid {
		return nil, apperr.ErrInvalidToken
	}
	return &claims, nil
}
