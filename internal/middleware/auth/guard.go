// Package auth provides the request gates: authenticate from a session
// token, then optionally require role or permission membership. Routes
// compose the stages as an ordered pipeline; any failing gate is terminal
// for the request.
package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hvkoch/verleihsystem/internal/apperr"
	"github.com/hvkoch/verleihsystem/internal/authz"
	"github.com/hvkoch/verleihsystem/internal/tokens"
)

const (
	CtxClaims      = "claims"
	CtxUserID      = "user_id"
	CtxUsername    = "username"
	CtxRole        = "role"
	CtxRoles       = "roles"
	CtxPermissions = "permissions"
)

type Guard struct {
	Secret []byte
}

func NewGuard(secret []byte) *Guard {
	return &Guard{Secret: secret}
}

// Authenticate extracts the token from the Authorization header, falling
// back to the token query parameter (browser-initiated downloads cannot
// set headers), verifies it and attaches the claims to the request.
func (g *Guard) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := extractToken(c)
		if raw == "" {
			return apperr.HTTPError(apperr.ErrNotAuthenticated)
		}

		claims, err := tokens.Parse(raw, g.Secret)
		if err != nil {
			return apperr.HTTPError(err)
		}

		c.Set(CtxClaims, claims)
		c.Set(CtxUserID, claims.UserID())
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxRoles, claims.Roles)
		c.Set(CtxPermissions, claims.Permissions)

		return next(c)
	}
}

// RequireRole allows the request when the caller's role set intersects the
// allow-list. Comparison is case-insensitive and treats "admin" and
// "Administrator" as the same role.
func (g *Guard) RequireRole(allowed ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return apperr.HTTPError(apperr.ErrNotAuthenticated)
			}
			if !authz.RoleSetsIntersect(claims.Roles, allowed) {
				return apperr.HTTPError(apperr.ErrInsufficientRole)
			}
			return next(c)
		}
	}
}

// RequirePermission allows the request when the caller holds any of the
// required permissions (OR semantics). Administrators pass regardless of
// their assignments, as does anyone holding the "all" wildcard.
func (g *Guard) RequirePermission(required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return apperr.HTTPError(apperr.ErrNotAuthenticated)
			}
			for _, role := range claims.Roles {
				if authz.IsAdministrator(role) {
					return next(c)
				}
			}
			if authz.HasWildcard(claims.Permissions) {
				return next(c)
			}
			if authz.Intersects(claims.Permissions, required) {
				return next(c)
			}
			return apperr.HTTPError(apperr.ErrInsufficientPermission)
		}
	}
}

// ClaimsFrom returns the claims Authenticate attached, or nil when the
// request never passed stage one.
func ClaimsFrom(c echo.Context) *tokens.Claims {
	claims, _ := c.Get(CtxClaims).(*tokens.Claims)
	return claims
}

func extractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return token
	}
	return c.QueryParam("token")
}
