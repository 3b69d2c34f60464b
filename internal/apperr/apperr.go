// Package apperr holds the error kinds the API surfaces to clients and
// their HTTP status mapping. Handlers translate with HTTPError, services
// and repositories return the sentinels directly.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrNoCredentials      = errors.New("missing credentials")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")

	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrNotAuthenticated = errors.New("not authenticated")

	ErrInsufficientRole       = errors.New("insufficient role")
	ErrInsufficientPermission = errors.New("insufficient permission")

	ErrDuplicateRoleName  = errors.New("role name already taken")
	ErrSystemRole         = errors.New("system role cannot be deleted")
	ErrLastAdministrator  = errors.New("cannot remove the last active administrator")
	ErrUnknownPermission  = errors.New("unknown permission")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrNotFound           = errors.New("not found")

	ErrInternal = errors.New("internal error")
)

func Status(err error) int {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountDisabled),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInsufficientRole),
		errors.Is(err, ErrInsufficientPermission):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateRoleName),
		errors.Is(err, ErrSystemRole),
		errors.Is(err, ErrLastAdministrator),
		errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownPermission):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// HTTPError converts a service error into the echo error the route layer
// serializes. Unknown errors are reported generically so internals never
// leak to clients.
func HTTPError(err error) *echo.HTTPError {
	code := Status(err)
	if code == http.StatusInternalServerError {
		return echo.NewHTTPError(code, ErrInternal.Error())
	}
	return echo.NewHTTPError(code, err.Error())
}
