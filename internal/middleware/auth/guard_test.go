package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hvkoch/verleihsystem/internal/authz"
	"github.com/hvkoch/verleihsystem/internal/tokens"
)

var testSecret = []byte("test-jwt-secret")

func signToken(t *testing.T, roles, permissions []string) string {
	t.Helper()
	claims := tokens.New(7, "marie", roles, permissions, time.Now().Add(tokens.TTL))
	signed, err := tokens.Sign(claims, testSecret)
	require.NoError(t, err)
	return signed
}

// serve runs a request through Authenticate plus any extra gates and a
// handler that records whether it was reached.
func serve(t *testing.T, req *http.Request, gates ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	handler := func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	}
	for i := len(gates) - 1; i >= 0; i-- {
		handler = gates[i](handler)
	}

	guard := NewGuard(testSecret)
	if err := guard.Authenticate(handler)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, reached
}

func TestAuthenticate_NoToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, reached := serve(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthenticate_BearerHeader(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signToken(t, []string{authz.RoleLehrer}, nil))
	rec, reached := serve(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestAuthenticate_QueryParamFallback(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/?token="+signToken(t, []string{authz.RoleLehrer}, nil), nil)
	rec, reached := serve(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestAuthenticate_HeaderWinsOverQuery(t *testing.T) {
	t.Parallel()

	// A valid header token is used even when the query carries garbage.
	req := httptest.NewRequest(http.MethodGet, "/?token=garbage", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signToken(t, []string{authz.RoleLehrer}, nil))
	rec, _ := serve(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	t.Parallel()

	claims := tokens.New(7, "marie", []string{authz.RoleLehrer}, nil, time.Now().Add(-time.Minute))
	signed, err := tokens.Sign(claims, testSecret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signed)
	rec, reached := serve(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired")
	assert.False(t, reached)
}

func TestAuthenticate_TamperedToken(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signToken(t, []string{authz.RoleLehrer}, nil)+"x")
	rec, reached := serve(t, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestAuthenticate_SetsContextValues(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization,
		"Bearer "+signToken(t, []string{authz.RoleMediencoach, authz.RoleLehrer}, []string{authz.PermAssetsManage}))
	c := e.NewContext(req, httptest.NewRecorder())

	guard := NewGuard(testSecret)
	err := guard.Authenticate(func(c echo.Context) error {
		assert.EqualValues(t, 7, c.Get(CtxUserID))
		assert.Equal(t, "marie", c.Get(CtxUsername))
		assert.Equal(t, authz.RoleMediencoach, c.Get(CtxRole))
		assert.Equal(t, []string{authz.RoleMediencoach, authz.RoleLehrer}, c.Get(CtxRoles))
		assert.Equal(t, []string{authz.PermAssetsManage}, c.Get(CtxPermissions))
		require.NotNil(t, ClaimsFrom(c))
		return nil
	})(c)
	require.NoError(t, err)
}

func TestRequireRole_AdminSynonym(t *testing.T) {
	t.Parallel()

	guard := NewGuard(testSecret)

	// Token carries "Administrator", allow-list says "admin".
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signToken(t, []string{authz.RoleAdministrator}, nil))
	rec, _ := serve(t, req, guard.RequireRole("admin"))
	assert.Equal(t, http.StatusOK, rec.Code)

	// And the other way round.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signToken(t, []string{"admin"}, nil))
	rec, _ = serve(t, req, guard.RequireRole(authz.RoleAdministrator))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_SecondaryRoleCounts(t *testing.T) {
	t.Parallel()

	guard := NewGuard(testSecret)

	// Mediencoach is not the primary role but still satisfies the gate.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization,
		"Bearer "+signToken(t, []string{authz.RoleAdministrator, authz.RoleMediencoach}, nil))
	rec, _ := serve(t, req, guard.RequireRole(authz.RoleMediencoach))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_Forbidden(t *testing.T) {
	t.Parallel()

	guard := NewGuard(testSecret)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signToken(t, []string{authz.RoleSchueler}, nil))
	rec, reached := serve(t, req, guard.RequireRole(authz.RoleAdministrator, authz.RoleMediencoach))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestRequireRole_WithoutAuthenticate(t *testing.T) {
	t.Parallel()

	// Misordered pipeline: the role gate before Authenticate must reject,
	// not panic.
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	guard := NewGuard(testSecret)
	err := guard.RequireRole(authz.RoleAdministrator)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})(c)
	require.Error(t, err)
	e.HTTPErrorHandler(err, c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequirePermission_DirectMatch(t *testing.T) {
	t.Parallel()

	guard := NewGuard(testSecret)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization,
		"Bearer "+signToken(t, []string{authz.RoleMediencoach}, []string{authz.PermAssetsManage, authz.PermLendingsManage}))
	rec, _ := serve(t, req, guard.RequirePermission(authz.PermAssetsManage))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermission_OrSemantics(t *testing.T) {
	t.Parallel()

	guard := NewGuard(testSecret)

	// Holding either of the listed permissions is enough.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization,
		"Bearer "+signToken(t, []string{authz.RoleLehrer}, []string{authz.PermAssetsView}))
	rec, _ := serve(t, req, guard.RequirePermission(authz.PermAssetsView, authz.PermAssetsManage))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermission_Denied(t *testing.T) {
	t.Parallel()

	guard := NewGuard(testSecret)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization,
		"Bearer "+signToken(t, []string{authz.RoleMediencoach}, []string{authz.PermAssetsManage}))
	rec, reached := serve(t, req, guard.RequirePermission(authz.PermUsersManage))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestRequirePermission_WildcardBypass(t *testing.T) {
	t.Parallel()

	guard := NewGuard(testSecret)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization,
		"Bearer "+signToken(t, []string{"Hausmeister"}, []string{authz.PermAll}))
	rec, _ := serve(t, req, guard.RequirePermission(authz.PermUsersManage))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermission_AdministratorBypass(t *testing.T) {
	t.Parallel()

	guard := NewGuard(testSecret)

	// Administrator role passes every permission gate even with an empty
	// permission list in the token.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signToken(t, []string{"admin"}, nil))
	rec, _ := serve(t, req, guard.RequirePermission(authz.PermUsersManage))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermission_DirectGrantScenario(t *testing.T) {
	t.Parallel()

	guard := NewGuard(testSecret)

	// A teacher with an individually granted logs.view reaches the log
	// viewer but still cannot manage users.
	token := signToken(t, []string{authz.RoleLehrer},
		[]string{authz.PermAssetsView, authz.PermLendingsView, authz.PermLogsView})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec, _ := serve(t, req, guard.RequirePermission(authz.PermLogsView))
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec, _ = serve(t, req, guard.RequirePermission(authz.PermUsersManage))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
