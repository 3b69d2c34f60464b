package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hvkoch/verleihsystem/internal/authz"
	"github.com/hvkoch/verleihsystem/internal/handlers"
	authmw "github.com/hvkoch/verleihsystem/internal/middleware/auth"
)

type Deps struct {
	Guard            *authmw.Guard
	AuthHandler      *handlers.AuthHandler
	UserHandler      *handlers.UserHandler
	RoleHandler      *handlers.RoleHandler
	DeviceHandler    *handlers.DeviceHandler
	ContainerHandler *handlers.ContainerHandler
	LendingHandler   *handlers.LendingHandler
	ReportHandler    *handlers.ReportHandler
	AuditHandler     *handlers.AuditHandler
	SearchHandler    *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	v1.POST("/login", d.AuthHandler.Login)

	// Everything below requires a valid session token.
	private := v1.Group("", d.Guard.Authenticate)

	private.GET("/me", d.AuthHandler.Me)
	private.POST("/password", d.AuthHandler.ChangePassword)
	private.POST("/reports", d.ReportHandler.Create)
	private.GET("/lendings/mine", d.LendingHandler.Mine)

	private.GET("/devices", d.DeviceHandler.List,
		d.Guard.RequirePermission(authz.PermAssetsView, authz.PermAssetsManage))
	private.GET("/devices/:id", d.DeviceHandler.Get,
		d.Guard.RequirePermission(authz.PermAssetsView, authz.PermAssetsManage))
	private.GET("/search", d.SearchHandler.Search,
		d.Guard.RequirePermission(authz.PermAssetsView, authz.PermAssetsManage))

	private.POST("/devices", d.DeviceHandler.Create,
		d.Guard.RequirePermission(authz.PermAssetsManage))
	private.PATCH("/devices/:id", d.DeviceHandler.Update,
		d.Guard.RequirePermission(authz.PermAssetsManage))
	private.DELETE("/devices/:id", d.DeviceHandler.Delete,
		d.Guard.RequirePermission(authz.PermAssetsManage))

	containers := private.Group("/containers",
		d.Guard.RequirePermission(authz.PermContainersManage))
	containers.GET("", d.ContainerHandler.List)
	containers.GET("/:id", d.ContainerHandler.Get)
	containers.POST("", d.ContainerHandler.Create)
	containers.PATCH("/:id", d.ContainerHandler.Update)
	containers.DELETE("/:id", d.ContainerHandler.Delete)

	private.GET("/lendings", d.LendingHandler.List,
		d.Guard.RequirePermission(authz.PermLendingsView, authz.PermLendingsManage))
	private.POST("/lendings", d.LendingHandler.Create,
		d.Guard.RequirePermission(authz.PermLendingsManage))
	private.POST("/lendings/:id/return", d.LendingHandler.Return,
		d.Guard.RequirePermission(authz.PermLendingsManage))

	private.GET("/reports", d.ReportHandler.List,
		d.Guard.RequirePermission(authz.PermReportsManage))
	private.POST("/reports/:id/resolve", d.ReportHandler.Resolve,
		d.Guard.RequirePermission(authz.PermReportsManage))

	private.GET("/logs", d.AuditHandler.List,
		d.Guard.RequirePermission(authz.PermLogsView))

	// User and role administration sits behind a role gate on top of the
	// permission gates, matching the legacy admin area.
	adminArea := d.Guard.RequireRole(authz.RoleAdministrator, authz.RoleMediencoach)

	users := private.Group("/users", adminArea,
		d.Guard.RequirePermission(authz.PermUsersManage))
	users.GET("", d.UserHandler.List)
	users.GET("/:id", d.UserHandler.Get)
	users.POST("", d.UserHandler.Create)
	users.PATCH("/:id", d.UserHandler.Update)
	users.POST("/:id/active", d.UserHandler.SetActive)
	users.DELETE("/:id", d.UserHandler.Delete)
	users.PUT("/:id/roles", d.UserHandler.AssignRoles)
	users.POST("/:id/permissions", d.UserHandler.Grant)
	users.DELETE("/:id/permissions/:permission", d.UserHandler.Revoke)

	roles := private.Group("/roles", adminArea,
		d.Guard.RequirePermission(authz.PermRolesManage))
	roles.GET("", d.RoleHandler.List)
	roles.GET("/permissions", d.RoleHandler.Permissions)
	roles.GET("/:id", d.RoleHandler.Get)
	roles.POST("", d.RoleHandler.Create)
	roles.PATCH("/:id", d.RoleHandler.Update)
	roles.DELETE("/:id", d.RoleHandler.Delete)
}
