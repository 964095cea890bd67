// Package router maps the HTTP surface onto the handlers.
package router

import (
    "database/sql"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/dmarkova/taskhub/internal/handler"
    "github.com/dmarkova/taskhub/internal/middleware"
)

// Handlers groups every handler the router wires up.
type Handlers struct {
    Auth    *handler.AuthHandler
    Tenant  *handler.TenantHandler
    User    *handler.UserHandler
    Project *handler.ProjectHandler
    Task    *handler.TaskHandler
}

// RegisterSystem registers the unauthenticated operational endpoints:
// health check and Prometheus metrics.
func RegisterSystem(e *echo.Echo, db *sql.DB) {
    e.GET("/healthz", handler.Health(db))
    e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI registers the application surface under /api.  Signup and
// login are open; everything else requires a bearer token resolved into a
// principal by the middleware.  Middleware in protect is applied to both
// groups, and on the authenticated group it runs after the principal is
// resolved so per-user rate buckets and per-user cache keys see the
// caller rather than an anonymous request.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, protect ...echo.MiddlewareFunc) {
    open := e.Group("/api/auth", protect...)
    open.POST("/register-tenant", h.Auth.RegisterTenant)
    open.POST("/login", h.Auth.Login)

    chain := append([]echo.MiddlewareFunc{middleware.ResolvePrincipal(jwtSecret)}, protect...)
    api := e.Group("/api", chain...)

    api.GET("/auth/me", h.Auth.Me)
    api.POST("/auth/logout", h.Auth.Logout)

    api.GET("/tenants", h.Tenant.List)
    api.GET("/tenants/:tenantId", h.Tenant.Get)
    api.PUT("/tenants/:tenantId", h.Tenant.Update)
    api.POST("/tenants/:tenantId/users", h.Tenant.AddUser)
    api.GET("/tenants/:tenantId/users", h.Tenant.ListUsers)

    api.PUT("/users/:userId", h.User.Update)
    api.DELETE("/users/:userId", h.User.Delete)

    api.POST("/projects", h.Project.Create)
    api.GET("/projects", h.Project.List)
    api.PUT("/projects/:projectId", h.Project.Update)
    api.DELETE("/projects/:projectId", h.Project.Delete)

    api.POST("/projects/:projectId/tasks", h.Task.Create)
    api.GET("/projects/:projectId/tasks", h.Task.List)

    api.PATCH("/tasks/:taskId/status", h.Task.UpdateStatus)
    api.PUT("/tasks/:taskId", h.Task.Update)
    api.DELETE("/tasks/:taskId", h.Task.Delete)
}
