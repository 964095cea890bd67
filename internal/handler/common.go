// Package handler implements the HTTP endpoints.  Every response uses the
// same envelope: {"success": bool, "message"?, "data"?, "pagination"?}.
package handler

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/dmarkova/taskhub/internal/apperr"
    "github.com/dmarkova/taskhub/internal/auth"
    "github.com/dmarkova/taskhub/internal/middleware"
    "github.com/dmarkova/taskhub/internal/model"
)

// dbTimeout bounds every database round trip made from a handler.
const dbTimeout = 5 * time.Second

// defaultPageLimit applies when the client sends no limit.
const defaultPageLimit = 10

// maxPageLimit caps the page size.
const maxPageLimit = 100

// pageMeta is the pagination block attached to list responses.
type pageMeta struct {
    Page       int `json:"page"`
    Limit      int `json:"limit"`
    Total      int `json:"total"`
    TotalPages int `json:"totalPages"`
}

func newPageMeta(page, limit, total int) pageMeta {
    pages := total / limit
    if total%limit != 0 {
        pages++
    }
    return pageMeta{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// parsePaging reads ?page= and ?limit= with clamping: page floors at 1,
// limit is forced into [1, maxPageLimit].
func parsePaging(c echo.Context) (page, limit int) {
    page, _ = strconv.Atoi(c.QueryParam("page"))
    if page < 1 {
        page = 1
    }
    limit, _ = strconv.Atoi(c.QueryParam("limit"))
    if limit < 1 {
        limit = defaultPageLimit
    }
    if limit > maxPageLimit {
        limit = maxPageLimit
    }
    return page, limit
}

func okData(c echo.Context, status int, data interface{}) error {
    return c.JSON(status, echo.Map{"success": true, "data": data})
}

func okMessage(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"success": true, "message": msg})
}

func okPaged(c echo.Context, data interface{}, m pageMeta) error {
    return c.JSON(http.StatusOK, echo.Map{"success": true, "data": data, "pagination": m})
}

func fail(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"success": false, "message": msg})
}

// respondError maps repository and validation errors onto the error
// taxonomy: 404 unknown id, 403 denied, 400 bad input, 409 duplicates and
// plan limits, 500 for everything else.
func respondError(c echo.Context, log *zap.Logger, err error) error {
    var v *apperr.Validation
    var lim *apperr.LimitExceeded
    switch {
    case errors.Is(err, apperr.ErrNotFound):
        return fail(c, http.StatusNotFound, "Resource not found")
    case errors.Is(err, apperr.ErrAccessDenied):
        return fail(c, http.StatusForbidden, "Access denied")
    case errors.As(err, &v):
        return fail(c, http.StatusBadRequest, v.Msg)
    case errors.As(err, &lim):
        return fail(c, http.StatusConflict, lim.Error())
    case errors.Is(err, apperr.ErrConflict):
        return fail(c, http.StatusConflict, "Resource already exists")
    }
    log.Error("request failed",
        zap.String("method", c.Request().Method),
        zap.String("path", c.Path()),
        zap.Error(err))
    return fail(c, http.StatusInternalServerError, "Internal server error")
}

// principal pulls the authenticated principal set by the middleware.  A
// miss means a route was registered outside the protected group.
func principal(c echo.Context) (auth.Principal, error) {
    p, ok := middleware.GetPrincipal(c)
    if !ok {
        return auth.Principal{}, fail(c, http.StatusUnauthorized, "Authentication required")
    }
    return p, nil
}

// denied records the denial in metrics and answers with a uniform 403.
func denied(c echo.Context, action auth.Action, d auth.Decision) error {
    middleware.CountAuthDenial(action.String(), string(d.Reason))
    return fail(c, http.StatusForbidden, "Access denied")
}

// optString decodes a nullable optional JSON field.  Absent yields
// (nil, false); an explicit null yields (nil, true); a string value
// yields (&v, false).  The distinction matters for fields like a task's
// assignee, where null means "unassign" and absent means "leave alone".
func optString(raw json.RawMessage) (val *string, null bool, err error) {
    if raw == nil {
        return nil, false, nil
    }
    if string(raw) == "null" {
        return nil, true, nil
    }
    var s string
    if err := json.Unmarshal(raw, &s); err != nil {
        return nil, false, err
    }
    return &s, false, nil
}

// ----- response shapes -----

type userJSON struct {
    ID        string    `json:"id"`
    TenantID  *string   `json:"tenantId"`
    Email     string    `json:"email"`
    FullName  string    `json:"fullName"`
    Role      string    `json:"role"`
    IsActive  bool      `json:"isActive"`
    CreatedAt time.Time `json:"createdAt"`
    UpdatedAt time.Time `json:"updatedAt"`
}

func toUserJSON(u model.User) userJSON {
    return userJSON{
        ID:        u.ID,
        TenantID:  u.TenantID,
        Email:     u.Email,
        FullName:  u.FullName,
        Role:      string(u.Role),
        IsActive:  u.IsActive,
        CreatedAt: u.CreatedAt,
        UpdatedAt: u.UpdatedAt,
    }
}

type tenantJSON struct {
    ID          string    `json:"id"`
    Name        string    `json:"name"`
    Subdomain   string    `json:"subdomain"`
    Status      string    `json:"status"`
    Plan        string    `json:"subscriptionPlan"`
    MaxUsers    int       `json:"maxUsers"`
    MaxProjects int       `json:"maxProjects"`
    CreatedAt   time.Time `json:"createdAt"`
    UpdatedAt   time.Time `json:"updatedAt"`
}

func toTenantJSON(t model.Tenant) tenantJSON {
    return tenantJSON{
        ID:          t.ID,
        Name:        t.Name,
        Subdomain:   t.Subdomain,
        Status:      string(t.Status),
        Plan:        string(t.Plan),
        MaxUsers:    t.MaxUsers,
        MaxProjects: t.MaxProjects,
        CreatedAt:   t.CreatedAt,
        UpdatedAt:   t.UpdatedAt,
    }
}

type projectJSON struct {
    ID          string    `json:"id"`
    TenantID    string    `json:"tenantId"`
    Name        string    `json:"name"`
    Description *string   `json:"description"`
    Status      string    `json:"status"`
    CreatedBy   string    `json:"createdBy"`
    CreatedAt   time.Time `json:"createdAt"`
    UpdatedAt   time.Time `json:"updatedAt"`
}

func toProjectJSON(p model.Project) projectJSON {
    return projectJSON{
        ID:          p.ID,
        TenantID:    p.TenantID,
        Name:        p.Name,
        Description: p.Description,
        Status:      string(p.Status),
        CreatedBy:   p.CreatedBy,
        CreatedAt:   p.CreatedAt,
        UpdatedAt:   p.UpdatedAt,
    }
}

type taskJSON struct {
    ID          string     `json:"id"`
    ProjectID   string     `json:"projectId"`
    TenantID    string     `json:"tenantId"`
    Title       string     `json:"title"`
    Description *string    `json:"description"`
    Status      string     `json:"status"`
    Priority    string     `json:"priority"`
    AssignedTo  *string    `json:"assignedTo"`
    DueDate     *time.Time `json:"dueDate"`
    CreatedBy   string     `json:"createdBy"`
    CreatedAt   time.Time  `json:"createdAt"`
    UpdatedAt   time.Time  `json:"updatedAt"`
}

func toTaskJSON(t model.Task) taskJSON {
    return taskJSON{
        ID:          t.ID,
        ProjectID:   t.ProjectID,
        TenantID:    t.TenantID,
        Title:       t.Title,
        Description: t.Description,
        Status:      string(t.Status),
        Priority:    string(t.Priority),
        AssignedTo:  t.AssignedTo,
        DueDate:     t.DueDate,
        CreatedBy:   t.CreatedBy,
        CreatedAt:   t.CreatedAt,
        UpdatedAt:   t.UpdatedAt,
    }
}
