package handler

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/dmarkova/taskhub/internal/auth"
    "github.com/dmarkova/taskhub/internal/config"
    "github.com/dmarkova/taskhub/internal/model"
    "github.com/dmarkova/taskhub/internal/queue"
    "github.com/dmarkova/taskhub/internal/repository"
    "github.com/dmarkova/taskhub/internal/service"
    "github.com/dmarkova/taskhub/internal/utils"
)

// TenantHandler bundles dependencies for tenant administration endpoints.
type TenantHandler struct {
    Cfg     config.Config
    Log     *zap.Logger
    Tenants *repository.TenantRepo
    Users   *repository.UserRepo
    Audit   *service.AuditPublisher
}

func NewTenantHandler(cfg config.Config, log *zap.Logger, t *repository.TenantRepo, u *repository.UserRepo, a *service.AuditPublisher) *TenantHandler {
    return &TenantHandler{Cfg: cfg, Log: log, Tenants: t, Users: u, Audit: a}
}

type tenantWithStatsJSON struct {
    tenantJSON
    Stats model.TenantStats `json:"stats"`
}

// List returns every tenant with aggregate counters.  Super-admin only.
func (h *TenantHandler) List(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    if d := auth.Authorize(p, auth.ListTenantsGlobal, auth.Resource{}); !d.Allowed {
        return denied(c, auth.ListTenantsGlobal, d)
    }

    page, limit := parsePaging(c)
    f := repository.TenantListFilter{Page: page, Limit: limit}
    if s := c.QueryParam("status"); s != "" {
        st, ok := model.ParseTenantStatus(s)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid status filter")
        }
        f.Status = &st
    }
    if s := c.QueryParam("plan"); s != "" {
        pl, ok := model.ParsePlan(s)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid plan filter")
        }
        f.Plan = &pl
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    rows, total, err := h.Tenants.List(ctx, f)
    if err != nil {
        return respondError(c, h.Log, err)
    }

    out := make([]tenantWithStatsJSON, 0, len(rows))
    for _, r := range rows {
        out = append(out, tenantWithStatsJSON{
            tenantJSON: toTenantJSON(r.Tenant),
            Stats:      r.TenantStats,
        })
    }
    return okPaged(c, out, newPageMeta(page, limit, total))
}

// Get returns one tenant plus its counters.  Members see their own
// tenant; the super_admin sees any.
func (h *TenantHandler) Get(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    id := c.Param("tenantId")

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    // Outsiders get the same 404 as a missing id, so tenant ids never
    // leak across tenants.
    if !p.IsSuperAdmin() && !p.InTenant(id) {
        return fail(c, http.StatusNotFound, "Resource not found")
    }

    t, err := h.Tenants.GetByID(ctx, id)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    if d := auth.Authorize(p, auth.ViewTenant, auth.Resource{Tenant: &auth.TenantRef{ID: t.ID}}); !d.Allowed {
        return denied(c, auth.ViewTenant, d)
    }
    stats, err := h.Tenants.Stats(ctx, t.ID)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return okData(c, http.StatusOK, tenantWithStatsJSON{tenantJSON: toTenantJSON(t), Stats: stats})
}

type tenantUpdateReq struct {
    Name        *string `json:"name"`
    Status      *string `json:"status"`
    Plan        *string `json:"subscriptionPlan"`
    MaxUsers    *int    `json:"maxUsers"`
    MaxProjects *int    `json:"maxProjects"`
}

// Update changes tenant settings.  A tenant_admin may rename its own
// tenant; status, plan and limits are reserved for the super_admin and a
// request touching them is refused outright, never silently trimmed.
func (h *TenantHandler) Update(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    id := c.Param("tenantId")

    var req tenantUpdateReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    if req.Name == nil && req.Status == nil && req.Plan == nil && req.MaxUsers == nil && req.MaxProjects == nil {
        return fail(c, http.StatusBadRequest, "No fields to update")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    if !p.IsSuperAdmin() && !p.InTenant(id) {
        return fail(c, http.StatusNotFound, "Resource not found")
    }
    t, err := h.Tenants.GetByID(ctx, id)
    if err != nil {
        return respondError(c, h.Log, err)
    }

    restricted := req.Status != nil || req.Plan != nil || req.MaxUsers != nil || req.MaxProjects != nil
    res := auth.Resource{Tenant: &auth.TenantRef{ID: t.ID}, TenantRestricted: restricted}
    if d := auth.Authorize(p, auth.UpdateTenant, res); !d.Allowed {
        return denied(c, auth.UpdateTenant, d)
    }

    upd := repository.TenantUpdate{MaxUsers: req.MaxUsers, MaxProjects: req.MaxProjects}
    if req.Name != nil {
        name := strings.TrimSpace(*req.Name)
        if name == "" {
            return fail(c, http.StatusBadRequest, "name must not be empty")
        }
        upd.Name = &name
    }
    if req.Status != nil {
        st, ok := model.ParseTenantStatus(*req.Status)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid status")
        }
        upd.Status = &st
    }
    if req.Plan != nil {
        pl, ok := model.ParsePlan(*req.Plan)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid subscription plan")
        }
        upd.Plan = &pl
        // A plan change resets the ceilings unless the request pins them.
        limits := model.LimitsFor(pl)
        if upd.MaxUsers == nil {
            upd.MaxUsers = &limits.MaxUsers
        }
        if upd.MaxProjects == nil {
            upd.MaxProjects = &limits.MaxProjects
        }
    }

    fresh, err := h.Tenants.Update(ctx, id, upd)
    if err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionUpdateTenant,
        ActorID:    p.UserID,
        TenantID:   &id,
        EntityType: "tenant",
        EntityID:   id,
    })
    return okData(c, http.StatusOK, toTenantJSON(fresh))
}

type addUserReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
    FullName string `json:"fullName"`
    Role     string `json:"role"`
}

// AddUser creates a user inside a tenant, guarded by the tenant's
// max_users ceiling.
func (h *TenantHandler) AddUser(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    tenantID := c.Param("tenantId")

    var req addUserReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    req.Email = utils.NormalizeEmail(req.Email)
    req.FullName = strings.TrimSpace(req.FullName)

    if !utils.IsValidEmail(req.Email) {
        return fail(c, http.StatusBadRequest, "Invalid email address")
    }
    if !utils.IsValidPassword(req.Password) {
        return fail(c, http.StatusBadRequest, "Password must be at least 8 characters")
    }
    if req.FullName == "" {
        return fail(c, http.StatusBadRequest, "fullName is required")
    }
    role := model.RoleUser
    if req.Role != "" {
        r, ok := model.ParseRole(req.Role)
        if !ok || r == model.RoleSuperAdmin {
            return fail(c, http.StatusBadRequest, "Invalid role")
        }
        role = r
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    if !p.IsSuperAdmin() && !p.InTenant(tenantID) {
        return fail(c, http.StatusNotFound, "Resource not found")
    }
    t, err := h.Tenants.GetByID(ctx, tenantID)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    if d := auth.Authorize(p, auth.AddUserToTenant, auth.Resource{Tenant: &auth.TenantRef{ID: t.ID}}); !d.Allowed {
        return denied(c, auth.AddUserToTenant, d)
    }

    hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    user := model.User{
        ID:           utils.NewID(),
        TenantID:     &t.ID,
        Email:        req.Email,
        PasswordHash: hash,
        FullName:     req.FullName,
        Role:         role,
        IsActive:     true,
    }
    if err := h.Users.CreateInTenant(ctx, &user); err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionCreateUser,
        ActorID:    p.UserID,
        TenantID:   &t.ID,
        EntityType: "user",
        EntityID:   user.ID,
    })
    return okData(c, http.StatusCreated, toUserJSON(user))
}

// ListUsers returns a tenant's users with search and role filters.
func (h *TenantHandler) ListUsers(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    tenantID := c.Param("tenantId")

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    if !p.IsSuperAdmin() && !p.InTenant(tenantID) {
        return fail(c, http.StatusNotFound, "Resource not found")
    }
    t, err := h.Tenants.GetByID(ctx, tenantID)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    if d := auth.Authorize(p, auth.ListTenantUsers, auth.Resource{Tenant: &auth.TenantRef{ID: t.ID}}); !d.Allowed {
        return denied(c, auth.ListTenantUsers, d)
    }

    page, limit := parsePaging(c)
    f := repository.UserListFilter{
        Search: strings.TrimSpace(c.QueryParam("search")),
        Page:   page,
        Limit:  limit,
    }
    if s := c.QueryParam("role"); s != "" {
        r, ok := model.ParseRole(s)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid role filter")
        }
        f.Role = &r
    }

    users, total, err := h.Users.ListByTenant(ctx, t.ID, f)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    out := make([]userJSON, 0, len(users))
    for _, u := range users {
        out = append(out, toUserJSON(u))
    }
    return okPaged(c, out, newPageMeta(page, limit, total))
}
