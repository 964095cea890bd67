package handler

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/dmarkova/taskhub/internal/config"
    "github.com/dmarkova/taskhub/internal/model"
    "github.com/dmarkova/taskhub/internal/queue"
    "github.com/dmarkova/taskhub/internal/repository"
    "github.com/dmarkova/taskhub/internal/service"
    "github.com/dmarkova/taskhub/internal/utils"
)

// AuthHandler bundles dependencies for signup and session endpoints.
type AuthHandler struct {
    Cfg     config.Config
    Log     *zap.Logger
    Tenants *repository.TenantRepo
    Users   *repository.UserRepo
    Audit   *service.AuditPublisher
}

func NewAuthHandler(cfg config.Config, log *zap.Logger, t *repository.TenantRepo, u *repository.UserRepo, a *service.AuditPublisher) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Log: log, Tenants: t, Users: u, Audit: a}
}

// ----- DTOs -----

type registerTenantReq struct {
    TenantName    string `json:"tenantName"`
    Subdomain     string `json:"subdomain"`
    AdminEmail    string `json:"adminEmail"`
    AdminPassword string `json:"adminPassword"`
    AdminFullName string `json:"adminFullName"`
}

type loginReq struct {
    Email           string `json:"email"`
    Password        string `json:"password"`
    TenantSubdomain string `json:"tenantSubdomain"`
    TenantID        string `json:"tenantId"`
}

type loginResp struct {
    Token     string      `json:"token"`
    ExpiresIn int         `json:"expiresIn"` // seconds
    User      userJSON    `json:"user"`
    Tenant    *tenantJSON `json:"tenant,omitempty"`
}

// RegisterTenant provisions a new tenant together with its first admin in
// one transaction.  New tenants start on the free plan.
func (h *AuthHandler) RegisterTenant(c echo.Context) error {
    var req registerTenantReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    req.TenantName = strings.TrimSpace(req.TenantName)
    req.Subdomain = strings.ToLower(strings.TrimSpace(req.Subdomain))
    req.AdminEmail = utils.NormalizeEmail(req.AdminEmail)
    req.AdminFullName = strings.TrimSpace(req.AdminFullName)

    if req.TenantName == "" || req.AdminFullName == "" {
        return fail(c, http.StatusBadRequest, "tenantName and adminFullName are required")
    }
    if !utils.IsValidSubdomain(req.Subdomain) {
        return fail(c, http.StatusBadRequest, "Invalid subdomain")
    }
    if !utils.IsValidEmail(req.AdminEmail) {
        return fail(c, http.StatusBadRequest, "Invalid email address")
    }
    if !utils.IsValidPassword(req.AdminPassword) {
        return fail(c, http.StatusBadRequest, "Password must be at least 8 characters")
    }

    hash, err := utils.HashPassword(req.AdminPassword, h.Cfg.BcryptCost)
    if err != nil {
        return respondError(c, h.Log, err)
    }

    limits := model.LimitsFor(model.PlanFree)
    tenant := model.Tenant{
        ID:          utils.NewID(),
        Name:        req.TenantName,
        Subdomain:   req.Subdomain,
        Status:      model.TenantActive,
        Plan:        model.PlanFree,
        MaxUsers:    limits.MaxUsers,
        MaxProjects: limits.MaxProjects,
    }
    admin := model.User{
        ID:           utils.NewID(),
        TenantID:     &tenant.ID,
        Email:        req.AdminEmail,
        PasswordHash: hash,
        FullName:     req.AdminFullName,
        Role:         model.RoleTenantAdmin,
        IsActive:     true,
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    if err := h.Tenants.CreateWithAdmin(ctx, &tenant, &admin); err != nil {
        return respondError(c, h.Log, err)
    }

    return okData(c, http.StatusCreated, echo.Map{
        "tenant":    toTenantJSON(tenant),
        "adminUser": toUserJSON(admin),
    })
}

// Login verifies credentials and issues a signed access token.  With a
// tenant reference the lookup is tenant-scoped; without one only the
// platform super_admin may log in.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    req.Email = utils.NormalizeEmail(req.Email)
    if req.Email == "" || req.Password == "" {
        return fail(c, http.StatusBadRequest, "email and password are required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    var user model.User
    var tenant *model.Tenant
    switch {
    case req.TenantSubdomain != "" || req.TenantID != "":
        var t model.Tenant
        var err error
        if req.TenantID != "" {
            t, err = h.Tenants.GetByID(ctx, req.TenantID)
        } else {
            t, err = h.Tenants.GetBySubdomain(ctx, strings.ToLower(req.TenantSubdomain))
        }
        if err != nil {
            return respondError(c, h.Log, err)
        }
        if t.Status != model.TenantActive {
            return fail(c, http.StatusForbidden, "Tenant is not active")
        }
        u, err := h.Users.GetByEmailInTenant(ctx, t.ID, req.Email)
        if err != nil {
            // Unknown email and wrong password are indistinguishable.
            return fail(c, http.StatusUnauthorized, "Invalid credentials")
        }
        user, tenant = u, &t
    default:
        u, err := h.Users.GetSuperAdminByEmail(ctx, req.Email)
        if err != nil {
            return fail(c, http.StatusUnauthorized, "Invalid credentials")
        }
        user = u
    }

    if !user.IsActive {
        return fail(c, http.StatusForbidden, "Account is deactivated")
    }
    if !utils.VerifyPassword(user.PasswordHash, req.Password) {
        return fail(c, http.StatusUnauthorized, "Invalid credentials")
    }

    tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, user.ID, user.TenantID, string(user.Role), h.Cfg.TokenTTLHrs)
    if err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionLogin,
        ActorID:    user.ID,
        TenantID:   user.TenantID,
        EntityType: "user",
        EntityID:   user.ID,
    })

    resp := loginResp{
        Token:     tok.Token,
        ExpiresIn: h.Cfg.TokenTTLHrs * 3600,
        User:      toUserJSON(user),
    }
    if tenant != nil {
        tj := toTenantJSON(*tenant)
        resp.Tenant = &tj
    }
    return okData(c, http.StatusOK, resp)
}

// Me returns the authenticated user plus its tenant snapshot.
func (h *AuthHandler) Me(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    user, err := h.Users.GetByID(ctx, p.UserID)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    out := echo.Map{"user": toUserJSON(user)}
    if user.TenantID != nil {
        t, err := h.Tenants.GetByID(ctx, *user.TenantID)
        if err != nil {
            return respondError(c, h.Log, err)
        }
        out["tenant"] = toTenantJSON(t)
    }
    return okData(c, http.StatusOK, out)
}

// Logout is stateless: tokens simply expire.  The endpoint exists so
// clients have a hook and the action lands in the audit stream.
func (h *AuthHandler) Logout(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    h.Audit.Publish(c.Request().Context(), queue.AuditEvent{
        Action:     queue.ActionLogout,
        ActorID:    p.UserID,
        TenantID:   p.TenantID,
        EntityType: "user",
        EntityID:   p.UserID,
    })
    return okMessage(c, http.StatusOK, "Logged out")
}
