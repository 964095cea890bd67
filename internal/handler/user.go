package handler

import (
    "context"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/dmarkova/taskhub/internal/auth"
    "github.com/dmarkova/taskhub/internal/model"
    "github.com/dmarkova/taskhub/internal/queue"
    "github.com/dmarkova/taskhub/internal/repository"
    "github.com/dmarkova/taskhub/internal/service"
)

// UserHandler bundles dependencies for direct user endpoints.
type UserHandler struct {
    Log   *zap.Logger
    Users *repository.UserRepo
    Audit *service.AuditPublisher
}

func NewUserHandler(log *zap.Logger, u *repository.UserRepo, a *service.AuditPublisher) *UserHandler {
    return &UserHandler{Log: log, Users: u, Audit: a}
}

// visibleTo reports whether the principal may learn that the target user
// exists at all.  Cross-tenant targets are invisible; the answer for them
// is the same 404 a random id would get.
func visibleTo(p auth.Principal, target model.User) bool {
    if p.IsSuperAdmin() || p.UserID == target.ID {
        return true
    }
    return p.TenantID != nil && target.TenantID != nil && *p.TenantID == *target.TenantID
}

type userUpdateReq struct {
    FullName *string `json:"fullName"`
    Role     *string `json:"role"`
    IsActive *bool   `json:"isActive"`
}

// Update changes a user.  Users edit their own fullName; admins of the
// target's tenant also control role and isActive.  Changing one's own
// role or deactivating oneself is always refused.
func (h *UserHandler) Update(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    id := c.Param("userId")

    var req userUpdateReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    if req.FullName == nil && req.Role == nil && req.IsActive == nil {
        return fail(c, http.StatusBadRequest, "No fields to update")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    target, err := h.Users.GetByID(ctx, id)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    if !visibleTo(p, target) {
        return fail(c, http.StatusNotFound, "Resource not found")
    }

    var newRole *model.Role
    if req.Role != nil {
        r, ok := model.ParseRole(*req.Role)
        if !ok || r == model.RoleSuperAdmin {
            return fail(c, http.StatusBadRequest, "Invalid role")
        }
        newRole = &r
    }

    self := p.UserID == target.ID
    res := auth.Resource{
        User:            &auth.UserRef{ID: target.ID, TenantID: target.TenantID},
        UserAccess:      req.Role != nil || req.IsActive != nil,
        ChangesOwnRole:  self && newRole != nil && *newRole != target.Role,
        DeactivatesSelf: self && req.IsActive != nil && !*req.IsActive,
    }
    if d := auth.Authorize(p, auth.UpdateUser, res); !d.Allowed {
        return denied(c, auth.UpdateUser, d)
    }

    upd := repository.UserUpdate{Role: newRole, IsActive: req.IsActive}
    if req.FullName != nil {
        name := strings.TrimSpace(*req.FullName)
        if name == "" {
            return fail(c, http.StatusBadRequest, "fullName must not be empty")
        }
        upd.FullName = &name
    }

    fresh, err := h.Users.Update(ctx, id, upd)
    if err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionUpdateUser,
        ActorID:    p.UserID,
        TenantID:   target.TenantID,
        EntityType: "user",
        EntityID:   target.ID,
    })
    return okData(c, http.StatusOK, toUserJSON(fresh))
}

// Delete removes a user after unassigning their tasks.  Nobody deletes
// their own account, whatever their role.
func (h *UserHandler) Delete(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    id := c.Param("userId")

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    target, err := h.Users.GetByID(ctx, id)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    if !visibleTo(p, target) {
        return fail(c, http.StatusNotFound, "Resource not found")
    }

    res := auth.Resource{User: &auth.UserRef{ID: target.ID, TenantID: target.TenantID}}
    if d := auth.Authorize(p, auth.DeleteUser, res); !d.Allowed {
        return denied(c, auth.DeleteUser, d)
    }

    if err := h.Users.Delete(ctx, id); err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionDeleteUser,
        ActorID:    p.UserID,
        TenantID:   target.TenantID,
        EntityType: "user",
        EntityID:   target.ID,
    })
    return okMessage(c, http.StatusOK, "User deleted")
}
