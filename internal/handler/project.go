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
    "github.com/dmarkova/taskhub/internal/utils"
)

// ProjectHandler bundles dependencies for project endpoints.
type ProjectHandler struct {
    Log      *zap.Logger
    Projects *repository.ProjectRepo
    Audit    *service.AuditPublisher
}

func NewProjectHandler(log *zap.Logger, pr *repository.ProjectRepo, a *service.AuditPublisher) *ProjectHandler {
    return &ProjectHandler{Log: log, Projects: pr, Audit: a}
}

type projectCreateReq struct {
    Name        string  `json:"name"`
    Description *string `json:"description"`
}

// Create adds a project to the caller's tenant, guarded by the tenant's
// max_projects ceiling.
func (h *ProjectHandler) Create(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    if d := auth.Authorize(p, auth.CreateProject, auth.Resource{}); !d.Allowed {
        return denied(c, auth.CreateProject, d)
    }

    var req projectCreateReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    req.Name = strings.TrimSpace(req.Name)
    if req.Name == "" {
        return fail(c, http.StatusBadRequest, "name is required")
    }

    project := model.Project{
        ID:          utils.NewID(),
        TenantID:    *p.TenantID, // engine guarantees a tenant here
        Name:        req.Name,
        Description: req.Description,
        Status:      model.ProjectActive,
        CreatedBy:   p.UserID,
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    if err := h.Projects.Create(ctx, &project); err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionCreateProject,
        ActorID:    p.UserID,
        TenantID:   p.TenantID,
        EntityType: "project",
        EntityID:   project.ID,
    })
    return okData(c, http.StatusCreated, toProjectJSON(project))
}

type projectListItemJSON struct {
    projectJSON
    TaskCount       int    `json:"taskCount"`
    TenantName      string `json:"tenantName"`
    TenantSubdomain string `json:"tenantSubdomain"`
}

// List returns the caller's projects with task counts; the super_admin
// sees every tenant's projects.
func (h *ProjectHandler) List(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }

    page, limit := parsePaging(c)
    f := repository.ProjectListFilter{
        Search: strings.TrimSpace(c.QueryParam("search")),
        Page:   page,
        Limit:  limit,
    }
    if !p.IsSuperAdmin() {
        f.TenantID = p.TenantID
    }
    if s := c.QueryParam("status"); s != "" {
        st, ok := model.ParseProjectStatus(s)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid status filter")
        }
        f.Status = &st
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()
    rows, total, err := h.Projects.List(ctx, f)
    if err != nil {
        return respondError(c, h.Log, err)
    }

    out := make([]projectListItemJSON, 0, len(rows))
    for _, r := range rows {
        out = append(out, projectListItemJSON{
            projectJSON:     toProjectJSON(r.Project),
            TaskCount:       r.TaskCount,
            TenantName:      r.TenantName,
            TenantSubdomain: r.TenantSubdomain,
        })
    }
    return okPaged(c, out, newPageMeta(page, limit, total))
}

type projectUpdateReq struct {
    Name        *string `json:"name"`
    Description *string `json:"description"`
    Status      *string `json:"status"`
}

// Update edits a project; allowed for its creator or any admin of the
// owning tenant.
func (h *ProjectHandler) Update(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    id := c.Param("projectId")

    var req projectUpdateReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    if req.Name == nil && req.Description == nil && req.Status == nil {
        return fail(c, http.StatusBadRequest, "No fields to update")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    project, err := h.Projects.GetForPrincipal(ctx, id, p.TenantID, p.IsSuperAdmin())
    if err != nil {
        return respondError(c, h.Log, err)
    }
    res := auth.Resource{Project: &auth.ProjectRef{ID: project.ID, TenantID: project.TenantID, CreatedBy: project.CreatedBy}}
    if d := auth.Authorize(p, auth.UpdateProject, res); !d.Allowed {
        return denied(c, auth.UpdateProject, d)
    }

    upd := repository.ProjectUpdate{Description: req.Description}
    if req.Name != nil {
        name := strings.TrimSpace(*req.Name)
        if name == "" {
            return fail(c, http.StatusBadRequest, "name must not be empty")
        }
        upd.Name = &name
    }
    if req.Status != nil {
        st, ok := model.ParseProjectStatus(*req.Status)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid status")
        }
        upd.Status = &st
    }

    fresh, err := h.Projects.Update(ctx, id, upd)
    if err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionUpdateProject,
        ActorID:    p.UserID,
        TenantID:   &project.TenantID,
        EntityType: "project",
        EntityID:   project.ID,
    })
    return okData(c, http.StatusOK, toProjectJSON(fresh))
}

// Delete removes a project and all of its tasks.  Admin of the owning
// tenant only.
func (h *ProjectHandler) Delete(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    id := c.Param("projectId")

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    project, err := h.Projects.GetForPrincipal(ctx, id, p.TenantID, p.IsSuperAdmin())
    if err != nil {
        return respondError(c, h.Log, err)
    }
    res := auth.Resource{Project: &auth.ProjectRef{ID: project.ID, TenantID: project.TenantID, CreatedBy: project.CreatedBy}}
    if d := auth.Authorize(p, auth.DeleteProject, res); !d.Allowed {
        return denied(c, auth.DeleteProject, d)
    }

    if err := h.Projects.Delete(ctx, id); err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionDeleteProject,
        ActorID:    p.UserID,
        TenantID:   &project.TenantID,
        EntityType: "project",
        EntityID:   project.ID,
    })
    return okMessage(c, http.StatusOK, "Project deleted")
}
