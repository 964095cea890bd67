package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/dmarkova/taskhub/internal/auth"
    "github.com/dmarkova/taskhub/internal/model"
    "github.com/dmarkova/taskhub/internal/queue"
    "github.com/dmarkova/taskhub/internal/repository"
    "github.com/dmarkova/taskhub/internal/service"
    "github.com/dmarkova/taskhub/internal/utils"
)

// TaskHandler bundles dependencies for task endpoints.
type TaskHandler struct {
    Log      *zap.Logger
    Tasks    *repository.TaskRepo
    Projects *repository.ProjectRepo
    Audit    *service.AuditPublisher
}

func NewTaskHandler(log *zap.Logger, t *repository.TaskRepo, pr *repository.ProjectRepo, a *service.AuditPublisher) *TaskHandler {
    return &TaskHandler{Log: log, Tasks: t, Projects: pr, Audit: a}
}

// parseDueDate accepts a bare date or a full RFC 3339 timestamp.
func parseDueDate(s string) (time.Time, bool) {
    if t, err := time.Parse("2006-01-02", s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    return time.Time{}, false
}

type taskCreateReq struct {
    Title       string  `json:"title"`
    Description *string `json:"description"`
    Priority    string  `json:"priority"`
    AssignedTo  *string `json:"assignedTo"`
    DueDate     *string `json:"dueDate"`
}

// Create adds a task to a project.  Any member of the project's tenant
// may create; an assignee must belong to the same tenant.
func (h *TaskHandler) Create(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    projectID := c.Param("projectId")

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    project, err := h.Projects.GetForPrincipal(ctx, projectID, p.TenantID, p.IsSuperAdmin())
    if err != nil {
        return respondError(c, h.Log, err)
    }
    res := auth.Resource{Project: &auth.ProjectRef{ID: project.ID, TenantID: project.TenantID, CreatedBy: project.CreatedBy}}
    if d := auth.Authorize(p, auth.CreateTask, res); !d.Allowed {
        return denied(c, auth.CreateTask, d)
    }

    var req taskCreateReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    req.Title = strings.TrimSpace(req.Title)
    if req.Title == "" {
        return fail(c, http.StatusBadRequest, "title is required")
    }
    priority := model.PriorityMedium
    if req.Priority != "" {
        pr, ok := model.ParseTaskPriority(req.Priority)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid priority")
        }
        priority = pr
    }
    var due *time.Time
    if req.DueDate != nil {
        d, ok := parseDueDate(*req.DueDate)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid dueDate")
        }
        due = &d
    }

    task := model.Task{
        ID:          utils.NewID(),
        ProjectID:   project.ID,
        TenantID:    project.TenantID,
        Title:       req.Title,
        Description: req.Description,
        Status:      model.TaskTodo,
        Priority:    priority,
        AssignedTo:  req.AssignedTo,
        DueDate:     due,
        CreatedBy:   p.UserID,
    }
    if err := h.Tasks.Create(ctx, &task); err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionCreateTask,
        ActorID:    p.UserID,
        TenantID:   &project.TenantID,
        EntityType: "task",
        EntityID:   task.ID,
    })
    return okData(c, http.StatusCreated, toTaskJSON(task))
}

type taskListItemJSON struct {
    taskJSON
    AssigneeName *string `json:"assigneeName"`
}

// List returns a project's tasks in board order: priority high to low,
// nearest due date next with undated tasks last, newest first after that.
func (h *TaskHandler) List(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    projectID := c.Param("projectId")

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    project, err := h.Projects.GetForPrincipal(ctx, projectID, p.TenantID, p.IsSuperAdmin())
    if err != nil {
        return respondError(c, h.Log, err)
    }
    res := auth.Resource{Project: &auth.ProjectRef{ID: project.ID, TenantID: project.TenantID, CreatedBy: project.CreatedBy}}
    if d := auth.Authorize(p, auth.ListTasks, res); !d.Allowed {
        return denied(c, auth.ListTasks, d)
    }

    page, limit := parsePaging(c)
    f := repository.TaskListFilter{
        ProjectID: project.ID,
        Search:    strings.TrimSpace(c.QueryParam("search")),
        Page:      page,
        Limit:     limit,
    }
    if s := c.QueryParam("status"); s != "" {
        st, ok := model.ParseTaskStatus(s)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid status filter")
        }
        f.Status = &st
    }
    if s := c.QueryParam("priority"); s != "" {
        pr, ok := model.ParseTaskPriority(s)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid priority filter")
        }
        f.Priority = &pr
    }
    if s := c.QueryParam("assignedTo"); s != "" {
        if !utils.IsValidUUID(s) {
            return fail(c, http.StatusBadRequest, "Invalid assignedTo filter")
        }
        f.AssignedTo = &s
    }

    rows, total, err := h.Tasks.ListByProject(ctx, f)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    out := make([]taskListItemJSON, 0, len(rows))
    for _, r := range rows {
        out = append(out, taskListItemJSON{taskJSON: toTaskJSON(r.Task), AssigneeName: r.AssigneeName})
    }
    return okPaged(c, out, newPageMeta(page, limit, total))
}

type taskStatusReq struct {
    Status string `json:"status"`
}

// UpdateStatus moves a task between board columns.  Allowed for the
// super_admin, an admin of the task's tenant, or its assignee.
func (h *TaskHandler) UpdateStatus(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    id := c.Param("taskId")

    var req taskStatusReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }
    status, ok := model.ParseTaskStatus(req.Status)
    if !ok {
        return fail(c, http.StatusBadRequest, "Invalid status")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    task, err := h.Tasks.GetForPrincipal(ctx, id, p.TenantID, p.IsSuperAdmin())
    if err != nil {
        return respondError(c, h.Log, err)
    }
    res := auth.Resource{Task: &auth.TaskRef{ID: task.ID, TenantID: task.TenantID, AssignedTo: task.AssignedTo}}
    if d := auth.Authorize(p, auth.UpdateTaskStatus, res); !d.Allowed {
        return denied(c, auth.UpdateTaskStatus, d)
    }

    fresh, err := h.Tasks.UpdateStatus(ctx, id, status)
    if err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionUpdateTask,
        ActorID:    p.UserID,
        TenantID:   &task.TenantID,
        EntityType: "task",
        EntityID:   task.ID,
    })
    return okData(c, http.StatusOK, toTaskJSON(fresh))
}

type taskUpdateReq struct {
    Title       *string         `json:"title"`
    Description json.RawMessage `json:"description"`
    Status      *string         `json:"status"`
    Priority    *string         `json:"priority"`
    AssignedTo  json.RawMessage `json:"assignedTo"`
    DueDate     json.RawMessage `json:"dueDate"`
}

// Update edits any task field.  Null clears nullable fields; a non-null
// assignee is re-validated against the task's tenant.
func (h *TaskHandler) Update(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    id := c.Param("taskId")

    var req taskUpdateReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "Invalid request body")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    task, err := h.Tasks.GetForPrincipal(ctx, id, p.TenantID, p.IsSuperAdmin())
    if err != nil {
        return respondError(c, h.Log, err)
    }
    res := auth.Resource{Task: &auth.TaskRef{ID: task.ID, TenantID: task.TenantID, AssignedTo: task.AssignedTo}}
    if d := auth.Authorize(p, auth.UpdateTaskFull, res); !d.Allowed {
        return denied(c, auth.UpdateTaskFull, d)
    }

    upd := repository.TaskUpdate{}
    if req.Title != nil {
        title := strings.TrimSpace(*req.Title)
        if title == "" {
            return fail(c, http.StatusBadRequest, "title must not be empty")
        }
        upd.Title = &title
    }
    desc, clearDesc, err := optString(req.Description)
    if err != nil {
        return fail(c, http.StatusBadRequest, "Invalid description")
    }
    upd.Description, upd.ClearDesc = desc, clearDesc
    if req.Status != nil {
        st, ok := model.ParseTaskStatus(*req.Status)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid status")
        }
        upd.Status = &st
    }
    if req.Priority != nil {
        pr, ok := model.ParseTaskPriority(*req.Priority)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid priority")
        }
        upd.Priority = &pr
    }
    assignee, clearAssignee, err := optString(req.AssignedTo)
    if err != nil {
        return fail(c, http.StatusBadRequest, "Invalid assignedTo")
    }
    if assignee != nil && !utils.IsValidUUID(*assignee) {
        return fail(c, http.StatusBadRequest, "Invalid assignedTo")
    }
    upd.AssignedTo, upd.ClearAssignee = assignee, clearAssignee
    dueRaw, clearDue, err := optString(req.DueDate)
    if err != nil {
        return fail(c, http.StatusBadRequest, "Invalid dueDate")
    }
    if dueRaw != nil {
        d, ok := parseDueDate(*dueRaw)
        if !ok {
            return fail(c, http.StatusBadRequest, "Invalid dueDate")
        }
        s := d.Format("2006-01-02")
        upd.DueDate = &s
    }
    upd.ClearDueDate = clearDue

    if upd.Title == nil && upd.Description == nil && !upd.ClearDesc &&
        upd.Status == nil && upd.Priority == nil &&
        upd.AssignedTo == nil && !upd.ClearAssignee &&
        upd.DueDate == nil && !upd.ClearDueDate {
        return fail(c, http.StatusBadRequest, "No fields to update")
    }

    fresh, err := h.Tasks.Update(ctx, id, task.TenantID, upd)
    if err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionUpdateTask,
        ActorID:    p.UserID,
        TenantID:   &task.TenantID,
        EntityType: "task",
        EntityID:   task.ID,
    })
    return okData(c, http.StatusOK, toTaskJSON(fresh))
}

// Delete removes a task.  Admin of the owning tenant only.
func (h *TaskHandler) Delete(c echo.Context) error {
    p, err := principal(c)
    if err != nil {
        return err
    }
    id := c.Param("taskId")

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    task, err := h.Tasks.GetForPrincipal(ctx, id, p.TenantID, p.IsSuperAdmin())
    if err != nil {
        return respondError(c, h.Log, err)
    }
    res := auth.Resource{Task: &auth.TaskRef{ID: task.ID, TenantID: task.TenantID, AssignedTo: task.AssignedTo}}
    if d := auth.Authorize(p, auth.DeleteTask, res); !d.Allowed {
        return denied(c, auth.DeleteTask, d)
    }

    if err := h.Tasks.Delete(ctx, id); err != nil {
        return respondError(c, h.Log, err)
    }

    h.Audit.Publish(ctx, queue.AuditEvent{
        Action:     queue.ActionDeleteTask,
        ActorID:    p.UserID,
        TenantID:   &task.TenantID,
        EntityType: "task",
        EntityID:   task.ID,
    })
    return okMessage(c, http.StatusOK, "Task deleted")
}
