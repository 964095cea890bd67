package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/dmarkova/taskhub/internal/apperr"
    "github.com/dmarkova/taskhub/internal/model"
)

// TaskRepo provides persistence for tasks inside their project and tenant.
type TaskRepo struct {
    db *sql.DB
}

// NewTaskRepo returns a TaskRepo bound to the given database.
func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{db: db} }

const taskCols = "id, project_id, tenant_id, title, description, status, priority, assigned_to, due_date, created_by, created_at, updated_at"

// taskOrder sorts the board view: urgent work first, nearest deadline
// next, newest last.  Tasks without a due date sink via the COALESCE
// sentinel.
const taskOrder = `ORDER BY
    CASE t.priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 END ASC,
    COALESCE(t.due_date, '9999-12-31') ASC,
    t.created_at DESC`

func scanTask(row interface{ Scan(...interface{}) error }) (model.Task, error) {
    var t model.Task
    var desc, assigned sql.NullString
    var due sql.NullTime
    err := row.Scan(&t.ID, &t.ProjectID, &t.TenantID, &t.Title, &desc, &t.Status,
        &t.Priority, &assigned, &due, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
    if err != nil {
        return model.Task{}, err
    }
    if desc.Valid {
        t.Description = &desc.String
    }
    if assigned.Valid {
        t.AssignedTo = &assigned.String
    }
    if due.Valid {
        t.DueDate = &due.Time
    }
    return t, nil
}

// Create inserts a task, verifying inside the same transaction that any
// assignee actually belongs to the task's tenant.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if t.AssignedTo != nil {
        ok, err := existsInTenantTx(ctx, tx, *t.AssignedTo, t.TenantID)
        if err != nil {
            return err
        }
        if !ok {
            return apperr.Validationf("assigned user not found in this tenant")
        }
    }

    if _, err := tx.ExecContext(ctx,
        `INSERT INTO tasks (id, project_id, tenant_id, title, description, status, priority, assigned_to, due_date, created_by)
         VALUES (?,?,?,?,?,?,?,?,?,?)`,
        t.ID, t.ProjectID, t.TenantID, t.Title, t.Description, t.Status,
        t.Priority, t.AssignedTo, t.DueDate, t.CreatedBy); err != nil {
        return err
    }

    fresh, err := scanTask(tx.QueryRowContext(ctx,
        "SELECT "+taskCols+" FROM tasks WHERE id = ?", t.ID))
    if err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    *t = fresh
    return nil
}

// GetByID fetches a task with no tenant scoping; reserved for
// super_admin paths.
func (r *TaskRepo) GetByID(ctx context.Context, id string) (model.Task, error) {
    t, err := scanTask(r.db.QueryRowContext(ctx,
        "SELECT "+taskCols+" FROM tasks WHERE id = ?", id))
    if err == sql.ErrNoRows {
        return model.Task{}, apperr.ErrNotFound
    }
    return t, err
}

// GetForPrincipal fetches a task the way the caller may address it:
// cross-tenant ids resolve to ErrNotFound for non-super callers.
func (r *TaskRepo) GetForPrincipal(ctx context.Context, id string, tenantID *string, superAdmin bool) (model.Task, error) {
    if superAdmin {
        return r.GetByID(ctx, id)
    }
    if tenantID == nil {
        return model.Task{}, apperr.ErrNotFound
    }
    t, err := scanTask(r.db.QueryRowContext(ctx,
        "SELECT "+taskCols+" FROM tasks WHERE id = ? AND tenant_id = ?", id, *tenantID))
    if err == sql.ErrNoRows {
        return model.Task{}, apperr.ErrNotFound
    }
    return t, err
}

// TaskWithAssignee couples a task row with the assignee's display name,
// when one is set.
type TaskWithAssignee struct {
    model.Task
    AssigneeName *string
}

// TaskListFilter narrows and pages a project's task listing.
type TaskListFilter struct {
    ProjectID  string
    Status     *model.TaskStatus
    Priority   *model.TaskPriority
    AssignedTo *string
    Search     string
    Page       int
    Limit      int
}

// ListByProject returns a project's tasks in board order plus the total
// row count for pagination.
func (r *TaskRepo) ListByProject(ctx context.Context, f TaskListFilter) ([]TaskWithAssignee, int, error) {
    where := "WHERE t.project_id = ?"
    args := []interface{}{f.ProjectID}
    if f.Status != nil {
        where += " AND t.status = ?"
        args = append(args, *f.Status)
    }
    if f.Priority != nil {
        where += " AND t.priority = ?"
        args = append(args, *f.Priority)
    }
    if f.AssignedTo != nil {
        where += " AND t.assigned_to = ?"
        args = append(args, *f.AssignedTo)
    }
    if f.Search != "" {
        where += " AND (LOWER(t.title) LIKE ? OR LOWER(t.description) LIKE ?)"
        needle := "%" + strings.ToLower(f.Search) + "%"
        args = append(args, needle, needle)
    }

    var total int
    if err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM tasks t "+where, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    q := `SELECT t.id, t.project_id, t.tenant_id, t.title, t.description, t.status, t.priority,
                 t.assigned_to, t.due_date, t.created_by, t.created_at, t.updated_at,
                 u.full_name
          FROM tasks t
          LEFT JOIN users u ON u.id = t.assigned_to
          ` + where + `
          ` + taskOrder + `
          LIMIT ? OFFSET ?`
    args = append(args, f.Limit, (f.Page-1)*f.Limit)

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    out := make([]TaskWithAssignee, 0)
    for rows.Next() {
        var tw TaskWithAssignee
        var desc, assigned, assigneeName sql.NullString
        var due sql.NullTime
        if err := rows.Scan(&tw.ID, &tw.ProjectID, &tw.TenantID, &tw.Title, &desc, &tw.Status,
            &tw.Priority, &assigned, &due, &tw.CreatedBy, &tw.CreatedAt, &tw.UpdatedAt,
            &assigneeName); err != nil {
            return nil, 0, err
        }
        if desc.Valid {
            tw.Description = &desc.String
        }
        if assigned.Valid {
            tw.AssignedTo = &assigned.String
        }
        if due.Valid {
            tw.DueDate = &due.Time
        }
        if assigneeName.Valid {
            tw.AssigneeName = &assigneeName.String
        }
        out = append(out, tw)
    }
    return out, total, rows.Err()
}

// UpdateStatus moves a task between board columns and returns the fresh
// row.
func (r *TaskRepo) UpdateStatus(ctx context.Context, id string, status model.TaskStatus) (model.Task, error) {
    if _, err := r.db.ExecContext(ctx,
        "UPDATE tasks SET status = ? WHERE id = ?", status, id); err != nil {
        return model.Task{}, err
    }
    return r.GetByID(ctx, id)
}

// TaskUpdate carries the optional fields of a full task update.  The
// Clear flags distinguish "leave alone" from "set to null".
type TaskUpdate struct {
    Title         *string
    Description   *string
    ClearDesc     bool
    Status        *model.TaskStatus
    Priority      *model.TaskPriority
    AssignedTo    *string
    ClearAssignee bool
    DueDate       *string
    ClearDueDate  bool
}

// Update applies the non-nil fields in one transaction, re-validating a
// new assignee against the task's tenant before writing.
func (r *TaskRepo) Update(ctx context.Context, id, tenantID string, u TaskUpdate) (model.Task, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return model.Task{}, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if u.AssignedTo != nil {
        ok, err := existsInTenantTx(ctx, tx, *u.AssignedTo, tenantID)
        if err != nil {
            return model.Task{}, err
        }
        if !ok {
            return model.Task{}, apperr.Validationf("assigned user not found in this tenant")
        }
    }

    sets := []string{}
    args := []interface{}{}
    if u.Title != nil {
        sets = append(sets, "title = ?")
        args = append(args, *u.Title)
    }
    if u.Description != nil {
        sets = append(sets, "description = ?")
        args = append(args, *u.Description)
    } else if u.ClearDesc {
        sets = append(sets, "description = NULL")
    }
    if u.Status != nil {
        sets = append(sets, "status = ?")
        args = append(args, *u.Status)
    }
    if u.Priority != nil {
        sets = append(sets, "priority = ?")
        args = append(args, *u.Priority)
    }
    if u.AssignedTo != nil {
        sets = append(sets, "assigned_to = ?")
        args = append(args, *u.AssignedTo)
    } else if u.ClearAssignee {
        sets = append(sets, "assigned_to = NULL")
    }
    if u.DueDate != nil {
        sets = append(sets, "due_date = ?")
        args = append(args, *u.DueDate)
    } else if u.ClearDueDate {
        sets = append(sets, "due_date = NULL")
    }

    if len(sets) > 0 {
        args = append(args, id)
        if _, err := tx.ExecContext(ctx,
            "UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
            return model.Task{}, err
        }
    }

    fresh, err := scanTask(tx.QueryRowContext(ctx,
        "SELECT "+taskCols+" FROM tasks WHERE id = ?", id))
    if err != nil {
        return model.Task{}, err
    }
    if err := tx.Commit(); err != nil {
        return model.Task{}, err
    }
    committed = true
    return fresh, nil
}

// Delete removes a single task.
func (r *TaskRepo) Delete(ctx context.Context, id string) error {
    res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return apperr.ErrNotFound
    }
    return nil
}
