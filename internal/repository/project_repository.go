package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/dmarkova/taskhub/internal/apperr"
    "github.com/dmarkova/taskhub/internal/model"
)

// ProjectRepo provides persistence for projects: the limit-guarded create
// and the cascading delete that removes the project's tasks with it.
type ProjectRepo struct {
    db *sql.DB
}

// NewProjectRepo returns a ProjectRepo bound to the given database.
func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{db: db} }

const projectCols = "id, tenant_id, name, description, status, created_by, created_at, updated_at"

func scanProject(row interface{ Scan(...interface{}) error }) (model.Project, error) {
    var p model.Project
    var desc sql.NullString
    err := row.Scan(&p.ID, &p.TenantID, &p.Name, &desc, &p.Status,
        &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
    if err != nil {
        return model.Project{}, err
    }
    if desc.Valid {
        p.Description = &desc.String
    }
    return p, nil
}

// Create inserts a project, enforcing max_projects atomically with the
// insert: lock the tenant row, count, compare, insert, all in one
// transaction.  Exceeding the ceiling aborts with LimitExceeded.
func (r *ProjectRepo) Create(ctx context.Context, p *model.Project) error {
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

    _, maxProjects, err := lockLimitsTx(ctx, tx, p.TenantID)
    if err != nil {
        return err
    }
    var count int
    if err := tx.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM projects WHERE tenant_id = ?", p.TenantID).Scan(&count); err != nil {
        return err
    }
    if count >= maxProjects {
        return &apperr.LimitExceeded{Kind: "projects", Current: count, Limit: maxProjects}
    }

    if _, err := tx.ExecContext(ctx,
        `INSERT INTO projects (id, tenant_id, name, description, status, created_by)
         VALUES (?,?,?,?,?,?)`,
        p.ID, p.TenantID, p.Name, p.Description, p.Status, p.CreatedBy); err != nil {
        return err
    }

    fresh, err := scanProject(tx.QueryRowContext(ctx,
        "SELECT "+projectCols+" FROM projects WHERE id = ?", p.ID))
    if err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    *p = fresh
    return nil
}

// GetByID fetches a project with no tenant scoping; reserved for
// super_admin paths.
func (r *ProjectRepo) GetByID(ctx context.Context, id string) (model.Project, error) {
    p, err := scanProject(r.db.QueryRowContext(ctx,
        "SELECT "+projectCols+" FROM projects WHERE id = ?", id))
    if err == sql.ErrNoRows {
        return model.Project{}, apperr.ErrNotFound
    }
    return p, err
}

// GetForPrincipal fetches a project the way the caller is allowed to
// address it: unscoped for a super_admin, tenant-scoped otherwise.  A
// cross-tenant id therefore resolves to ErrNotFound, indistinguishable
// from a missing id, so existence never leaks across tenants.
func (r *ProjectRepo) GetForPrincipal(ctx context.Context, id string, tenantID *string, superAdmin bool) (model.Project, error) {
    if superAdmin {
        return r.GetByID(ctx, id)
    }
    if tenantID == nil {
        return model.Project{}, apperr.ErrNotFound
    }
    p, err := scanProject(r.db.QueryRowContext(ctx,
        "SELECT "+projectCols+" FROM projects WHERE id = ? AND tenant_id = ?", id, *tenantID))
    if err == sql.ErrNoRows {
        return model.Project{}, apperr.ErrNotFound
    }
    return p, err
}

// ProjectWithMeta couples a project row with the listing extras: its task
// count and the owning tenant's name and subdomain.
type ProjectWithMeta struct {
    model.Project
    TaskCount       int
    TenantName      string
    TenantSubdomain string
}

// ProjectListFilter narrows and pages the project listing.  A nil
// TenantID lists across all tenants (super_admin only at the call site).
type ProjectListFilter struct {
    TenantID *string
    Status   *model.ProjectStatus
    Search   string
    Page     int
    Limit    int
}

// List returns projects newest first with task counts and tenant meta,
// plus the total row count.
func (r *ProjectRepo) List(ctx context.Context, f ProjectListFilter) ([]ProjectWithMeta, int, error) {
    where := "WHERE 1=1"
    args := []interface{}{}
    if f.TenantID != nil {
        where += " AND p.tenant_id = ?"
        args = append(args, *f.TenantID)
    }
    if f.Status != nil {
        where += " AND p.status = ?"
        args = append(args, *f.Status)
    }
    if f.Search != "" {
        where += " AND LOWER(p.name) LIKE ?"
        args = append(args, "%"+strings.ToLower(f.Search)+"%")
    }

    var total int
    if err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM projects p "+where, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    q := `SELECT p.id, p.tenant_id, p.name, p.description, p.status, p.created_by, p.created_at, p.updated_at,
                 (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id),
                 ten.name, ten.subdomain
          FROM projects p
          JOIN tenants ten ON ten.id = p.tenant_id
          ` + where + `
          ORDER BY p.created_at DESC
          LIMIT ? OFFSET ?`
    args = append(args, f.Limit, (f.Page-1)*f.Limit)

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    out := make([]ProjectWithMeta, 0)
    for rows.Next() {
        var pm ProjectWithMeta
        var desc sql.NullString
        if err := rows.Scan(&pm.ID, &pm.TenantID, &pm.Name, &desc, &pm.Status,
            &pm.CreatedBy, &pm.CreatedAt, &pm.UpdatedAt,
            &pm.TaskCount, &pm.TenantName, &pm.TenantSubdomain); err != nil {
            return nil, 0, err
        }
        if desc.Valid {
            pm.Description = &desc.String
        }
        out = append(out, pm)
    }
    return out, total, rows.Err()
}

// ProjectUpdate carries the optional fields of a project update.
// Description distinguishes "not touched" (nil) from "set to null"
// (non-nil pointer to nil) via the Set flag.
type ProjectUpdate struct {
    Name        *string
    Description *string
    ClearDesc   bool
    Status      *model.ProjectStatus
}

// Update applies the non-nil fields and returns the fresh row.
func (r *ProjectRepo) Update(ctx context.Context, id string, u ProjectUpdate) (model.Project, error) {
    sets := []string{}
    args := []interface{}{}
    if u.Name != nil {
        sets = append(sets, "name = ?")
        args = append(args, *u.Name)
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
    if len(sets) == 0 {
        return r.GetByID(ctx, id)
    }
    args = append(args, id)
    if _, err := r.db.ExecContext(ctx,
        "UPDATE projects SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
        return model.Project{}, err
    }
    return r.GetByID(ctx, id)
}

// Delete removes a project and all of its tasks in one transaction; both
// deletes commit together or neither does.
func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
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

    if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE project_id = ?", id); err != nil {
        return err
    }
    res, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return apperr.ErrNotFound
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
