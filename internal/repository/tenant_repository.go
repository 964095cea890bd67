package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/dmarkova/taskhub/internal/apperr"
    "github.com/dmarkova/taskhub/internal/model"
)

// TenantRepo provides persistence for tenants.  Tenant rows double as the
// serialization point for plan-limit enforcement: creates of bounded
// collections lock the tenant row with SELECT ... FOR UPDATE so that
// concurrent count-then-insert sequences against the same tenant cannot
// interleave.
type TenantRepo struct {
    db *sql.DB
}

// NewTenantRepo returns a TenantRepo bound to the given database.
func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{db: db} }

// DB exposes the underlying pool for callers that open transactions.
func (r *TenantRepo) DB() *sql.DB { return r.db }

const tenantCols = "id, name, subdomain, status, subscription_plan, max_users, max_projects, created_at, updated_at"

func scanTenant(row interface{ Scan(...interface{}) error }) (model.Tenant, error) {
    var t model.Tenant
    err := row.Scan(&t.ID, &t.Name, &t.Subdomain, &t.Status, &t.Plan,
        &t.MaxUsers, &t.MaxProjects, &t.CreatedAt, &t.UpdatedAt)
    return t, err
}

// CreateWithAdmin registers a tenant together with its first tenant_admin
// user in one transaction.  A colliding subdomain aborts with ErrConflict
// before any insert.  The tenant starts on the free plan limits supplied
// by the caller.
func (r *TenantRepo) CreateWithAdmin(ctx context.Context, t *model.Tenant, admin *model.User) error {
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

    var existing string
    err = tx.QueryRowContext(ctx, "SELECT id FROM tenants WHERE subdomain = ?", t.Subdomain).Scan(&existing)
    if err == nil {
        return apperr.ErrConflict
    }
    if err != sql.ErrNoRows {
        return err
    }

    if _, err := tx.ExecContext(ctx,
        `INSERT INTO tenants (id, name, subdomain, status, subscription_plan, max_users, max_projects)
         VALUES (?,?,?,?,?,?,?)`,
        t.ID, t.Name, t.Subdomain, t.Status, t.Plan, t.MaxUsers, t.MaxProjects); err != nil {
        if isDuplicate(err) {
            return apperr.ErrConflict
        }
        return err
    }
    if _, err := tx.ExecContext(ctx,
        `INSERT INTO users (id, tenant_id, email, password_hash, full_name, role, is_active)
         VALUES (?,?,?,?,?,?,?)`,
        admin.ID, t.ID, admin.Email, admin.PasswordHash, admin.FullName, admin.Role, admin.IsActive); err != nil {
        if isDuplicate(err) {
            return apperr.ErrConflict
        }
        return err
    }

    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID fetches a tenant by id.  Missing rows map to ErrNotFound.
func (r *TenantRepo) GetByID(ctx context.Context, id string) (model.Tenant, error) {
    t, err := scanTenant(r.db.QueryRowContext(ctx,
        "SELECT "+tenantCols+" FROM tenants WHERE id = ?", id))
    if err == sql.ErrNoRows {
        return model.Tenant{}, apperr.ErrNotFound
    }
    return t, err
}

// GetBySubdomain fetches a tenant by its subdomain (already lowercased by
// the caller).
func (r *TenantRepo) GetBySubdomain(ctx context.Context, subdomain string) (model.Tenant, error) {
    t, err := scanTenant(r.db.QueryRowContext(ctx,
        "SELECT "+tenantCols+" FROM tenants WHERE subdomain = ?", subdomain))
    if err == sql.ErrNoRows {
        return model.Tenant{}, apperr.ErrNotFound
    }
    return t, err
}

// Stats returns the user/project/task counts for a tenant.
func (r *TenantRepo) Stats(ctx context.Context, id string) (model.TenantStats, error) {
    var s model.TenantStats
    err := r.db.QueryRowContext(ctx,
        `SELECT
            (SELECT COUNT(*) FROM users    WHERE tenant_id = ?),
            (SELECT COUNT(*) FROM projects WHERE tenant_id = ?),
            (SELECT COUNT(*) FROM tasks    WHERE tenant_id = ?)`,
        id, id, id).Scan(&s.TotalUsers, &s.TotalProjects, &s.TotalTasks)
    return s, err
}

// TenantWithStats couples a tenant row with its aggregate counters for the
// global listing.
type TenantWithStats struct {
    model.Tenant
    model.TenantStats
}

// TenantListFilter narrows and pages the global tenant listing.
type TenantListFilter struct {
    Status *model.TenantStatus
    Plan   *model.Plan
    Page   int
    Limit  int
}

// List returns tenants ordered newest first with per-tenant counters and
// the total row count for pagination.  Super-admin only at the call site.
func (r *TenantRepo) List(ctx context.Context, f TenantListFilter) ([]TenantWithStats, int, error) {
    where := "WHERE 1=1"
    args := []interface{}{}
    if f.Status != nil {
        where += " AND status = ?"
        args = append(args, *f.Status)
    }
    if f.Plan != nil {
        where += " AND subscription_plan = ?"
        args = append(args, *f.Plan)
    }

    var total int
    if err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM tenants "+where, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    q := `SELECT t.id, t.name, t.subdomain, t.status, t.subscription_plan, t.max_users, t.max_projects,
                 t.created_at, t.updated_at,
                 (SELECT COUNT(*) FROM users u WHERE u.tenant_id = t.id),
                 (SELECT COUNT(*) FROM projects p WHERE p.tenant_id = t.id),
                 (SELECT COUNT(*) FROM tasks k WHERE k.tenant_id = t.id)
          FROM tenants t ` + where + `
          ORDER BY t.created_at DESC
          LIMIT ? OFFSET ?`
    args = append(args, f.Limit, (f.Page-1)*f.Limit)

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    out := make([]TenantWithStats, 0)
    for rows.Next() {
        var tw TenantWithStats
        if err := rows.Scan(&tw.ID, &tw.Name, &tw.Subdomain, &tw.Status, &tw.Plan,
            &tw.MaxUsers, &tw.MaxProjects, &tw.CreatedAt, &tw.UpdatedAt,
            &tw.TotalUsers, &tw.TotalProjects, &tw.TotalTasks); err != nil {
            return nil, 0, err
        }
        out = append(out, tw)
    }
    return out, total, rows.Err()
}

// TenantUpdate carries the optional fields of a tenant update.  Nil means
// "not touched".  Field-level authorization happens in the engine before
// this is applied.
type TenantUpdate struct {
    Name        *string
    Status      *model.TenantStatus
    Plan        *model.Plan
    MaxUsers    *int
    MaxProjects *int
}

// Update applies the non-nil fields and returns the fresh row.  An update
// with no fields is a caller bug surfaced as a validation error upstream.
func (r *TenantRepo) Update(ctx context.Context, id string, u TenantUpdate) (model.Tenant, error) {
    sets := []string{}
    args := []interface{}{}
    if u.Name != nil {
        sets = append(sets, "name = ?")
        args = append(args, *u.Name)
    }
    if u.Status != nil {
        sets = append(sets, "status = ?")
        args = append(args, *u.Status)
    }
    if u.Plan != nil {
        sets = append(sets, "subscription_plan = ?")
        args = append(args, *u.Plan)
    }
    if u.MaxUsers != nil {
        sets = append(sets, "max_users = ?")
        args = append(args, *u.MaxUsers)
    }
    if u.MaxProjects != nil {
        sets = append(sets, "max_projects = ?")
        args = append(args, *u.MaxProjects)
    }
    if len(sets) == 0 {
        return r.GetByID(ctx, id)
    }
    args = append(args, id)

    res, err := r.db.ExecContext(ctx,
        "UPDATE tenants SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
    if err != nil {
        return model.Tenant{}, err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        // RowsAffected is 0 both for a missing row and for a no-op update;
        // disambiguate with a read.
        if _, getErr := r.GetByID(ctx, id); getErr != nil {
            return model.Tenant{}, getErr
        }
    }
    return r.GetByID(ctx, id)
}

// lockLimitsTx reads a tenant's ceilings under FOR UPDATE, pinning the row
// until the surrounding transaction commits.  Every limit-guarded insert
// goes through this, so creates against the same tenant serialize while
// other tenants stay uncontended.
func lockLimitsTx(ctx context.Context, tx *sql.Tx, tenantID string) (maxUsers, maxProjects int, err error) {
    err = tx.QueryRowContext(ctx,
        "SELECT max_users, max_projects FROM tenants WHERE id = ? FOR UPDATE",
        tenantID).Scan(&maxUsers, &maxProjects)
    if err == sql.ErrNoRows {
        return 0, 0, apperr.ErrNotFound
    }
    return maxUsers, maxProjects, err
}

// isDuplicate reports whether err is a MySQL duplicate-key violation.
func isDuplicate(err error) bool {
    return err != nil && strings.Contains(err.Error(), "1062")
}
