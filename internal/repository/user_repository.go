package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/dmarkova/taskhub/internal/apperr"
    "github.com/dmarkova/taskhub/internal/model"
)

// UserRepo provides persistence for users, including the limit-guarded
// create and the cascading delete that unassigns tasks.
type UserRepo struct {
    db *sql.DB
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userCols = "id, tenant_id, email, password_hash, full_name, role, is_active, created_at, updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (model.User, error) {
    var u model.User
    var tenantID sql.NullString
    err := row.Scan(&u.ID, &tenantID, &u.Email, &u.PasswordHash, &u.FullName,
        &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    if err != nil {
        return model.User{}, err
    }
    if tenantID.Valid {
        u.TenantID = &tenantID.String
    }
    return u, nil
}

// GetByID fetches a user by id.  Missing rows map to ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
    u, err := scanUser(r.db.QueryRowContext(ctx,
        "SELECT "+userCols+" FROM users WHERE id = ?", id))
    if err == sql.ErrNoRows {
        return model.User{}, apperr.ErrNotFound
    }
    return u, err
}

// GetByEmailInTenant fetches a user by normalized email within a tenant.
func (r *UserRepo) GetByEmailInTenant(ctx context.Context, tenantID, email string) (model.User, error) {
    u, err := scanUser(r.db.QueryRowContext(ctx,
        "SELECT "+userCols+" FROM users WHERE tenant_id = ? AND email = ?", tenantID, email))
    if err == sql.ErrNoRows {
        return model.User{}, apperr.ErrNotFound
    }
    return u, err
}

// GetSuperAdminByEmail fetches the tenant-less super_admin account for
// the no-tenant login path.
func (r *UserRepo) GetSuperAdminByEmail(ctx context.Context, email string) (model.User, error) {
    u, err := scanUser(r.db.QueryRowContext(ctx,
        "SELECT "+userCols+" FROM users WHERE email = ? AND role = ? AND tenant_id IS NULL LIMIT 1",
        email, model.RoleSuperAdmin))
    if err == sql.ErrNoRows {
        return model.User{}, apperr.ErrNotFound
    }
    return u, err
}

// CreateInTenant inserts a user into a tenant, enforcing max_users
// atomically with the insert.  The sequence runs in one transaction: lock
// the tenant row, count current users, compare, insert.  Exceeding the
// ceiling aborts with LimitExceeded and no partial write; a duplicate
// email within the tenant aborts with ErrConflict.
func (r *UserRepo) CreateInTenant(ctx context.Context, u *model.User) error {
    if u.TenantID == nil {
        return apperr.Validationf("user requires a tenant")
    }
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

    maxUsers, _, err := lockLimitsTx(ctx, tx, *u.TenantID)
    if err != nil {
        return err
    }
    var count int
    if err := tx.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM users WHERE tenant_id = ?", *u.TenantID).Scan(&count); err != nil {
        return err
    }
    if count >= maxUsers {
        return &apperr.LimitExceeded{Kind: "users", Current: count, Limit: maxUsers}
    }

    var existing string
    err = tx.QueryRowContext(ctx,
        "SELECT id FROM users WHERE tenant_id = ? AND email = ?", *u.TenantID, u.Email).Scan(&existing)
    if err == nil {
        return apperr.ErrConflict
    }
    if err != sql.ErrNoRows {
        return err
    }

    if _, err := tx.ExecContext(ctx,
        `INSERT INTO users (id, tenant_id, email, password_hash, full_name, role, is_active)
         VALUES (?,?,?,?,?,?,?)`,
        u.ID, u.TenantID, u.Email, u.PasswordHash, u.FullName, u.Role, u.IsActive); err != nil {
        if isDuplicate(err) {
            return apperr.ErrConflict
        }
        return err
    }

    fresh, err := scanUser(tx.QueryRowContext(ctx,
        "SELECT "+userCols+" FROM users WHERE id = ?", u.ID))
    if err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    *u = fresh
    return nil
}

// UserListFilter narrows and pages a tenant's user listing.
type UserListFilter struct {
    Search string
    Role   *model.Role
    Page   int
    Limit  int
}

// ListByTenant returns a tenant's users newest first plus the total count.
// Search matches email and full name case-insensitively.
func (r *UserRepo) ListByTenant(ctx context.Context, tenantID string, f UserListFilter) ([]model.User, int, error) {
    where := "WHERE tenant_id = ?"
    args := []interface{}{tenantID}
    if f.Search != "" {
        where += " AND (LOWER(email) LIKE ? OR LOWER(full_name) LIKE ?)"
        pat := "%" + strings.ToLower(f.Search) + "%"
        args = append(args, pat, pat)
    }
    if f.Role != nil {
        where += " AND role = ?"
        args = append(args, *f.Role)
    }

    var total int
    if err := r.db.QueryRowContext(ctx,
        "SELECT COUNT(*) FROM users "+where, args...).Scan(&total); err != nil {
        return nil, 0, err
    }

    q := "SELECT " + userCols + " FROM users " + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
    args = append(args, f.Limit, (f.Page-1)*f.Limit)
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, 0, err
    }
    defer rows.Close()

    out := make([]model.User, 0)
    for rows.Next() {
        u, err := scanUser(rows)
        if err != nil {
            return nil, 0, err
        }
        out = append(out, u)
    }
    return out, total, rows.Err()
}

// UserUpdate carries the optional fields of a user update; nil means
// "not touched".
type UserUpdate struct {
    FullName *string
    Role     *model.Role
    IsActive *bool
}

// Update applies the non-nil fields and returns the fresh row.
func (r *UserRepo) Update(ctx context.Context, id string, u UserUpdate) (model.User, error) {
    sets := []string{}
    args := []interface{}{}
    if u.FullName != nil {
        sets = append(sets, "full_name = ?")
        args = append(args, *u.FullName)
    }
    if u.Role != nil {
        sets = append(sets, "role = ?")
        args = append(args, *u.Role)
    }
    if u.IsActive != nil {
        sets = append(sets, "is_active = ?")
        args = append(args, *u.IsActive)
    }
    if len(sets) == 0 {
        return r.GetByID(ctx, id)
    }
    args = append(args, id)
    if _, err := r.db.ExecContext(ctx,
        "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
        return model.User{}, err
    }
    return r.GetByID(ctx, id)
}

// Delete removes a user after nulling out every task assignment that
// references it.  Both steps share one transaction: a failure after the
// unassignment rolls the unassignment back too, so no intermediate state
// is ever observable.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
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

    if _, err := tx.ExecContext(ctx,
        "UPDATE tasks SET assigned_to = NULL WHERE assigned_to = ?", id); err != nil {
        return err
    }
    res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
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

// existsInTenantTx reports whether a user exists inside a tenant, within
// the caller's transaction.  Used to validate task assignees.
func existsInTenantTx(ctx context.Context, tx *sql.Tx, userID, tenantID string) (bool, error) {
    var one int
    err := tx.QueryRowContext(ctx,
        "SELECT 1 FROM users WHERE id = ? AND tenant_id = ?", userID, tenantID).Scan(&one)
    if err == sql.ErrNoRows {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}
