//go:build integration

package repository_test

import (
    "context"
    "database/sql"
    "fmt"
    "os"
    "sync"
    "testing"

    _ "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/require"

    "github.com/dmarkova/taskhub/internal/apperr"
    "github.com/dmarkova/taskhub/internal/model"
    "github.com/dmarkova/taskhub/internal/repository"
    "github.com/dmarkova/taskhub/internal/utils"
)

// openTestDB connects to the database named by TASKHUB_TEST_DSN, e.g.
// "root:secret@tcp(127.0.0.1:3306)/taskhub_test?parseTime=true".  Tests
// are skipped when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
    t.Helper()
    dsn := os.Getenv("TASKHUB_TEST_DSN")
    if dsn == "" {
        t.Skip("TASKHUB_TEST_DSN not set")
    }
    db, err := sql.Open("mysql", dsn)
    require.NoError(t, err)
    require.NoError(t, db.Ping())
    t.Cleanup(func() { _ = db.Close() })
    return db
}

func seedTenant(t *testing.T, db *sql.DB, maxUsers, maxProjects int) (tenantID, adminID string) {
    t.Helper()
    ctx := context.Background()
    tenantID = utils.NewID()
    adminID = utils.NewID()

    _, err := db.ExecContext(ctx,
        `INSERT INTO tenants (id, name, subdomain, status, subscription_plan, max_users, max_projects)
         VALUES (?,?,?,?,?,?,?)`,
        tenantID, "Load Test", fmt.Sprintf("load-%s", tenantID[:8]), "active", "free", maxUsers, maxProjects)
    require.NoError(t, err)
    _, err = db.ExecContext(ctx,
        `INSERT INTO users (id, tenant_id, email, password_hash, full_name, role, is_active)
         VALUES (?,?,?,?,?,?,1)`,
        adminID, tenantID, fmt.Sprintf("admin-%s@test.local", adminID[:8]), "x", "Admin", "tenant_admin")
    require.NoError(t, err)

    t.Cleanup(func() {
        _, _ = db.ExecContext(ctx, "DELETE FROM tasks WHERE tenant_id = ?", tenantID)
        _, _ = db.ExecContext(ctx, "DELETE FROM projects WHERE tenant_id = ?", tenantID)
        _, _ = db.ExecContext(ctx, "DELETE FROM users WHERE tenant_id = ?", tenantID)
        _, _ = db.ExecContext(ctx, "DELETE FROM tenants WHERE id = ?", tenantID)
    })
    return tenantID, adminID
}

// Concurrent user creation must never overshoot max_users: the tenant row
// lock serializes the count-then-insert sequence.
func TestUserLimitUnderContention(t *testing.T) {
    db := openTestDB(t)
    users := repository.NewUserRepo(db)

    const maxUsers = 5
    tenantID, _ := seedTenant(t, db, maxUsers, 3) // 1 admin seat already taken

    const attempts = 20
    var wg sync.WaitGroup
    errs := make([]error, attempts)
    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            u := model.User{
                ID:           utils.NewID(),
                TenantID:     &tenantID,
                Email:        fmt.Sprintf("worker-%d-%s@test.local", i, utils.NewID()[:8]),
                PasswordHash: "x",
                FullName:     fmt.Sprintf("Worker %d", i),
                Role:         model.RoleUser,
                IsActive:     true,
            }
            errs[i] = users.CreateInTenant(context.Background(), &u)
        }(i)
    }
    wg.Wait()

    created := 0
    limited := 0
    for _, err := range errs {
        switch {
        case err == nil:
            created++
        default:
            var lim *apperr.LimitExceeded
            require.ErrorAs(t, err, &lim)
            limited++
        }
    }
    require.Equal(t, maxUsers-1, created, "exactly the free seats fill up")
    require.Equal(t, attempts-(maxUsers-1), limited)

    var count int
    require.NoError(t, db.QueryRow(
        "SELECT COUNT(*) FROM users WHERE tenant_id = ?", tenantID).Scan(&count))
    require.Equal(t, maxUsers, count)
}

func TestProjectLimitUnderContention(t *testing.T) {
    db := openTestDB(t)
    projects := repository.NewProjectRepo(db)

    const maxProjects = 3
    tenantID, adminID := seedTenant(t, db, 5, maxProjects)

    const attempts = 12
    var wg sync.WaitGroup
    errs := make([]error, attempts)
    for i := 0; i < attempts; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            p := model.Project{
                ID:        utils.NewID(),
                TenantID:  tenantID,
                Name:      fmt.Sprintf("Project %d", i),
                Status:    model.ProjectActive,
                CreatedBy: adminID,
            }
            errs[i] = projects.Create(context.Background(), &p)
        }(i)
    }
    wg.Wait()

    created := 0
    for _, err := range errs {
        if err == nil {
            created++
        } else {
            var lim *apperr.LimitExceeded
            require.ErrorAs(t, err, &lim)
        }
    }
    require.Equal(t, maxProjects, created)

    var count int
    require.NoError(t, db.QueryRow(
        "SELECT COUNT(*) FROM projects WHERE tenant_id = ?", tenantID).Scan(&count))
    require.Equal(t, maxProjects, count)
}

// Deleting a user unassigns their tasks and removes the row atomically.
func TestDeleteUserUnassignsTasks(t *testing.T) {
    db := openTestDB(t)
    users := repository.NewUserRepo(db)
    projects := repository.NewProjectRepo(db)
    tasks := repository.NewTaskRepo(db)
    ctx := context.Background()

    tenantID, adminID := seedTenant(t, db, 5, 3)

    victim := model.User{
        ID:           utils.NewID(),
        TenantID:     &tenantID,
        Email:        fmt.Sprintf("victim-%s@test.local", utils.NewID()[:8]),
        PasswordHash: "x",
        FullName:     "Victim",
        Role:         model.RoleUser,
        IsActive:     true,
    }
    require.NoError(t, users.CreateInTenant(ctx, &victim))

    project := model.Project{
        ID:        utils.NewID(),
        TenantID:  tenantID,
        Name:      "Cleanup",
        Status:    model.ProjectActive,
        CreatedBy: adminID,
    }
    require.NoError(t, projects.Create(ctx, &project))

    task := model.Task{
        ID:         utils.NewID(),
        ProjectID:  project.ID,
        TenantID:   tenantID,
        Title:      "Assigned work",
        Status:     model.TaskTodo,
        Priority:   model.PriorityMedium,
        AssignedTo: &victim.ID,
        CreatedBy:  adminID,
    }
    require.NoError(t, tasks.Create(ctx, &task))

    require.NoError(t, users.Delete(ctx, victim.ID))

    fresh, err := tasks.GetByID(ctx, task.ID)
    require.NoError(t, err)
    require.Nil(t, fresh.AssignedTo)

    _, err = users.GetByID(ctx, victim.ID)
    require.ErrorIs(t, err, apperr.ErrNotFound)
}
