//go:build integration

package repository_test

import (
    "context"
    "fmt"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "github.com/dmarkova/taskhub/internal/apperr"
    "github.com/dmarkova/taskhub/internal/model"
    "github.com/dmarkova/taskhub/internal/repository"
    "github.com/dmarkova/taskhub/internal/utils"
)

func seedProject(t *testing.T, projects *repository.ProjectRepo, tenantID, creatorID string) model.Project {
    t.Helper()
    p := model.Project{
        ID:        utils.NewID(),
        TenantID:  tenantID,
        Name:      fmt.Sprintf("Project %s", utils.NewID()[:8]),
        Status:    model.ProjectActive,
        CreatedBy: creatorID,
    }
    require.NoError(t, projects.Create(context.Background(), &p))
    return p
}

func seedTask(t *testing.T, tasks *repository.TaskRepo, p model.Project, creatorID string, priority model.TaskPriority, due *time.Time) model.Task {
    t.Helper()
    task := model.Task{
        ID:        utils.NewID(),
        ProjectID: p.ID,
        TenantID:  p.TenantID,
        Title:     fmt.Sprintf("Task %s", utils.NewID()[:8]),
        Status:    model.TaskTodo,
        Priority:  priority,
        DueDate:   due,
        CreatedBy: creatorID,
    }
    require.NoError(t, tasks.Create(context.Background(), &task))
    return task
}

// Created rows keep their creator id as a plain historical reference, so
// deleting the creator must succeed and leave their projects and tasks
// behind.
func TestDeleteUserWhoCreatedWork(t *testing.T) {
    db := openTestDB(t)
    users := repository.NewUserRepo(db)
    projects := repository.NewProjectRepo(db)
    tasks := repository.NewTaskRepo(db)
    ctx := context.Background()

    tenantID, _ := seedTenant(t, db, 5, 3)

    creator := model.User{
        ID:           utils.NewID(),
        TenantID:     &tenantID,
        Email:        fmt.Sprintf("creator-%s@test.local", utils.NewID()[:8]),
        PasswordHash: "x",
        FullName:     "Creator",
        Role:         model.RoleTenantAdmin,
        IsActive:     true,
    }
    require.NoError(t, users.CreateInTenant(ctx, &creator))

    project := seedProject(t, projects, tenantID, creator.ID)
    task := model.Task{
        ID:         utils.NewID(),
        ProjectID:  project.ID,
        TenantID:   tenantID,
        Title:      "Self-assigned work",
        Status:     model.TaskTodo,
        Priority:   model.PriorityMedium,
        AssignedTo: &creator.ID,
        CreatedBy:  creator.ID,
    }
    require.NoError(t, tasks.Create(ctx, &task))

    require.NoError(t, users.Delete(ctx, creator.ID))

    _, err := users.GetByID(ctx, creator.ID)
    require.ErrorIs(t, err, apperr.ErrNotFound)

    keptProject, err := projects.GetByID(ctx, project.ID)
    require.NoError(t, err)
    require.Equal(t, creator.ID, keptProject.CreatedBy)

    keptTask, err := tasks.GetByID(ctx, task.ID)
    require.NoError(t, err)
    require.Equal(t, creator.ID, keptTask.CreatedBy)
    require.Nil(t, keptTask.AssignedTo)
}

// Deleting a project removes its tasks in the same transaction.
func TestDeleteProjectCascadesTasks(t *testing.T) {
    db := openTestDB(t)
    projects := repository.NewProjectRepo(db)
    tasks := repository.NewTaskRepo(db)
    ctx := context.Background()

    tenantID, adminID := seedTenant(t, db, 5, 3)
    project := seedProject(t, projects, tenantID, adminID)
    t1 := seedTask(t, tasks, project, adminID, model.PriorityHigh, nil)
    t2 := seedTask(t, tasks, project, adminID, model.PriorityLow, nil)

    require.NoError(t, projects.Delete(ctx, project.ID))

    _, err := projects.GetByID(ctx, project.ID)
    require.ErrorIs(t, err, apperr.ErrNotFound)
    for _, id := range []string{t1.ID, t2.ID} {
        _, err := tasks.GetByID(ctx, id)
        require.ErrorIs(t, err, apperr.ErrNotFound)
    }
}

// Create fills in database-side defaults and returns the stored row.
func TestCreateProjectRoundTrip(t *testing.T) {
    db := openTestDB(t)
    projects := repository.NewProjectRepo(db)
    ctx := context.Background()

    tenantID, adminID := seedTenant(t, db, 5, 3)

    desc := "migrate billing to the new ledger"
    p := model.Project{
        ID:          utils.NewID(),
        TenantID:    tenantID,
        Name:        "Billing Migration",
        Description: &desc,
        Status:      model.ProjectActive,
        CreatedBy:   adminID,
    }
    require.NoError(t, projects.Create(ctx, &p))
    require.False(t, p.CreatedAt.IsZero(), "read-back fills timestamps")

    stored, err := projects.GetByID(ctx, p.ID)
    require.NoError(t, err)
    require.Equal(t, "Billing Migration", stored.Name)
    require.NotNil(t, stored.Description)
    require.Equal(t, desc, *stored.Description)
    require.Equal(t, model.ProjectActive, stored.Status)
    require.Equal(t, adminID, stored.CreatedBy)
    require.Equal(t, tenantID, stored.TenantID)
}

// Board order: high before medium before low; inside a priority the
// nearest due date wins and undated tasks sink to the end of the group.
func TestTaskBoardOrdering(t *testing.T) {
    db := openTestDB(t)
    projects := repository.NewProjectRepo(db)
    tasks := repository.NewTaskRepo(db)
    ctx := context.Background()

    tenantID, adminID := seedTenant(t, db, 5, 3)
    project := seedProject(t, projects, tenantID, adminID)

    soon := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
    later := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

    lowDated := seedTask(t, tasks, project, adminID, model.PriorityLow, &soon)
    highUndated := seedTask(t, tasks, project, adminID, model.PriorityHigh, nil)
    highDated := seedTask(t, tasks, project, adminID, model.PriorityHigh, &later)
    mediumDated := seedTask(t, tasks, project, adminID, model.PriorityMedium, &soon)

    rows, total, err := tasks.ListByProject(ctx, repository.TaskListFilter{
        ProjectID: project.ID,
        Page:      1,
        Limit:     10,
    })
    require.NoError(t, err)
    require.Equal(t, 4, total)

    got := make([]string, len(rows))
    for i, r := range rows {
        got[i] = r.ID
    }
    require.Equal(t, []string{highDated.ID, highUndated.ID, mediumDated.ID, lowDated.ID}, got)
}
