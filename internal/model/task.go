package model

import "time"

// TaskStatus enumerates task states.  There is no enforced transition
// graph: any status is reachable from any other by an authorized actor.
type TaskStatus string

const (
    TaskTodo       TaskStatus = "todo"
    TaskInProgress TaskStatus = "in_progress"
    TaskCompleted  TaskStatus = "completed"
)

// ParseTaskStatus validates a raw status string.
func ParseTaskStatus(s string) (TaskStatus, bool) {
    switch TaskStatus(s) {
    case TaskTodo, TaskInProgress, TaskCompleted:
        return TaskStatus(s), true
    }
    return "", false
}

// TaskPriority enumerates task priorities.
type TaskPriority string

const (
    PriorityLow    TaskPriority = "low"
    PriorityMedium TaskPriority = "medium"
    PriorityHigh   TaskPriority = "high"
)

// ParseTaskPriority validates a raw priority string.
func ParseTaskPriority(s string) (TaskPriority, bool) {
    switch TaskPriority(s) {
    case PriorityLow, PriorityMedium, PriorityHigh:
        return TaskPriority(s), true
    }
    return "", false
}

// PriorityRank orders priorities for task listings: high sorts before
// medium before low.  The same ranking backs the SQL CASE expression in
// the task repository, so the two must stay in sync.
func PriorityRank(p TaskPriority) int {
    switch p {
    case PriorityHigh:
        return 1
    case PriorityMedium:
        return 2
    case PriorityLow:
        return 3
    }
    return 4
}

// Task represents a row in the `tasks` table.  TenantID is denormalized
// from the owning project and always matches it; AssignedTo, when set,
// references a user in the same tenant.
type Task struct {
    ID          string       // tasks.id
    ProjectID   string       // tasks.project_id
    TenantID    string       // tasks.tenant_id
    Title       string       // tasks.title
    Description *string      // tasks.description (nullable)
    Status      TaskStatus   // tasks.status
    Priority    TaskPriority // tasks.priority
    AssignedTo  *string      // tasks.assigned_to (nullable user id)
    DueDate     *time.Time   // tasks.due_date (nullable)
    CreatedBy   string       // tasks.created_by (user id)
    CreatedAt   time.Time    // tasks.created_at
    UpdatedAt   time.Time    // tasks.updated_at
}
