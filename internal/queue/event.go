// Package queue defines message payloads exchanged over the message broker.
package queue

// Audit action identifiers carried on every AuditEvent.
const (
    ActionCreateUser    = "CREATE_USER"
    ActionUpdateUser    = "UPDATE_USER"
    ActionDeleteUser    = "DELETE_USER"
    ActionCreateProject = "CREATE_PROJECT"
    ActionUpdateProject = "UPDATE_PROJECT"
    ActionDeleteProject = "DELETE_PROJECT"
    ActionCreateTask    = "CREATE_TASK"
    ActionUpdateTask    = "UPDATE_TASK"
    ActionDeleteTask    = "DELETE_TASK"
    ActionLogin         = "LOGIN"
    ActionLogout        = "LOGOUT"
    ActionUpdateTenant  = "UPDATE_TENANT"
)

// AuditEvent is published after a state-changing operation succeeds.
// It contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.
type AuditEvent struct {
    Action     string  `json:"action"`
    ActorID    string  `json:"actor_id"`
    TenantID   *string `json:"tenant_id,omitempty"`
    EntityType string  `json:"entity_type"`
    EntityID   string  `json:"entity_id"`
    OccurredAt string  `json:"occurred_at"`
}
