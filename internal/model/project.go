package model

import "time"

// ProjectStatus enumerates project lifecycle states.
type ProjectStatus string

const (
    ProjectActive    ProjectStatus = "active"
    ProjectArchived  ProjectStatus = "archived"
    ProjectCompleted ProjectStatus = "completed"
)

// ParseProjectStatus validates a raw status string.
func ParseProjectStatus(s string) (ProjectStatus, bool) {
    switch ProjectStatus(s) {
    case ProjectActive, ProjectArchived, ProjectCompleted:
        return ProjectStatus(s), true
    }
    return "", false
}

// Project represents a row in the `projects` table.  TenantID is fixed at
// creation and never updated; the count of projects per tenant is bounded
// by the tenant's max_projects.
type Project struct {
    ID          string        // projects.id
    TenantID    string        // projects.tenant_id
    Name        string        // projects.name
    Description *string       // projects.description (nullable)
    Status      ProjectStatus // projects.status
    CreatedBy   string        // projects.created_by (user id)
    CreatedAt   time.Time     // projects.created_at
    UpdatedAt   time.Time     // projects.updated_at
}
