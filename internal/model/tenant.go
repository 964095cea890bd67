package model

import "time"

// TenantStatus enumerates the lifecycle states of a tenant.  The values
// are stored verbatim in the `tenants.status` column.
type TenantStatus string

const (
    TenantActive    TenantStatus = "active"
    TenantSuspended TenantStatus = "suspended"
    TenantTrial     TenantStatus = "trial"
)

// ParseTenantStatus validates a raw status string.  The boolean result is
// false when the value is not a member of the closed set.
func ParseTenantStatus(s string) (TenantStatus, bool) {
    switch TenantStatus(s) {
    case TenantActive, TenantSuspended, TenantTrial:
        return TenantStatus(s), true
    }
    return "", false
}

// Tenant represents a row in the `tenants` table.  A tenant is a company
// account: the isolation boundary for users, projects and tasks.  The
// subdomain is globally unique and addresses the tenant at login.
//
// Fields:
//  ID          – UUID primary key.
//  Name        – display name of the company.
//  Subdomain   – globally unique, lowercase, 3–63 chars, alphanumeric+hyphen.
//  Status      – active, suspended or trial.
//  Plan        – subscription plan (free, pro, enterprise).
//  MaxUsers    – ceiling for users in this tenant.
//  MaxProjects – ceiling for projects in this tenant.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Tenant struct {
    ID          string       // tenants.id
    Name        string       // tenants.name
    Subdomain   string       // tenants.subdomain
    Status      TenantStatus // tenants.status
    Plan        Plan         // tenants.subscription_plan
    MaxUsers    int          // tenants.max_users
    MaxProjects int          // tenants.max_projects
    CreatedAt   time.Time    // tenants.created_at
    UpdatedAt   time.Time    // tenants.updated_at
}

// TenantStats carries the aggregate counters returned alongside a tenant
// on read endpoints.
type TenantStats struct {
    TotalUsers    int `json:"totalUsers"`
    TotalProjects int `json:"totalProjects"`
    TotalTasks    int `json:"totalTasks"`
}
