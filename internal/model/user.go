package model

import "time"

// Role enumerates the application roles.  The values land verbatim in
// `users.role` and in the JWT "role" claim, so they never change casing.
type Role string

const (
    RoleSuperAdmin  Role = "super_admin"
    RoleTenantAdmin Role = "tenant_admin"
    RoleUser        Role = "user"
)

// ParseRole validates a raw role string against the closed set.
func ParseRole(s string) (Role, bool) {
    switch Role(s) {
    case RoleSuperAdmin, RoleTenantAdmin, RoleUser:
        return Role(s), true
    }
    return "", false
}

// User represents a row in the `users` table.  Invariant: exactly the
// super_admin role has TenantID == nil; every other role belongs to a
// tenant.  Email is unique within a tenant, stored lowercased.
//
// Fields:
//  ID           – UUID primary key.
//  TenantID     – owning tenant, nil only for the super_admin.
//  Email        – lowercased email, unique per tenant.
//  PasswordHash – bcrypt hash of the password.
//  FullName     – display name.
//  Role         – super_admin, tenant_admin or user.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           string    // users.id
    TenantID     *string   // users.tenant_id (nullable)
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    FullName     string    // users.full_name
    Role         Role      // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}
