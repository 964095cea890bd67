// Package auth implements the authorization core: an immutable Principal
// resolved from the access token, typed actions over resource snapshots,
// and a pure decision function.  Nothing in this package performs I/O.
package auth

import "github.com/dmarkova/taskhub/internal/model"

// Principal is the authenticated caller as seen by the authorization
// engine.  It is materialized once per request by the principal middleware
// and passed explicitly into every decision; handlers never read identity
// from ambient state.  TenantID is nil exactly for the super_admin.
type Principal struct {
    UserID   string
    TenantID *string
    Role     model.Role
}

// InTenant reports whether the principal belongs to the given tenant.
// A nil TenantID (super_admin) is in no tenant.
func (p Principal) InTenant(tenantID string) bool {
    return p.TenantID != nil && *p.TenantID == tenantID
}

// IsSuperAdmin reports whether the principal holds the super_admin role.
func (p Principal) IsSuperAdmin() bool { return p.Role == model.RoleSuperAdmin }

// isAdminRole reports whether the role carries admin powers within a tenant.
func isAdminRole(r model.Role) bool {
    return r == model.RoleTenantAdmin || r == model.RoleSuperAdmin
}
