package auth

import "github.com/dmarkova/taskhub/internal/model"

// DenyReason tags why a request was refused.  The transport layer maps
// every denial to a uniform response; the tag exists for logs and tests.
type DenyReason string

const (
    WrongTenant         DenyReason = "WrongTenant"
    InsufficientRole    DenyReason = "InsufficientRole"
    SelfActionForbidden DenyReason = "SelfActionForbidden"
)

// Decision is the result of an authorization check.
type Decision struct {
    Allowed bool
    Reason  DenyReason
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// Authorize decides whether principal may perform action on the given
// resource snapshot.  It is a pure function: same inputs, same decision,
// no clock, no store.  Callers must fetch the snapshot inside the same
// transaction as any mutation that follows the check.
func Authorize(p Principal, action Action, res Resource) Decision {
    switch action {
    case ListTenantsGlobal:
        if p.IsSuperAdmin() {
            return allow()
        }
        return deny(InsufficientRole)

    case ViewTenant, ListTenantUsers:
        if p.IsSuperAdmin() || p.InTenant(res.Tenant.ID) {
            return allow()
        }
        return deny(WrongTenant)

    case UpdateTenant:
        if p.IsSuperAdmin() {
            return allow()
        }
        if !p.InTenant(res.Tenant.ID) {
            return deny(WrongTenant)
        }
        if p.Role != model.RoleTenantAdmin {
            return deny(InsufficientRole)
        }
        // A tenant_admin may rename its tenant; status, plan and limits
        // are a hard deny, never a silent ignore.
        if res.TenantRestricted {
            return deny(InsufficientRole)
        }
        return allow()

    case AddUserToTenant:
        // Any principal passing this gate is an admin, so assigning a
        // role other than "user" needs no extra rule.
        if p.IsSuperAdmin() {
            return allow()
        }
        if !p.InTenant(res.Tenant.ID) {
            return deny(WrongTenant)
        }
        if p.Role != model.RoleTenantAdmin {
            return deny(InsufficientRole)
        }
        return allow()

    case UpdateUser:
        self := p.UserID == res.User.ID
        admin := sameTenantAdmin(p, res.User.TenantID)
        if !self && !admin {
            if p.TenantID != nil && res.User.TenantID != nil && *p.TenantID == *res.User.TenantID {
                return deny(InsufficientRole)
            }
            return deny(WrongTenant)
        }
        // Role changes and deactivation of one's own account are denied
        // for every role, super_admin included.
        if self && (res.ChangesOwnRole || res.DeactivatesSelf) {
            return deny(SelfActionForbidden)
        }
        if res.UserAccess && !admin {
            return deny(InsufficientRole)
        }
        return allow()

    case DeleteUser:
        if p.UserID == res.User.ID {
            return deny(SelfActionForbidden)
        }
        if !sameTenantAdmin(p, res.User.TenantID) {
            if p.TenantID != nil && res.User.TenantID != nil && *p.TenantID == *res.User.TenantID {
                return deny(InsufficientRole)
            }
            return deny(WrongTenant)
        }
        return allow()

    case CreateProject:
        // Project creation needs a tenant context: super_admin (no
        // tenant) and plain users are both refused.
        if p.Role != model.RoleTenantAdmin {
            return deny(InsufficientRole)
        }
        if p.TenantID == nil {
            return deny(WrongTenant)
        }
        return allow()

    case UpdateProject:
        if !p.InTenant(res.Project.TenantID) {
            return deny(WrongTenant)
        }
        if p.UserID == res.Project.CreatedBy || isAdminRole(p.Role) {
            return allow()
        }
        return deny(InsufficientRole)

    case DeleteProject:
        if !p.InTenant(res.Project.TenantID) {
            return deny(WrongTenant)
        }
        if p.Role != model.RoleTenantAdmin {
            return deny(InsufficientRole)
        }
        return allow()

    case CreateTask:
        if p.InTenant(res.Project.TenantID) {
            return allow()
        }
        return deny(WrongTenant)

    case ListTasks:
        if p.IsSuperAdmin() || p.InTenant(res.Project.TenantID) {
            return allow()
        }
        return deny(WrongTenant)

    case UpdateTaskStatus, UpdateTaskFull:
        if p.IsSuperAdmin() {
            return allow()
        }
        if !p.InTenant(res.Task.TenantID) {
            return deny(WrongTenant)
        }
        if p.Role == model.RoleTenantAdmin {
            return allow()
        }
        if res.Task.AssignedTo != nil && *res.Task.AssignedTo == p.UserID {
            return allow()
        }
        return deny(InsufficientRole)

    case DeleteTask:
        if !p.InTenant(res.Task.TenantID) {
            return deny(WrongTenant)
        }
        if p.Role != model.RoleTenantAdmin {
            return deny(InsufficientRole)
        }
        return allow()
    }

    // Unknown actions never pass.
    return deny(InsufficientRole)
}

// sameTenantAdmin reports whether p is an admin of the tenant identified
// by target (a nullable tenant id).  The tenant ids must match exactly,
// including the null case: a super_admin (nil tenant) administers only
// principals that also have a nil tenant.
func sameTenantAdmin(p Principal, target *string) bool {
    if !isAdminRole(p.Role) {
        return false
    }
    if p.TenantID == nil || target == nil {
        return p.TenantID == nil && target == nil
    }
    return *p.TenantID == *target
}
