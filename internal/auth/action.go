package auth

// Action enumerates every operation the engine can rule on.  Adding an
// action forces a new case in Authorize; the engine denies anything it
// does not recognize.
type Action int

const (
    ListTenantsGlobal Action = iota
    ViewTenant
    UpdateTenant
    AddUserToTenant
    ListTenantUsers
    UpdateUser
    DeleteUser
    CreateProject
    UpdateProject
    DeleteProject
    CreateTask
    ListTasks
    UpdateTaskStatus
    UpdateTaskFull
    DeleteTask
)

// String returns the action name, used in deny logs.
func (a Action) String() string {
    switch a {
    case ListTenantsGlobal:
        return "ListTenantsGlobal"
    case ViewTenant:
        return "ViewTenant"
    case UpdateTenant:
        return "UpdateTenant"
    case AddUserToTenant:
        return "AddUserToTenant"
    case ListTenantUsers:
        return "ListTenantUsers"
    case UpdateUser:
        return "UpdateUser"
    case DeleteUser:
        return "DeleteUser"
    case CreateProject:
        return "CreateProject"
    case UpdateProject:
        return "UpdateProject"
    case DeleteProject:
        return "DeleteProject"
    case CreateTask:
        return "CreateTask"
    case ListTasks:
        return "ListTasks"
    case UpdateTaskStatus:
        return "UpdateTaskStatus"
    case UpdateTaskFull:
        return "UpdateTaskFull"
    case DeleteTask:
        return "DeleteTask"
    }
    return "Unknown"
}

// TenantRef is the snapshot of a tenant a decision concerns.
type TenantRef struct {
    ID string
}

// UserRef is the snapshot of a target user.  TenantID mirrors the nullable
// column: nil for the super_admin.
type UserRef struct {
    ID       string
    TenantID *string
}

// ProjectRef is the snapshot of a project.
type ProjectRef struct {
    ID        string
    TenantID  string
    CreatedBy string
}

// TaskRef is the snapshot of a task.
type TaskRef struct {
    ID         string
    TenantID   string
    AssignedTo *string
}

// Resource carries the minimal entity snapshot plus mutation scope flags
// needed for a decision.  Only the fields relevant to the action are set;
// the caller fetches the snapshot inside the same transaction as any
// subsequent write.
type Resource struct {
    Tenant  *TenantRef
    User    *UserRef
    Project *ProjectRef
    Task    *TaskRef

    // TenantRestricted is set on UpdateTenant when the request touches
    // status, subscription plan or limits (super_admin-only fields).
    TenantRestricted bool

    // UserAccess is set on UpdateUser when the request touches role or
    // is_active.
    UserAccess bool
    // ChangesOwnRole is set when the target is the principal and the
    // requested role differs from the current one.
    ChangesOwnRole bool
    // DeactivatesSelf is set when the target is the principal and the
    // request flips is_active to false.
    DeactivatesSelf bool
}
