package auth_test

import (
    "testing"

    "github.com/stretchr/testify/require"

    "github.com/dmarkova/taskhub/internal/auth"
    "github.com/dmarkova/taskhub/internal/model"
)

func strPtr(s string) *string { return &s }

var (
    tenantA = "11111111-1111-1111-1111-111111111111"
    tenantB = "22222222-2222-2222-2222-222222222222"
)

func superAdmin() auth.Principal {
    return auth.Principal{UserID: "root-1", TenantID: nil, Role: model.RoleSuperAdmin}
}

func adminOf(tenant string) auth.Principal {
    return auth.Principal{UserID: "admin-" + tenant[:2], TenantID: &tenant, Role: model.RoleTenantAdmin}
}

func memberOf(tenant string) auth.Principal {
    return auth.Principal{UserID: "user-" + tenant[:2], TenantID: &tenant, Role: model.RoleUser}
}

func TestListTenantsGlobal(t *testing.T) {
    require.True(t, auth.Authorize(superAdmin(), auth.ListTenantsGlobal, auth.Resource{}).Allowed)

    d := auth.Authorize(adminOf(tenantA), auth.ListTenantsGlobal, auth.Resource{})
    require.False(t, d.Allowed)
    require.Equal(t, auth.InsufficientRole, d.Reason)

    d = auth.Authorize(memberOf(tenantA), auth.ListTenantsGlobal, auth.Resource{})
    require.False(t, d.Allowed)
}

func TestViewTenant(t *testing.T) {
    res := auth.Resource{Tenant: &auth.TenantRef{ID: tenantA}}

    require.True(t, auth.Authorize(superAdmin(), auth.ViewTenant, res).Allowed)
    require.True(t, auth.Authorize(adminOf(tenantA), auth.ViewTenant, res).Allowed)
    require.True(t, auth.Authorize(memberOf(tenantA), auth.ViewTenant, res).Allowed)

    d := auth.Authorize(memberOf(tenantB), auth.ViewTenant, res)
    require.False(t, d.Allowed)
    require.Equal(t, auth.WrongTenant, d.Reason)
}

func TestUpdateTenant(t *testing.T) {
    rename := auth.Resource{Tenant: &auth.TenantRef{ID: tenantA}}
    restricted := auth.Resource{Tenant: &auth.TenantRef{ID: tenantA}, TenantRestricted: true}

    require.True(t, auth.Authorize(superAdmin(), auth.UpdateTenant, restricted).Allowed)
    require.True(t, auth.Authorize(adminOf(tenantA), auth.UpdateTenant, rename).Allowed)

    // A tenant_admin touching status, plan or limits is refused outright.
    d := auth.Authorize(adminOf(tenantA), auth.UpdateTenant, restricted)
    require.False(t, d.Allowed)
    require.Equal(t, auth.InsufficientRole, d.Reason)

    d = auth.Authorize(memberOf(tenantA), auth.UpdateTenant, rename)
    require.False(t, d.Allowed)
    require.Equal(t, auth.InsufficientRole, d.Reason)

    d = auth.Authorize(adminOf(tenantB), auth.UpdateTenant, rename)
    require.False(t, d.Allowed)
    require.Equal(t, auth.WrongTenant, d.Reason)
}

func TestAddUserToTenant(t *testing.T) {
    res := auth.Resource{Tenant: &auth.TenantRef{ID: tenantA}}

    require.True(t, auth.Authorize(superAdmin(), auth.AddUserToTenant, res).Allowed)
    require.True(t, auth.Authorize(adminOf(tenantA), auth.AddUserToTenant, res).Allowed)

    d := auth.Authorize(memberOf(tenantA), auth.AddUserToTenant, res)
    require.False(t, d.Allowed)
    require.Equal(t, auth.InsufficientRole, d.Reason)

    d = auth.Authorize(adminOf(tenantB), auth.AddUserToTenant, res)
    require.False(t, d.Allowed)
    require.Equal(t, auth.WrongTenant, d.Reason)
}

func TestUpdateUserSelf(t *testing.T) {
    p := memberOf(tenantA)
    target := &auth.UserRef{ID: p.UserID, TenantID: &tenantA}

    // Plain profile edit on oneself.
    require.True(t, auth.Authorize(p, auth.UpdateUser, auth.Resource{User: target}).Allowed)

    // Changing one's own role is refused for every role.
    d := auth.Authorize(p, auth.UpdateUser, auth.Resource{User: target, UserAccess: true, ChangesOwnRole: true})
    require.False(t, d.Allowed)
    require.Equal(t, auth.SelfActionForbidden, d.Reason)

    // Same for admins and the super_admin.
    a := adminOf(tenantA)
    selfAdmin := &auth.UserRef{ID: a.UserID, TenantID: &tenantA}
    d = auth.Authorize(a, auth.UpdateUser, auth.Resource{User: selfAdmin, UserAccess: true, DeactivatesSelf: true})
    require.False(t, d.Allowed)
    require.Equal(t, auth.SelfActionForbidden, d.Reason)

    s := superAdmin()
    selfSuper := &auth.UserRef{ID: s.UserID, TenantID: nil}
    d = auth.Authorize(s, auth.UpdateUser, auth.Resource{User: selfSuper, UserAccess: true, ChangesOwnRole: true})
    require.False(t, d.Allowed)
    require.Equal(t, auth.SelfActionForbidden, d.Reason)
}

func TestUpdateUserByAdmin(t *testing.T) {
    target := &auth.UserRef{ID: "victim", TenantID: &tenantA}

    // Tenant admin controls role and activity of its own members.
    require.True(t, auth.Authorize(adminOf(tenantA), auth.UpdateUser,
        auth.Resource{User: target, UserAccess: true}).Allowed)

    // A plain member cannot touch another member's access fields.
    d := auth.Authorize(memberOf(tenantA), auth.UpdateUser, auth.Resource{User: target, UserAccess: true})
    require.False(t, d.Allowed)

    // Cross-tenant admins see nothing.
    d = auth.Authorize(adminOf(tenantB), auth.UpdateUser, auth.Resource{User: target})
    require.False(t, d.Allowed)
    require.Equal(t, auth.WrongTenant, d.Reason)

    // A super_admin administers only tenant-less accounts; tenant users
    // belong to their tenant's admins.
    d = auth.Authorize(superAdmin(), auth.UpdateUser, auth.Resource{User: target, UserAccess: true})
    require.False(t, d.Allowed)
    require.Equal(t, auth.WrongTenant, d.Reason)
}

func TestDeleteUser(t *testing.T) {
    a := adminOf(tenantA)

    // No self-delete, whatever the role.
    d := auth.Authorize(a, auth.DeleteUser, auth.Resource{User: &auth.UserRef{ID: a.UserID, TenantID: &tenantA}})
    require.False(t, d.Allowed)
    require.Equal(t, auth.SelfActionForbidden, d.Reason)

    s := superAdmin()
    d = auth.Authorize(s, auth.DeleteUser, auth.Resource{User: &auth.UserRef{ID: s.UserID, TenantID: nil}})
    require.False(t, d.Allowed)
    require.Equal(t, auth.SelfActionForbidden, d.Reason)

    target := &auth.UserRef{ID: "victim", TenantID: &tenantA}
    require.True(t, auth.Authorize(a, auth.DeleteUser, auth.Resource{User: target}).Allowed)

    d = auth.Authorize(memberOf(tenantA), auth.DeleteUser, auth.Resource{User: target})
    require.False(t, d.Allowed)
    require.Equal(t, auth.InsufficientRole, d.Reason)

    d = auth.Authorize(adminOf(tenantB), auth.DeleteUser, auth.Resource{User: target})
    require.False(t, d.Allowed)
    require.Equal(t, auth.WrongTenant, d.Reason)
}

func TestCreateProject(t *testing.T) {
    require.True(t, auth.Authorize(adminOf(tenantA), auth.CreateProject, auth.Resource{}).Allowed)

    d := auth.Authorize(memberOf(tenantA), auth.CreateProject, auth.Resource{})
    require.False(t, d.Allowed)
    require.Equal(t, auth.InsufficientRole, d.Reason)

    // The super_admin has no tenant to create a project in.
    d = auth.Authorize(superAdmin(), auth.CreateProject, auth.Resource{})
    require.False(t, d.Allowed)
}

func TestUpdateProject(t *testing.T) {
    creator := memberOf(tenantA)
    res := auth.Resource{Project: &auth.ProjectRef{ID: "p1", TenantID: tenantA, CreatedBy: creator.UserID}}

    require.True(t, auth.Authorize(creator, auth.UpdateProject, res).Allowed)
    require.True(t, auth.Authorize(adminOf(tenantA), auth.UpdateProject, res).Allowed)

    other := auth.Principal{UserID: "other", TenantID: &tenantA, Role: model.RoleUser}
    d := auth.Authorize(other, auth.UpdateProject, res)
    require.False(t, d.Allowed)
    require.Equal(t, auth.InsufficientRole, d.Reason)

    d = auth.Authorize(memberOf(tenantB), auth.UpdateProject, res)
    require.False(t, d.Allowed)
    require.Equal(t, auth.WrongTenant, d.Reason)
}

func TestDeleteProject(t *testing.T) {
    res := auth.Resource{Project: &auth.ProjectRef{ID: "p1", TenantID: tenantA, CreatedBy: "someone"}}

    require.True(t, auth.Authorize(adminOf(tenantA), auth.DeleteProject, res).Allowed)

    d := auth.Authorize(memberOf(tenantA), auth.DeleteProject, res)
    require.False(t, d.Allowed)
    require.Equal(t, auth.InsufficientRole, d.Reason)

    d = auth.Authorize(adminOf(tenantB), auth.DeleteProject, res)
    require.False(t, d.Allowed)
    require.Equal(t, auth.WrongTenant, d.Reason)
}

func TestCreateAndListTasks(t *testing.T) {
    res := auth.Resource{Project: &auth.ProjectRef{ID: "p1", TenantID: tenantA, CreatedBy: "someone"}}

    require.True(t, auth.Authorize(memberOf(tenantA), auth.CreateTask, res).Allowed)
    require.True(t, auth.Authorize(adminOf(tenantA), auth.CreateTask, res).Allowed)
    require.False(t, auth.Authorize(memberOf(tenantB), auth.CreateTask, res).Allowed)

    require.True(t, auth.Authorize(superAdmin(), auth.ListTasks, res).Allowed)
    require.True(t, auth.Authorize(memberOf(tenantA), auth.ListTasks, res).Allowed)
    require.False(t, auth.Authorize(memberOf(tenantB), auth.ListTasks, res).Allowed)
}

func TestUpdateTask(t *testing.T) {
    assignee := memberOf(tenantA)
    assigned := auth.Resource{Task: &auth.TaskRef{ID: "t1", TenantID: tenantA, AssignedTo: strPtr(assignee.UserID)}}
    unassigned := auth.Resource{Task: &auth.TaskRef{ID: "t1", TenantID: tenantA}}

    for _, action := range []auth.Action{auth.UpdateTaskStatus, auth.UpdateTaskFull} {
        require.True(t, auth.Authorize(superAdmin(), action, assigned).Allowed)
        require.True(t, auth.Authorize(adminOf(tenantA), action, unassigned).Allowed)
        require.True(t, auth.Authorize(assignee, action, assigned).Allowed)

        // A member who is not the assignee may not touch the task.
        d := auth.Authorize(assignee, action, unassigned)
        require.False(t, d.Allowed)
        require.Equal(t, auth.InsufficientRole, d.Reason)

        d = auth.Authorize(memberOf(tenantB), action, assigned)
        require.False(t, d.Allowed)
        require.Equal(t, auth.WrongTenant, d.Reason)
    }
}

func TestDeleteTask(t *testing.T) {
    res := auth.Resource{Task: &auth.TaskRef{ID: "t1", TenantID: tenantA}}

    require.True(t, auth.Authorize(adminOf(tenantA), auth.DeleteTask, res).Allowed)

    d := auth.Authorize(memberOf(tenantA), auth.DeleteTask, res)
    require.False(t, d.Allowed)
    require.Equal(t, auth.InsufficientRole, d.Reason)

    d = auth.Authorize(adminOf(tenantB), auth.DeleteTask, res)
    require.False(t, d.Allowed)
    require.Equal(t, auth.WrongTenant, d.Reason)
}

// Same inputs always yield the same decision.
func TestAuthorizeIsDeterministic(t *testing.T) {
    p := adminOf(tenantA)
    res := auth.Resource{Tenant: &auth.TenantRef{ID: tenantA}}
    first := auth.Authorize(p, auth.UpdateTenant, res)
    for i := 0; i < 100; i++ {
        require.Equal(t, first, auth.Authorize(p, auth.UpdateTenant, res))
    }
}
