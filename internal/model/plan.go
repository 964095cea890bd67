package model

// Plan enumerates the subscription plans a tenant can be on.  Stored in
// `tenants.subscription_plan`.
type Plan string

const (
    PlanFree       Plan = "free"
    PlanPro        Plan = "pro"
    PlanEnterprise Plan = "enterprise"
)

// ParsePlan validates a raw plan string against the closed set.
func ParsePlan(s string) (Plan, bool) {
    switch Plan(s) {
    case PlanFree, PlanPro, PlanEnterprise:
        return Plan(s), true
    }
    return "", false
}

// PlanLimits holds the per-tenant ceilings a subscription plan grants.
type PlanLimits struct {
    MaxUsers    int
    MaxProjects int
}

// planLimits is the authoritative plan -> limits table.  Self-registration
// always starts a tenant on the free plan.
var planLimits = map[Plan]PlanLimits{
    PlanFree:       {MaxUsers: 5, MaxProjects: 3},
    PlanPro:        {MaxUsers: 25, MaxProjects: 15},
    PlanEnterprise: {MaxUsers: 100, MaxProjects: 50},
}

// LimitsFor returns the ceilings for a plan.  Unknown plans fall back to
// the free tier, the most restrictive one.
func LimitsFor(p Plan) PlanLimits {
    if l, ok := planLimits[p]; ok {
        return l
    }
    return planLimits[PlanFree]
}
