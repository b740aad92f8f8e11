package user

import "sort"

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Staff (front office, dismissal duty)
	RoleStaff = "staff:"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

// Capabilities
const (
	CapViewDashboard   Capability = "dashboard:view"
	CapViewDataQuality Capability = "quality:view"
	CapRunAggregation  Capability = "metrics:aggregate"
	CapClearMetrics    Capability = "metrics:clear"
)

type Capability string

var roleCapabilities = map[string][]Capability{
	RoleAdminOwner:     {CapViewDashboard, CapViewDataQuality, CapRunAggregation, CapClearMetrics},
	RoleAdmin:          {CapViewDashboard, CapViewDataQuality, CapRunAggregation, CapClearMetrics},
	RoleAdminPrincipal: {CapViewDashboard, CapViewDataQuality, CapRunAggregation},
	RoleStaff:          {CapViewDashboard, CapViewDataQuality},
	RoleTeacher:        {CapViewDashboard},
	RoleStudent:        {},
}

// Capabilities maps roles to the sorted, de-duplicated set of capabilities they grant.
// Unknown roles grant nothing.
func Capabilities(roles ...string) []Capability {
	seen := make(map[Capability]struct{})
	caps := make([]Capability, 0, 4)
	for _, role := range roles {
		for _, c := range roleCapabilities[role] {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			caps = append(caps, c)
		}
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// HasCapability reports whether any of roles grants c.
func HasCapability(c Capability, roles ...string) bool {
	for _, role := range roles {
		for _, rc := range roleCapabilities[role] {
			if rc == c {
				return true
			}
		}
	}
	return false
}

// Principal is the authenticated caller, resolved once per request from its token.
type Principal struct {
	ID       string   `json:"id"`
	Username string   `json:"username,omitempty"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles"`
}

func (p Principal) Can(c Capability) bool {
	return HasCapability(c, p.Roles...)
}
