package permission

import "strings"

// AdminRole unconditionally satisfies every permission requirement.
// Whether admins should instead need the concrete claim is an open policy
// question; the bypass matches current deployments.
const AdminRole = "Admin"

// Claim a typed key-value assertion about a principal.
type Claim struct {
	Type  string
	Value string
}

// Principal the authenticated subject a requirement is evaluated against.
type Principal struct {
	Subject string
	Roles   []string
	Claims  []Claim
}

// HasRole reports whether the principal holds the named role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Requirement wraps a single permission string, the unit of fine-grained
// authorization.
type Requirement struct {
	Permission string
}

// NewRequirement create a requirement for the given permission.
func NewRequirement(permission string) Requirement {
	return Requirement{Permission: permission}
}

// Decision the outcome of evaluating a requirement.
type Decision int

// evaluation outcomes
const (
	Fail Decision = iota
	Succeed
)

// Handler evaluates a principal's roles and claims against a permission
// requirement.
type Handler struct{}

// NewHandler create a permission handler instance.
func NewHandler() *Handler {
	return &Handler{}
}

// Evaluate returns Succeed when the principal is an admin, or when any
// scope/permission claim value contains the required permission.
// Containment is substring based: role permission claims are flattened into
// the token's scope claim, so a combined value like "openid message:admin"
// matches requirement "message:admin".
func (h *Handler) Evaluate(p Principal, requirement Requirement) Decision {
	if p.HasRole(AdminRole) {
		return Succeed
	}

	for _, c := range p.Claims {
		if c.Type != ClaimTypeScope && c.Type != ClaimTypePermission {
			continue
		}
		if strings.Contains(c.Value, requirement.Permission) {
			return Succeed
		}
	}

	return Fail
}
