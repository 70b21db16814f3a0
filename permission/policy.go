package permission

import "fmt"

// Registry maps each known permission claim to its authorization policy.
// Built once at startup from the static claim list; read-only afterwards.
type Registry struct {
	policies map[string]Requirement
}

// NewRegistry derives one policy per known permission claim (1:1).
func NewRegistry() *Registry {
	r := &Registry{policies: make(map[string]Requirement, len(All))}
	for _, claim := range All {
		r.policies[claim] = NewRequirement(claim)
	}
	return r
}

// Policy resolves the requirement registered for the permission string.
func (r *Registry) Policy(permission string) (Requirement, error) {
	req, ok := r.policies[permission]
	if !ok {
		return Requirement{}, fmt.Errorf("no policy registered for permission %q", permission)
	}
	return req, nil
}

// Len number of registered policies.
func (r *Registry) Len() int { return len(r.policies) }
