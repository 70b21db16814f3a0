package permission

// Claim type names carried in tokens. A user's effective permissions are the
// union of values found under both types.
const (
	ClaimTypeScope      = "scope"
	ClaimTypePermission = "permission"
)

// Known permission claim identifiers. The registry is a static slice rather
// than a runtime enumeration so it can be tested exhaustively.
const (
	MessageAdmin = "message:admin"
	MessageUser  = "message:user"
)

// All enumerates every known permission claim. One authorization policy is
// derived per entry (1:1).
var All = []string{
	MessageAdmin,
	MessageUser,
}

// AdminClaims returns the claims granted to the Admin role.
func AdminClaims() []string {
	out := make([]string, len(All))
	copy(out, All)
	return out
}

// AppUserClaims returns the claims granted to the User role.
func AppUserClaims() []string {
	return []string{MessageUser}
}
