package server

import (
	"github.com/gin-gonic/gin"

	"github.com/legit-games/authserver/permission"
)

// RequirePermission returns a middleware enforcing the named permission via
// the policy registry. It expects an authenticated principal in context; a
// missing principal is an authentication failure, a failed evaluation is a
// forbidden. Both bodies are masked.
func (s *Server) RequirePermission(perm string) gin.HandlerFunc {
	registry := s.Policies
	if registry == nil {
		registry = permission.NewRegistry()
	}
	handler := s.PermissionHandler
	if handler == nil {
		handler = permission.NewHandler()
	}

	return func(c *gin.Context) {
		p := GetPrincipalFromContext(c)
		if p == nil {
			challenge(c)
			return
		}

		req, err := registry.Policy(perm)
		if err != nil {
			// unregistered permission is a server misconfiguration, deny
			forbid(c)
			return
		}
		if handler.Evaluate(*p, req) != permission.Succeed {
			forbid(c)
			return
		}
		c.Next()
	}
}
