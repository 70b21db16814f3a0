package server

import (
	"github.com/gin-gonic/gin"
)

// AuthorizeFilter enforces authentication on every route except those
// explicitly exempted. Exemptions are the protocol surface a client must be
// able to reach unauthenticated (authorize, token, login, discovery, error
// page); everything else requires a valid bearer token.
//
// Routes are exempted by registered route path (gin's FullPath), so a
// request that merely resembles an exempt path does not slip through.
type AuthorizeFilter struct {
	server *Server
	exempt map[string]bool
}

// NewAuthorizeFilter create the global filter with the given exempt route
// paths.
func (s *Server) NewAuthorizeFilter(exemptPaths ...string) *AuthorizeFilter {
	f := &AuthorizeFilter{
		server: s,
		exempt: make(map[string]bool, len(exemptPaths)+1),
	}
	// the error route never requires authentication, or error rendering
	// would recurse into the filter
	f.exempt["/error"] = true
	for _, p := range exemptPaths {
		f.exempt[p] = true
	}
	return f
}

// Exempt marks an additional route path as anonymous.
func (f *AuthorizeFilter) Exempt(path string) {
	f.exempt[path] = true
}

// Middleware returns the gin handler applying the filter.
func (f *AuthorizeFilter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if f.exempt[c.FullPath()] {
			c.Next()
			return
		}

		// already authenticated by an upstream middleware
		if GetPrincipalFromContext(c) != nil {
			c.Next()
			return
		}

		p, clientID, err := f.server.authenticateBearer(c)
		if err != nil {
			challenge(c)
			return
		}
		c.Set(ContextKeyPrincipal, p)
		c.Set(ContextKeyUserID, p.Subject)
		c.Set(ContextKeyClientID, clientID)
		if scopes := scopesFromPrincipal(p); len(scopes) > 0 {
			c.Set(ContextKeyScopes, scopes)
		}
		c.Next()
	}
}
