package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/legit-games/authserver/errors"
	"github.com/legit-games/authserver/permission"
)

var errMissingToken = errors.New("missing bearer token")

// context keys set by the authentication middleware
const (
	ContextKeyPrincipal = "principal"
	ContextKeyUserID    = "user_id"
	ContextKeyClientID  = "client_id"
	ContextKeyScopes    = "user_scopes"
)

// authenticateBearer validates the bearer token on the request and builds
// the principal it represents. A token must both verify as a JWT and still
// be present in the token store: a structurally valid token that has been
// revoked or rotated away is rejected.
func (s *Server) authenticateBearer(c *gin.Context) (*permission.Principal, string, error) {
	token, ok := s.AccessTokenResolveHandler(c.Request)
	if !ok || token == "" {
		return nil, "", errMissingToken
	}

	claims, err := s.AccessGenerate.Validate(token, "")
	if err != nil {
		return nil, "", err
	}

	if _, err := s.Manager.LoadAccessToken(c.Request.Context(), token); err != nil {
		return nil, "", err
	}

	p := &permission.Principal{
		Subject: claims.Subject,
		Roles:   claims.Roles,
	}
	if claims.Scope != "" {
		p.Claims = append(p.Claims, permission.Claim{Type: permission.ClaimTypeScope, Value: claims.Scope})
	}
	for _, perm := range claims.Permissions {
		p.Claims = append(p.Claims, permission.Claim{Type: permission.ClaimTypePermission, Value: perm})
	}
	return p, claims.ClientID, nil
}

// TokenMiddleware validates the bearer token and sets the principal in
// context. Failure bodies are deliberately uninformative.
func (s *Server) TokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, clientID, err := s.authenticateBearer(c)
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

func scopesFromPrincipal(p *permission.Principal) []string {
	for _, cl := range p.Claims {
		if cl.Type == permission.ClaimTypeScope {
			return strings.Fields(cl.Value)
		}
	}
	return nil
}

// challenge writes the masked 401 response and aborts.
func challenge(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "unauthorized",
	})
}

// forbid writes the masked 403 response and aborts.
func forbid(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error": "forbidden",
	})
}

// GetPrincipalFromContext retrieves the authenticated principal, or nil.
func GetPrincipalFromContext(c *gin.Context) *permission.Principal {
	if v, exists := c.Get(ContextKeyPrincipal); exists {
		if p, ok := v.(*permission.Principal); ok {
			return p
		}
	}
	return nil
}

// GetUserIDFromContext retrieves the user ID from the gin context.
// Returns empty string if not found.
func GetUserIDFromContext(c *gin.Context) string {
	if v, exists := c.Get(ContextKeyUserID); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetClientIDFromContext retrieves the client ID from the gin context.
// Returns empty string if not found.
func GetClientIDFromContext(c *gin.Context) string {
	if v, exists := c.Get(ContextKeyClientID); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetScopesFromContext retrieves the scopes from the gin context.
// Returns empty slice if not found.
func GetScopesFromContext(c *gin.Context) []string {
	if v, exists := c.Get(ContextKeyScopes); exists {
		if s, ok := v.([]string); ok {
			return s
		}
	}
	return []string{}
}
