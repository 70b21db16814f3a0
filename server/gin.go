package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/legit-games/authserver/permission"
)

// ginFrom adapts a net/http style handler returning error to gin. An error
// that escapes the handler unwritten is mapped through the protocol error
// taxonomy, so authorize failures that happen before a trusted redirect URI
// exists still surface their real error code and status.
func (s *Server) ginFrom(h func(w http.ResponseWriter, r *http.Request) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h(c.Writer, c.Request); err != nil {
			data, status, header := s.GetErrorData(err)
			for k := range header {
				c.Header(k, header.Get(k))
			}
			c.AbortWithStatusJSON(status, data)
		}
	}
}

// parseFormMiddleware ensures the form is parsed before handlers run.
func parseFormMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Request.ParseForm()
		c.Next()
	}
}

// NewGinEngine builds a Gin router with the protocol endpoints, the sample
// message API guarded by permission policies, and the global authorization
// filter over everything not explicitly anonymous.
func NewGinEngine(s *Server, logger *log.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(ErrorMiddleware(logger))
	r.Use(parseFormMiddleware())

	anonymous := []string{
		"/connect/authorize",
		"/connect/token",
		"/connect/logout",
		"/connect/introspect",
		"/connect/revoke",
		"/.well-known/openid-configuration",
		"/.well-known/jwks.json",
		"/login",
	}
	filter := s.NewAuthorizeFilter(anonymous...)
	r.Use(filter.Middleware())

	// authorization endpoint
	r.GET("/connect/authorize", s.ginFrom(s.HandleAuthorizeRequest))
	r.POST("/connect/authorize", s.ginFrom(s.HandleAuthorizeRequest))

	// token endpoint
	r.POST("/connect/token", s.ginFrom(s.HandleTokenRequest))
	if s.Config != nil && s.Config.AllowGetAccessRequest {
		r.GET("/connect/token", s.ginFrom(s.HandleTokenRequest))
	}

	// end session endpoint
	logout := func(c *gin.Context) {
		_ = s.HandleLogoutRequest(c.Writer, c.Request, s.EndSession)
	}
	r.GET("/connect/logout", logout)
	r.POST("/connect/logout", logout)

	if s.Config != nil && s.Config.IntrospectionEnabled {
		r.POST("/connect/introspect", s.ginFrom(s.HandleIntrospectionRequest))
	}
	if s.Config != nil && s.Config.RevocationEnabled {
		r.POST("/connect/revoke", s.ginFrom(s.HandleRevocationRequest))
	}

	// OIDC metadata
	if s.Config != nil && s.Config.OIDCEnabled {
		r.GET("/.well-known/openid-configuration", s.ginFrom(s.HandleOIDCDiscovery))
		r.GET("/.well-known/jwks.json", s.ginFrom(s.HandleOIDCJWKS))
	}

	// interactive login
	r.GET("/login", s.ginFrom(s.HandleLoginGet))
	r.POST("/login", s.ginFrom(s.HandleLoginPost))

	// neutral error page
	r.GET("/error", HandleErrorPage)

	// resource API; the global filter already authenticated these
	api := r.Group("/api")
	api.GET("/userinfo", s.ginFrom(s.HandleOIDCUserInfo))
	api.POST("/userinfo", s.ginFrom(s.HandleOIDCUserInfo))
	api.GET("/messageadmin", s.RequirePermission(permission.MessageAdmin), s.handleMessageAdmin)
	api.GET("/messageuser", s.RequirePermission(permission.MessageUser), s.handleMessageUser)

	return r
}

func (s *Server) handleMessageAdmin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"messages": []string{"admin message one", "admin message two"},
		"subject":  GetUserIDFromContext(c),
	})
}

func (s *Server) handleMessageUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"messages": []string{"user message one"},
		"subject":  GetUserIDFromContext(c),
	})
}
