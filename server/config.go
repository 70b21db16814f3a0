package server

import (
	"net/http"
	"time"

	"github.com/legit-games/authserver"
)

// Config configuration parameters
type Config struct {
	TokenType             string                    // token type
	AllowGetAccessRequest bool                      // to allow GET requests for the token
	AllowedResponseTypes  []authserver.ResponseType // allow the authorization type
	AllowedResponseModes  []authserver.ResponseMode // allow the response delivery mode
	AllowedGrantTypes     []authserver.GrantType    // allow the grant type
	// OIDC settings
	OIDCEnabled bool
	Issuer      string // issuer URL for ID tokens and discovery
	// RFC 7662 / RFC 7009 endpoints
	IntrospectionEnabled bool
	RevocationEnabled    bool
	// Refresh rotation settings (operator-configurable)
	RefreshRotation RefreshRotationConfig
}

// RefreshRotationConfig maps to manage.RefreshingConfig.
type RefreshRotationConfig struct {
	// Whether to issue a new refresh token during refresh
	GenerateNew bool
	// Whether to reset refresh token create time on rotation
	ResetTime bool
	// Whether to remove old access token on refresh
	RemoveOldAccess bool
	// Whether to remove old refresh token on refresh (enforces reuse detection)
	RemoveOldRefresh bool
	// Optional overrides for exp durations
	AccessExpOverride  time.Duration
	RefreshExpOverride time.Duration
}

// NewConfig create to configuration instance. The grant surface is
// deliberately narrow: authorization code with mandatory client
// authentication, plus refresh. Password, client credentials and implicit
// are not offered.
func NewConfig() *Config {
	return &Config{
		TokenType:            "Bearer",
		AllowedResponseTypes: []authserver.ResponseType{authserver.Code},
		AllowedResponseModes: []authserver.ResponseMode{
			authserver.Query,
			authserver.Fragment,
			authserver.FormPost,
		},
		AllowedGrantTypes: []authserver.GrantType{
			authserver.AuthorizationCode,
			authserver.Refreshing,
		},
		OIDCEnabled:          true,
		IntrospectionEnabled: true,
		RevocationEnabled:    true,
		Issuer:               "http://localhost", // can be overridden by deployment config
		RefreshRotation: RefreshRotationConfig{
			GenerateNew:      true,
			ResetTime:        true,
			RemoveOldAccess:  true,
			RemoveOldRefresh: true,
		},
	}
}

// AuthorizeRequest authorization request
type AuthorizeRequest struct {
	ResponseType   authserver.ResponseType
	ResponseMode   authserver.ResponseMode
	ClientID       string
	Scope          string
	RedirectURI    string
	State          string
	UserID         string
	AccessTokenExp time.Duration
	Request        *http.Request
	// OIDC
	Nonce string
}

// LogoutRequest end-session request
type LogoutRequest struct {
	ClientID              string
	IDTokenHint           string
	PostLogoutRedirectURI string
	State                 string
	Request               *http.Request
}
