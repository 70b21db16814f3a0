package authserver

import (
	"context"
	"net/http"
	"time"
)

type (
	// ClientInfo the client information model interface
	ClientInfo interface {
		GetID() string
		GetSecret() string
		GetDisplayName() string
		// GetRedirectURIs returns the full registered redirect URI set.
		// Matching against it is exact and case sensitive.
		GetRedirectURIs() []string
		GetPostLogoutRedirectURIs() []string
		IsPublic() bool
	}

	// ClientSecretVerifier optionally implemented by clients that verify
	// secrets themselves (hashed storage, constant time compare).
	ClientSecretVerifier interface {
		VerifySecret(secret string) bool
	}

	// ClientStore the client information storage interface
	ClientStore interface {
		// GetByID resolves a client by exact client_id match
		GetByID(ctx context.Context, id string) (ClientInfo, error)
	}

	// TokenInfo the token information model interface
	TokenInfo interface {
		New() TokenInfo

		GetClientID() string
		SetClientID(string)
		GetUserID() string
		SetUserID(string)
		GetRedirectURI() string
		SetRedirectURI(string)
		GetScope() string
		SetScope(string)

		GetCode() string
		SetCode(string)
		GetCodeCreateAt() time.Time
		SetCodeCreateAt(time.Time)
		GetCodeExpiresIn() time.Duration
		SetCodeExpiresIn(time.Duration)

		GetAccess() string
		SetAccess(string)
		GetAccessCreateAt() time.Time
		SetAccessCreateAt(time.Time)
		GetAccessExpiresIn() time.Duration
		SetAccessExpiresIn(time.Duration)

		GetRefresh() string
		SetRefresh(string)
		GetRefreshCreateAt() time.Time
		SetRefreshCreateAt(time.Time)
		GetRefreshExpiresIn() time.Duration
		SetRefreshExpiresIn(time.Duration)
	}

	// TokenStore the token information storage interface
	TokenStore interface {
		Create(ctx context.Context, info TokenInfo) error

		RemoveByCode(ctx context.Context, code string) error
		RemoveByAccess(ctx context.Context, access string) error
		RemoveByRefresh(ctx context.Context, refresh string) error

		GetByCode(ctx context.Context, code string) (TokenInfo, error)
		GetByAccess(ctx context.Context, access string) (TokenInfo, error)
		GetByRefresh(ctx context.Context, refresh string) (TokenInfo, error)
	}

	// GenerateBasic provide the basis of the generated token data
	GenerateBasic struct {
		Client    ClientInfo
		UserID    string
		CreateAt  time.Time
		TokenInfo TokenInfo
		Request   *http.Request
	}

	// AuthorizeGenerate generate the authorization code interface
	AuthorizeGenerate interface {
		Token(ctx context.Context, data *GenerateBasic) (code string, err error)
	}

	// AccessGenerate generate the access and refresh tokens interface
	AccessGenerate interface {
		Token(ctx context.Context, data *GenerateBasic, isGenRefresh bool) (access, refresh string, err error)
	}

	// TokenGenerateRequest provide to generate the token request parameters
	TokenGenerateRequest struct {
		ClientID       string
		ClientSecret   string
		UserID         string
		RedirectURI    string
		Scope          string
		Code           string
		Refresh        string
		AccessTokenExp time.Duration
		Request        *http.Request
	}

	// Manager authorization management interface
	Manager interface {
		// GetClient get the client information
		GetClient(ctx context.Context, clientID string) (cli ClientInfo, err error)

		// GenerateAuthToken generate the authorization token(code)
		GenerateAuthToken(ctx context.Context, rt ResponseType, tgr *TokenGenerateRequest) (authToken TokenInfo, err error)

		// GenerateAccessToken generate the access token
		GenerateAccessToken(ctx context.Context, gt GrantType, tgr *TokenGenerateRequest) (accessToken TokenInfo, err error)

		// RefreshAccessToken refreshing an access token
		RefreshAccessToken(ctx context.Context, tgr *TokenGenerateRequest) (accessToken TokenInfo, err error)

		// RemoveAccessToken use the access token to delete the token information
		RemoveAccessToken(ctx context.Context, access string) (err error)

		// RemoveRefreshToken use the refresh token to delete the token information
		RemoveRefreshToken(ctx context.Context, refresh string) (err error)

		// LoadAccessToken according to the access token for corresponding token information
		LoadAccessToken(ctx context.Context, access string) (ti TokenInfo, err error)

		// LoadRefreshToken according to the refresh token for corresponding token information
		LoadRefreshToken(ctx context.Context, refresh string) (ti TokenInfo, err error)
	}
)
