package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/legit-games/authserver"
	"github.com/legit-games/authserver/errors"
)

type (
	// ClientInfoHandler get client info from request
	ClientInfoHandler func(r *http.Request) (clientID, clientSecret string, err error)

	// ClientAuthorizedHandler check the client allows to use this authorization grant type
	ClientAuthorizedHandler func(clientID string, grant authserver.GrantType) (allowed bool, err error)

	// ClientScopeHandler check the client allows to use scope
	ClientScopeHandler func(tgr *authserver.TokenGenerateRequest) (allowed bool, err error)

	// UserAuthorizationHandler get user id from request authorization
	UserAuthorizationHandler func(w http.ResponseWriter, r *http.Request) (userID string, err error)

	// PasswordAuthorizationHandler get user id from username and password
	PasswordAuthorizationHandler func(ctx context.Context, clientID, username, password string) (userID string, err error)

	// RefreshingScopeHandler check the scope of the refreshing token
	RefreshingScopeHandler func(tgr *authserver.TokenGenerateRequest, oldScope string) (allowed bool, err error)

	// RefreshingValidationHandler check if refresh_token is still valid. eg no revocation or other
	RefreshingValidationHandler func(ti authserver.TokenInfo) (allowed bool, err error)

	// ResponseErrorHandler response error handing
	ResponseErrorHandler func(re *errors.Response)

	// InternalErrorHandler internal error handing
	InternalErrorHandler func(err error) (re *errors.Response)

	// PreRedirectErrorHandler is used to override the redirect-on-error behavior
	PreRedirectErrorHandler func(w http.ResponseWriter, req *AuthorizeRequest, err error) error

	// AuthorizeScopeHandler set the authorized scope
	AuthorizeScopeHandler func(w http.ResponseWriter, r *http.Request) (scope string, err error)

	// AccessTokenExpHandler set expiration date for the access token
	AccessTokenExpHandler func(w http.ResponseWriter, r *http.Request) (exp time.Duration, err error)

	// ExtensionFieldsHandler in response to the access token with the extension of the field
	ExtensionFieldsHandler func(ti authserver.TokenInfo) (fieldsValue map[string]interface{})

	// ResponseTokenHandler response token handing
	ResponseTokenHandler func(w http.ResponseWriter, data map[string]interface{}, header http.Header, statusCode ...int) error

	// RefreshTokenResolveHandler resolve the refresh token from the request
	RefreshTokenResolveHandler func(r *http.Request) (refresh string, err error)

	// AccessTokenResolveHandler resolve the access token from the request
	AccessTokenResolveHandler func(r *http.Request) (token string, ok bool)
)

// FormValue returns the form value, parsing the form when needed.
func FormValue(r *http.Request, key string) string {
	if r.Form == nil {
		_ = r.ParseForm()
	}
	return r.Form.Get(key)
}

// ClientBasicHandler get client data from the Authorization header (Basic).
// Missing credentials are an invalid_request, not an invalid_client: the
// request is malformed before the client can be judged.
func ClientBasicHandler(r *http.Request) (string, string, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return "", "", errors.ErrInvalidRequest
	}
	return username, password, nil
}

// ClientFormHandler get client data from the request form
func ClientFormHandler(r *http.Request) (string, string, error) {
	clientID := FormValue(r, "client_id")
	if clientID == "" {
		return "", "", errors.ErrInvalidRequest
	}
	clientSecret := FormValue(r, "client_secret")
	return clientID, clientSecret, nil
}

// ClientBasicOrFormHandler tries the Authorization header first, then the
// form body. Both client_id and client_secret are mandatory either way.
func ClientBasicOrFormHandler(r *http.Request) (string, string, error) {
	if id, secret, err := ClientBasicHandler(r); err == nil {
		if id == "" || secret == "" {
			return "", "", errors.ErrInvalidRequest
		}
		return id, secret, nil
	}
	id, secret, err := ClientFormHandler(r)
	if err != nil {
		return "", "", err
	}
	if secret == "" {
		return "", "", errors.ErrInvalidRequest
	}
	return id, secret, nil
}

// RefreshTokenFormResolveHandler resolves the refresh token from the form
func RefreshTokenFormResolveHandler(r *http.Request) (string, error) {
	refresh := FormValue(r, "refresh_token")
	if refresh == "" {
		return "", errors.ErrInvalidRequest
	}
	return refresh, nil
}

// AccessTokenDefaultResolveHandler resolves a bearer token from the
// Authorization header, the form, or the query string.
func AccessTokenDefaultResolveHandler(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		prefix := "Bearer "
		if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
			return auth[len(prefix):], true
		}
		return "", false
	}
	if v := FormValue(r, "access_token"); v != "" {
		return v, true
	}
	if v := r.URL.Query().Get("access_token"); v != "" {
		return v, true
	}
	return "", false
}
