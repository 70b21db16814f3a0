package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/legit-games/authserver"
	"github.com/legit-games/authserver/errors"
	"github.com/legit-games/authserver/generates"
	"github.com/legit-games/authserver/manage"
	"github.com/legit-games/authserver/models"
	"github.com/legit-games/authserver/permission"
)

// UserDirectory looks up and authenticates resource owner accounts.
// The gorm backed store.UserStore satisfies it.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// NewDefaultServer create a default authorization server
func NewDefaultServer(manager authserver.Manager) *Server {
	return NewServer(NewConfig(), manager)
}

// NewServer create authorization server
func NewServer(cfg *Config, manager authserver.Manager) *Server {
	srv := &Server{
		Config:  cfg,
		Manager: manager,
	}

	// default handlers
	srv.ClientInfoHandler = ClientBasicOrFormHandler
	srv.RefreshTokenResolveHandler = RefreshTokenFormResolveHandler
	srv.AccessTokenResolveHandler = AccessTokenDefaultResolveHandler

	srv.UserAuthorizationHandler = func(w http.ResponseWriter, r *http.Request) (string, error) {
		return "", errors.ErrAccessDenied
	}
	return srv
}

// Server Provide authorization server
type Server struct {
	Config                      *Config
	Manager                     authserver.Manager
	AccessGenerate              *generates.JWTAccessGenerate
	Users                       UserDirectory
	UserClaims                  generates.ClaimsResolver
	Policies                    *permission.Registry
	PermissionHandler           *permission.Handler
	ClientInfoHandler           ClientInfoHandler
	ClientAuthorizedHandler     ClientAuthorizedHandler
	ClientScopeHandler          ClientScopeHandler
	UserAuthorizationHandler    UserAuthorizationHandler
	RefreshingValidationHandler RefreshingValidationHandler
	PreRedirectErrorHandler     PreRedirectErrorHandler
	RefreshingScopeHandler      RefreshingScopeHandler
	ResponseErrorHandler        ResponseErrorHandler
	InternalErrorHandler        InternalErrorHandler
	ExtensionFieldsHandler      ExtensionFieldsHandler
	AccessTokenExpHandler       AccessTokenExpHandler
	AuthorizeScopeHandler       AuthorizeScopeHandler
	ResponseTokenHandler        ResponseTokenHandler
	RefreshTokenResolveHandler  RefreshTokenResolveHandler
	AccessTokenResolveHandler   AccessTokenResolveHandler
}

func (s *Server) handleError(w http.ResponseWriter, req *AuthorizeRequest, err error) error {
	if fn := s.PreRedirectErrorHandler; fn != nil {
		return fn(w, req, err)
	}

	return s.redirectError(w, req, err)
}

func (s *Server) redirectError(w http.ResponseWriter, req *AuthorizeRequest, err error) error {
	if req == nil {
		return err
	}

	data, _, _ := s.GetErrorData(err)
	return s.redirect(w, req, data)
}

// formPostTemplate auto-submits the authorization response back to the
// client's redirect URI per OAuth 2.0 Form Post Response Mode.
var formPostTemplate = template.Must(template.New("form_post").Parse(`<!DOCTYPE html>
<html>
<head><title>Submit this form</title></head>
<body onload="document.forms[0].submit()">
<form method="post" action="{{.RedirectURI}}">
{{- range $k, $v := .Fields}}
<input type="hidden" name="{{$k}}" value="{{$v}}"/>
{{- end}}
</form>
</body>
</html>`))

func (s *Server) redirect(w http.ResponseWriter, req *AuthorizeRequest, data map[string]interface{}) error {
	if req.ResponseMode == authserver.FormPost {
		fields := make(map[string]string, len(data)+1)
		if req.State != "" {
			fields["state"] = req.State
		}
		for k, v := range data {
			fields[k] = fmt.Sprint(v)
		}
		w.Header().Set("Content-Type", "text/html;charset=UTF-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		return formPostTemplate.Execute(w, map[string]interface{}{
			"RedirectURI": req.RedirectURI,
			"Fields":      fields,
		})
	}

	uri, err := s.GetRedirectURI(req, data)
	if err != nil {
		return err
	}

	w.Header().Set("Location", uri)
	w.WriteHeader(302)
	return nil
}

func (s *Server) tokenError(w http.ResponseWriter, err error) error {
	data, statusCode, header := s.GetErrorData(err)
	return s.token(w, data, header, statusCode)
}

func (s *Server) token(w http.ResponseWriter, data map[string]interface{}, header http.Header, statusCode ...int) error {
	if fn := s.ResponseTokenHandler; fn != nil {
		return fn(w, data, header, statusCode...)
	}
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	for key := range header {
		w.Header().Set(key, header.Get(key))
	}

	status := http.StatusOK
	if len(statusCode) > 0 && statusCode[0] > 0 {
		status = statusCode[0]
	}

	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GetRedirectURI get redirect uri
func (s *Server) GetRedirectURI(req *AuthorizeRequest, data map[string]interface{}) (string, error) {
	u, err := url.Parse(req.RedirectURI)
	if err != nil {
		return "", err
	}

	q := u.Query()
	if req.State != "" {
		q.Set("state", req.State)
	}

	for k, v := range data {
		q.Set(k, fmt.Sprint(v))
	}

	switch req.ResponseMode {
	case authserver.Fragment:
		u.RawQuery = ""
		fragment, err := url.QueryUnescape(q.Encode())
		if err != nil {
			return "", err
		}
		u.Fragment = fragment
	default:
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// CheckResponseType check allows response type
func (s *Server) CheckResponseType(rt authserver.ResponseType) bool {
	for _, art := range s.Config.AllowedResponseTypes {
		if art == rt {
			return true
		}
	}
	return false
}

// CheckResponseMode check allows response mode
func (s *Server) CheckResponseMode(rm authserver.ResponseMode) bool {
	for _, arm := range s.Config.AllowedResponseModes {
		if arm == rm {
			return true
		}
	}
	return false
}

// CheckGrantType check allows grant type
func (s *Server) CheckGrantType(gt authserver.GrantType) bool {
	for _, agt := range s.Config.AllowedGrantTypes {
		if agt == gt {
			return true
		}
	}
	return false
}

// hasRedirectURI exact, case sensitive membership test against the client's
// registered set.
func hasRedirectURI(cli authserver.ClientInfo, uri string) bool {
	for _, registered := range cli.GetRedirectURIs() {
		if registered == uri {
			return true
		}
	}
	return false
}

func hasPostLogoutRedirectURI(cli authserver.ClientInfo, uri string) bool {
	for _, registered := range cli.GetPostLogoutRedirectURIs() {
		if registered == uri {
			return true
		}
	}
	return false
}

// ValidationAuthorizeRequest the authorization request validation.
// Checks run in a fixed order: response_type, response_mode, client,
// redirect_uri. No error is ever delivered to an unvalidated redirect_uri.
func (s *Server) ValidationAuthorizeRequest(r *http.Request) (*AuthorizeRequest, error) {
	redirectURI := r.FormValue("redirect_uri")
	clientID := r.FormValue("client_id")
	if !(r.Method == "GET" || r.Method == "POST") ||
		clientID == "" {
		return nil, errors.ErrInvalidRequest
	}

	resType := authserver.ResponseType(r.FormValue("response_type"))
	if resType.String() == "" || !s.CheckResponseType(resType) {
		return nil, errors.ErrUnsupportedResponseType
	}

	resMode := authserver.ResponseMode(r.FormValue("response_mode"))
	if resMode == "" {
		resMode = authserver.Query
	}
	if resMode.String() == "" || !s.CheckResponseMode(resMode) {
		return nil, errors.ErrInvalidRequest
	}

	cli, err := s.Manager.GetClient(r.Context(), clientID)
	if err != nil {
		return nil, errors.ErrInvalidClient
	}
	if redirectURI == "" {
		// absent redirect_uri falls back to the client's sole registered
		// URI; ambiguous registrations cannot be resolved safely
		uris := cli.GetRedirectURIs()
		if len(uris) != 1 {
			return nil, errors.ErrInvalidClient
		}
		redirectURI = uris[0]
	} else if !hasRedirectURI(cli, redirectURI) {
		return nil, errors.ErrInvalidClient
	}

	req := &AuthorizeRequest{
		RedirectURI:  redirectURI,
		ResponseType: resType,
		ResponseMode: resMode,
		ClientID:     clientID,
		State:        r.FormValue("state"),
		Scope:        r.FormValue("scope"),
		Nonce:        r.FormValue("nonce"),
		Request:      r,
	}
	return req, nil
}

// GetAuthorizeToken get authorization token(code)
func (s *Server) GetAuthorizeToken(ctx context.Context, req *AuthorizeRequest) (authserver.TokenInfo, error) {
	if fn := s.ClientAuthorizedHandler; fn != nil {
		allowed, err := fn(req.ClientID, authserver.AuthorizationCode)
		if err != nil {
			return nil, err
		} else if !allowed {
			return nil, errors.ErrUnauthorizedClient
		}
	}

	tgr := &authserver.TokenGenerateRequest{
		ClientID:       req.ClientID,
		UserID:         req.UserID,
		RedirectURI:    req.RedirectURI,
		Scope:          req.Scope,
		AccessTokenExp: req.AccessTokenExp,
		Request:        req.Request,
	}

	// check the client allows the authorized scope
	if fn := s.ClientScopeHandler; fn != nil {
		allowed, err := fn(tgr)
		if err != nil {
			return nil, err
		} else if !allowed {
			return nil, errors.ErrInvalidScope
		}
	}

	return s.Manager.GenerateAuthToken(ctx, req.ResponseType, tgr)
}

// GetAuthorizeData get authorization response data
func (s *Server) GetAuthorizeData(rt authserver.ResponseType, ti authserver.TokenInfo) map[string]interface{} {
	if rt == authserver.Code {
		return map[string]interface{}{
			"code": ti.GetCode(),
		}
	}
	return s.GetTokenData(ti)
}

// HandleAuthorizeRequest the authorization request handling
func (s *Server) HandleAuthorizeRequest(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	req, err := s.ValidationAuthorizeRequest(r)
	if err != nil {
		return s.handleError(w, req, err)
	}

	// user authorization
	userID, err := s.UserAuthorizationHandler(w, r)
	if err != nil {
		return s.handleError(w, req, err)
	} else if userID == "" {
		return nil
	}
	req.UserID = userID

	// specify the scope of authorization
	if fn := s.AuthorizeScopeHandler; fn != nil {
		scope, err := fn(w, r)
		if err != nil {
			return err
		} else if scope != "" {
			req.Scope = scope
		}
	}

	// specify the expiration time of access token
	if fn := s.AccessTokenExpHandler; fn != nil {
		exp, err := fn(w, r)
		if err != nil {
			return err
		}
		req.AccessTokenExp = exp
	}

	ti, err := s.GetAuthorizeToken(ctx, req)
	if err != nil {
		return s.handleError(w, req, err)
	}

	return s.redirect(w, req, s.GetAuthorizeData(req.ResponseType, ti))
}

// ValidationTokenRequest the token request validation. Grant type is checked
// before client credentials: an unsupported grant fails fast whatever the
// client presents.
func (s *Server) ValidationTokenRequest(r *http.Request) (authserver.GrantType, *authserver.TokenGenerateRequest, error) {
	if v := r.Method; !(v == "POST" ||
		(s.Config.AllowGetAccessRequest && v == "GET")) {
		return "", nil, errors.ErrInvalidRequest
	}

	gt := authserver.GrantType(r.FormValue("grant_type"))
	if gt.String() == "" || !s.CheckGrantType(gt) {
		return "", nil, errors.ErrUnsupportedGrantType
	}

	clientID, clientSecret, err := s.ClientInfoHandler(r)
	if err != nil {
		return "", nil, err
	}

	cli, err := s.Manager.GetClient(r.Context(), clientID)
	if err != nil {
		return "", nil, errors.ErrInvalidClient
	}
	if !manage.VerifyClientSecret(cli, clientSecret) {
		return "", nil, errors.ErrInvalidClient
	}

	tgr := &authserver.TokenGenerateRequest{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Request:      r,
	}

	switch gt {
	case authserver.AuthorizationCode:
		tgr.RedirectURI = r.FormValue("redirect_uri")
		tgr.Code = r.FormValue("code")
		if tgr.RedirectURI == "" ||
			tgr.Code == "" {
			return "", nil, errors.ErrInvalidRequest
		}
	case authserver.Refreshing:
		tgr.Refresh, err = s.RefreshTokenResolveHandler(r)
		tgr.Scope = r.FormValue("scope")
		if err != nil {
			return "", nil, err
		}
	}
	return gt, tgr, nil
}

// GetAccessToken access token
func (s *Server) GetAccessToken(ctx context.Context, gt authserver.GrantType, tgr *authserver.TokenGenerateRequest) (authserver.TokenInfo, error) {
	if allowed := s.CheckGrantType(gt); !allowed {
		return nil, errors.ErrUnsupportedGrantType
	}

	if fn := s.ClientAuthorizedHandler; fn != nil {
		allowed, err := fn(tgr.ClientID, gt)
		if err != nil {
			return nil, err
		} else if !allowed {
			return nil, errors.ErrUnauthorizedClient
		}
	}

	switch gt {
	case authserver.AuthorizationCode:
		ti, err := s.Manager.GenerateAccessToken(ctx, gt, tgr)
		if err != nil {
			switch err {
			case errors.ErrInvalidAuthorizeCode:
				return nil, errors.ErrInvalidGrant
			case errors.ErrInvalidClient:
				return nil, errors.ErrInvalidClient
			default:
				return nil, err
			}
		}
		return ti, nil
	case authserver.Refreshing:
		// check scope
		if scopeFn := s.RefreshingScopeHandler; tgr.Scope != "" && scopeFn != nil {
			rti, err := s.Manager.LoadRefreshToken(ctx, tgr.Refresh)
			if err != nil {
				if err == errors.ErrInvalidRefreshToken || err == errors.ErrExpiredRefreshToken {
					return nil, errors.ErrInvalidGrant
				}
				return nil, err
			}

			allowed, err := scopeFn(tgr, rti.GetScope())
			if err != nil {
				return nil, err
			} else if !allowed {
				return nil, errors.ErrInvalidScope
			}
		}

		if validationFn := s.RefreshingValidationHandler; validationFn != nil {
			rti, err := s.Manager.LoadRefreshToken(ctx, tgr.Refresh)
			if err != nil {
				if err == errors.ErrInvalidRefreshToken || err == errors.ErrExpiredRefreshToken {
					return nil, errors.ErrInvalidGrant
				}
				return nil, err
			}
			allowed, err := validationFn(rti)
			if err != nil {
				return nil, err
			} else if !allowed {
				return nil, errors.ErrInvalidScope
			}
		}

		ti, err := s.Manager.RefreshAccessToken(ctx, tgr)
		if err != nil {
			if err == errors.ErrInvalidRefreshToken || err == errors.ErrExpiredRefreshToken {
				return nil, errors.ErrInvalidGrant
			}
			return nil, err
		}
		return ti, nil
	}

	return nil, errors.ErrUnsupportedGrantType
}

// GetTokenData token data
func (s *Server) GetTokenData(ti authserver.TokenInfo) map[string]interface{} {
	data := map[string]interface{}{
		"access_token": ti.GetAccess(),
		"token_type":   s.Config.TokenType,
		"expires_in":   int64(ti.GetAccessExpiresIn() / time.Second),
	}

	if scope := ti.GetScope(); scope != "" {
		data["scope"] = scope
	}

	if refresh := ti.GetRefresh(); refresh != "" {
		data["refresh_token"] = refresh
	}

	if fn := s.ExtensionFieldsHandler; fn != nil {
		ext := fn(ti)
		for k, v := range ext {
			if _, ok := data[k]; ok {
				continue
			}
			data[k] = v
		}
	}
	return data
}

// HandleTokenRequest token request handling
func (s *Server) HandleTokenRequest(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	gt, tgr, err := s.ValidationTokenRequest(r)
	if err != nil {
		return s.tokenError(w, err)
	}

	ti, err := s.GetAccessToken(ctx, gt, tgr)
	if err != nil {
		return s.tokenError(w, err)
	}

	return s.token(w, s.GetTokenData(ti), nil)
}

// GetErrorData get error response data
func (s *Server) GetErrorData(err error) (map[string]interface{}, int, http.Header) {
	var re errors.Response
	if v, ok := errors.Descriptions[err]; ok {
		re.Error = err
		re.Description = v
		re.StatusCode = errors.StatusCodes[err]
	} else {
		if fn := s.InternalErrorHandler; fn != nil {
			if v := fn(err); v != nil {
				re = *v
			}
		}

		if re.Error == nil {
			re.Error = errors.ErrServerError
			re.Description = errors.Descriptions[errors.ErrServerError]
			re.StatusCode = errors.StatusCodes[errors.ErrServerError]
		}
	}

	if fn := s.ResponseErrorHandler; fn != nil {
		fn(&re)
	}

	data := make(map[string]interface{})
	if err := re.Error; err != nil {
		data["error"] = err.Error()
	}

	if v := re.ErrorCode; v != 0 {
		data["error_code"] = v
	}

	if v := re.Description; v != "" {
		data["error_description"] = v
	}

	if v := re.URI; v != "" {
		data["error_uri"] = v
	}

	statusCode := http.StatusInternalServerError
	if v := re.StatusCode; v > 0 {
		statusCode = v
	}

	return data, statusCode, re.Header
}

// ValidationBearerToken validation the bearer tokens
// https://tools.ietf.org/html/rfc6750
func (s *Server) ValidationBearerToken(r *http.Request) (authserver.TokenInfo, error) {
	ctx := r.Context()

	accessToken, ok := s.AccessTokenResolveHandler(r)
	if !ok {
		return nil, errors.ErrInvalidAccessToken
	}

	return s.Manager.LoadAccessToken(ctx, accessToken)
}

// authenticateClient resolves and verifies client credentials for the
// introspection and revocation endpoints.
func (s *Server) authenticateClient(r *http.Request) (authserver.ClientInfo, error) {
	clientID, clientSecret, err := s.ClientInfoHandler(r)
	if err != nil {
		return nil, err
	}
	cli, err := s.Manager.GetClient(r.Context(), clientID)
	if err != nil {
		return nil, errors.ErrInvalidClient
	}
	if !manage.VerifyClientSecret(cli, clientSecret) {
		return nil, errors.ErrInvalidClient
	}
	return cli, nil
}

// HandleRevocationRequest implements RFC 7009 Token Revocation.
// POST with form fields: token (required), token_type_hint (optional:
// access_token|refresh_token). Successful revocation returns 200 OK with an
// empty body even when the token was already invalid.
func (s *Server) HandleRevocationRequest(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return s.tokenError(w, errors.ErrInvalidRequest)
	}
	if _, err := s.authenticateClient(r); err != nil {
		return s.tokenError(w, err)
	}

	token := FormValue(r, "token")
	if token == "" {
		return s.tokenError(w, errors.ErrInvalidRequest)
	}
	hint := FormValue(r, "token_type_hint")
	ctx := r.Context()

	switch hint {
	case "access_token":
		_ = s.Manager.RemoveAccessToken(ctx, token)
	case "refresh_token":
		_ = s.Manager.RemoveRefreshToken(ctx, token)
	default:
		_ = s.Manager.RemoveAccessToken(ctx, token)
		_ = s.Manager.RemoveRefreshToken(ctx, token)
	}

	w.WriteHeader(http.StatusOK)
	return nil
}

// HandleIntrospectionRequest implements RFC 7662 Token Introspection.
// Requires client authentication. Returns token metadata JSON.
func (s *Server) HandleIntrospectionRequest(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return s.tokenError(w, errors.ErrInvalidRequest)
	}
	if _, err := s.authenticateClient(r); err != nil {
		return s.tokenError(w, err)
	}

	token := FormValue(r, "token")
	if token == "" {
		return s.tokenError(w, errors.ErrInvalidRequest)
	}
	hint := FormValue(r, "token_type_hint")

	ctx := r.Context()
	var ti authserver.TokenInfo
	var loadErr error

	switch hint {
	case "access_token":
		ti, loadErr = s.Manager.LoadAccessToken(ctx, token)
	case "refresh_token":
		ti, loadErr = s.Manager.LoadRefreshToken(ctx, token)
	default:
		ti, loadErr = s.Manager.LoadAccessToken(ctx, token)
		if loadErr != nil {
			ti, loadErr = s.Manager.LoadRefreshToken(ctx, token)
		}
	}

	active := loadErr == nil && ti != nil
	resp := map[string]interface{}{
		"active": active,
	}
	if active {
		resp["client_id"] = ti.GetClientID()
		resp["scope"] = ti.GetScope()
		resp["token_type"] = s.Config.TokenType
		resp["exp"] = ti.GetAccessCreateAt().Add(ti.GetAccessExpiresIn()).Unix()
		resp["iat"] = ti.GetAccessCreateAt().Unix()
		resp["sub"] = ti.GetUserID()
		resp["aud"] = ti.GetClientID()
		if s.Config.Issuer != "" {
			resp["iss"] = s.Config.Issuer
		}
	}

	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(resp)
}
