package server

import (
	"net/http"
	"net/url"

	"github.com/legit-games/authserver/errors"
)

// LogoutSessionHandler terminates the caller's authenticated session.
type LogoutSessionHandler func(w http.ResponseWriter, r *http.Request) error

// ValidationLogoutRequest validates an end-session request. The client is
// resolved from client_id, falling back to the id_token_hint audience. A
// post_logout_redirect_uri is only honored when it exactly matches one of
// the resolved client's registered post-logout URIs; an unvalidated URI is
// never redirected to.
func (s *Server) ValidationLogoutRequest(r *http.Request) (*LogoutRequest, error) {
	if !(r.Method == "GET" || r.Method == "POST") {
		return nil, errors.ErrInvalidRequest
	}

	req := &LogoutRequest{
		ClientID:              r.FormValue("client_id"),
		IDTokenHint:           r.FormValue("id_token_hint"),
		PostLogoutRedirectURI: r.FormValue("post_logout_redirect_uri"),
		State:                 r.FormValue("state"),
		Request:               r,
	}

	if req.ClientID == "" && req.IDTokenHint != "" && s.AccessGenerate != nil {
		claims, err := s.AccessGenerate.Validate(req.IDTokenHint, "")
		if err == nil && len(claims.Audience) > 0 {
			req.ClientID = claims.Audience[0]
		}
	}

	if req.PostLogoutRedirectURI == "" {
		return req, nil
	}
	if req.ClientID == "" {
		return nil, errors.ErrInvalidRequest
	}

	cli, err := s.Manager.GetClient(r.Context(), req.ClientID)
	if err != nil {
		return nil, errors.ErrInvalidClient
	}
	if !hasPostLogoutRedirectURI(cli, req.PostLogoutRedirectURI) {
		return nil, errors.ErrInvalidRedirectURI
	}
	return req, nil
}

// HandleLogoutRequest the end-session request handling. The session handler
// runs regardless of redirect validity: a malformed redirect never keeps a
// user logged in.
func (s *Server) HandleLogoutRequest(w http.ResponseWriter, r *http.Request, endSession LogoutSessionHandler) error {
	req, err := s.ValidationLogoutRequest(r)

	if endSession != nil {
		if serr := endSession(w, r); serr != nil {
			return s.tokenError(w, errors.ErrServerError)
		}
	}

	if err != nil {
		if err == errors.ErrInvalidRedirectURI {
			err = errors.ErrInvalidRequest
		}
		return s.tokenError(w, err)
	}

	if req.PostLogoutRedirectURI == "" {
		w.Header().Set("Content-Type", "text/html;charset=UTF-8")
		w.WriteHeader(http.StatusOK)
		_, werr := w.Write([]byte("<html><body>You have been signed out.</body></html>"))
		return werr
	}

	u, err := url.Parse(req.PostLogoutRedirectURI)
	if err != nil {
		return s.tokenError(w, errors.ErrInvalidRedirectURI)
	}
	if req.State != "" {
		q := u.Query()
		q.Set("state", req.State)
		u.RawQuery = q.Encode()
	}

	w.Header().Set("Location", u.String())
	w.WriteHeader(http.StatusFound)
	return nil
}
