package server

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-session/session/v3"
)

var loginTemplate = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<head><title>Sign in</title></head>
<body>
<form method="post" action="/login">
{{if .Failed}}<p>Invalid username or password.</p>{{end}}
<label>Username <input type="text" name="username"/></label>
<label>Password <input type="password" name="password"/></label>
<button type="submit">Sign in</button>
</form>
</body>
</html>`))

// SessionUserAuthorizationHandler resolves the authenticated user from the
// session. Unauthenticated requests have their authorize form stashed and
// are sent to the login page; the authorize endpoint replays the form after
// login completes.
func (s *Server) SessionUserAuthorizationHandler(w http.ResponseWriter, r *http.Request) (string, error) {
	st, err := session.Start(r.Context(), w, r)
	if err != nil {
		return "", err
	}

	uid, ok := st.Get("LoggedInUserID")
	if !ok {
		if r.Form == nil {
			_ = r.ParseForm()
		}
		st.Set("ReturnUri", r.Form.Encode())
		_ = st.Save()

		w.Header().Set("Location", "/login")
		w.WriteHeader(http.StatusFound)
		return "", nil
	}

	userID, _ := uid.(string)
	return userID, nil
}

// HandleLoginGet renders the login form.
func (s *Server) HandleLoginGet(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/html;charset=UTF-8")
	return loginTemplate.Execute(w, map[string]interface{}{"Failed": false})
}

// HandleLoginPost authenticates the posted credentials against the user
// store and, on success, resumes the stashed authorize request.
func (s *Server) HandleLoginPost(w http.ResponseWriter, r *http.Request) error {
	st, err := session.Start(r.Context(), w, r)
	if err != nil {
		return err
	}
	if r.Form == nil {
		if err := r.ParseForm(); err != nil {
			return err
		}
	}

	if s.Users == nil {
		w.Header().Set("Content-Type", "text/html;charset=UTF-8")
		w.WriteHeader(http.StatusUnauthorized)
		return loginTemplate.Execute(w, map[string]interface{}{"Failed": true})
	}

	username := r.Form.Get("username")
	password := r.Form.Get("password")
	u, err := s.Users.Authenticate(r.Context(), username, password)
	if err != nil {
		w.Header().Set("Content-Type", "text/html;charset=UTF-8")
		w.WriteHeader(http.StatusUnauthorized)
		return loginTemplate.Execute(w, map[string]interface{}{"Failed": true})
	}

	st.Set("LoggedInUserID", u.ID)

	location := "/connect/authorize"
	if v, ok := st.Get("ReturnUri"); ok {
		if enc, ok := v.(string); ok && enc != "" {
			if form, perr := url.ParseQuery(enc); perr == nil && len(form) > 0 {
				location = "/connect/authorize?" + form.Encode()
			}
		}
		st.Delete("ReturnUri")
	}
	_ = st.Save()

	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
	return nil
}

// EndSession destroys the caller's session. Used by the logout endpoint.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) error {
	return session.Destroy(r.Context(), w, r)
}
