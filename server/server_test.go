package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/legit-games/authserver/generates"
	"github.com/legit-games/authserver/manage"
	"github.com/legit-games/authserver/models"
	"github.com/legit-games/authserver/store"
)

var (
	testClientID     = "mvc"
	testClientSecret = "901564A5-E7FE-42CB-B10D-61EF6A8F3654"
	testSigningKey   = []byte("00000000")
)

type userClaimsMap struct {
	roles map[string][]string
	perms map[string][]string
}

func (m userClaimsMap) ResolveRoles(ctx context.Context, userID string) []string {
	return m.roles[userID]
}

func (m userClaimsMap) ResolvePermissions(ctx context.Context, userID string) []string {
	return m.perms[userID]
}

func newTestServer(t *testing.T, redirectURI string) (*Server, *manage.Manager, *generates.JWTAccessGenerate) {
	t.Helper()

	manager := manage.NewDefaultManager()
	manager.MustTokenStorage(store.NewMemoryTokenStore())

	accessGen := generates.NewJWTAccessGenerate("", testSigningKey, jwt.SigningMethodHS256)
	accessGen.Resolver = userClaimsMap{
		roles: map[string][]string{
			"user-alice": {"Admin"},
			"user-bob":   {"User"},
		},
		perms: map[string][]string{
			"user-alice": {"message:admin", "message:user"},
			"user-bob":   {"message:user"},
		},
	}
	manager.MapAccessGenerate(accessGen)

	clientStore := store.NewClientStore()
	_ = clientStore.Set(testClientID, &models.Client{
		ID:                     testClientID,
		Secret:                 testClientSecret,
		RedirectURIs:           []string{redirectURI},
		PostLogoutRedirectURIs: []string{"http://localhost:5000/signout-callback-oidc"},
	})
	manager.MapClientStorage(clientStore)

	srv := NewDefaultServer(manager)
	srv.AccessGenerate = accessGen
	return srv, manager, accessGen
}

func validationAccessToken(t *testing.T, accessToken string) {
	t.Helper()

	token, err := jwt.Parse(accessToken, func(tk *jwt.Token) (interface{}, error) {
		return testSigningKey, nil
	})
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		t.Fatal("invalid access token claims")
	}
	if sub, _ := claims["sub"].(string); sub != "user-alice" {
		t.Errorf("sub = %q, want user-alice", sub)
	}
}

func TestAuthorizeCodeFlow(t *testing.T) {
	var srv *Server

	tsrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/connect/authorize":
			if err := srv.HandleAuthorizeRequest(w, r); err != nil {
				t.Error(err)
			}
		case "/connect/token":
			if err := srv.HandleTokenRequest(w, r); err != nil {
				t.Error(err)
			}
		}
	}))
	defer tsrv.Close()

	e := httpexpect.New(t, tsrv.URL)

	var issuedRefresh string

	csrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/signin-oidc" {
			return
		}
		_ = r.ParseForm()
		code, state := r.Form.Get("code"), r.Form.Get("state")
		if state != "xyz" {
			t.Error("unrecognized state:", state)
			return
		}

		resObj := e.POST("/connect/token").
			WithFormField("grant_type", "authorization_code").
			WithFormField("code", code).
			WithFormField("redirect_uri", csrvURL(r)+"/signin-oidc").
			WithBasicAuth(testClientID, testClientSecret).
			Expect().
			Status(http.StatusOK).
			JSON().Object()

		validationAccessToken(t, resObj.Value("access_token").String().Raw())
		issuedRefresh = resObj.Value("refresh_token").String().Raw()

		// the code is single use
		e.POST("/connect/token").
			WithFormField("grant_type", "authorization_code").
			WithFormField("code", code).
			WithFormField("redirect_uri", csrvURL(r)+"/signin-oidc").
			WithBasicAuth(testClientID, testClientSecret).
			Expect().
			Status(http.StatusUnauthorized).
			JSON().Object().
			ValueEqual("error", "invalid_grant")
	}))
	defer csrv.Close()

	srv, _, _ = newTestServer(t, csrv.URL+"/signin-oidc")
	srv.UserAuthorizationHandler = func(w http.ResponseWriter, r *http.Request) (string, error) {
		return "user-alice", nil
	}

	e.GET("/connect/authorize").
		WithQuery("response_type", "code").
		WithQuery("client_id", testClientID).
		WithQuery("scope", "openid profile").
		WithQuery("state", "xyz").
		WithQuery("redirect_uri", csrv.URL+"/signin-oidc").
		Expect().Status(http.StatusOK)

	if issuedRefresh == "" {
		t.Fatal("no refresh token issued during the code flow")
	}

	// refreshing rotates the pair; the old refresh token becomes unusable
	resObj := e.POST("/connect/token").
		WithFormField("grant_type", "refresh_token").
		WithFormField("refresh_token", issuedRefresh).
		WithBasicAuth(testClientID, testClientSecret).
		Expect().
		Status(http.StatusOK).
		JSON().Object()

	validationAccessToken(t, resObj.Value("access_token").String().Raw())
	rotated := resObj.Value("refresh_token").String().Raw()
	if rotated == issuedRefresh {
		t.Error("refresh token was not rotated")
	}

	e.POST("/connect/token").
		WithFormField("grant_type", "refresh_token").
		WithFormField("refresh_token", issuedRefresh).
		WithBasicAuth(testClientID, testClientSecret).
		Expect().
		Status(http.StatusUnauthorized).
		JSON().Object().
		ValueEqual("error", "invalid_grant")
}

// csrvURL rebuilds the callback server base URL from the incoming request.
func csrvURL(r *http.Request) string {
	return "http://" + r.Host
}

func TestTokenRequestClientAuthentication(t *testing.T) {
	var srv *Server

	tsrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := srv.HandleTokenRequest(w, r); err != nil {
			t.Error(err)
		}
	}))
	defer tsrv.Close()

	srv, _, _ = newTestServer(t, "http://localhost:5000/signin-oidc")

	e := httpexpect.New(t, tsrv.URL)

	// no credentials at all: the request is malformed
	e.POST("/").
		WithFormField("grant_type", "authorization_code").
		WithFormField("code", "whatever").
		WithFormField("redirect_uri", "http://localhost:5000/signin-oidc").
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		ValueEqual("error", "invalid_request")

	// basic credentials with an empty password are malformed too
	e.POST("/").
		WithFormField("grant_type", "authorization_code").
		WithFormField("code", "whatever").
		WithFormField("redirect_uri", "http://localhost:5000/signin-oidc").
		WithBasicAuth(testClientID, "").
		Expect().
		Status(http.StatusBadRequest).
		JSON().Object().
		ValueEqual("error", "invalid_request")

	// wrong secret: authentication failed
	e.POST("/").
		WithFormField("grant_type", "authorization_code").
		WithFormField("code", "whatever").
		WithFormField("redirect_uri", "http://localhost:5000/signin-oidc").
		WithBasicAuth(testClientID, "wrong-secret").
		Expect().
		Status(http.StatusUnauthorized).
		JSON().Object().
		ValueEqual("error", "invalid_client")

	// unknown client
	e.POST("/").
		WithFormField("grant_type", "authorization_code").
		WithFormField("code", "whatever").
		WithFormField("redirect_uri", "http://localhost:5000/signin-oidc").
		WithBasicAuth("ghost", "whatever").
		Expect().
		Status(http.StatusUnauthorized).
		JSON().Object().
		ValueEqual("error", "invalid_client")

	// unsupported grant before credentials are judged
	e.POST("/").
		WithFormField("grant_type", "client_credentials").
		WithBasicAuth(testClientID, testClientSecret).
		Expect().
		Status(http.StatusUnauthorized).
		JSON().Object().
		ValueEqual("error", "unsupported_grant_type")
}

func TestRevocationAndIntrospection(t *testing.T) {
	var srv *Server

	tsrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/connect/revoke":
			if err := srv.HandleRevocationRequest(w, r); err != nil {
				t.Error(err)
			}
		case "/connect/introspect":
			if err := srv.HandleIntrospectionRequest(w, r); err != nil {
				t.Error(err)
			}
		}
	}))
	defer tsrv.Close()

	var mgr *manage.Manager
	srv, mgr, _ = newTestServer(t, "http://localhost:5000/signin-oidc")

	ti, err := mgr.GenerateAuthToken(context.Background(), "code", tokenRequest())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	ati, err := mgr.GenerateAccessToken(context.Background(), "authorization_code", exchangeRequest(ti.GetCode()))
	if err != nil {
		t.Fatalf("exchange code: %v", err)
	}

	e := httpexpect.New(t, tsrv.URL)

	// active token introspects as active
	e.POST("/connect/introspect").
		WithFormField("token", ati.GetAccess()).
		WithBasicAuth(testClientID, testClientSecret).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		ValueEqual("active", true).
		ValueEqual("client_id", testClientID).
		ValueEqual("sub", "user-alice")

	// revocation always answers 200
	e.POST("/connect/revoke").
		WithFormField("token", ati.GetAccess()).
		WithBasicAuth(testClientID, testClientSecret).
		Expect().
		Status(http.StatusOK)

	// the revoked token is no longer active
	e.POST("/connect/introspect").
		WithFormField("token", ati.GetAccess()).
		WithBasicAuth(testClientID, testClientSecret).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		ValueEqual("active", false)

	// revoking garbage is still 200
	e.POST("/connect/revoke").
		WithFormField("token", "never-issued").
		WithBasicAuth(testClientID, testClientSecret).
		Expect().
		Status(http.StatusOK)

	// but introspection requires client authentication
	e.POST("/connect/introspect").
		WithFormField("token", "anything").
		Expect().
		Status(http.StatusBadRequest)
}
