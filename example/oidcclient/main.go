package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
)

var (
	authBaseURL   = env("OIDC_AUTH_BASE_URL", "http://localhost:9096")
	clientID      = env("OIDC_CLIENT_ID", "mvc")
	clientSecret  = env("OIDC_CLIENT_SECRET", "901564A5-E7FE-42CB-B10D-61EF6A8F3654")
	redirectURL   = env("OIDC_REDIRECT_URL", "http://localhost:9098/callback")
	stateExpected = env("OIDC_STATE", "xyz")
)

var (
	conf  *oauth2.Config
	token *oauth2.Token
)

func main() {
	conf = &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "profile", "email", "roles"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  authBaseURL + "/connect/authorize",
			TokenURL: authBaseURL + "/connect/token",
		},
	}

	http.HandleFunc("/", handleIndex)
	http.HandleFunc("/authorize", handleAuthorize)
	http.HandleFunc("/callback", handleCallback)
	http.HandleFunc("/userinfo", handleUserInfo)
	http.HandleFunc("/refresh", handleRefresh)
	http.HandleFunc("/logout", handleLogout)

	port := os.Getenv("OIDC_CLIENT_PORT")
	if port == "" {
		port = "9098"
	}
	log.Printf("example client running at http://localhost:%s", port)
	log.Printf("config: AUTH_BASE=%s CLIENT_ID=%s REDIRECT_URL=%s", authBaseURL, clientID, redirectURL)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	access, refresh, id := "", "", ""
	if token != nil {
		access = token.AccessToken
		refresh = token.RefreshToken
		id, _ = token.Extra("id_token").(string)
	}
	fmt.Fprintf(w, `<h1>Example Client</h1>
<ul>
	<li><a href="/authorize">Start authorization code flow</a></li>
	<li><a href="/userinfo">Call UserInfo</a></li>
	<li><a href="/refresh">Refresh tokens</a></li>
	<li><a href="/logout">Sign out</a></li>
</ul>
<pre>access_token=%s
refresh_token=%s
id_token=%s</pre>`, access, refresh, id)
}

func handleAuthorize(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, conf.AuthCodeURL(stateExpected), http.StatusFound)
}

func handleCallback(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	if r.Form.Get("state") != stateExpected {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	code := r.Form.Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	tok, err := conf.Exchange(context.Background(), code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	token = tok
	http.Redirect(w, r, "/", http.StatusFound)
}

func handleUserInfo(w http.ResponseWriter, r *http.Request) {
	if token == nil {
		http.Error(w, "run /authorize first", http.StatusBadRequest)
		return
	}
	client := conf.Client(context.Background(), token)
	resp, err := client.Get(authBaseURL + "/api/userinfo")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func handleRefresh(w http.ResponseWriter, r *http.Request) {
	if token == nil || token.RefreshToken == "" {
		http.Error(w, "no refresh token", http.StatusBadRequest)
		return
	}
	src := conf.TokenSource(context.Background(), &oauth2.Token{RefreshToken: token.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	token = tok
	respJSON(w, map[string]string{
		"access_token":  tok.AccessToken,
		"refresh_token": tok.RefreshToken,
	})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	token = nil
	http.Redirect(w, r, authBaseURL+"/connect/logout?client_id="+clientID+
		"&post_logout_redirect_uri=http://localhost:5000/signout-callback-oidc", http.StatusFound)
}

func respJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
