package server

import (
	"github.com/legit-games/authserver"
)

func tokenRequest() *authserver.TokenGenerateRequest {
	return &authserver.TokenGenerateRequest{
		ClientID:    testClientID,
		UserID:      "user-alice",
		RedirectURI: "http://localhost:5000/signin-oidc",
		Scope:       "openid profile email roles",
	}
}

func exchangeRequest(code string) *authserver.TokenGenerateRequest {
	return &authserver.TokenGenerateRequest{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		RedirectURI:  "http://localhost:5000/signin-oidc",
		Code:         code,
	}
}
