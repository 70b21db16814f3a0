package server

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
)

// scopeSet splits a space separated scope string for membership checks.
func scopeSet(scope string) map[string]bool {
	set := make(map[string]bool)
	for _, s := range strings.Fields(scope) {
		set[s] = true
	}
	return set
}

// HandleOIDCDiscovery serves the OpenID Provider Metadata.
func (s *Server) HandleOIDCDiscovery(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil
	}
	issuer := s.Config.Issuer
	meta := map[string]interface{}{
		"issuer":                                issuer,
		"authorization_endpoint":                issuer + "/connect/authorize",
		"token_endpoint":                        issuer + "/connect/token",
		"end_session_endpoint":                  issuer + "/connect/logout",
		"userinfo_endpoint":                     issuer + "/api/userinfo",
		"jwks_uri":                              issuer + "/.well-known/jwks.json",
		"response_types_supported":              []string{"code"},
		"response_modes_supported":              []string{"query", "fragment", "form_post"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{s.signingAlg()},
		"scopes_supported":                      []string{"openid", "profile", "email", "phone", "roles", "offline_access"},
		"grant_types_supported":                 []string{"authorization_code", "refresh_token"},
		"token_endpoint_auth_methods_supported": []string{"client_secret_basic", "client_secret_post"},
	}
	if s.Config.IntrospectionEnabled {
		meta["introspection_endpoint"] = issuer + "/connect/introspect"
	}
	if s.Config.RevocationEnabled {
		meta["revocation_endpoint"] = issuer + "/connect/revoke"
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(meta)
}

func (s *Server) signingAlg() string {
	if s.AccessGenerate != nil {
		return s.AccessGenerate.SignedMethod.Alg()
	}
	return "HS256"
}

// HandleOIDCJWKS serves the public key set used to verify issued tokens.
// Symmetric deployments publish an empty set.
func (s *Server) HandleOIDCJWKS(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil
	}

	keys := []map[string]interface{}{}
	if s.AccessGenerate != nil {
		if pub, err := s.AccessGenerate.PublicKey(); err == nil && pub != nil {
			if jwk := publicJWK(pub, s.AccessGenerate.SignedKeyID, s.signingAlg()); jwk != nil {
				keys = append(keys, jwk)
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]interface{}{"keys": keys})
}

func publicJWK(pub interface{}, kid, alg string) map[string]interface{} {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return map[string]interface{}{
			"kty": "RSA",
			"kid": kid,
			"alg": alg,
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(k.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.E)).Bytes()),
		}
	case *ecdsa.PublicKey:
		return map[string]interface{}{
			"kty": "EC",
			"kid": kid,
			"alg": alg,
			"use": "sig",
			"crv": k.Curve.Params().Name,
			"x":   base64.RawURLEncoding.EncodeToString(k.X.Bytes()),
			"y":   base64.RawURLEncoding.EncodeToString(k.Y.Bytes()),
		}
	case ed25519.PublicKey:
		return map[string]interface{}{
			"kty": "OKP",
			"kid": kid,
			"alg": alg,
			"use": "sig",
			"crv": "Ed25519",
			"x":   base64.RawURLEncoding.EncodeToString(k),
		}
	}
	return nil
}

// HandleOIDCUserInfo serves user claims gated by the scopes granted to the
// presented access token. sub is always returned; email, phone and roles
// claims require their respective scopes. The roles response merges role
// names with the permission claims the user holds through them.
func (s *Server) HandleOIDCUserInfo(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil
	}
	ti, err := s.ValidationBearerToken(r)
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		w.WriteHeader(http.StatusUnauthorized)
		return nil
	}

	userID := ti.GetUserID()
	scopes := scopeSet(ti.GetScope())
	claims := map[string]interface{}{
		"sub": userID,
	}

	if s.Users != nil {
		if u, uerr := s.Users.GetByID(r.Context(), userID); uerr == nil {
			if scopes["profile"] {
				claims["preferred_username"] = u.Username
			}
			if scopes["email"] {
				claims["email"] = u.Email
				claims["email_verified"] = u.EmailVerified
			}
			if scopes["phone"] {
				claims["phone_number"] = u.PhoneNumber
				claims["phone_number_verified"] = u.PhoneNumberVerified
			}
			if scopes["roles"] {
				roles := u.RoleNames()
				if s.UserClaims != nil {
					roles = append(roles, s.UserClaims.ResolvePermissions(r.Context(), userID)...)
				}
				claims["roles"] = roles
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(claims)
}
