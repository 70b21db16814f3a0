package generates

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/legit-games/authserver"
	"github.com/legit-games/authserver/errors"
)

// JWTAccessClaims jwt claims
type JWTAccessClaims struct {
	jwt.RegisteredClaims
	ClientID    string   `json:"client_id,omitempty"`
	Scope       string   `json:"scope,omitempty"` // Space-separated scopes per RFC 6749
	Roles       []string `json:"roles"`           // Always include, even if empty
	Permissions []string `json:"permissions"`     // Always include, even if empty
	Kind        string   `json:"kind,omitempty"`  // access | identity
}

// ClaimsResolver supplies per-subject roles and permission claims embedded
// into minted tokens. Passed explicitly at construction; no process-wide
// claim-type maps.
type ClaimsResolver interface {
	ResolveRoles(ctx context.Context, userID string) []string
	ResolvePermissions(ctx context.Context, userID string) []string
}

// NewJWTAccessGenerate create to generate the jwt access token instance
func NewJWTAccessGenerate(kid string, key []byte, method jwt.SigningMethod) *JWTAccessGenerate {
	return &JWTAccessGenerate{
		SignedKeyID:  kid,
		SignedKey:    key,
		SignedMethod: method,
	}
}

// JWTAccessGenerate generate the jwt access token
type JWTAccessGenerate struct {
	SignedKeyID  string
	SignedKey    []byte
	SignedMethod jwt.SigningMethod

	// Issuer stamped into and required of every token
	Issuer string
	// IdentityTokenExp lifetime for ID tokens minted alongside openid scope
	IdentityTokenExp time.Duration
	// Resolver optionally enriches user tokens with roles/permissions
	Resolver ClaimsResolver
}

// Token mints a signed access token and, when requested, an opaque refresh
// token whose lineage is tracked by the token store.
func (a *JWTAccessGenerate) Token(ctx context.Context, data *authserver.GenerateBasic, isGenRefresh bool) (string, string, error) {
	claims := &JWTAccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.Issuer,
			Audience:  jwt.ClaimStrings{data.Client.GetID()},
			Subject:   data.UserID,
			IssuedAt:  jwt.NewNumericDate(data.TokenInfo.GetAccessCreateAt()),
			ExpiresAt: jwt.NewNumericDate(data.TokenInfo.GetAccessCreateAt().Add(data.TokenInfo.GetAccessExpiresIn())),
		},
		ClientID:    data.Client.GetID(),
		Scope:       data.TokenInfo.GetScope(),
		Roles:       []string{},
		Permissions: []string{},
		Kind:        string(authserver.KindAccess),
	}

	if a.Resolver != nil && data.UserID != "" {
		if roles := a.Resolver.ResolveRoles(ctx, data.UserID); len(roles) > 0 {
			claims.Roles = append(claims.Roles, roles...)
		}
		if perms := a.Resolver.ResolvePermissions(ctx, data.UserID); len(perms) > 0 {
			claims.Permissions = append(claims.Permissions, perms...)
		}
	}

	access, err := a.sign(claims)
	if err != nil {
		return "", "", err
	}

	refresh := ""
	if isGenRefresh {
		t := uuid.NewSHA1(uuid.Must(uuid.NewRandom()), []byte(access)).String()
		refresh = base64.URLEncoding.EncodeToString([]byte(t))
		refresh = strings.ToUpper(strings.TrimRight(refresh, "="))
	}

	return access, refresh, nil
}

// IdentityToken mints an OpenID Connect ID token for the subject.
func (a *JWTAccessGenerate) IdentityToken(ctx context.Context, data *authserver.GenerateBasic) (string, error) {
	exp := a.IdentityTokenExp
	if exp <= 0 {
		exp = 5 * time.Minute
	}
	claims := &JWTAccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.Issuer,
			Audience:  jwt.ClaimStrings{data.Client.GetID()},
			Subject:   data.UserID,
			IssuedAt:  jwt.NewNumericDate(data.CreateAt),
			ExpiresAt: jwt.NewNumericDate(data.CreateAt.Add(exp)),
		},
		ClientID:    data.Client.GetID(),
		Roles:       []string{},
		Permissions: []string{},
		Kind:        string(authserver.KindIdentity),
	}
	return a.sign(claims)
}

// Validate verifies signature, expiry and issuer of a presented bearer token
// and returns its decoded claims. Audience is checked when expected is not
// empty. Failures map onto authentication errors, never panics.
func (a *JWTAccessGenerate) Validate(tokenString string, expectedAudience string) (*JWTAccessClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{a.SignedMethod.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.Issuer))
	}
	if expectedAudience != "" {
		opts = append(opts, jwt.WithAudience(expectedAudience))
	}

	claims := &JWTAccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return a.verifyKey()
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrExpiredAccessToken
		}
		return nil, errors.ErrInvalidAccessToken
	}
	if !token.Valid {
		return nil, errors.ErrInvalidAccessToken
	}
	return claims, nil
}

// PublicKey exposes the verification key for JWKS publication. For HMAC
// methods there is no publishable key and nil is returned.
func (a *JWTAccessGenerate) PublicKey() (interface{}, error) {
	if a.isHs() {
		return nil, nil
	}
	return a.verifyKey()
}

func (a *JWTAccessGenerate) sign(claims *JWTAccessClaims) (string, error) {
	token := jwt.NewWithClaims(a.SignedMethod, claims)
	if a.SignedKeyID != "" {
		token.Header["kid"] = a.SignedKeyID
	}
	key, err := a.signKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

func (a *JWTAccessGenerate) signKey() (interface{}, error) {
	switch {
	case a.isEs():
		return jwt.ParseECPrivateKeyFromPEM(a.SignedKey)
	case a.isRsOrPS():
		return jwt.ParseRSAPrivateKeyFromPEM(a.SignedKey)
	case a.isHs():
		return a.SignedKey, nil
	case a.isEd():
		return jwt.ParseEdPrivateKeyFromPEM(a.SignedKey)
	}
	return nil, errors.New("unsupported sign method")
}

func (a *JWTAccessGenerate) verifyKey() (interface{}, error) {
	switch {
	case a.isEs():
		priv, err := jwt.ParseECPrivateKeyFromPEM(a.SignedKey)
		if err != nil {
			return nil, err
		}
		return &priv.PublicKey, nil
	case a.isRsOrPS():
		priv, err := jwt.ParseRSAPrivateKeyFromPEM(a.SignedKey)
		if err != nil {
			return nil, err
		}
		return &priv.PublicKey, nil
	case a.isHs():
		return a.SignedKey, nil
	case a.isEd():
		priv, err := jwt.ParseEdPrivateKeyFromPEM(a.SignedKey)
		if err != nil {
			return nil, err
		}
		if k, ok := priv.(ed25519.PrivateKey); ok {
			return k.Public(), nil
		}
		return nil, errors.New("unsupported sign method")
	}
	return nil, errors.New("unsupported sign method")
}

func (a *JWTAccessGenerate) isEs() bool {
	return strings.HasPrefix(a.SignedMethod.Alg(), "ES")
}

func (a *JWTAccessGenerate) isRsOrPS() bool {
	isRs := strings.HasPrefix(a.SignedMethod.Alg(), "RS")
	isPs := strings.HasPrefix(a.SignedMethod.Alg(), "PS")
	return isRs || isPs
}

func (a *JWTAccessGenerate) isHs() bool { return strings.HasPrefix(a.SignedMethod.Alg(), "HS") }
func (a *JWTAccessGenerate) isEd() bool { return strings.HasPrefix(a.SignedMethod.Alg(), "Ed") }
