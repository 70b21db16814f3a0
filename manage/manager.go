package manage

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/legit-games/authserver"
	"github.com/legit-games/authserver/errors"
	"github.com/legit-games/authserver/generates"
	"github.com/legit-games/authserver/models"
)

// ValidateURIHandler checks a requested redirect URI against the client's
// registered set.
type ValidateURIHandler func(client authserver.ClientInfo, redirectURI string) error

// DefaultValidateURI requires an exact, case sensitive match against one of
// the registered URIs. No prefix, subpath or wildcard forms.
func DefaultValidateURI(client authserver.ClientInfo, redirectURI string) error {
	for _, uri := range client.GetRedirectURIs() {
		if uri == redirectURI {
			return nil
		}
	}
	return errors.ErrInvalidRedirectURI
}

// NewDefaultManager create to default authorization management instance
func NewDefaultManager() *Manager {
	m := NewManager()
	m.MapAuthorizeGenerate(generates.NewAuthorizeGenerate())
	m.SetAuthorizeCodeTokenCfg(DefaultAuthorizeCodeTokenCfg)
	m.SetRefreshTokenCfg(DefaultRefreshTokenCfg)
	return m
}

// NewManager create to authorization management instance
func NewManager() *Manager {
	return &Manager{
		codeExp:     DefaultCodeExp,
		gtcfg:       make(map[authserver.GrantType]*Config),
		validateURI: DefaultValidateURI,
	}
}

// Manager provide authorization management
type Manager struct {
	codeExp           time.Duration
	gtcfg             map[authserver.GrantType]*Config
	rcfg              *RefreshingConfig
	validateURI       ValidateURIHandler
	authorizeGenerate authserver.AuthorizeGenerate
	accessGenerate    authserver.AccessGenerate
	tokenStore        authserver.TokenStore
	clientStore       authserver.ClientStore
}

// grant type config
func (m *Manager) grantConfig(gt authserver.GrantType) *Config {
	if c, ok := m.gtcfg[gt]; ok && c != nil {
		return c
	}
	if gt == authserver.AuthorizationCode {
		return DefaultAuthorizeCodeTokenCfg
	}
	return &Config{}
}

// SetAuthorizeCodeExp set the authorization code expiration time
func (m *Manager) SetAuthorizeCodeExp(exp time.Duration) {
	m.codeExp = exp
}

// SetAuthorizeCodeTokenCfg set the authorization code grant token config
func (m *Manager) SetAuthorizeCodeTokenCfg(cfg *Config) {
	m.gtcfg[authserver.AuthorizationCode] = cfg
}

// SetRefreshTokenCfg set the refreshing token config
func (m *Manager) SetRefreshTokenCfg(cfg *RefreshingConfig) {
	m.rcfg = cfg
}

// SetValidateURIHandler set the redirect URI validation handler
func (m *Manager) SetValidateURIHandler(handler ValidateURIHandler) {
	m.validateURI = handler
}

// MapAuthorizeGenerate mapping the authorize code generate interface
func (m *Manager) MapAuthorizeGenerate(gen authserver.AuthorizeGenerate) {
	m.authorizeGenerate = gen
}

// MapAccessGenerate mapping the access token generate interface
func (m *Manager) MapAccessGenerate(gen authserver.AccessGenerate) {
	m.accessGenerate = gen
}

// MapClientStorage mapping the client store interface
func (m *Manager) MapClientStorage(stor authserver.ClientStore) {
	m.clientStore = stor
}

// MapTokenStorage mapping the token store interface
func (m *Manager) MapTokenStorage(stor authserver.TokenStore) {
	m.tokenStore = stor
}

// MustTokenStorage mandatory mapping the token store interface
func (m *Manager) MustTokenStorage(stor authserver.TokenStore, err error) {
	if err != nil {
		panic(err)
	}
	m.tokenStore = stor
}

// GetClient get the client information
func (m *Manager) GetClient(ctx context.Context, clientID string) (authserver.ClientInfo, error) {
	cli, err := m.clientStore.GetByID(ctx, clientID)
	if err != nil {
		return nil, errors.ErrInvalidClient
	} else if cli == nil {
		return nil, errors.ErrInvalidClient
	}
	return cli, nil
}

// VerifyClientSecret checks the presented secret against the registered one.
// Clients verifying their own (hashed) secrets take precedence; the fallback
// compares in constant time.
func VerifyClientSecret(cli authserver.ClientInfo, secret string) bool {
	if v, ok := cli.(authserver.ClientSecretVerifier); ok {
		return v.VerifySecret(secret)
	}
	return subtle.ConstantTimeCompare([]byte(cli.GetSecret()), []byte(secret)) == 1
}

// GenerateAuthToken generate the authorization token(code)
func (m *Manager) GenerateAuthToken(ctx context.Context, rt authserver.ResponseType, tgr *authserver.TokenGenerateRequest) (authserver.TokenInfo, error) {
	if rt != authserver.Code {
		return nil, errors.ErrUnsupportedResponseType
	}

	cli, err := m.GetClient(ctx, tgr.ClientID)
	if err != nil {
		return nil, err
	}
	if err := m.validateURI(cli, tgr.RedirectURI); err != nil {
		return nil, err
	}

	ti := models.NewToken()
	ti.SetClientID(tgr.ClientID)
	ti.SetUserID(tgr.UserID)
	ti.SetRedirectURI(tgr.RedirectURI)
	ti.SetScope(tgr.Scope)

	createAt := time.Now()
	td := &authserver.GenerateBasic{
		Client:    cli,
		UserID:    tgr.UserID,
		CreateAt:  createAt,
		TokenInfo: ti,
		Request:   tgr.Request,
	}

	ti.SetCodeCreateAt(createAt)
	ti.SetCodeExpiresIn(m.codeExp)
	code, err := m.authorizeGenerate.Token(ctx, td)
	if err != nil {
		return nil, err
	}
	ti.SetCode(code)

	if err := m.tokenStore.Create(ctx, ti); err != nil {
		return nil, err
	}
	return ti, nil
}

// getAndDelAuthorizationCode loads the grant bound to the code and consumes
// it. A code is single use whatever the outcome of the exchange.
func (m *Manager) getAndDelAuthorizationCode(ctx context.Context, tgr *authserver.TokenGenerateRequest) (authserver.TokenInfo, error) {
	code := tgr.Code
	ti, err := m.tokenStore.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	} else if ti == nil || ti.GetCode() != code || ti.GetCodeCreateAt().Add(ti.GetCodeExpiresIn()).Before(time.Now()) {
		return nil, errors.ErrInvalidAuthorizeCode
	} else if ti.GetClientID() != tgr.ClientID {
		return nil, errors.ErrInvalidAuthorizeCode
	} else if codeURI := ti.GetRedirectURI(); codeURI != "" && codeURI != tgr.RedirectURI {
		return nil, errors.ErrInvalidAuthorizeCode
	}

	if err := m.tokenStore.RemoveByCode(ctx, code); err != nil {
		return nil, err
	}
	return ti, nil
}

// GenerateAccessToken generate the access token
func (m *Manager) GenerateAccessToken(ctx context.Context, gt authserver.GrantType, tgr *authserver.TokenGenerateRequest) (authserver.TokenInfo, error) {
	cli, err := m.GetClient(ctx, tgr.ClientID)
	if err != nil {
		return nil, err
	}
	if !VerifyClientSecret(cli, tgr.ClientSecret) {
		return nil, errors.ErrInvalidClient
	}

	if gt == authserver.AuthorizationCode {
		ti, err := m.getAndDelAuthorizationCode(ctx, tgr)
		if err != nil {
			return nil, err
		}
		tgr.UserID = ti.GetUserID()
		tgr.Scope = ti.GetScope()
	}

	ti := models.NewToken()
	ti.SetClientID(tgr.ClientID)
	ti.SetUserID(tgr.UserID)
	ti.SetRedirectURI(tgr.RedirectURI)
	ti.SetScope(tgr.Scope)

	createAt := time.Now()
	ti.SetAccessCreateAt(createAt)

	gcfg := m.grantConfig(gt)
	aexp := gcfg.AccessTokenExp
	if exp := tgr.AccessTokenExp; exp > 0 {
		aexp = exp
	}
	ti.SetAccessExpiresIn(aexp)
	if gcfg.IsGenerateRefresh {
		ti.SetRefreshCreateAt(createAt)
		ti.SetRefreshExpiresIn(gcfg.RefreshTokenExp)
	}

	td := &authserver.GenerateBasic{
		Client:    cli,
		UserID:    tgr.UserID,
		CreateAt:  createAt,
		TokenInfo: ti,
		Request:   tgr.Request,
	}

	av, rv, err := m.accessGenerate.Token(ctx, td, gcfg.IsGenerateRefresh)
	if err != nil {
		return nil, err
	}
	ti.SetAccess(av)
	if rv != "" {
		ti.SetRefresh(rv)
	}

	if err := m.tokenStore.Create(ctx, ti); err != nil {
		return nil, err
	}
	return ti, nil
}

// RefreshAccessToken refreshing an access token
func (m *Manager) RefreshAccessToken(ctx context.Context, tgr *authserver.TokenGenerateRequest) (authserver.TokenInfo, error) {
	cli, err := m.GetClient(ctx, tgr.ClientID)
	if err != nil {
		return nil, err
	}
	if !VerifyClientSecret(cli, tgr.ClientSecret) {
		return nil, errors.ErrInvalidClient
	}

	ti, err := m.LoadRefreshToken(ctx, tgr.Refresh)
	if err != nil {
		return nil, err
	}
	if ti.GetClientID() != tgr.ClientID {
		return nil, errors.ErrInvalidRefreshToken
	}

	oldAccess, oldRefresh := ti.GetAccess(), ti.GetRefresh()

	rcfg := DefaultRefreshTokenCfg
	if v := m.rcfg; v != nil {
		rcfg = v
	}

	td := &authserver.GenerateBasic{
		Client:    cli,
		UserID:    ti.GetUserID(),
		CreateAt:  time.Now(),
		TokenInfo: ti,
		Request:   tgr.Request,
	}

	ti.SetAccessCreateAt(td.CreateAt)
	if v := rcfg.AccessTokenExp; v > 0 {
		ti.SetAccessExpiresIn(v)
	}
	if v := rcfg.RefreshTokenExp; v > 0 {
		ti.SetRefreshExpiresIn(v)
	}
	if rcfg.IsResetRefreshTime {
		ti.SetRefreshCreateAt(td.CreateAt)
	}
	if scope := tgr.Scope; scope != "" {
		ti.SetScope(scope)
	}

	tv, rv, err := m.accessGenerate.Token(ctx, td, rcfg.IsGenerateRefresh)
	if err != nil {
		return nil, err
	}
	ti.SetAccess(tv)
	if rv != "" {
		ti.SetRefresh(rv)
	}

	if err := m.tokenStore.Create(ctx, ti); err != nil {
		return nil, err
	}

	if rcfg.IsRemoveAccess {
		if err := m.tokenStore.RemoveByAccess(ctx, oldAccess); err != nil {
			return nil, err
		}
	}
	if rcfg.IsRemoveRefreshing && rv != "" {
		if err := m.tokenStore.RemoveByRefresh(ctx, oldRefresh); err != nil {
			return nil, err
		}
	}

	if rv == "" {
		ti.SetRefresh("")
		ti.SetRefreshCreateAt(time.Now())
		ti.SetRefreshExpiresIn(0)
	}
	return ti, nil
}

// RemoveAccessToken use the access token to delete the token information
func (m *Manager) RemoveAccessToken(ctx context.Context, access string) error {
	if access == "" {
		return errors.ErrInvalidAccessToken
	}
	return m.tokenStore.RemoveByAccess(ctx, access)
}

// RemoveRefreshToken use the refresh token to delete the token information
func (m *Manager) RemoveRefreshToken(ctx context.Context, refresh string) error {
	if refresh == "" {
		return errors.ErrInvalidRefreshToken
	}
	return m.tokenStore.RemoveByRefresh(ctx, refresh)
}

// LoadAccessToken according to the access token for corresponding token
// information. The expiry view is kept consistent with the store: a token
// whose refresh lineage has lapsed is rejected even if the access expiry has
// not yet passed.
func (m *Manager) LoadAccessToken(ctx context.Context, access string) (authserver.TokenInfo, error) {
	if access == "" {
		return nil, errors.ErrInvalidAccessToken
	}

	ct := time.Now()
	ti, err := m.tokenStore.GetByAccess(ctx, access)
	if err != nil {
		return nil, err
	} else if ti == nil || ti.GetAccess() != access {
		return nil, errors.ErrInvalidAccessToken
	} else if ti.GetRefresh() != "" && ti.GetRefreshExpiresIn() != 0 &&
		ti.GetRefreshCreateAt().Add(ti.GetRefreshExpiresIn()).Before(ct) {
		return nil, errors.ErrExpiredRefreshToken
	} else if ti.GetAccessExpiresIn() != 0 &&
		ti.GetAccessCreateAt().Add(ti.GetAccessExpiresIn()).Before(ct) {
		return nil, errors.ErrExpiredAccessToken
	}
	return ti, nil
}

// LoadRefreshToken according to the refresh token for corresponding token
// information
func (m *Manager) LoadRefreshToken(ctx context.Context, refresh string) (authserver.TokenInfo, error) {
	if refresh == "" {
		return nil, errors.ErrInvalidRefreshToken
	}

	ti, err := m.tokenStore.GetByRefresh(ctx, refresh)
	if err != nil {
		return nil, err
	} else if ti == nil || ti.GetRefresh() != refresh {
		return nil, errors.ErrInvalidRefreshToken
	} else if ti.GetRefreshExpiresIn() != 0 && // refresh token set to not expire
		ti.GetRefreshCreateAt().Add(ti.GetRefreshExpiresIn()).Before(time.Now()) {
		return nil, errors.ErrExpiredRefreshToken
	}
	return ti, nil
}
