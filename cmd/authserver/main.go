package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/legit-games/authserver"
	"github.com/legit-games/authserver/errors"
	"github.com/legit-games/authserver/generates"
	"github.com/legit-games/authserver/manage"
	"github.com/legit-games/authserver/migrate"
	"github.com/legit-games/authserver/models"
	"github.com/legit-games/authserver/permission"
	"github.com/legit-games/authserver/seed"
	"github.com/legit-games/authserver/server"
	"github.com/legit-games/authserver/store"
)

func main() {
	logger := log.New(os.Stdout, "[authserver] ", log.LstdFlags)
	cfg := server.GetConfig()

	// schema migrations and seed data (goose), both opt-in via env
	if err := migrate.RunFromEnv(); err != nil {
		logger.Fatalf("migrations failed: %v", err)
	}
	if err := seed.RunFromEnv(); err != nil {
		logger.Fatalf("seed failed: %v", err)
	}

	manager := manage.NewDefaultManager()
	if exp := cfg.JWT.CodeExp; exp > 0 {
		manager.SetAuthorizeCodeExp(exp)
	}
	if cfg.JWT.AccessExp > 0 || cfg.JWT.RefreshExp > 0 {
		c := *manage.DefaultAuthorizeCodeTokenCfg
		if cfg.JWT.AccessExp > 0 {
			c.AccessTokenExp = cfg.JWT.AccessExp
		}
		if cfg.JWT.RefreshExp > 0 {
			c.RefreshTokenExp = cfg.JWT.RefreshExp
		}
		manager.SetAuthorizeCodeTokenCfg(&c)
	}

	// token store backend
	switch strings.ToLower(cfg.TokenStore.Backend) {
	case "valkey":
		manager.MustTokenStorage(store.NewValkeyTokenStore(cfg.TokenStore.ValkeyAddr, cfg.TokenStore.Prefix))
		logger.Printf("using valkey token store at %s", cfg.TokenStore.ValkeyAddr)
	case "file":
		manager.MustTokenStorage(store.NewFileTokenStore(cfg.TokenStore.Path))
	default:
		manager.MustTokenStorage(store.NewMemoryTokenStore())
	}

	var users *store.UserStore
	var roles *store.RoleStore
	var claims *store.UserClaims

	if dsn := cfg.DBDSN(); dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			logger.Fatalf("open database: %v", err)
		}
		users = store.NewUserStore(db)
		roles = store.NewRoleStore(db)
		claims = store.NewUserClaims(users, roles)
		manager.MapClientStorage(store.NewDBClientStore(db))
	} else {
		// in-memory registrations for development
		clientStore := store.NewClientStore()
		_ = clientStore.Set("mvc", &models.Client{
			ID:                     "mvc",
			Secret:                 "901564A5-E7FE-42CB-B10D-61EF6A8F3654",
			DisplayName:            "MVC client",
			RedirectURIs:           []string{"http://localhost:5000/signin-oidc"},
			PostLogoutRedirectURIs: []string{"http://localhost:5000/signout-callback-oidc"},
		})
		manager.MapClientStorage(clientStore)
		logger.Printf("no database configured, using in-memory client registrations")
	}

	method := jwt.GetSigningMethod(cfg.JWT.Method)
	if method == nil {
		method = jwt.SigningMethodHS512
	}
	accessGen := generates.NewJWTAccessGenerate(cfg.JWT.KeyID, cfg.JWTSecret(), method)
	accessGen.Issuer = cfg.Issuer
	if cfg.JWT.IdentityExp > 0 {
		accessGen.IdentityTokenExp = cfg.JWT.IdentityExp
	}
	if claims != nil {
		accessGen.Resolver = claims
	}
	manager.MapAccessGenerate(accessGen)

	srvCfg := server.NewConfig()
	if cfg.Issuer != "" {
		srvCfg.Issuer = cfg.Issuer
	}

	rr := srvCfg.RefreshRotation
	rcfg := &manage.RefreshingConfig{
		AccessTokenExp:     rr.AccessExpOverride,
		RefreshTokenExp:    rr.RefreshExpOverride,
		IsGenerateRefresh:  rr.GenerateNew,
		IsResetRefreshTime: rr.ResetTime,
		IsRemoveAccess:     rr.RemoveOldAccess,
		IsRemoveRefreshing: rr.RemoveOldRefresh,
	}
	if rcfg.AccessTokenExp <= 0 {
		rcfg.AccessTokenExp = manage.DefaultRefreshTokenCfg.AccessTokenExp
	}
	if rcfg.RefreshTokenExp <= 0 {
		rcfg.RefreshTokenExp = manage.DefaultRefreshTokenCfg.RefreshTokenExp
	}
	if cfg.JWT.AccessExp > 0 {
		rcfg.AccessTokenExp = cfg.JWT.AccessExp
	}
	if cfg.JWT.RefreshExp > 0 {
		rcfg.RefreshTokenExp = cfg.JWT.RefreshExp
	}
	manager.SetRefreshTokenCfg(rcfg)

	srv := server.NewServer(srvCfg, manager)
	srv.AccessGenerate = accessGen
	if users != nil {
		srv.Users = users
	}
	if claims != nil {
		srv.UserClaims = claims
	}
	srv.Policies = permission.NewRegistry()
	srv.PermissionHandler = permission.NewHandler()
	srv.UserAuthorizationHandler = srv.SessionUserAuthorizationHandler

	srv.InternalErrorHandler = func(err error) *errors.Response {
		logger.Printf("internal error: %v", err)
		return nil
	}
	srv.ResponseErrorHandler = func(re *errors.Response) {
		logger.Printf("response error: %v", re.Error)
	}

	// mint an ID token alongside the access token when openid was granted
	srv.ExtensionFieldsHandler = func(ti authserver.TokenInfo) map[string]interface{} {
		scopes := strings.Fields(ti.GetScope())
		for _, s := range scopes {
			if s != "openid" {
				continue
			}
			cli, err := manager.GetClient(context.Background(), ti.GetClientID())
			if err != nil {
				return nil
			}
			idt, err := accessGen.IdentityToken(context.Background(), &authserver.GenerateBasic{
				Client:    cli,
				UserID:    ti.GetUserID(),
				CreateAt:  time.Now(),
				TokenInfo: ti,
			})
			if err != nil {
				logger.Printf("id token: %v", err)
				return nil
			}
			return map[string]interface{}{"id_token": idt}
		}
		return nil
	}

	engine := server.NewGinEngine(srv, logger)

	addr := cfg.ListenAddr()
	logger.Printf("listening on %s (issuer %s)", addr, srvCfg.Issuer)
	if err := engine.Run(addr); err != nil {
		logger.Fatalf("server: %v", err)
	}
}
