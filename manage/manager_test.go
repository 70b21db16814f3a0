package manage

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/legit-games/authserver"
	"github.com/legit-games/authserver/errors"
	"github.com/legit-games/authserver/generates"
	"github.com/legit-games/authserver/models"
	"github.com/legit-games/authserver/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	manager := NewDefaultManager()
	manager.MustTokenStorage(store.NewMemoryTokenStore())
	manager.MapAccessGenerate(generates.NewJWTAccessGenerate("", []byte("test-key"), jwt.SigningMethodHS256))

	clientStore := store.NewClientStore()
	_ = clientStore.Set("mvc", &models.Client{
		ID:           "mvc",
		Secret:       "mvc-secret",
		RedirectURIs: []string{"http://localhost:5000/signin-oidc"},
	})
	_ = clientStore.Set("other", &models.Client{
		ID:           "other",
		Secret:       "other-secret",
		RedirectURIs: []string{"http://localhost:6000/cb"},
	})
	manager.MapClientStorage(clientStore)
	return manager
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	Convey("Manager test", t, func() {
		manager := newTestManager(t)

		tgr := &authserver.TokenGenerateRequest{
			ClientID:    "mvc",
			UserID:      "user-alice",
			RedirectURI: "http://localhost:5000/signin-oidc",
			Scope:       "openid profile",
		}

		Convey("GetClient test", func() {
			cli, err := manager.GetClient(ctx, "mvc")
			So(err, ShouldBeNil)
			So(cli.GetSecret(), ShouldEqual, "mvc-secret")

			_, err = manager.GetClient(ctx, "missing")
			So(err, ShouldEqual, errors.ErrInvalidClient)
		})

		Convey("token response type is rejected", func() {
			_, err := manager.GenerateAuthToken(ctx, authserver.Token, tgr)
			So(err, ShouldEqual, errors.ErrUnsupportedResponseType)
		})

		Convey("unregistered redirect uri is rejected", func() {
			bad := *tgr
			bad.RedirectURI = "http://localhost:5000/signin-oidc/extra"
			_, err := manager.GenerateAuthToken(ctx, authserver.Code, &bad)
			So(err, ShouldEqual, errors.ErrInvalidRedirectURI)
		})

		Convey("authorization code grant", func() {
			cti, err := manager.GenerateAuthToken(ctx, authserver.Code, tgr)
			So(err, ShouldBeNil)
			code := cti.GetCode()
			So(code, ShouldNotBeEmpty)

			exchange := &authserver.TokenGenerateRequest{
				ClientID:     "mvc",
				ClientSecret: "mvc-secret",
				RedirectURI:  "http://localhost:5000/signin-oidc",
				Code:         code,
			}

			Convey("wrong client secret fails", func() {
				bad := *exchange
				bad.ClientSecret = "wrong"
				_, err := manager.GenerateAccessToken(ctx, authserver.AuthorizationCode, &bad)
				So(err, ShouldEqual, errors.ErrInvalidClient)
			})

			Convey("code issued to another client fails", func() {
				bad := *exchange
				bad.ClientID = "other"
				bad.ClientSecret = "other-secret"
				_, err := manager.GenerateAccessToken(ctx, authserver.AuthorizationCode, &bad)
				So(err, ShouldEqual, errors.ErrInvalidAuthorizeCode)
			})

			Convey("redirect uri mismatch fails", func() {
				bad := *exchange
				bad.RedirectURI = "http://localhost:5000/other"
				_, err := manager.GenerateAccessToken(ctx, authserver.AuthorizationCode, &bad)
				So(err, ShouldEqual, errors.ErrInvalidAuthorizeCode)
			})

			Convey("successful exchange", func() {
				ati, err := manager.GenerateAccessToken(ctx, authserver.AuthorizationCode, exchange)
				So(err, ShouldBeNil)
				So(ati.GetAccess(), ShouldNotBeEmpty)
				So(ati.GetRefresh(), ShouldNotBeEmpty)
				So(ati.GetUserID(), ShouldEqual, "user-alice")
				So(ati.GetScope(), ShouldEqual, "openid profile")

				Convey("the code is single use", func() {
					_, err := manager.GenerateAccessToken(ctx, authserver.AuthorizationCode, exchange)
					So(err, ShouldEqual, errors.ErrInvalidAuthorizeCode)
				})

				Convey("issued access token loads back", func() {
					lti, err := manager.LoadAccessToken(ctx, ati.GetAccess())
					So(err, ShouldBeNil)
					So(lti.GetUserID(), ShouldEqual, "user-alice")
				})

				Convey("refreshing rotates both tokens", func() {
					oldAccess, oldRefresh := ati.GetAccess(), ati.GetRefresh()

					rti, err := manager.RefreshAccessToken(ctx, &authserver.TokenGenerateRequest{
						ClientID:     "mvc",
						ClientSecret: "mvc-secret",
						Refresh:      oldRefresh,
					})
					So(err, ShouldBeNil)
					So(rti.GetAccess(), ShouldNotBeEmpty)
					So(rti.GetAccess(), ShouldNotEqual, oldAccess)
					So(rti.GetRefresh(), ShouldNotBeEmpty)
					So(rti.GetRefresh(), ShouldNotEqual, oldRefresh)

					_, err = manager.LoadAccessToken(ctx, oldAccess)
					So(err, ShouldNotBeNil)

					_, err = manager.LoadRefreshToken(ctx, oldRefresh)
					So(err, ShouldNotBeNil)

					_, err = manager.LoadAccessToken(ctx, rti.GetAccess())
					So(err, ShouldBeNil)
				})

				Convey("refreshing with another client's id fails", func() {
					_, err := manager.RefreshAccessToken(ctx, &authserver.TokenGenerateRequest{
						ClientID:     "other",
						ClientSecret: "other-secret",
						Refresh:      ati.GetRefresh(),
					})
					So(err, ShouldEqual, errors.ErrInvalidRefreshToken)
				})

				Convey("revoking the access token", func() {
					So(manager.RemoveAccessToken(ctx, ati.GetAccess()), ShouldBeNil)
					_, err := manager.LoadAccessToken(ctx, ati.GetAccess())
					So(err, ShouldNotBeNil)
				})
			})
		})

		Convey("unknown refresh token fails", func() {
			_, err := manager.RefreshAccessToken(ctx, &authserver.TokenGenerateRequest{
				ClientID:     "mvc",
				ClientSecret: "mvc-secret",
				Refresh:      "never-issued",
			})
			So(err, ShouldEqual, errors.ErrInvalidRefreshToken)
		})

		Convey("empty tokens are rejected up front", func() {
			_, err := manager.LoadAccessToken(ctx, "")
			So(err, ShouldEqual, errors.ErrInvalidAccessToken)

			_, err = manager.LoadRefreshToken(ctx, "")
			So(err, ShouldEqual, errors.ErrInvalidRefreshToken)

			So(manager.RemoveAccessToken(ctx, ""), ShouldEqual, errors.ErrInvalidAccessToken)
			So(manager.RemoveRefreshToken(ctx, ""), ShouldEqual, errors.ErrInvalidRefreshToken)
		})
	})
}

func TestVerifyClientSecret(t *testing.T) {
	Convey("Client secret verification", t, func() {
		confidential := &models.Client{ID: "c1", Secret: "top-secret"}
		So(VerifyClientSecret(confidential, "top-secret"), ShouldBeTrue)
		So(VerifyClientSecret(confidential, "TOP-SECRET"), ShouldBeFalse)
		So(VerifyClientSecret(confidential, ""), ShouldBeFalse)

		public := &models.Client{ID: "c2", Public: true}
		So(VerifyClientSecret(public, ""), ShouldBeTrue)
		So(VerifyClientSecret(public, "anything"), ShouldBeFalse)
	})
}
