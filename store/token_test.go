package store

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/legit-games/authserver/models"
)

func TestTokenStoreCode(t *testing.T) {
	Convey("Test buntdb token store authorization code", t, func() {
		store, err := NewMemoryTokenStore()
		So(err, ShouldBeNil)

		ctx := context.Background()
		info := models.NewToken()
		info.SetClientID("mvc")
		info.SetUserID("user-alice")
		info.SetRedirectURI("http://localhost:5000/signin-oidc")
		info.SetScope("openid")
		info.SetCode("code_1234")
		info.SetCodeCreateAt(time.Now())
		info.SetCodeExpiresIn(time.Minute)

		So(store.Create(ctx, info), ShouldBeNil)

		Convey("loads back by code", func() {
			cti, err := store.GetByCode(ctx, "code_1234")
			So(err, ShouldBeNil)
			So(cti, ShouldNotBeNil)
			So(cti.GetCode(), ShouldEqual, "code_1234")
			So(cti.GetUserID(), ShouldEqual, "user-alice")
		})

		Convey("remove by code", func() {
			So(store.RemoveByCode(ctx, "code_1234"), ShouldBeNil)

			cti, err := store.GetByCode(ctx, "code_1234")
			So(err, ShouldBeNil)
			So(cti, ShouldBeNil)

			Convey("removing again is not an error", func() {
				So(store.RemoveByCode(ctx, "code_1234"), ShouldBeNil)
			})
		})
	})
}

func TestTokenStoreAccess(t *testing.T) {
	Convey("Test buntdb token store access token", t, func() {
		store, err := NewMemoryTokenStore()
		So(err, ShouldBeNil)

		ctx := context.Background()
		info := models.NewToken()
		info.SetClientID("mvc")
		info.SetUserID("user-alice")
		info.SetScope("openid profile")
		info.SetAccess("access_1234")
		info.SetAccessCreateAt(time.Now())
		info.SetAccessExpiresIn(time.Hour)

		So(store.Create(ctx, info), ShouldBeNil)

		Convey("loads back by access token", func() {
			ati, err := store.GetByAccess(ctx, "access_1234")
			So(err, ShouldBeNil)
			So(ati, ShouldNotBeNil)
			So(ati.GetAccess(), ShouldEqual, "access_1234")
			So(ati.GetScope(), ShouldEqual, "openid profile")
		})

		Convey("remove by access token", func() {
			So(store.RemoveByAccess(ctx, "access_1234"), ShouldBeNil)

			ati, err := store.GetByAccess(ctx, "access_1234")
			So(err, ShouldBeNil)
			So(ati, ShouldBeNil)
		})
	})
}

func TestTokenStoreRefresh(t *testing.T) {
	Convey("Test buntdb token store refresh token", t, func() {
		store, err := NewMemoryTokenStore()
		So(err, ShouldBeNil)

		ctx := context.Background()
		info := models.NewToken()
		info.SetClientID("mvc")
		info.SetUserID("user-alice")
		info.SetAccess("access_5678")
		info.SetAccessCreateAt(time.Now())
		info.SetAccessExpiresIn(time.Hour)
		info.SetRefresh("refresh_5678")
		info.SetRefreshCreateAt(time.Now())
		info.SetRefreshExpiresIn(72 * time.Hour)

		So(store.Create(ctx, info), ShouldBeNil)

		Convey("both handles resolve the same grant", func() {
			ati, err := store.GetByAccess(ctx, "access_5678")
			So(err, ShouldBeNil)
			So(ati, ShouldNotBeNil)

			rti, err := store.GetByRefresh(ctx, "refresh_5678")
			So(err, ShouldBeNil)
			So(rti, ShouldNotBeNil)
			So(rti.GetUserID(), ShouldEqual, ati.GetUserID())
			So(rti.GetRefresh(), ShouldEqual, "refresh_5678")
		})

		Convey("removing the access handle keeps the refresh handle", func() {
			So(store.RemoveByAccess(ctx, "access_5678"), ShouldBeNil)

			ati, err := store.GetByAccess(ctx, "access_5678")
			So(err, ShouldBeNil)
			So(ati, ShouldBeNil)

			rti, err := store.GetByRefresh(ctx, "refresh_5678")
			So(err, ShouldBeNil)
			So(rti, ShouldNotBeNil)
		})

		Convey("remove by refresh token", func() {
			So(store.RemoveByRefresh(ctx, "refresh_5678"), ShouldBeNil)

			rti, err := store.GetByRefresh(ctx, "refresh_5678")
			So(err, ShouldBeNil)
			So(rti, ShouldBeNil)
		})
	})
}

func TestTokenStoreUnknownKeys(t *testing.T) {
	Convey("Test buntdb token store unknown keys", t, func() {
		store, err := NewMemoryTokenStore()
		So(err, ShouldBeNil)

		ctx := context.Background()

		cti, err := store.GetByCode(ctx, "nope")
		So(err, ShouldBeNil)
		So(cti, ShouldBeNil)

		ati, err := store.GetByAccess(ctx, "nope")
		So(err, ShouldBeNil)
		So(ati, ShouldBeNil)

		rti, err := store.GetByRefresh(ctx, "nope")
		So(err, ShouldBeNil)
		So(rti, ShouldBeNil)
	})
}
