package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/legit-games/authserver"
	"github.com/legit-games/authserver/models"
)

func newValkeyStoreForTest(t *testing.T) authserver.TokenStore {
	t.Helper()

	addr := os.Getenv("VALKEY_TEST_ADDR")
	if addr == "" {
		t.Skip("VALKEY_TEST_ADDR not set; no valkey available")
	}
	ts, err := NewValkeyTokenStore(addr, "authserver-test:")
	if err != nil {
		t.Fatalf("connect valkey: %v", err)
	}
	return ts
}

func TestValkeyTokenStore(t *testing.T) {
	ts := newValkeyStoreForTest(t)
	ctx := context.Background()

	info := &models.Token{
		ClientID:         "mvc",
		UserID:           "user-alice",
		Access:           "valkey-access-1",
		AccessCreateAt:   time.Now(),
		AccessExpiresIn:  time.Minute,
		Refresh:          "valkey-refresh-1",
		RefreshCreateAt:  time.Now(),
		RefreshExpiresIn: time.Hour,
	}
	if err := ts.Create(ctx, info); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := ts.GetByAccess(ctx, "valkey-access-1")
	if err != nil {
		t.Fatalf("get by access: %v", err)
	}
	if got == nil || got.GetUserID() != "user-alice" {
		t.Fatalf("unexpected token: %+v", got)
	}

	// absence is a nil result, never an error
	got, err = ts.GetByAccess(ctx, "never-issued")
	if err != nil {
		t.Fatalf("absent token must not be an error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no token, got %+v", got)
	}

	if err := ts.RemoveByAccess(ctx, "valkey-access-1"); err != nil {
		t.Fatalf("remove by access: %v", err)
	}
	got, err = ts.GetByAccess(ctx, "valkey-access-1")
	if err != nil || got != nil {
		t.Errorf("removed access should be gone, got %+v, err %v", got, err)
	}

	// the refresh handle still resolves the shared grant record
	got, err = ts.GetByRefresh(ctx, "valkey-refresh-1")
	if err != nil {
		t.Fatalf("get by refresh: %v", err)
	}
	if got == nil || got.GetClientID() != "mvc" {
		t.Fatalf("unexpected token: %+v", got)
	}
	if err := ts.RemoveByRefresh(ctx, "valkey-refresh-1"); err != nil {
		t.Fatalf("remove by refresh: %v", err)
	}
}
