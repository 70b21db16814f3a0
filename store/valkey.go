package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	valkey "github.com/valkey-io/valkey-go"

	"github.com/legit-games/authserver"
	"github.com/legit-games/authserver/models"
)

// ValkeyTokenStore stores grant state in Valkey (Redis-compatible). Used when
// several server instances must share codes and refresh lineage.
type ValkeyTokenStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyTokenStore creates a Valkey-backed token store.
// addr example: "127.0.0.1:6379"; prefix namespaces keys.
func NewValkeyTokenStore(addr string, prefix string) (authserver.TokenStore, error) {
	cli, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "authserver:"
	}
	return &ValkeyTokenStore{client: cli, prefix: prefix}, nil
}

func (ts *ValkeyTokenStore) key(k string) string { return ts.prefix + k }

// tokenHash returns a stable hex sha256 for a token string. Raw tokens never
// appear in keys.
func tokenHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Create stores token info; mirrors the buntdb store's basicID indirection.
func (ts *ValkeyTokenStore) Create(ctx context.Context, info authserver.TokenInfo) error {
	ct := time.Now()
	jv, err := json.Marshal(info)
	if err != nil {
		return err
	}

	if code := info.GetCode(); code != "" {
		ttl := info.GetCodeExpiresIn()
		return ts.client.Do(ctx, ts.client.B().Set().Key(ts.key("code:"+tokenHash(code))).Value(string(jv)).Ex(ttl).Build()).Error()
	}

	basicID := uuid.Must(uuid.NewRandom()).String()
	aexp := info.GetAccessExpiresIn()
	rexp := aexp

	if refresh := info.GetRefresh(); refresh != "" {
		rexp = info.GetRefreshCreateAt().Add(info.GetRefreshExpiresIn()).Sub(ct)
		if aexp > rexp {
			aexp = rexp
		}
		if err := ts.client.Do(ctx, ts.client.B().Set().Key(ts.key("refresh:"+tokenHash(refresh))).Value(basicID).Ex(rexp).Build()).Error(); err != nil {
			return err
		}
	}

	if err := ts.client.Do(ctx, ts.client.B().Set().Key(ts.key("data:"+basicID)).Value(string(jv)).Ex(rexp).Build()).Error(); err != nil {
		return err
	}
	if access := info.GetAccess(); access != "" {
		if err := ts.client.Do(ctx, ts.client.B().Set().Key(ts.key("access:"+tokenHash(access))).Value(basicID).Ex(aexp).Build()).Error(); err != nil {
			return err
		}
	}
	return nil
}

// remove deletes a key; missing is not an error.
func (ts *ValkeyTokenStore) remove(ctx context.Context, key string) error {
	return ts.client.Do(ctx, ts.client.B().Del().Key(ts.key(key)).Build()).Error()
}

// RemoveByCode use the authorization code to delete the token information
func (ts *ValkeyTokenStore) RemoveByCode(ctx context.Context, code string) error {
	return ts.remove(ctx, "code:"+tokenHash(code))
}

// RemoveByAccess use the access token to delete the token information
func (ts *ValkeyTokenStore) RemoveByAccess(ctx context.Context, access string) error {
	if access == "" {
		return nil
	}
	return ts.remove(ctx, "access:"+tokenHash(access))
}

// RemoveByRefresh use the refresh token to delete the token information
func (ts *ValkeyTokenStore) RemoveByRefresh(ctx context.Context, refresh string) error {
	if refresh == "" {
		return nil
	}
	return ts.remove(ctx, "refresh:"+tokenHash(refresh))
}

// get reads a key, mapping a nil reply to ("", nil). Any other error is a
// real failure and must not be mistaken for an absent token.
func (ts *ValkeyTokenStore) get(ctx context.Context, key string) (string, error) {
	res := ts.client.Do(ctx, ts.client.B().Get().Key(ts.key(key)).Build())
	if err := res.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			return "", nil
		}
		return "", err
	}
	return res.ToString()
}

func (ts *ValkeyTokenStore) getJSON(ctx context.Context, key string) (authserver.TokenInfo, error) {
	val, err := ts.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if val == "" {
		return nil, nil
	}
	var tm models.Token
	if err := json.Unmarshal([]byte(val), &tm); err != nil {
		return nil, err
	}
	return &tm, nil
}

func (ts *ValkeyTokenStore) getByIndirection(ctx context.Context, key string) (authserver.TokenInfo, error) {
	basicID, err := ts.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if basicID == "" {
		return nil, nil
	}
	return ts.getJSON(ctx, "data:"+basicID)
}

// GetByCode use the authorization code for token information data
func (ts *ValkeyTokenStore) GetByCode(ctx context.Context, code string) (authserver.TokenInfo, error) {
	if code == "" {
		return nil, nil
	}
	return ts.getJSON(ctx, "code:"+tokenHash(code))
}

// GetByAccess use the access token for token information data
func (ts *ValkeyTokenStore) GetByAccess(ctx context.Context, access string) (authserver.TokenInfo, error) {
	if access == "" {
		return nil, nil
	}
	return ts.getByIndirection(ctx, "access:"+tokenHash(access))
}

// GetByRefresh use the refresh token for token information data
func (ts *ValkeyTokenStore) GetByRefresh(ctx context.Context, refresh string) (authserver.TokenInfo, error) {
	if refresh == "" {
		return nil, nil
	}
	return ts.getByIndirection(ctx, "refresh:"+tokenHash(refresh))
}
