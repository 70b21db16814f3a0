package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/legit-games/authserver"
	"github.com/legit-games/authserver/models"
)

// NewClientStore create client store (memory)
func NewClientStore() *ClientStore {
	return &ClientStore{
		data: make(map[string]authserver.ClientInfo),
	}
}

// ClientStore client information store (in-memory)
type ClientStore struct {
	sync.RWMutex
	data map[string]authserver.ClientInfo
}

// GetByID according to the ID for the client information
func (cs *ClientStore) GetByID(ctx context.Context, id string) (authserver.ClientInfo, error) {
	cs.RLock()
	defer cs.RUnlock()

	if c, ok := cs.data[id]; ok {
		return c, nil
	}
	return nil, errors.New("not found")
}

// Set set client information
func (cs *ClientStore) Set(id string, cli authserver.ClientInfo) (err error) {
	cs.Lock()
	defer cs.Unlock()

	cs.data[id] = cli
	return
}

// --- Persistent client store ---

type DBClientStore struct{ DB *gorm.DB }

func NewDBClientStore(db *gorm.DB) *DBClientStore { return &DBClientStore{DB: db} }

type clientRow struct {
	ID                     string
	Secret                 string
	DisplayName            string
	Public                 bool
	RedirectURIs           string
	PostLogoutRedirectURIs string
}

func (r clientRow) toModel() *models.Client {
	var redirects, postLogouts []string
	_ = json.Unmarshal([]byte(r.RedirectURIs), &redirects)
	_ = json.Unmarshal([]byte(r.PostLogoutRedirectURIs), &postLogouts)
	return &models.Client{
		ID:                     r.ID,
		Secret:                 r.Secret,
		DisplayName:            r.DisplayName,
		Public:                 r.Public,
		RedirectURIs:           redirects,
		PostLogoutRedirectURIs: postLogouts,
	}
}

// Upsert creates or updates a client registration, including its redirect
// URI sets and public flag.
func (s *DBClientStore) Upsert(ctx context.Context, c *models.Client) error {
	rb, _ := json.Marshal(c.RedirectURIs)
	pb, _ := json.Marshal(c.PostLogoutRedirectURIs)
	return s.DB.WithContext(ctx).Exec(
		`INSERT INTO clients(id, secret, display_name, public, redirect_uris, post_logout_redirect_uris)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET secret=excluded.secret, display_name=excluded.display_name, public=excluded.public, redirect_uris=excluded.redirect_uris, post_logout_redirect_uris=excluded.post_logout_redirect_uris, updated_at=CURRENT_TIMESTAMP`,
		c.ID, c.Secret, c.DisplayName, c.Public, string(rb), string(pb),
	).Error
}

// SetRedirectURIs replaces a client's redirect URI set in a single statement
// so concurrent readers see either the old set or the new set, never a mix.
func (s *DBClientStore) SetRedirectURIs(ctx context.Context, clientID string, uris []string) error {
	b, _ := json.Marshal(uris)
	return s.DB.WithContext(ctx).Exec(`UPDATE clients SET redirect_uris=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, string(b), clientID).Error
}

// SetPostLogoutRedirectURIs replaces a client's post-logout redirect URI set.
func (s *DBClientStore) SetPostLogoutRedirectURIs(ctx context.Context, clientID string, uris []string) error {
	b, _ := json.Marshal(uris)
	return s.DB.WithContext(ctx).Exec(`UPDATE clients SET post_logout_redirect_uris=?, updated_at=CURRENT_TIMESTAMP WHERE id=?`, string(b), clientID).Error
}

// GetByID implements authserver.ClientStore backed by DB.
func (s *DBClientStore) GetByID(ctx context.Context, id string) (authserver.ClientInfo, error) {
	var row clientRow
	if err := s.DB.WithContext(ctx).Raw(`SELECT id, secret, display_name, public, redirect_uris, post_logout_redirect_uris FROM clients WHERE id=?`, id).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == "" {
		return nil, errors.New("not found")
	}
	return row.toModel(), nil
}

// List returns a page of clients ordered by id.
func (s *DBClientStore) List(ctx context.Context, offset, limit int) ([]models.Client, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	var rows []clientRow
	if err := s.DB.WithContext(ctx).Raw(`SELECT id, secret, display_name, public, redirect_uris, post_logout_redirect_uris FROM clients ORDER BY id LIMIT ? OFFSET ?`, limit, offset).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Client, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r.toModel())
	}
	return out, nil
}

// Delete removes a client by id.
func (s *DBClientStore) Delete(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Exec(`DELETE FROM clients WHERE id=?`, id).Error
}
