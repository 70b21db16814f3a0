package store

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/legit-games/authserver/models"
)

// ErrUserNotFound returned when a lookup matches no user row.
var ErrUserNotFound = errors.New("user not found")

// UserStore provides operations for resource owner accounts.
type UserStore struct {
	DB *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore { return &UserStore{DB: db} }

// Create inserts a user with a bcrypt-hashed password.
func (s *UserStore) Create(ctx context.Context, u *models.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return s.DB.WithContext(ctx).Exec(
		`INSERT INTO users(id, username, email, email_verified, phone_number, phone_number_verified, password_hash, roles, claims)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Username, u.Email, u.EmailVerified, u.PhoneNumber, u.PhoneNumberVerified, u.PasswordHash, string(u.Roles), string(u.Claims),
	).Error
}

// GetByID resolves a user by primary key.
func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Raw(`SELECT id, username, email, email_verified, phone_number, phone_number_verified, password_hash, roles, claims, created_at, updated_at FROM users WHERE id=?`, id).Scan(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// GetByUsername resolves a user by login name.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.DB.WithContext(ctx).Raw(`SELECT id, username, email, email_verified, phone_number, phone_number_verified, password_hash, roles, claims, created_at, updated_at FROM users WHERE username=?`, username).Scan(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

// Authenticate verifies the password against the stored bcrypt hash and
// returns the user on success. Unknown username and bad password both come
// back as ErrUserNotFound so callers cannot distinguish them.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// RoleStore provides operations for roles.
type RoleStore struct {
	DB *gorm.DB
}

func NewRoleStore(db *gorm.DB) *RoleStore { return &RoleStore{DB: db} }

// GetByName resolves a role by name.
func (s *RoleStore) GetByName(ctx context.Context, name string) (*models.Role, error) {
	var r models.Role
	err := s.DB.WithContext(ctx).Raw(`SELECT id, name, permission_claims, description, created_at FROM roles WHERE name=?`, name).Scan(&r).Error
	if err != nil {
		return nil, err
	}
	if r.ID == "" {
		return nil, errors.New("role not found")
	}
	return &r, nil
}

// UserClaims resolves a user's roles and effective permission claims for
// token minting. Permission claims are the union of every assigned role's
// claims plus the user's individual claims, deduplicated and sorted.
type UserClaims struct {
	Users *UserStore
	Roles *RoleStore
}

func NewUserClaims(users *UserStore, roles *RoleStore) *UserClaims {
	return &UserClaims{Users: users, Roles: roles}
}

// ResolveRoles returns the user's role names, or nil when the user is
// unknown.
func (c *UserClaims) ResolveRoles(ctx context.Context, userID string) []string {
	u, err := c.Users.GetByID(ctx, userID)
	if err != nil {
		return nil
	}
	return u.RoleNames()
}

// ResolvePermissions returns the user's effective permission claims.
func (c *UserClaims) ResolvePermissions(ctx context.Context, userID string) []string {
	u, err := c.Users.GetByID(ctx, userID)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	for _, claim := range u.ClaimValues() {
		seen[claim] = struct{}{}
	}
	for _, name := range u.RoleNames() {
		r, err := c.Roles.GetByName(ctx, name)
		if err != nil {
			continue
		}
		for _, claim := range r.ClaimValues() {
			seen[claim] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for claim := range seen {
		out = append(out, claim)
	}
	sort.Strings(out)
	return out
}
