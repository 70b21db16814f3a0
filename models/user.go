package models

import (
	"encoding/json"
	"time"
)

// User a resource owner account. Password is stored as a bcrypt hash.
// Roles and Claims are JSON arrays in the backing store; users inherit
// permission claims transitively through roles and may also carry
// individual claims of their own.
type User struct {
	ID                  string          `gorm:"column:id;primaryKey" json:"id"`
	Username            string          `gorm:"column:username;uniqueIndex" json:"username"`
	Email               string          `gorm:"column:email" json:"email"`
	EmailVerified       bool            `gorm:"column:email_verified" json:"email_verified"`
	PhoneNumber         string          `gorm:"column:phone_number" json:"phone_number"`
	PhoneNumberVerified bool            `gorm:"column:phone_number_verified" json:"phone_number_verified"`
	PasswordHash        string          `gorm:"column:password_hash" json:"-"`
	Roles               json.RawMessage `gorm:"column:roles" json:"roles"`
	Claims              json.RawMessage `gorm:"column:claims" json:"claims"`
	CreatedAt           time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// RoleNames decodes the user's role list.
func (u *User) RoleNames() []string {
	var roles []string
	_ = json.Unmarshal(u.Roles, &roles)
	return roles
}

// ClaimValues decodes the user's individual permission claims.
func (u *User) ClaimValues() []string {
	var claims []string
	_ = json.Unmarshal(u.Claims, &claims)
	return claims
}
