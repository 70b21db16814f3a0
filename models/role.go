package models

import (
	"encoding/json"
	"time"
)

// built-in role names seeded at install time
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

// Role owns a set of permission claims. Users assigned the role inherit
// every claim it carries.
type Role struct {
	ID               string          `gorm:"column:id;primaryKey" json:"id"`
	Name             string          `gorm:"column:name;uniqueIndex" json:"name"`
	PermissionClaims json.RawMessage `gorm:"column:permission_claims" json:"permission_claims"`
	Description      string          `gorm:"column:description" json:"description"`
	CreatedAt        time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (Role) TableName() string { return "roles" }

// ClaimValues decodes the role's permission claims.
func (r *Role) ClaimValues() []string {
	var claims []string
	_ = json.Unmarshal(r.PermissionClaims, &claims)
	return claims
}
