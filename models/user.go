package models

import (
	"time"

	"gorm.io/gorm"
)

// Permission is a single grantable capability, identified by an opaque key
// such as "orders.preparation.update".
type Permission struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Key         string `gorm:"uniqueIndex;not null" json:"key"`
	Description string `json:"description"`
}

// TableName specifies the table name for the Permission model
func (Permission) TableName() string {
	return "permissions"
}

// Role groups permissions under a name (e.g. "manager", "courier").
type Role struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"uniqueIndex;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName specifies the table name for the Role model
func (Role) TableName() string {
	return "roles"
}

// User represents an account. Login is phone-based; a nil RoleID means the
// user has no elevated permissions (a plain customer).
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Phone        string         `gorm:"uniqueIndex;not null" json:"phone"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Name         string         `gorm:"not null" json:"name"`
	PasswordHash string         `gorm:"not null" json:"-"`
	RoleID       *uint          `gorm:"index" json:"role_id"`
	Role         *Role          `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// PermissionKeys flattens the user's role permissions into a key list.
// A user without a role has no permissions.
func (u *User) PermissionKeys() []string {
	if u.Role == nil {
		return []string{}
	}
	keys := make([]string, 0, len(u.Role.Permissions))
	for _, p := range u.Role.Permissions {
		keys = append(keys, p.Key)
	}
	return keys
}
