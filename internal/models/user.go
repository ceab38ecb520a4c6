package models

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAuthor Role = "Author"
	RoleSeller Role = "Seller"
	RoleUser   Role = "User"
)

// ParseRole converts a raw string into a Role, rejecting anything outside the known set.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAuthor, RoleSeller, RoleUser:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// CanPublish reports whether the role may list books in the catalog.
func (r Role) CanPublish() bool {
	return r == RoleAuthor || r == RoleSeller
}

// User represents an account of the store.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"type:varchar(100);index"`
	Email        string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"column:password;type:varchar(255);not null"` // bcrypt, never plaintext
	Role         Role      `json:"role" gorm:"type:varchar(16);not null"`
	CreatedAt    time.Time `json:"created_at"`
}
