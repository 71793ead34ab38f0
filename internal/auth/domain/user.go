package domain

import (
	"strings"
	"time"
)

// Role decides what a user may see and edit
type Role string

const (
	RoleHR      Role = "hr"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// User is created outside this service; tasks only read it.
type User struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name"`
	Email      string    `json:"email" gorm:"uniqueIndex"`
	Role       Role      `json:"role" gorm:"index;not null"`
	Department string    `json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ParseRole normalizes a stored role; unknown values fall back to staff,
// the least privileged role.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleHR, RoleManager, RoleStaff:
		return r
	}
	return RoleStaff
}
