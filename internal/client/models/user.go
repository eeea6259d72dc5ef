// Package models defines the wire and cached data types of the
// authentication backend.
package models

import (
	"fmt"
	"time"
)

// Role is the account role assigned by the server.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// User is the server-owned identity record. The client only caches it.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name,omitempty"`
	IsActive  bool       `json:"is_active"`
	Role      Role       `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Validate checks the fields every user payload must carry.
func (u *User) Validate() error {
	if u.ID <= 0 {
		return fmt.Errorf("user id must be positive, got %d", u.ID)
	}
	if u.Email == "" {
		return fmt.Errorf("user %d has no email", u.ID)
	}
	if u.Role != "" && !u.Role.Valid() {
		return fmt.Errorf("user %d has unknown role %q", u.ID, u.Role)
	}
	return nil
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
