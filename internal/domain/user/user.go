package user

import (
	"errors"
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// Roles lists every assignable role, in display order.
var Roles = []Role{RoleAdmin, RoleManager, RoleUser}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

const (
	MaxUsernameLen = 80
	MaxEmailLen    = 120
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

var (
	ErrNotFound = errors.New("user not found")
	// username or email already taken
	ErrDuplicate = errors.New("username or email already in use")
)

// Update carries a full replacement of the editable identity fields.
// PasswordHash is left untouched when nil.
type Update struct {
	Username     string
	Email        string
	PasswordHash *string
}
