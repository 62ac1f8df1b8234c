package activity

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Action tags written by the account flows. The set is open, storage accepts any tag.
const (
	ActionUserRegistered  = "User Registered"
	ActionUserLogin       = "User Login"
	ActionUserLogout      = "User Logout"
	ActionRoleChanged     = "Role Changed"
	ActionUserDeleted     = "User Deleted"
	ActionProfileUpdated  = "Profile Updated"
	ActionUserEditedAdmin = "User Edited by Admin"
)

const (
	MaxActionLen  = 100
	MaxDetailsLen = 255
)

// Entry is an append-only audit record. UserID is a plain reference, the
// user row may be gone by the time the entry is read.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// New stamps a fresh entry with an id and the current UTC time.
func New(userID, action, details string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Action:    truncate(action, MaxActionLen),
		Details:   truncate(details, MaxDetailsLen),
	}
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

// Page is one slice of the newest-first activity listing.
type Page struct {
	Entries    []Entry
	NextCursor *string
	HasMore    bool
}
