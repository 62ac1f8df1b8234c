package account

import "github.com/geocoder89/accounthub/internal/domain/user"

// Identity is the authenticated caller of a flow. The zero value is anonymous.
type Identity struct {
	UserID    string
	Username  string
	Email     string
	Role      user.Role
	SessionID string
}

func IdentityOf(u user.User, sessionID string) Identity {
	return Identity{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		SessionID: sessionID,
	}
}

func (id Identity) IsAuthenticated() bool {
	return id.UserID != ""
}

func (id Identity) IsAdmin() bool {
	return id.IsAuthenticated() && id.Role == user.RoleAdmin
}

func RequireAuthenticated(id Identity) error {
	if !id.IsAuthenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func RequireAdmin(id Identity) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if !id.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// ResolveTarget picks the user an operation acts on: the caller when targetID
// is empty, otherwise targetID, which needs admin rights.
func ResolveTarget(id Identity, targetID string) (string, error) {
	if err := RequireAuthenticated(id); err != nil {
		return "", err
	}
	if targetID == "" {
		return id.UserID, nil
	}
	if err := RequireAdmin(id); err != nil {
		return "", err
	}
	return targetID, nil
}
