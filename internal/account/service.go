package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/accounthub/internal/domain/activity"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/security"
	"github.com/geocoder89/accounthub/internal/utils"
	"github.com/google/uuid"
)

const RecentActivityLimit = 100

type UserStore interface {
	Create(ctx context.Context, u user.User) error
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	UpdateRole(ctx context.Context, id string, role user.Role) (user.Role, user.User, error)
	Update(ctx context.Context, id string, upd user.Update) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type ActivityStore interface {
	ListBefore(ctx context.Context, limit int, beforeTS time.Time, beforeID string) (activity.Page, error)
}

// Store is the storage handle the flows run against.
type Store struct {
	Users    UserStore
	Activity ActivityStore
}

// Auditor appends activity entries without failing the caller.
type Auditor interface {
	Record(ctx context.Context, userID, action, details string)
}

type Service struct {
	store Store
	audit Auditor
}

func NewService(store Store, audit Auditor) *Service {
	return &Service{store: store, audit: audit}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type EditInput struct {
	Username string
	Email    string
	// empty keeps the current password
	Password string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (user.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if username == "" || email == "" || in.Password == "" {
		return user.User{}, ErrValidation
	}
	if len(in.Password) > security.MaxPasswordBytes {
		return user.User{}, ErrValidation
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := user.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrDuplicate) {
			return user.User{}, ErrConflict
		}
		return user.User{}, fmt.Errorf("create user: %w", err)
	}

	s.audit.Record(ctx, u.ID, activity.ActionUserRegistered, fmt.Sprintf("New user %s created.", u.Username))

	return u, nil
}

// Login checks credentials, runs start to establish the session, then audits.
// Unknown user and wrong password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string, start func(user.User) error) (user.User, error) {
	username = strings.TrimSpace(username)

	if username == "" || password == "" {
		return user.User{}, ErrInvalidCredentials
	}

	u, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			_ = security.CheckDummy(password)
			return user.User{}, ErrInvalidCredentials
		}
		return user.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := security.CheckPassword(u.PasswordHash, password); err != nil {
		return user.User{}, ErrInvalidCredentials
	}

	if start != nil {
		if err := start(u); err != nil {
			return user.User{}, fmt.Errorf("start session: %w", err)
		}
	}

	s.audit.Record(ctx, u.ID, activity.ActionUserLogin, "")

	return u, nil
}

// Logout audits while the identity is still resolvable, then runs end to tear the session down.
func (s *Service) Logout(ctx context.Context, id Identity, end func() error) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}

	s.audit.Record(ctx, id.UserID, activity.ActionUserLogout, "")

	if end != nil {
		if err := end(); err != nil {
			return fmt.Errorf("end session: %w", err)
		}
	}
	return nil
}

// Authenticate resolves a session's user id to a fresh identity, so role
// changes and deletions take effect on the next request.
func (s *Service) Authenticate(ctx context.Context, userID, sessionID string) (Identity, error) {
	if userID == "" {
		return Identity{}, ErrUnauthenticated
	}

	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Identity{}, ErrUnauthenticated
		}
		return Identity{}, fmt.Errorf("load user: %w", err)
	}

	return IdentityOf(u, sessionID), nil
}

func (s *Service) ListUsers(ctx context.Context, actor Identity) ([]user.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}

	users, err := s.store.Users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// RecentActivity lists entries newest first, RecentActivityLimit per page.
// An empty cursor starts at the newest entry.
func (s *Service) RecentActivity(ctx context.Context, actor Identity, cursor string) (activity.Page, error) {
	if err := RequireAdmin(actor); err != nil {
		return activity.Page{}, err
	}

	beforeTS, beforeID := utils.ActivityCursorStart()

	if cursor != "" {
		cur, err := utils.DecodeActivityCursor(cursor)
		if err != nil {
			return activity.Page{}, ErrValidation
		}
		beforeTS, beforeID = cur.Timestamp, cur.ID
	}

	page, err := s.store.Activity.ListBefore(ctx, RecentActivityLimit, beforeTS, beforeID)
	if err != nil {
		return activity.Page{}, fmt.Errorf("list activity: %w", err)
	}
	return page, nil
}

func (s *Service) ChangeRole(ctx context.Context, actor Identity, targetID, role string) (user.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return user.User{}, err
	}

	newRole := user.Role(role)
	if !newRole.IsValid() {
		return user.User{}, ErrValidation
	}

	prev, u, err := s.store.Users.UpdateRole(ctx, targetID, newRole)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, fmt.Errorf("update role: %w", err)
	}

	s.audit.Record(ctx, actor.UserID, activity.ActionRoleChanged,
		fmt.Sprintf("Admin changed %s role from %s to %s.", u.Username, prev, newRole))

	return u, nil
}

// DeleteUser removes targetID. The username is captured before the row goes away.
func (s *Service) DeleteUser(ctx context.Context, actor Identity, targetID string) (user.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return user.User{}, err
	}

	if targetID == actor.UserID {
		return user.User{}, ErrSelfDeletion
	}

	u, err := s.store.Users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, fmt.Errorf("load user: %w", err)
	}

	if err := s.store.Users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, fmt.Errorf("delete user: %w", err)
	}

	s.audit.Record(ctx, actor.UserID, activity.ActionUserDeleted,
		fmt.Sprintf("Admin deleted user: %s (ID: %s).", u.Username, u.ID))

	return u, nil
}

// GetUser loads the user an edit form is for, applying the same target rule as EditUser.
func (s *Service) GetUser(ctx context.Context, actor Identity, targetID string) (user.User, error) {
	id, err := ResolveTarget(actor, targetID)
	if err != nil {
		return user.User{}, err
	}

	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// EditUser replaces username and email of the target, and the password when one is given.
// An empty targetID edits the caller's own profile.
func (s *Service) EditUser(ctx context.Context, actor Identity, targetID string, in EditInput) (user.User, error) {
	id, err := ResolveTarget(actor, targetID)
	if err != nil {
		return user.User{}, err
	}

	upd := user.Update{
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
	}

	if upd.Username == "" || upd.Email == "" {
		return user.User{}, ErrValidation
	}

	if len(in.Password) > security.MaxPasswordBytes {
		return user.User{}, ErrValidation
	}

	passwordChanged := false
	if in.Password != "" {
		hash, err := security.HashPassword(in.Password)
		if err != nil {
			return user.User{}, fmt.Errorf("hash password: %w", err)
		}
		upd.PasswordHash = &hash
		passwordChanged = true
	}

	u, err := s.store.Users.Update(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrDuplicate):
			return user.User{}, ErrConflict
		case errors.Is(err, user.ErrNotFound):
			return user.User{}, ErrNotFound
		default:
			return user.User{}, fmt.Errorf("update user: %w", err)
		}
	}

	if targetID == "" {
		s.audit.Record(ctx, actor.UserID, activity.ActionProfileUpdated,
			fmt.Sprintf("Updated own profile. Password changed: %t", passwordChanged))
	} else {
		s.audit.Record(ctx, actor.UserID, activity.ActionUserEditedAdmin,
			fmt.Sprintf("Admin edited profile of %s. Password changed: %t", u.Username, passwordChanged))
	}

	return u, nil
}
