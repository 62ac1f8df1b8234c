package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/security"
	"github.com/google/uuid"
)

const generatedPasswordLen = 20

type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	Create(ctx context.Context, u user.User) error
}

// EnsureAdminUser creates the bootstrap admin when no user holds the admin
// username. Without ADMIN_PASSWORD a random one is generated and logged once.
func EnsureAdminUser(ctx context.Context, users AdminStore, cfg config.Config, log *slog.Logger) (created bool, err error) {
	_, err = users.GetByUsername(ctx, cfg.AdminUsername)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	password := cfg.AdminPassword
	generated := password == ""

	if generated {
		password, err = security.GeneratePassword(generatedPasswordLen)
		if err != nil {
			return false, err
		}
	}

	hash, err := security.HashPassword(password)

	if err != nil {
		return false, err
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := users.Create(ctx, u); err != nil {
		// another instance won the race
		if errors.Is(err, user.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}

	if generated {
		log.Warn("bootstrap admin created with generated password; change it after first login",
			"username", u.Username,
			"password", password,
		)
	} else {
		log.Info("bootstrap admin created", "username", u.Username)
	}

	return true, nil
}
