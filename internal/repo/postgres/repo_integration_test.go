package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/accounthub/internal/db"
	"github.com/geocoder89/accounthub/internal/domain/activity"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/geocoder89/accounthub/internal/repo/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Runs against a real database only when TEST_DB_DSN points at one.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		t.Fatalf("Failed to create pgx pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := pool.Exec(ctx, `TRUNCATE activity_logs, users`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	return pool
}

func newUser(username, email string) user.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return user.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Role:         user.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUsersRepo_Lifecycle(t *testing.T) {
	pool := setupPool(t)
	repo := postgres.NewUsersRepo(pool, observability.NewProm(prometheus.NewRegistry()))
	ctx := context.Background()

	alice := newUser("alice", "a@x.com")
	bob := newUser("bob", "b@x.com")

	for _, u := range []user.User{alice, bob} {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("create %s: %v", u.Username, err)
		}
	}

	if err := repo.Create(ctx, newUser("alice", "other@x.com")); !errors.Is(err, user.ErrDuplicate) {
		t.Fatalf("duplicate username = %v, want ErrDuplicate", err)
	}

	got, err := repo.GetByUsername(ctx, "alice")
	if err != nil || got.ID != alice.ID {
		t.Fatalf("GetByUsername = %+v, %v", got, err)
	}

	prev, updated, err := repo.UpdateRole(ctx, alice.ID, user.RoleManager)
	if err != nil || prev != user.RoleUser || updated.Role != user.RoleManager {
		t.Fatalf("UpdateRole = %v, %+v, %v", prev, updated, err)
	}

	if _, err := repo.Update(ctx, alice.ID, user.Update{Username: "bob", Email: "a@x.com"}); !errors.Is(err, user.ErrDuplicate) {
		t.Fatalf("taking bob's name = %v, want ErrDuplicate", err)
	}

	hash := "new-hash"
	edited, err := repo.Update(ctx, alice.ID, user.Update{Username: "alice", Email: "alice@x.com", PasswordHash: &hash})
	if err != nil || edited.Email != "alice@x.com" || edited.PasswordHash != "new-hash" {
		t.Fatalf("Update = %+v, %v", edited, err)
	}

	kept, err := repo.Update(ctx, alice.ID, user.Update{Username: "alice", Email: "alice@x.com"})
	if err != nil || kept.PasswordHash != "new-hash" {
		t.Fatalf("nil hash must keep the password: %+v, %v", kept, err)
	}

	users, err := repo.List(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("List = %d users, %v", len(users), err)
	}

	if err := repo.Delete(ctx, bob.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, bob.ID); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
	if _, _, err := repo.UpdateRole(ctx, bob.ID, user.RoleAdmin); !errors.Is(err, user.ErrNotFound) {
		t.Fatalf("UpdateRole on missing = %v, want ErrNotFound", err)
	}
}

func TestActivityLogsRepo_PagesNewestFirst(t *testing.T) {
	pool := setupPool(t)
	repo := postgres.NewActivityLogsRepo(pool, nil)
	ctx := context.Background()

	actor := uuid.NewString()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < 5; i++ {
		e := activity.New(actor, activity.ActionUserLogin, "")
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	start := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	page, err := repo.ListBefore(ctx, 3, start, "ffffffff-ffff-ffff-ffff-ffffffffffff")
	if err != nil {
		t.Fatalf("ListBefore: %v", err)
	}
	if len(page.Entries) != 3 || !page.HasMore || page.NextCursor == nil {
		t.Fatalf("first page: %d entries, more=%v", len(page.Entries), page.HasMore)
	}
	if !page.Entries[0].Timestamp.Equal(base.Add(4 * time.Second)) {
		t.Fatalf("newest entry first, got %v", page.Entries[0].Timestamp)
	}

	last := page.Entries[2]
	rest, err := repo.ListBefore(ctx, 3, last.Timestamp, last.ID)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(rest.Entries) != 2 || rest.HasMore {
		t.Fatalf("second page: %d entries, more=%v", len(rest.Entries), rest.HasMore)
	}
}
