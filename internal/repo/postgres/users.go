package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (user.User, error) {
	var u user.User
	var role string

	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	u.Role = user.Role(role)
	return u, nil
}

// Create inserts u after a combined username-or-email check, all in one transaction.
// A concurrent insert that slips past the check is caught by the unique indexes.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var exists bool

	err = r.observe("users.create.duplicate_check", func() error {
		return tx.QueryRow(ctx, `SELECT EXISTS(
			SELECT 1 FROM users WHERE username = $1 OR email = $2
		)`, u.Username, u.Email).Scan(&exists)
	})
	if err != nil {
		return
	}

	if exists {
		err = user.ErrDuplicate
		return
	}

	err = r.observe("users.create.insert", func() error {
		_, e := tx.Exec(ctx, `
			INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, u.ID, u.Username, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt, u.UpdatedAt)
		return e
	})
	if err != nil {
		if IsUniqueViolation(err) {
			err = user.ErrDuplicate
		}
		return
	}

	err = tx.Commit(ctx)
	if IsUniqueViolation(err) {
		err = user.ErrDuplicate
	}
	return
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (u user.User, err error) {
	err = r.observe("users.get_by_id", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return e
	})
	return
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (u user.User, err error) {
	err = r.observe("users.get_by_username", func() error {
		var e error
		u, e = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
		return e
	})
	return
}

func (r *UsersRepo) List(ctx context.Context) (users []user.User, err error) {
	var rows pgx.Rows

	err = r.observe("users.list", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
		return qerr
	})
	if err != nil {
		return
	}

	defer rows.Close()

	users = make([]user.User, 0)

	for rows.Next() {
		u, e := scanUser(rows)
		if e != nil {
			err = e
			return
		}
		users = append(users, u)
	}

	err = rows.Err()
	return
}

// UpdateRole swaps the role and returns the previous one, read under the same row lock.
func (r *UsersRepo) UpdateRole(ctx context.Context, id string, role user.Role) (prev user.Role, u user.User, err error) {
	var oldRole, newRole string

	err = r.observe("users.update_role", func() error {
		return r.pool.QueryRow(ctx, `
			UPDATE users AS u
			SET role = $2, updated_at = NOW()
			FROM (SELECT id, role FROM users WHERE id = $1 FOR UPDATE) AS old
			WHERE u.id = old.id
			RETURNING old.role, u.id, u.username, u.email, u.password_hash, u.role, u.created_at, u.updated_at
		`, id, string(role)).Scan(&oldRole, &u.ID, &u.Username, &u.Email, &u.PasswordHash, &newRole, &u.CreatedAt, &u.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = user.ErrNotFound
		}
		return
	}

	prev = user.Role(oldRole)
	u.Role = user.Role(newRole)
	return
}

// Update replaces username and email (and the hash when given) after checking
// that no other user holds either value.
func (r *UsersRepo) Update(ctx context.Context, id string, upd user.Update) (u user.User, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var taken bool

	err = r.observe("users.update.duplicate_check", func() error {
		return tx.QueryRow(ctx, `SELECT EXISTS(
			SELECT 1 FROM users WHERE (username = $1 OR email = $2) AND id <> $3
		)`, upd.Username, upd.Email, id).Scan(&taken)
	})
	if err != nil {
		return
	}

	if taken {
		err = user.ErrDuplicate
		return
	}

	err = r.observe("users.update", func() error {
		var e error
		u, e = scanUser(tx.QueryRow(ctx, `
			UPDATE users
			SET username = $2,
			    email = $3,
			    password_hash = COALESCE($4, password_hash),
			    updated_at = $5
			WHERE id = $1
			RETURNING `+userColumns,
			id, upd.Username, upd.Email, upd.PasswordHash, time.Now().UTC(),
		))
		return e
	})
	if err != nil {
		if IsUniqueViolation(err) {
			err = user.ErrDuplicate
		}
		return
	}

	err = tx.Commit(ctx)
	if IsUniqueViolation(err) {
		err = user.ErrDuplicate
	}
	return
}

func (r *UsersRepo) Delete(ctx context.Context, id string) (err error) {
	var tag pgconn.CommandTag

	err = r.observe("users.delete", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return e
	})
	if err != nil {
		return
	}

	if tag.RowsAffected() == 0 {
		err = user.ErrNotFound
	}
	return
}
