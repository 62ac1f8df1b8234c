package postgres

import (
	"context"
	"time"

	"github.com/geocoder89/accounthub/internal/domain/activity"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/geocoder89/accounthub/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityLogsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewActivityLogsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ActivityLogsRepo {
	return &ActivityLogsRepo{pool: pool, prom: prom}
}

func (r *ActivityLogsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *ActivityLogsRepo) Append(ctx context.Context, e activity.Entry) error {
	return r.observe("activity_logs.append", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO activity_logs (id, user_id, timestamp, action, details)
			VALUES ($1,$2,$3,$4,$5)
		`, e.ID, e.UserID, e.Timestamp, e.Action, e.Details)
		return err
	})
}

// ListBefore returns up to limit entries strictly older than (beforeTS, beforeID), newest first.
func (r *ActivityLogsRepo) ListBefore(ctx context.Context, limit int, beforeTS time.Time, beforeID string) (page activity.Page, err error) {
	var rows pgx.Rows

	err = r.observe("activity_logs.list_before", func() error {
		var qerr error
		rows, qerr = r.pool.Query(ctx, `
			SELECT id, user_id, timestamp, action, details
			FROM activity_logs
			WHERE (timestamp, id) < ($1, $2)
			ORDER BY timestamp DESC, id DESC
			LIMIT $3
		`, beforeTS, beforeID, limit+1)
		return qerr
	})
	if err != nil {
		return
	}
	defer rows.Close()

	out := make([]activity.Entry, 0, limit)

	for rows.Next() {
		var e activity.Entry
		if scanErr := rows.Scan(&e.ID, &e.UserID, &e.Timestamp, &e.Action, &e.Details); scanErr != nil {
			return activity.Page{}, scanErr
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		if r.prom != nil {
			r.prom.DbErrorsTotal.WithLabelValues("activity_logs.list_before", "rows_err").Inc()
		}
		return activity.Page{}, rows.Err()
	}

	return paginate(out, limit)
}

func paginate(out []activity.Entry, limit int) (activity.Page, error) {
	page := activity.Page{Entries: out}

	if len(out) > limit {
		page.HasMore = true
		page.Entries = out[:limit]
		last := page.Entries[len(page.Entries)-1]

		cur, err := utils.EncodeActivityCursor(last.Timestamp, last.ID)
		if err != nil {
			return activity.Page{}, err
		}
		page.NextCursor = &cur
	}

	return page, nil
}
