package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/accounthub/internal/domain/activity"
	"github.com/geocoder89/accounthub/internal/utils"
)

type ActivityLogsRepo struct {
	mu      sync.RWMutex
	entries []activity.Entry
}

func NewActivityLogsRepo() *ActivityLogsRepo {
	return &ActivityLogsRepo{}
}

func (r *ActivityLogsRepo) Append(_ context.Context, e activity.Entry) error {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
	return nil
}

// All returns a copy of every entry in insertion order.
func (r *ActivityLogsRepo) All() []activity.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]activity.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func newer(a, b activity.Entry) bool {
	if a.Timestamp.Equal(b.Timestamp) {
		return a.ID > b.ID
	}
	return a.Timestamp.After(b.Timestamp)
}

func (r *ActivityLogsRepo) ListBefore(_ context.Context, limit int, beforeTS time.Time, beforeID string) (activity.Page, error) {
	all := r.All()

	sort.Slice(all, func(i, j int) bool { return newer(all[i], all[j]) })

	bound := activity.Entry{Timestamp: beforeTS, ID: beforeID}
	out := make([]activity.Entry, 0, limit)

	for _, e := range all {
		if !newer(bound, e) {
			continue
		}
		out = append(out, e)
		if len(out) > limit {
			break
		}
	}

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
