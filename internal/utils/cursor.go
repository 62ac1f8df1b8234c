package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

type ActivityCursor struct {
	Timestamp time.Time `json:"ts"`
	ID        string    `json:"id"`
}

func EncodeActivityCursor(ts time.Time, id string) (string, error) {
	b, err := json.Marshal(ActivityCursor{Timestamp: ts, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeActivityCursor(cursor string) (ActivityCursor, error) {
	if cursor == "" {
		return ActivityCursor{}, errors.New("empty cursor")
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return ActivityCursor{}, err
	}

	var c ActivityCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return ActivityCursor{}, err
	}
	if c.ID == "" || c.Timestamp.IsZero() {
		return ActivityCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}

// ActivityCursorStart is the DESC first-page sentinel: "far future" + max UUID.
func ActivityCursorStart() (time.Time, string) {
	return time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC), "ffffffff-ffff-ffff-ffff-ffffffffffff"
}
