package activity

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestNew_StampsIDAndTime(t *testing.T) {
	before := time.Now().UTC()

	e := New("u1", ActionUserLogin, "")

	if e.ID == "" {
		t.Fatalf("expected id to be assigned")
	}
	if e.Timestamp.Before(before) {
		t.Fatalf("timestamp %v is before %v", e.Timestamp, before)
	}
	if e.UserID != "u1" || e.Action != ActionUserLogin {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestNew_TruncatesDetails(t *testing.T) {
	long := strings.Repeat("é", MaxDetailsLen+20)

	e := New("u1", ActionProfileUpdated, long)

	if got := utf8.RuneCountInString(e.Details); got != MaxDetailsLen {
		t.Fatalf("details length = %d, want %d", got, MaxDetailsLen)
	}
}
