package views

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/accounthub/internal/account"
	"github.com/geocoder89/accounthub/internal/domain/activity"
	"github.com/geocoder89/accounthub/internal/domain/user"
)

func TestLoad_AllPagesPresent(t *testing.T) {
	tmpl, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, name := range []string{"login.html", "register.html", "dashboard.html", "admin.html", "activity_logs.html", "edit_user.html"} {
		if tmpl.Lookup(name) == nil {
			t.Fatalf("missing template %s", name)
		}
	}
}

func TestAdminPage_EscapesAndHidesSelfDelete(t *testing.T) {
	tmpl := MustLoad()

	admin := account.Identity{UserID: "a1", Username: "root", Role: user.RoleAdmin}
	data := map[string]any{
		"Title":    "Users",
		"Identity": admin,
		"Roles":    user.Roles,
		"Users": []user.User{
			{ID: "a1", Username: "root", Role: user.RoleAdmin, CreatedAt: time.Now()},
			{ID: "u2", Username: "<script>x</script>", Role: user.RoleUser, CreatedAt: time.Now()},
		},
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "admin.html", data); err != nil {
		t.Fatalf("execute: %v", err)
	}
	out := buf.String()

	if strings.Contains(out, "<script>x</script>") {
		t.Fatalf("username not escaped")
	}
	if strings.Contains(out, "/admin/delete/a1") {
		t.Fatalf("admin should not be offered a self delete link")
	}
	if !strings.Contains(out, "/admin/delete/u2") || !strings.Contains(out, "/admin/role/u2/manager") {
		t.Fatalf("expected action links for u2")
	}
}

func TestActivityPage_NextLink(t *testing.T) {
	tmpl := MustLoad()
	cursor := "abc"

	data := map[string]any{
		"Title":    "Activity",
		"Identity": account.Identity{UserID: "a1", Role: user.RoleAdmin},
		"Page": activity.Page{
			Entries:    []activity.Entry{activity.New("u1", activity.ActionUserLogin, "")},
			NextCursor: &cursor,
			HasMore:    true,
		},
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "activity_logs.html", data); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(buf.String(), "/admin/logs?before=abc") {
		t.Fatalf("missing older-entries link: %s", buf.String())
	}
}
