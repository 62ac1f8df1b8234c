package middlewares

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/accounthub/internal/account"
	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/session"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuthenticator struct {
	users map[string]user.User
	err   error
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, userID, sessionID string) (account.Identity, error) {
	if f.err != nil {
		return account.Identity{}, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return account.Identity{}, account.ErrUnauthenticated
	}
	return account.IdentityOf(u, sessionID), nil
}

type sessionFixture struct {
	tokens   *auth.Manager
	sessions *session.MemoryStore
	accounts *fakeAuthenticator
	engine   *gin.Engine
	seen     *account.Identity
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		tokens:   auth.NewManager("test-secret", time.Hour),
		sessions: session.NewMemoryStore(time.Hour),
		accounts: &fakeAuthenticator{users: map[string]user.User{
			"u1": {ID: "u1", Username: "alice", Role: user.RoleUser},
		}},
		seen: &account.Identity{},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewSessionMiddleware(f.tokens, f.sessions, f.accounts, CookieConfig{}, log)

	f.engine = gin.New()
	f.engine.Use(m.LoadSession())
	f.engine.GET("/whoami", func(c *gin.Context) {
		*f.seen = IdentityFrom(c)
		c.Status(http.StatusNoContent)
	})
	return f
}

func (f *sessionFixture) login(t *testing.T, userID string) (string, session.Session) {
	t.Helper()

	sess, err := f.sessions.Create(context.Background(), userID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	token, _, err := f.tokens.GenerateSessionToken(userID, sess.ID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token, sess
}

func (f *sessionFixture) do(token string) *httptest.ResponseRecorder {
	*f.seen = account.Identity{}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: DefaultSessionCookie, Value: token})
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func clearedCookie(w *httptest.ResponseRecorder) bool {
	for _, c := range w.Result().Cookies() {
		if c.Name == DefaultSessionCookie && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestLoadSession_ValidCookie(t *testing.T) {
	f := newSessionFixture()
	token, sess := f.login(t, "u1")

	f.do(token)

	if f.seen.UserID != "u1" || f.seen.SessionID != sess.ID || f.seen.Username != "alice" {
		t.Fatalf("unexpected identity %+v", *f.seen)
	}
}

func TestLoadSession_Anonymous(t *testing.T) {
	f := newSessionFixture()

	w := f.do("")

	if f.seen.IsAuthenticated() {
		t.Fatalf("expected anonymous")
	}
	if clearedCookie(w) {
		t.Fatalf("no cookie to clear")
	}
}

func TestLoadSession_StaleCookiesAreCleared(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *sessionFixture) string
	}{
		{
			name:  "garbage token",
			setup: func(*testing.T, *sessionFixture) string { return "not-a-jwt" },
		},
		{
			name: "token from another secret",
			setup: func(t *testing.T, f *sessionFixture) string {
				_, sess := f.login(t, "u1")
				tok, _, _ := auth.NewManager("other", time.Hour).GenerateSessionToken("u1", sess.ID)
				return tok
			},
		},
		{
			name: "session deleted server side",
			setup: func(t *testing.T, f *sessionFixture) string {
				tok, sess := f.login(t, "u1")
				_ = f.sessions.Delete(context.Background(), sess.ID)
				return tok
			},
		},
		{
			name: "token user differs from session user",
			setup: func(t *testing.T, f *sessionFixture) string {
				_, sess := f.login(t, "u1")
				tok, _, _ := f.tokens.GenerateSessionToken("u2", sess.ID)
				return tok
			},
		},
		{
			name: "user deleted",
			setup: func(t *testing.T, f *sessionFixture) string {
				tok, _ := f.login(t, "u1")
				delete(f.accounts.users, "u1")
				return tok
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture()
			token := tt.setup(t, f)

			w := f.do(token)

			if f.seen.IsAuthenticated() {
				t.Fatalf("stale cookie must not authenticate, got %+v", *f.seen)
			}
			if !clearedCookie(w) {
				t.Fatalf("stale cookie should be cleared")
			}
		})
	}
}

func TestLoadSession_StoreFailureKeepsCookie(t *testing.T) {
	f := newSessionFixture()
	token, _ := f.login(t, "u1")
	f.accounts.err = errors.New("db down")

	w := f.do(token)

	if f.seen.IsAuthenticated() {
		t.Fatalf("failed lookup must be anonymous")
	}
	if clearedCookie(w) {
		t.Fatalf("a transient failure must not log the user out")
	}
}
