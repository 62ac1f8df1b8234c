package handlers_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/accounthub/internal/account"
	"github.com/geocoder89/accounthub/internal/domain/activity"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/geocoder89/accounthub/internal/http/views"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFlows implements every flow interface the handlers consume.
type fakeFlows struct {
	registerFn  func(ctx context.Context, in account.RegisterInput) (user.User, error)
	loginFn     func(ctx context.Context, username, password string, start func(user.User) error) (user.User, error)
	logoutFn    func(ctx context.Context, id account.Identity, end func() error) error
	listFn      func(ctx context.Context, actor account.Identity) ([]user.User, error)
	activityFn  func(ctx context.Context, actor account.Identity, cursor string) (activity.Page, error)
	changeFn    func(ctx context.Context, actor account.Identity, targetID, role string) (user.User, error)
	deleteFn    func(ctx context.Context, actor account.Identity, targetID string) (user.User, error)
	getFn       func(ctx context.Context, actor account.Identity, targetID string) (user.User, error)
	editFn      func(ctx context.Context, actor account.Identity, targetID string, in account.EditInput) (user.User, error)
	changeCalls int
	deleteCalls int
}

func (f *fakeFlows) Register(ctx context.Context, in account.RegisterInput) (user.User, error) {
	if f.registerFn != nil {
		return f.registerFn(ctx, in)
	}
	return user.User{ID: uuid.NewString(), Username: in.Username}, nil
}

func (f *fakeFlows) Login(ctx context.Context, username, password string, start func(user.User) error) (user.User, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, username, password, start)
	}
	u := user.User{ID: uuid.NewString(), Username: username, Role: user.RoleUser}
	if start != nil {
		if err := start(u); err != nil {
			return user.User{}, err
		}
	}
	return u, nil
}

func (f *fakeFlows) Logout(ctx context.Context, id account.Identity, end func() error) error {
	if f.logoutFn != nil {
		return f.logoutFn(ctx, id, end)
	}
	if end != nil {
		return end()
	}
	return nil
}

func (f *fakeFlows) ListUsers(ctx context.Context, actor account.Identity) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx, actor)
	}
	return nil, nil
}

func (f *fakeFlows) RecentActivity(ctx context.Context, actor account.Identity, cursor string) (activity.Page, error) {
	if f.activityFn != nil {
		return f.activityFn(ctx, actor, cursor)
	}
	return activity.Page{}, nil
}

func (f *fakeFlows) ChangeRole(ctx context.Context, actor account.Identity, targetID, role string) (user.User, error) {
	f.changeCalls++
	if f.changeFn != nil {
		return f.changeFn(ctx, actor, targetID, role)
	}
	return user.User{ID: targetID, Username: "target", Role: user.Role(role)}, nil
}

func (f *fakeFlows) DeleteUser(ctx context.Context, actor account.Identity, targetID string) (user.User, error) {
	f.deleteCalls++
	if f.deleteFn != nil {
		return f.deleteFn(ctx, actor, targetID)
	}
	return user.User{ID: targetID, Username: "target"}, nil
}

func (f *fakeFlows) GetUser(ctx context.Context, actor account.Identity, targetID string) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, actor, targetID)
	}
	return user.User{ID: actor.UserID, Username: actor.Username, Email: actor.Email}, nil
}

func (f *fakeFlows) EditUser(ctx context.Context, actor account.Identity, targetID string, in account.EditInput) (user.User, error) {
	if f.editFn != nil {
		return f.editFn(ctx, actor, targetID, in)
	}
	return user.User{ID: actor.UserID, Username: in.Username, Email: in.Email}, nil
}

// fakeTokens issues predictable tokens.
type fakeTokens struct{}

func (fakeTokens) GenerateSessionToken(userID, sessionID string) (string, time.Time, error) {
	return "tok-" + sessionID, time.Now().Add(time.Hour), nil
}

func (fakeTokens) TTL() time.Duration { return time.Hour }

// newEngine returns a gin engine with templates loaded, acting as id.
func newEngine(id account.Identity) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(views.MustLoad())
	r.Use(func(c *gin.Context) {
		if id.IsAuthenticated() {
			c.Set(middlewares.CtxIdentity, id)
		}
		c.Next()
	})
	return r
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func requireRedirect(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantLocation string) {
	t.Helper()

	if w.Code != wantStatus {
		t.Fatalf("status = %d, want %d, body=%s", w.Code, wantStatus, w.Body.String())
	}
	if got := w.Header().Get("Location"); got != wantLocation {
		t.Fatalf("Location = %q, want %q", got, wantLocation)
	}
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

var (
	adminID = account.Identity{UserID: uuid.NewString(), Username: "root", Role: user.RoleAdmin, SessionID: "s-admin"}
	aliceID = account.Identity{UserID: uuid.NewString(), Username: "alice", Email: "a@x.com", Role: user.RoleUser, SessionID: "s-alice"}
)
