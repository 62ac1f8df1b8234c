package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/accounthub/internal/account"
	"github.com/geocoder89/accounthub/internal/actorctx"
	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/session"
	"github.com/gin-gonic/gin"
)

// Keep these small so tests can fake them easily.
type TokenVerifier interface {
	VerifySessionToken(token string) (*auth.Claims, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, userID, sessionID string) (account.Identity, error)
}

// errStaleSession marks a cookie that no longer maps to a live session.
var errStaleSession = errors.New("stale session")

type SessionMiddleware struct {
	tokens   TokenVerifier
	sessions session.Store
	accounts Authenticator
	cookie   CookieConfig
	log      *slog.Logger
}

func NewSessionMiddleware(tokens TokenVerifier, sessions session.Store, accounts Authenticator, cookie CookieConfig, log *slog.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		tokens:   tokens,
		sessions: sessions,
		accounts: accounts,
		cookie:   cookie,
		log:      log,
	}
}

// LoadSession resolves the session cookie into an Identity on the context.
// It never rejects a request; the Require* guards do that.
func (m *SessionMiddleware) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(m.cookie.name())
		if err != nil || raw == "" {
			c.Next()
			return
		}

		id, err := m.resolve(c.Request.Context(), raw)
		if err != nil {
			if errors.Is(err, errStaleSession) {
				ClearSessionCookie(c, m.cookie)
			} else {
				m.log.WarnContext(c.Request.Context(), "session lookup failed", "err", err)
			}
			c.Next()
			return
		}

		c.Set(CtxIdentity, id)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), id.UserID))

		c.Next()
	}
}

func (m *SessionMiddleware) resolve(ctx context.Context, raw string) (account.Identity, error) {
	claims, err := m.tokens.VerifySessionToken(raw)
	if err != nil {
		return account.Identity{}, errStaleSession
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	sess, err := m.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return account.Identity{}, errStaleSession
		}
		return account.Identity{}, err
	}

	if sess.UserID != claims.UserID {
		return account.Identity{}, errStaleSession
	}

	id, err := m.accounts.Authenticate(ctx, sess.UserID, sess.ID)
	if err != nil {
		if errors.Is(err, account.ErrUnauthenticated) {
			// user is gone
			_ = m.sessions.Delete(ctx, sess.ID)
			return account.Identity{}, errStaleSession
		}
		return account.Identity{}, err
	}

	return id, nil
}

// IdentityFrom returns the caller, or the anonymous zero Identity.
func IdentityFrom(c *gin.Context) account.Identity {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return account.Identity{}
	}
	id, _ := v.(account.Identity)
	return id
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	id := IdentityFrom(c)
	return id.UserID, id.IsAuthenticated()
}
