package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/geocoder89/accounthub/internal/account"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/http/flash"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/geocoder89/accounthub/internal/session"
	"github.com/geocoder89/accounthub/internal/utils"
	"github.com/gin-gonic/gin"
)

type AuthFlows interface {
	Register(ctx context.Context, in account.RegisterInput) (user.User, error)
	Login(ctx context.Context, username, password string, start func(user.User) error) (user.User, error)
	Logout(ctx context.Context, id account.Identity, end func() error) error
}

type TokenIssuer interface {
	GenerateSessionToken(userID, sessionID string) (string, time.Time, error)
	TTL() time.Duration
}

type AuthHandler struct {
	accounts AuthFlows
	sessions session.Store
	tokens   TokenIssuer
	cookie   middlewares.CookieConfig
	prom     *observability.Prom
	log      *slog.Logger
}

func NewAuthHandler(accounts AuthFlows, sessions session.Store, tokens TokenIssuer, cookie middlewares.CookieConfig, prom *observability.Prom, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		tokens:   tokens,
		cookie:   cookie,
		prom:     prom,
		log:      log,
	}
}

type RegisterForm struct {
	Username string `form:"username" binding:"required,max=80"`
	Email    string `form:"email" binding:"required,max=120"`
	Password string `form:"password" binding:"required,maxbytes=72"`
}

type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
	Next     string `form:"next"`
}

func (h *AuthHandler) Index(ctx *gin.Context) {
	if middlewares.IdentityFrom(ctx).IsAuthenticated() {
		ctx.Redirect(http.StatusFound, "/dashboard")
		return
	}
	ctx.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) RegisterPage(ctx *gin.Context) {
	Render(ctx, http.StatusOK, "register.html", "Register", nil)
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var form RegisterForm

	if fields := BindForm(ctx, &form); fields != nil {
		RedirectWith(ctx, flash.Danger, "Please fill in all fields: "+Summary(fields)+".", "/register")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	_, err := h.accounts.Register(cctx, account.RegisterInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})

	if err != nil {
		RespondFlowError(ctx, h.log, err, "/register")
		return
	}

	RedirectWith(ctx, flash.Success, "Registration successful. Please log in.", "/login")
}

func (h *AuthHandler) LoginPage(ctx *gin.Context) {
	Render(ctx, http.StatusOK, "login.html", "Log in", gin.H{
		"Next": utils.SafeRedirect(ctx.Query("next"), ""),
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var form LoginForm

	if fields := BindForm(ctx, &form); fields != nil {
		h.prom.ObserveLogin("invalid")
		RedirectWith(ctx, flash.Danger, "Invalid username or password.", loginURL(form.Next))
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	var (
		token     string
		expiresAt time.Time
	)

	_, err := h.accounts.Login(cctx, form.Username, form.Password, func(u user.User) error {
		sess, err := h.sessions.Create(cctx, u.ID, h.tokens.TTL())
		if err != nil {
			return err
		}

		token, expiresAt, err = h.tokens.GenerateSessionToken(u.ID, sess.ID)
		if err != nil {
			_ = h.sessions.Delete(cctx, sess.ID)
			return err
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			h.prom.ObserveLogin("invalid")
		} else {
			h.prom.ObserveLogin("error")
		}
		RespondFlowError(ctx, h.log, err, loginURL(form.Next))
		return
	}

	h.prom.ObserveLogin("ok")
	middlewares.SetSessionCookie(ctx, h.cookie, token, expiresAt)

	RedirectWith(ctx, flash.Success, "Logged in successfully.", utils.SafeRedirect(form.Next, "/dashboard"))
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	id := middlewares.IdentityFrom(ctx)

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	err := h.accounts.Logout(cctx, id, func() error {
		return h.sessions.Delete(cctx, id.SessionID)
	})

	// the cookie goes regardless; a leftover record expires on its own
	middlewares.ClearSessionCookie(ctx, h.cookie)

	if err != nil && !errors.Is(err, account.ErrUnauthenticated) {
		h.log.WarnContext(ctx.Request.Context(), "session teardown failed",
			"err", err,
			"user_id", id.UserID,
			"request_id", requestIDFrom(ctx),
		)
	}

	RedirectWith(ctx, flash.Info, "You have been logged out.", "/login")
}

func loginURL(next string) string {
	next = utils.SafeRedirect(next, "")
	if next == "" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}
