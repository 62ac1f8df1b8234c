package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const DefaultSessionCookie = "accounthub_session"

type CookieConfig struct {
	Name   string
	Secure bool
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultSessionCookie
	}
	return c.Name
}

func SetSessionCookie(ctx *gin.Context, cfg CookieConfig, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())

	// Lax so the cookie survives the post-login redirect
	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		cfg.name(),
		token,
		maxAge,
		"/",
		"",
		cfg.Secure,
		true, // HttpOnly.
	)
}

func ClearSessionCookie(ctx *gin.Context, cfg CookieConfig) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		cfg.name(),
		"",
		-1,
		"/",
		"",
		cfg.Secure,
		true,
	)
}
