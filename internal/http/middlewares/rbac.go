package middlewares

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/geocoder89/accounthub/internal/account"
	"github.com/geocoder89/accounthub/internal/http/flash"
	"github.com/gin-gonic/gin"
)

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := account.RequireAuthenticated(IdentityFrom(c)); err != nil {
			redirectToLogin(c)
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := account.RequireAdmin(IdentityFrom(c))

		switch {
		case err == nil:
			c.Next()
		case errors.Is(err, account.ErrUnauthenticated):
			redirectToLogin(c)
		default:
			flash.Add(c, flash.Warning, "Access denied: admins only.")
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
		}
	}
}

// RedirectIfAuthenticated keeps logged-in users off the login and register pages.
func RedirectIfAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IdentityFrom(c).IsAuthenticated() {
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
			return
		}
		c.Next()
	}
}

func redirectToLogin(c *gin.Context) {
	flash.Add(c, flash.Info, "Please log in to access this page.")
	c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}
