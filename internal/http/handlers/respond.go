package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/accounthub/internal/account"
	"github.com/geocoder89/accounthub/internal/http/flash"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// Render fills in what every page needs: the caller, pending notices, request id.
func Render(ctx *gin.Context, status int, page, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Identity"] = middlewares.IdentityFrom(ctx)
	data["Flashes"] = flash.Pop(ctx)
	data["RequestID"] = requestIDFrom(ctx)

	ctx.HTML(status, page, data)
}

// RedirectWith queues a notice and sends the browser to location.
// POST handlers answer with 303 so the follow-up is a GET.
func RedirectWith(ctx *gin.Context, category flash.Category, message, location string) {
	if message != "" {
		flash.Add(ctx, category, message)
	}

	status := http.StatusFound
	if ctx.Request.Method == http.MethodPost {
		status = http.StatusSeeOther
	}
	ctx.Redirect(status, location)
}

// RespondFlowError maps a flow error onto a redirect with a notice.
// System errors are logged; the user only sees a generic message.
func RespondFlowError(ctx *gin.Context, log *slog.Logger, err error, location string) {
	switch {
	case errors.Is(err, account.ErrValidation):
		RedirectWith(ctx, flash.Danger, "Please fill in all fields.", location)
	case errors.Is(err, account.ErrConflict):
		RedirectWith(ctx, flash.Warning, "Username or email is already in use.", location)
	case errors.Is(err, account.ErrInvalidCredentials):
		RedirectWith(ctx, flash.Danger, "Invalid username or password.", location)
	case errors.Is(err, account.ErrUnauthenticated):
		RedirectWith(ctx, flash.Info, "Please log in to access this page.", "/login")
	case errors.Is(err, account.ErrForbidden):
		RedirectWith(ctx, flash.Danger, "You do not have permission to do that.", "/dashboard")
	case errors.Is(err, account.ErrSelfDeletion):
		RedirectWith(ctx, flash.Warning, "You cannot delete your own account.", location)
	case errors.Is(err, account.ErrNotFound):
		RedirectWith(ctx, flash.Warning, "User not found.", location)
	default:
		log.ErrorContext(ctx.Request.Context(), "request failed",
			"err", err,
			"route", ctx.FullPath(),
			"request_id", requestIDFrom(ctx),
		)
		RedirectWith(ctx, flash.Danger, "Something went wrong. Please try again.", location)
	}
}
