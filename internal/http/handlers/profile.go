package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/accounthub/internal/account"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/http/flash"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/geocoder89/accounthub/internal/utils"
	"github.com/gin-gonic/gin"
)

type ProfileFlows interface {
	GetUser(ctx context.Context, actor account.Identity, targetID string) (user.User, error)
	EditUser(ctx context.Context, actor account.Identity, targetID string, in account.EditInput) (user.User, error)
}

type ProfileHandler struct {
	accounts ProfileFlows
	log      *slog.Logger
}

func NewProfileHandler(accounts ProfileFlows, log *slog.Logger) *ProfileHandler {
	return &ProfileHandler{accounts: accounts, log: log}
}

type EditForm struct {
	Username string `form:"username" binding:"required,max=80"`
	Email    string `form:"email" binding:"required,max=120"`
	// blank keeps the current password
	Password string `form:"password" binding:"maxbytes=72"`
}

func (h *ProfileHandler) EditOwnPage(ctx *gin.Context) {
	h.page(ctx, "")
}

func (h *ProfileHandler) EditOwn(ctx *gin.Context) {
	h.submit(ctx, "", "/dashboard")
}

func (h *ProfileHandler) EditOtherPage(ctx *gin.Context) {
	targetID := ctx.Param("userId")
	if !utils.IsUUID(targetID) {
		RespondFlowError(ctx, h.log, account.ErrNotFound, "/admin")
		return
	}
	h.page(ctx, targetID)
}

func (h *ProfileHandler) EditOther(ctx *gin.Context) {
	targetID := ctx.Param("userId")
	if !utils.IsUUID(targetID) {
		RespondFlowError(ctx, h.log, account.ErrNotFound, "/admin")
		return
	}
	h.submit(ctx, targetID, "/admin")
}

func (h *ProfileHandler) page(ctx *gin.Context, targetID string) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.accounts.GetUser(cctx, middlewares.IdentityFrom(ctx), targetID)
	if err != nil {
		RespondFlowError(ctx, h.log, err, fallbackFor(targetID))
		return
	}

	Render(ctx, http.StatusOK, "edit_user.html", "Edit profile", gin.H{
		"User":      u,
		"AdminEdit": targetID != "",
		"Action":    ctx.Request.URL.Path,
	})
}

func (h *ProfileHandler) submit(ctx *gin.Context, targetID, successURL string) {
	self := ctx.Request.URL.Path

	var form EditForm
	if fields := BindForm(ctx, &form); fields != nil {
		RedirectWith(ctx, flash.Danger, "Please fill in all fields: "+Summary(fields)+".", self)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.accounts.EditUser(cctx, middlewares.IdentityFrom(ctx), targetID, account.EditInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})

	if err != nil {
		switch {
		case errors.Is(err, account.ErrConflict):
			RedirectWith(ctx, flash.Warning, "Username or email is already used by someone else.", self)
		case errors.Is(err, account.ErrForbidden):
			RedirectWith(ctx, flash.Danger, "You cannot edit other users' accounts.", "/dashboard")
		case errors.Is(err, account.ErrValidation):
			RespondFlowError(ctx, h.log, err, self)
		default:
			RespondFlowError(ctx, h.log, err, fallbackFor(targetID))
		}
		return
	}

	RedirectWith(ctx, flash.Success, fmt.Sprintf("Updated account details for %s.", u.Username), successURL)
}

func fallbackFor(targetID string) string {
	if targetID == "" {
		return "/dashboard"
	}
	return "/admin"
}
