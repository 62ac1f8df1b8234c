package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/accounthub/internal/account"
	"github.com/geocoder89/accounthub/internal/domain/activity"
	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/geocoder89/accounthub/internal/http/flash"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/geocoder89/accounthub/internal/utils"
	"github.com/gin-gonic/gin"
)

type AdminFlows interface {
	ListUsers(ctx context.Context, actor account.Identity) ([]user.User, error)
	RecentActivity(ctx context.Context, actor account.Identity, cursor string) (activity.Page, error)
	ChangeRole(ctx context.Context, actor account.Identity, targetID, role string) (user.User, error)
	DeleteUser(ctx context.Context, actor account.Identity, targetID string) (user.User, error)
}

type AdminHandler struct {
	accounts AdminFlows
	log      *slog.Logger
}

func NewAdminHandler(accounts AdminFlows, log *slog.Logger) *AdminHandler {
	return &AdminHandler{accounts: accounts, log: log}
}

func (h *AdminHandler) Users(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	users, err := h.accounts.ListUsers(cctx, middlewares.IdentityFrom(ctx))
	if err != nil {
		RespondFlowError(ctx, h.log, err, "/dashboard")
		return
	}

	Render(ctx, http.StatusOK, "admin.html", "Users", gin.H{
		"Users": users,
		"Roles": user.Roles,
	})
}

func (h *AdminHandler) ActivityLogs(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	page, err := h.accounts.RecentActivity(cctx, middlewares.IdentityFrom(ctx), ctx.Query("before"))
	if err != nil {
		if errors.Is(err, account.ErrValidation) {
			RedirectWith(ctx, flash.Warning, "Invalid page cursor.", "/admin/logs")
			return
		}
		RespondFlowError(ctx, h.log, err, "/admin")
		return
	}

	Render(ctx, http.StatusOK, "activity_logs.html", "Activity log", gin.H{
		"Page": page,
	})
}

func (h *AdminHandler) ChangeRole(ctx *gin.Context) {
	targetID := ctx.Param("userId")

	if !utils.IsUUID(targetID) {
		RespondFlowError(ctx, h.log, account.ErrNotFound, "/admin")
		return
	}

	role := ctx.Param("role")
	if !user.Role(role).IsValid() {
		RedirectWith(ctx, flash.Danger, "Invalid role.", "/admin")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.accounts.ChangeRole(cctx, middlewares.IdentityFrom(ctx), targetID, role)
	if err != nil {
		RespondFlowError(ctx, h.log, err, "/admin")
		return
	}

	RedirectWith(ctx, flash.Success, fmt.Sprintf("Updated role of %s to %s.", u.Username, u.Role), "/admin")
}

func (h *AdminHandler) DeleteUser(ctx *gin.Context) {
	targetID := ctx.Param("userId")

	if !utils.IsUUID(targetID) {
		RespondFlowError(ctx, h.log, account.ErrNotFound, "/admin")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.accounts.DeleteUser(cctx, middlewares.IdentityFrom(ctx), targetID)
	if err != nil {
		RespondFlowError(ctx, h.log, err, "/admin")
		return
	}

	RedirectWith(ctx, flash.Success, fmt.Sprintf("Deleted user %s.", u.Username), "/admin")
}
