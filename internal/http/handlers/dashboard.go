package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Dashboard(ctx *gin.Context) {
	Render(ctx, http.StatusOK, "dashboard.html", "Dashboard", nil)
}
