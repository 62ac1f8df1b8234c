package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/accounthub/internal/account"
	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/http/flash"
	"github.com/geocoder89/accounthub/internal/http/handlers"
	"github.com/geocoder89/accounthub/internal/http/middlewares"
	"github.com/geocoder89/accounthub/internal/http/views"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/geocoder89/accounthub/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxFormBytes = 64 << 10

type Deps struct {
	Log      *slog.Logger
	Cfg      config.Config
	Accounts *account.Service
	Sessions session.Store
	Tokens   *auth.Manager
	// optional
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	DBPing   func(ctx context.Context) error
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.SetHTMLTemplate(views.MustLoad())

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("accounthub"))
	r.Use(middlewares.RequestID())
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.MaxBodyBytes(maxFormBytes))

	cookie := middlewares.CookieConfig{
		Name:   middlewares.DefaultSessionCookie,
		Secure: d.Cfg.Env == "prod",
	}
	r.Use(flash.Secure(cookie.Secure))
	sessionMW := middlewares.NewSessionMiddleware(d.Tokens, d.Sessions, d.Accounts, cookie, d.Log)
	r.Use(sessionMW.LoadSession())
	// after LoadSession so lines carry user_id
	r.Use(middlewares.RequestLogger(d.Log))

	// health
	health := handlers.NewHealthHandler(map[string]handlers.Check{
		"db":       d.DBPing,
		"sessions": d.Sessions.Ping,
	})
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Wire up handlers
	authHandler := handlers.NewAuthHandler(d.Accounts, d.Sessions, d.Tokens, cookie, d.Prom, d.Log)
	adminHandler := handlers.NewAdminHandler(d.Accounts, d.Log)
	profileHandler := handlers.NewProfileHandler(d.Accounts, d.Log)

	limit := d.Cfg.LoginRateLimit
	if limit <= 0 {
		limit = 10
	}
	window := d.Cfg.LoginRateWindow
	if window <= 0 {
		window = 60 * time.Second
	}
	// separate buckets so registrations don't eat into login attempts
	loginLimiter := middlewares.NewRateLimiter(limit, window)
	registerLimiter := middlewares.NewRateLimiter(limit, window)

	r.GET("/", authHandler.Index)

	anon := r.Group("/", middlewares.RedirectIfAuthenticated())
	anon.GET("/register", authHandler.RegisterPage)
	anon.POST("/register", registerLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Register)
	anon.GET("/login", authHandler.LoginPage)
	anon.POST("/login", loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)

	authed := r.Group("/", middlewares.RequireAuth())
	authed.GET("/logout", authHandler.Logout)
	authed.GET("/dashboard", handlers.Dashboard)
	authed.GET("/profile/edit", profileHandler.EditOwnPage)
	authed.POST("/profile/edit", profileHandler.EditOwn)

	admin := r.Group("/admin", middlewares.RequireAdmin())
	admin.GET("", adminHandler.Users)
	admin.GET("/logs", adminHandler.ActivityLogs)
	admin.GET("/role/:userId/:role", adminHandler.ChangeRole)
	admin.GET("/delete/:userId", adminHandler.DeleteUser)
	admin.GET("/edit/:userId", profileHandler.EditOtherPage)
	admin.POST("/edit/:userId", profileHandler.EditOther)

	return r
}
