package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/accounthub/internal/account"
	"github.com/geocoder89/accounthub/internal/audit"
	"github.com/geocoder89/accounthub/internal/auth"
	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/db"
	httpx "github.com/geocoder89/accounthub/internal/http"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/geocoder89/accounthub/internal/redisclient"
	"github.com/geocoder89/accounthub/internal/repo/memory"
	"github.com/geocoder89/accounthub/internal/repo/postgres"
	"github.com/geocoder89/accounthub/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// storage bundles whichever backend STORAGE_DRIVER picked.
type storage struct {
	store    account.Store
	activity audit.Appender
	ping     func(ctx context.Context) error
	close    func()
}

func main() {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "accounthub", cfg.OTLPEndpoint)
		if err != nil {
			log.Warn("tracing disabled", "err", err)
		} else {
			defer func() {
				tctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(tctx)
			}()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	st, err := openStorage(ctx, cfg, prom, log)
	if err != nil {
		log.Error("storage init failed", "driver", cfg.StorageDriver, "err", err)
		os.Exit(1)
	}
	defer st.close()

	seedCtx, cancelSeed := config.WithTimeout(10 * time.Second)
	if _, err := db.EnsureAdminUser(seedCtx, st.store.Users, cfg, log); err != nil {
		cancelSeed()
		log.Error("admin bootstrap failed", "err", err)
		os.Exit(1)
	}
	cancelSeed()

	sessions, closeSessions, err := openSessions(ctx, cfg, log)
	if err != nil {
		log.Error("session store init failed", "store", cfg.SessionStore, "err", err)
		os.Exit(1)
	}
	defer closeSessions()

	recorder := audit.NewRecorder(st.activity, audit.Config{}, log, prom)
	accounts := account.NewService(st.store, recorder)

	router := httpx.NewRouter(httpx.Deps{
		Log:      log,
		Cfg:      cfg,
		Accounts: accounts,
		Sessions: sessions,
		Tokens:   auth.NewManager(cfg.SessionSecret, cfg.SessionTTL),
		Prom:     prom,
		Gatherer: reg,
		DBPing:   st.ping,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "storage", cfg.StorageDriver, "sessions", cfg.SessionStore)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)

		defer cancel()

		err := srv.Shutdown(ctx)

		if err != nil {
			log.Error("graceful shutdown failed", "err", err)

			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

func openStorage(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (storage, error) {
	if cfg.StorageDriver == "memory" {
		log.Warn("using in-memory storage; data is lost on restart")

		users := memory.NewUsersRepo()
		logs := memory.NewActivityLogsRepo()

		return storage{
			store:    account.Store{Users: users, Activity: logs},
			activity: logs,
			close:    func() {},
		}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return storage{}, fmt.Errorf("connect: %w", err)
	}

	mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := db.Migrate(mctx, pool); err != nil {
		pool.Close()
		return storage{}, err
	}

	logs := postgres.NewActivityLogsRepo(pool, prom)

	return storage{
		store: account.Store{
			Users:    postgres.NewUsersRepo(pool, prom),
			Activity: logs,
		},
		activity: logs,
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}

func openSessions(ctx context.Context, cfg config.Config, log *slog.Logger) (session.Store, func(), error) {
	if cfg.SessionStore == "memory" {
		store := session.NewMemoryStore(cfg.SessionTTL)

		// expired sessions are otherwise only dropped when read
		sweepCtx, cancel := context.WithCancel(ctx)
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()

			for {
				select {
				case <-sweepCtx.Done():
					return
				case <-ticker.C:
					if n := store.Sweep(); n > 0 {
						log.Debug("expired sessions swept", "count", n)
					}
				}
			}
		}()

		return store, cancel, nil
	}

	client := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(pctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	return session.NewRedisStore(client.Raw()), func() { _ = client.Close() }, nil
}
