// Command bootstrap creates the schema and the initial admin account, then exits.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/db"
	"github.com/geocoder89/accounthub/internal/observability"
	"github.com/geocoder89/accounthub/internal/repo/postgres"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if cfg.StorageDriver != "postgres" {
		log.Error("bootstrap needs STORAGE_DRIVER=postgres", "driver", cfg.StorageDriver)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("bootstrap failed", "err", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	log.Info("schema up to date")

	created, err := db.EnsureAdminUser(ctx, postgres.NewUsersRepo(pool, nil), cfg, log)
	if err != nil {
		return err
	}
	if !created {
		log.Info("admin account already exists", "username", cfg.AdminUsername)
	}

	return nil
}
