package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	auth "github.com/norahq/go-auth"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const purgeInterval = time.Hour

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("auth"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := &auth.EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		lgr.Error("failed to parse configuration", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		lgr.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.DSN)
	if err != nil {
		lgr.Error("failed to open database", "dsn", cfg.DSN, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	provider := auth.NewUserProvider(repo.Users()).
		WithLogger(lgr.GetLogger("provider"))

	auther := auth.NewAuthenticator(provider, repo.Users(), repo.Revocations(), cfg).
		WithLogger(lgr.GetLogger("auther"))

	controller := auth.NewAuthController(
		auth.WithControllerLogger(lgr.GetLogger("http")),
		auth.WithControllerRepo(repo),
		auth.WithControllerAuther(auther),
		auth.WithControllerConfig(cfg),
	)

	app := fiber.New(fiber.Config{
		AppName:      "nora-auth",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	api := app.Group("/api/v1")
	auth.RegisterAuthRoutes(api, controller)

	go purgeExpiredTokens(ctx, repo.Revocations(), lgr.GetLogger("purge"))

	go func() {
		lgr.Info("listening", "address", cfg.ListenAddress)
		if err := app.Listen(cfg.ListenAddress); err != nil {
			lgr.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	lgr.Info("shutting down")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		lgr.Error("shutdown error", "error", err)
	}
}

func openDatabase(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open database handle")
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*auth.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create users table")
	}

	if _, err := db.NewCreateTable().
		Model((*auth.TokenBlacklist)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create token blacklist table")
	}

	return db, nil
}

// purgeExpiredTokens trims expired denylist rows on a fixed cadence so
// the blacklist table does not grow unbounded.
func purgeExpiredTokens(ctx context.Context, revocations auth.RevocationStore, logger auth.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := revocations.PurgeExpired(ctx)
			if err != nil {
				logger.Error("purge expired tokens", "error", err)
				continue
			}
			if purged > 0 {
				logger.Info("purged expired tokens", "count", purged)
			}
		}
	}
}
