package main

import (
	"context"
	"database/sql"
	"flag"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/recallhq/recall"
	"github.com/recallhq/recall/content"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/migrate"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file; falls back to environment variables")
	flag.Parse()

	cfg := MustLoadConfig(configPath)

	lgr := setupLogger(cfg.Env)
	lgr.Info("starting recall server", "env", cfg.Env, "address", cfg.Server.Address)

	if err := run(cfg, lgr); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *Config, lgr *slog.Logger) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := runMigrations(context.Background(), db, lgr); err != nil {
		return err
	}

	repo := recall.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		return err
	}

	userProvider := recall.NewUserProvider(repo.Users()).
		WithLogger(newLoggerAdapter(lgr, "auth:prv"))

	authenticator := recall.NewAuthenticator(userProvider, repo.Users(), cfg).
		WithLogger(newLoggerAdapter(lgr, "auth:authz"))

	httpAuth, err := recall.NewHTTPAuthenticator(authenticator, cfg)
	if err != nil {
		return err
	}
	httpAuth.WithLogger(newLoggerAdapter(lgr, "auth:http"))

	share := recall.NewShareService(repo.Users(), repo.Posts(), cfg).
		WithLogger(newLoggerAdapter(lgr, "share"))

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       "recall",
			StrictRouting: false,
		}))
	})

	recall.RegisterAuthRoutes(srv.Router(),
		recall.WithAuthControllerRepo(repo),
		recall.WithAuthControllerAuther(httpAuth),
		recall.WithAuthControllerConfig(cfg),
		recall.WithAuthControllerLogger(newLoggerAdapter(lgr, "auth:ctrl")),
	)

	recall.RegisterShareRoutes(srv.Router(),
		recall.WithShareControllerService(share),
		recall.WithShareControllerAuther(httpAuth),
		recall.WithShareControllerConfig(cfg),
		recall.WithShareControllerLogger(newLoggerAdapter(lgr, "share:ctrl")),
	)

	content.RegisterRoutes(srv.Router(),
		content.WithRepo(repo),
		content.WithAuther(httpAuth),
		content.WithConfig(cfg),
		content.WithLogger(newLoggerAdapter(lgr, "content:ctrl")),
	)

	srv.Serve(cfg.Server.Address)

	sig := waitExitSignal()
	lgr.Info("shutting down", "signal", sig.String())

	return nil
}

func openDatabase(cfg *Config) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	// m2m models have to be registered before the first query that joins them
	db.RegisterModel((*recall.PostTag)(nil))

	return db, nil
}

func runMigrations(ctx context.Context, db *bun.DB, lgr *slog.Logger) error {
	migrationsFS, err := fs.Sub(recall.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	migrations := migrate.NewMigrations()
	if err := migrations.Discover(migrationsFS); err != nil {
		return err
	}

	migrator := migrate.NewMigrator(db, migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		lgr.Info("database schema up to date")
	} else {
		lgr.Info("applied migrations", "group", group.String())
	}

	return nil
}

func setupLogger(env string) *slog.Logger {
	var lgr *slog.Logger

	switch env {
	case envDev:
		lgr = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		lgr = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		lgr = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return lgr
}

func waitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}

// loggerAdapter bridges slog to the recall.Logger interface. Call sites pass
// alternating key/value pairs, which slog understands natively.
type loggerAdapter struct {
	lgr *slog.Logger
}

func newLoggerAdapter(lgr *slog.Logger, component string) loggerAdapter {
	return loggerAdapter{lgr: lgr.With("component", component)}
}

func (l loggerAdapter) Debug(msg string, args ...any) { l.lgr.Debug(msg, args...) }

func (l loggerAdapter) Info(msg string, args ...any) { l.lgr.Info(msg, args...) }

func (l loggerAdapter) Warn(msg string, args ...any) { l.lgr.Warn(msg, args...) }

func (l loggerAdapter) Error(msg string, args ...any) { l.lgr.Error(msg, args...) }
