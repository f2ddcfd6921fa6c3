package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/fastprodman/coinledger/internal/config"
	"github.com/fastprodman/coinledger/internal/infra/logging"
	"github.com/fastprodman/coinledger/internal/infra/mysqlutils"
	"github.com/fastprodman/coinledger/internal/infra/pgutils"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

type migratorConfig struct {
	Driver   string `envconfig:"MIGRATE_DRIVER" default:"postgres"`
	App      config.AppConfig
	Postgres config.PostgresConfig
	MySQL    config.MySQLConfig
}

func main() {
	err := migrateAll()
	if err != nil {
		slog.Error("migration run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("migration run finished successfully")
}

func migrateAll() error {
	cfg := new(migratorConfig)

	err := config.Load(cfg)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.SetupJSON(cfg.App.LogLevel, cfg.App.Env)

	ctx := context.Background()

	db, driver, err := openDriver(ctx, cfg)
	if err != nil {
		return err
	}
	//nolint:errcheck
	defer db.Close()

	err = runMigrations(driver, cfg.Driver)
	if err != nil {
		return fmt.Errorf("%s migrations failed: %w", cfg.Driver, err)
	}

	slog.Info("migrations applied", "driver", cfg.Driver)

	return nil
}

func openDriver(ctx context.Context, cfg *migratorConfig) (*sql.DB, database.Driver, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := pgutils.OpenDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}

		driver, err := postgres.WithInstance(db, &postgres.Config{})
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init postgres driver: %w", err)
		}

		return db, driver, nil

	case config.DriverMySQL:
		db, err := mysqlutils.OpenDB(ctx, cfg.MySQL)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}

		driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init mysql driver: %w", err)
		}

		return db, driver, nil

	default:
		return nil, nil, fmt.Errorf("unsupported MIGRATE_DRIVER %q", cfg.Driver)
	}
}

func runMigrations(driver database.Driver, name string) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations dir: %w", err)
	}

	src, err := iofs.New(sub, name)
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("m.Up: %w", err)
	}

	return nil
}
