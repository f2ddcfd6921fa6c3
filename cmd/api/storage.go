package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fastprodman/coinledger/internal/config"
	"github.com/fastprodman/coinledger/internal/infra/mysqlutils"
	"github.com/fastprodman/coinledger/internal/infra/pgutils"
	"github.com/fastprodman/coinledger/internal/repos/accounts"
	"github.com/fastprodman/coinledger/internal/repos/accounts/file"
	"github.com/fastprodman/coinledger/internal/repos/accounts/mysql"
	"github.com/fastprodman/coinledger/internal/repos/accounts/postgres"
	"github.com/fastprodman/coinledger/internal/repos/accounts/redis"
	"github.com/fastprodman/coinledger/pkg/shutdownqueue"
)

// openRepository connects the configured backend and registers its cleanup.
func openRepository(ctx context.Context, cfg config.StorageConfig) (accounts.Repository, error) {
	slog.Info("opening storage", "driver", cfg.Driver)

	switch cfg.Driver {
	case config.DriverFile:
		return file.New(cfg.File.Path), nil

	case config.DriverPostgres:
		db, err := pgutils.OpenDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		shutdownqueue.Add("postgres", shutdownqueue.Closer(db.Close))

		return postgres.New(db, postgres.DefaultDocument), nil

	case config.DriverMySQL:
		db, err := mysqlutils.OpenDB(ctx, cfg.MySQL)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}

		shutdownqueue.Add("mysql", shutdownqueue.Closer(db.Close))

		return mysql.New(db, mysql.DefaultDocument), nil

	case config.DriverRedis:
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}

		shutdownqueue.Add("redis", shutdownqueue.Closer(client.Close))

		return redis.New(client, cfg.Redis.KeyPrefix), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
