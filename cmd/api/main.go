package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fastprodman/coinledger/internal/api"
	"github.com/fastprodman/coinledger/internal/infra/logging"
	"github.com/fastprodman/coinledger/internal/repos/accounts"
	"github.com/fastprodman/coinledger/internal/services/ledger"
	"github.com/fastprodman/coinledger/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v\n", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	cfg, err := readConfig()
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.App.LogLevel, cfg.App.Env)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	repo, err := openRepository(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	ledgerCfg := ledger.Config{
		StartingBalance:    cfg.Ledger.StartingBalance,
		DailyCooldown:      cfg.Ledger.DailyCooldown,
		FlushInterval:      cfg.Ledger.FlushInterval,
		FlushRetryInterval: cfg.Ledger.FlushRetryInterval,
		LeaderboardSize:    cfg.Ledger.LeaderboardSize,
	}

	if cfg.Ledger.RandomSeed != 0 {
		ledgerCfg.Source = rand.New(rand.NewPCG(cfg.Ledger.RandomSeed, cfg.Ledger.RandomSeed))
	}

	svc, err := ledger.New(repo, ledgerCfg)
	if err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}

	// Registered before the server so it runs after the server stopped.
	shutdownqueue.Add("ledger", svc.Close)

	err = svc.Load(ctx)
	if err != nil {
		if !errors.Is(err, accounts.ErrCorruptState) {
			return err
		}

		slog.Error("stored accounts are corrupt, starting empty", "error", err)
	}

	// --- HTTP server ---
	srv := api.NewServer(cfg.Server, svc)

	shutdownqueue.Add("http", func(c context.Context) error {
		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Server.Port, "storage", cfg.Storage.Driver)

	select {
	case <-ctx.Done():
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
