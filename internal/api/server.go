package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fastprodman/coinledger/internal/config"
)

// NewServer creates and returns a configured *http.Server for the ledger API.
func NewServer(cfg config.ServerConfig, svc Ledger) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(svc, cfg.CORSOrigins),
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
