package main

import (
	"fmt"

	"github.com/fastprodman/coinledger/internal/config"
)

type apiConfig struct {
	Server  config.ServerConfig
	App     config.AppConfig
	Storage config.StorageConfig
	Ledger  config.LedgerConfig
}

func readConfig() (*apiConfig, error) {
	cfg := new(apiConfig)

	err := config.Load(cfg)
	if err != nil {
		return nil, err
	}

	err = cfg.Storage.Validate()
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	return cfg, nil
}
