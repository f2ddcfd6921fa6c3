package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/coinledger/internal/config"
	"github.com/fastprodman/coinledger/internal/repos/accounts"
	"github.com/redis/go-redis/v9"
)

var _ accounts.Repository = (*documentRepo)(nil)

// documentRepo stores the encoded table under a single key. SET replaces the
// value atomically, so readers never see a partial document.
type documentRepo struct {
	client *redis.Client
	key    string
}

func New(client *redis.Client, keyPrefix string) *documentRepo {
	if keyPrefix == "" {
		keyPrefix = "coinledger"
	}

	return &documentRepo{client: client, key: keyPrefix + ":accounts"}
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return client, nil
}

func (r *documentRepo) Load(ctx context.Context) (accounts.Table, error) {
	body, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return accounts.Table{}, nil
		}

		return nil, fmt.Errorf("get %s: %w", r.key, err)
	}

	table, err := accounts.Decode(body)
	if err != nil {
		return accounts.Table{}, fmt.Errorf("decode %s: %w", r.key, err)
	}

	return table, nil
}

func (r *documentRepo) Save(ctx context.Context, table accounts.Table) error {
	body, err := accounts.Encode(table)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	err = r.client.Set(ctx, r.key, body, 0).Err()
	if err != nil {
		return fmt.Errorf("set %s: %w: %w", r.key, accounts.ErrPersistenceFailure, err)
	}

	return nil
}
