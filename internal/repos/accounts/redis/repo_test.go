package redis

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/fastprodman/coinledger/internal/config"
	"github.com/fastprodman/coinledger/internal/repos/accounts"
	"github.com/fastprodman/coinledger/internal/repos/accounts/accountstest"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const addrEnv = "LEDGER_TEST_REDIS_ADDR"

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv(addrEnv)
	if addr == "" {
		t.Skipf("%s not set", addrEnv)
	}

	client, err := NewClient(t.Context(), config.RedisConfig{Addr: addr, DB: 15})
	if err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedisRepo_Contract(t *testing.T) {
	client := newTestClient(t)

	accountstest.RunContract(t, func(t *testing.T) accounts.Repository {
		prefix := "test:" + uuid.NewString()
		repo := New(client, prefix)
		t.Cleanup(func() { client.Del(context.Background(), repo.key) })

		return repo
	})
}

func TestRedisRepo_CorruptDocument(t *testing.T) {
	client := newTestClient(t)

	repo := New(client, "test:"+uuid.NewString())
	t.Cleanup(func() { client.Del(context.Background(), repo.key) })

	err := client.Set(t.Context(), repo.key, "{not json", 0).Err()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	table, err := repo.Load(t.Context())
	if !errors.Is(err, accounts.ErrCorruptState) {
		t.Fatalf("want ErrCorruptState, got %v", err)
	}
	if len(table) != 0 {
		t.Fatalf("want empty table, got %d", len(table))
	}
}
