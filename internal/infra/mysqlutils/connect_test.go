package mysqlutils

import (
	"strings"
	"testing"
	"time"

	"github.com/fastprodman/coinledger/internal/config"
	"github.com/go-sql-driver/mysql"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	dsn := DSN(config.MySQLConfig{
		Host:     "db.internal",
		Port:     3307,
		Name:     "ledger",
		User:     "bot",
		Password: "s3cret",
		Timeout:  2 * time.Second,
	})

	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("parse dsn %q: %v", dsn, err)
	}

	if parsed.Addr != "db.internal:3307" {
		t.Fatalf("addr: want db.internal:3307, got %s", parsed.Addr)
	}
	if parsed.DBName != "ledger" || parsed.User != "bot" || parsed.Passwd != "s3cret" {
		t.Fatalf("credentials not carried over: %+v", parsed)
	}
	if !parsed.ParseTime {
		t.Fatalf("parseTime must be enabled")
	}
	if !strings.Contains(dsn, "timeout=2s") {
		t.Fatalf("timeout missing from dsn: %s", dsn)
	}
}
