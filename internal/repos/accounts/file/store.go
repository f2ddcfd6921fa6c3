package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fastprodman/coinledger/internal/repos/accounts"
	"github.com/google/renameio/v2"
)

var _ accounts.Repository = (*documentRepo)(nil)

// documentRepo keeps the table as a single JSON file on local disk.
type documentRepo struct {
	path string
	mu   sync.Mutex
}

func New(path string) *documentRepo {
	return &documentRepo{path: path}
}

func (r *documentRepo) Load(_ context.Context) (accounts.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return accounts.Table{}, nil
		}

		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}

	table, err := accounts.Decode(data)
	if err != nil {
		r.quarantine()

		return accounts.Table{}, fmt.Errorf("load %s: %w", r.path, err)
	}

	return table, nil
}

// quarantine moves an unreadable document aside so the next Save does not
// destroy it.
func (r *documentRepo) quarantine() {
	dst := fmt.Sprintf("%s.corrupt-%d", r.path, time.Now().UTC().Unix())

	err := os.Rename(r.path, dst)
	if err != nil {
		slog.Error("failed to move corrupt document aside", "path", r.path, "error", err)
		return
	}

	slog.Warn("corrupt document moved aside", "path", r.path, "moved_to", dst)
}

func (r *documentRepo) Save(_ context.Context, table accounts.Table) error {
	data, err := accounts.Encode(table)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = writeAtomic(r.path, data)
	if err != nil {
		return fmt.Errorf("save %s: %w: %w", r.path, accounts.ErrPersistenceFailure, err)
	}

	return nil
}

// writeAtomic replaces path in one rename, so readers see either the old or
// the new document.
func writeAtomic(path string, data []byte) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	err = renameio.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("replace file: %w", err)
	}

	return nil
}
