package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/coinledger/internal/infra/sqlutils"
	"github.com/fastprodman/coinledger/internal/repos/accounts"
)

// DefaultDocument is the row name the account table is stored under.
const DefaultDocument = "accounts"

var _ accounts.Repository = (*documentRepo)(nil)

type documentRepo struct {
	db   *sql.DB
	name string
}

func New(db *sql.DB, name string) *documentRepo {
	if name == "" {
		name = DefaultDocument
	}

	return &documentRepo{db: db, name: name}
}

func (r *documentRepo) Load(ctx context.Context) (accounts.Table, error) {
	var body []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT body
		FROM ledger_documents
		WHERE name = $1
	`, r.name).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.Table{}, nil
		}

		return nil, fmt.Errorf("select document: %w", err)
	}

	table, err := accounts.Decode(body)
	if err != nil {
		return accounts.Table{}, fmt.Errorf("decode document %q: %w", r.name, err)
	}

	return table, nil
}

// Save replaces the document in one transaction. The advisory lock keeps
// writers from other connections from interleaving.
func (r *documentRepo) Save(ctx context.Context, table accounts.Table) error {
	body, err := accounts.Encode(table)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	err = sqlutils.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, r.name)
		if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_documents (name, body, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (name) DO UPDATE
			SET body = EXCLUDED.body,
			    updated_at = EXCLUDED.updated_at
		`, r.name, string(body))
		if err != nil {
			return fmt.Errorf("upsert document: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("save document %q: %w: %w", r.name, accounts.ErrPersistenceFailure, err)
	}

	return nil
}
