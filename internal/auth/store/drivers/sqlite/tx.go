package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/authcore/internal/auth/store"
)

var errNestedTx = errors.New("sqlite: nested transactions are not supported")

// txStore scopes every repository to one *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

var _ store.Tx = (*txStore)(nil)

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error { return t.tx.Commit() }

// Rollback after Commit is a no-op, so callers can always defer it.
func (t *txStore) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// The connection belongs to the outer Store.
func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }
func (t *txStore) ApplyMigrations() error         { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, errNestedTx
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return errNestedTx
}

func (t *txStore) Identities() store.Identities { return &identitiesRepo{q: t.tx} }
func (t *txStore) Tenants() store.Tenants       { return &tenantsRepo{q: t.tx} }

// RefreshTokens inside a transaction rotates on the transaction itself.
func (t *txStore) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{q: t.tx} }
