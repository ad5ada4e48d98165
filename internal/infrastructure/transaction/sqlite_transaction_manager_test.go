package transaction

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE items (name TEXT)`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sql.DB) int {
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func insert(ctx context.Context, name string) error {
	tx, ok := GetTxFromContext(ctx)
	if !ok {
		return errors.New("no transaction")
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES (?)`, name)
	return err
}

func TestInTransaction_Commit(t *testing.T) {
	db := openDB(t)
	m := NewSQLiteTransactionManager(db)

	err := m.InTransaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, insert(ctx, "a"))
		return m.InTransaction(ctx, func(inner context.Context) error {
			return insert(inner, "b")
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count(t, db))
}

func TestInTransaction_Rollback(t *testing.T) {
	db := openDB(t)
	m := NewSQLiteTransactionManager(db)
	boom := errors.New("boom")

	err := m.InTransaction(context.Background(), func(ctx context.Context) error {
		require.NoError(t, insert(ctx, "a"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, db))
}

func TestGetTxFromContext_Outside(t *testing.T) {
	_, ok := GetTxFromContext(context.Background())
	assert.False(t, ok)
}
