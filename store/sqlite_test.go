package store_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/reel/store"
)

func TestSQLiteStoreCustomTable(t *testing.T) {
	st, err := store.OpenSQLite(":memory:", store.WithTable("trade_journal"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.Append(ctx, []byte("x")))

	reader, err := st.OpenReader()
	require.NoError(t, err)
	defer reader.Close()

	data, ok, err := reader.ReadNext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", string(data))
}

func TestSQLiteStoreRejectsInvalidTableName(t *testing.T) {
	_, err := store.OpenSQLite(":memory:", store.WithTable("journal; DROP TABLE users"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid journal table name")
}

func TestSQLiteStoreNilDB(t *testing.T) {
	_, err := store.NewSQLite(nil)
	require.Error(t, err)
}

func TestSQLiteStoreSharedDBNotClosed(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	st, err := store.NewSQLite(db)
	require.NoError(t, err)

	require.NoError(t, st.Append(context.Background(), []byte("kept")))
	require.NoError(t, st.Close())

	// The caller's handle must survive the store's Close.
	require.NoError(t, db.Ping())
}

func TestSQLiteStoreFileBacked(t *testing.T) {
	dsn := "file:" + t.TempDir() + "/journal.db"

	st, err := store.OpenSQLite(dsn)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.Append(ctx, []byte("durable")))
	require.NoError(t, st.Close())

	// Reopening the same file sees the earlier append.
	st, err = store.OpenSQLite(dsn)
	require.NoError(t, err)
	defer st.Close()

	reader, err := st.OpenReader()
	require.NoError(t, err)
	defer reader.Close()

	data, ok, err := reader.ReadNext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "durable", string(data))
}
