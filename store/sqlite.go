package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	// Registers the "sqlite3" driver used by OpenSQLite.
	_ "github.com/mattn/go-sqlite3"

	"github.com/arloliu/reel/types"
)

// tableNameRegex validates table names before they are interpolated into
// DDL and query strings.
var tableNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SQLiteConfig configures a SQLite store.
type SQLiteConfig struct {
	// Table is the journal table name. Default: "journal_records".
	Table string
}

// DefaultSQLiteConfig returns the default SQLite store configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{Table: "journal_records"}
}

// SQLiteOption configures a SQLite store.
type SQLiteOption func(*SQLiteConfig)

// WithTable sets the journal table name.
func WithTable(name string) SQLiteOption {
	return func(c *SQLiteConfig) {
		c.Table = name
	}
}

// SQLite implements an append-only log in a single SQLite table.
//
// Records live in a table with an AUTOINCREMENT primary key, which gives
// the strictly increasing, gap-tolerant ordering readers page through.
// Multiple readers tail the same table independently; appends become
// visible to a caught-up reader on its next read.
type SQLite struct {
	db     *sql.DB
	table  string
	ownsDB bool
	closed atomic.Bool
}

// OpenSQLite opens a SQLite store at the given DSN, creating the journal
// table if needed.
//
// Example:
//
//	st, err := store.OpenSQLite("file:journal.db")
func OpenSQLite(dsn string, opts ...SQLiteOption) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("reel: failed to open sqlite database: %w", err)
	}

	// An in-memory database exists per connection; without this cap the
	// pool would hand each query a different, empty database.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	st, err := NewSQLite(db, opts...)
	if err != nil {
		db.Close()

		return nil, err
	}
	st.ownsDB = true

	return st, nil
}

// NewSQLite wraps an existing database handle, creating the journal table
// if needed. The caller keeps ownership of db; Close does not close it.
func NewSQLite(db *sql.DB, opts ...SQLiteOption) (*SQLite, error) {
	if db == nil {
		return nil, errors.New("reel: database handle cannot be nil")
	}

	config := DefaultSQLiteConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if !tableNameRegex.MatchString(config.Table) {
		return nil, fmt.Errorf("reel: invalid journal table name %q", config.Table)
	}

	ddl := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (seq INTEGER PRIMARY KEY AUTOINCREMENT, data BLOB NOT NULL)`,
		config.Table,
	)
	if _, err := db.Exec(ddl); err != nil {
		return nil, &types.StoreError{Op: "create table", Cause: err}
	}

	return &SQLite{db: db, table: config.Table}, nil
}

// Append inserts one record at the end of the journal table.
func (s *SQLite) Append(ctx context.Context, data []byte) error {
	if s.closed.Load() {
		return types.ErrStoreClosed
	}

	query := fmt.Sprintf(`INSERT INTO %s (data) VALUES (?)`, s.table)
	if _, err := s.db.ExecContext(ctx, query, data); err != nil {
		return &types.StoreError{Op: "append", Cause: err}
	}

	return nil
}

// OpenReader returns a reader positioned before the first row.
func (s *SQLite) OpenReader() (Reader, error) {
	if s.closed.Load() {
		return nil, types.ErrStoreClosed
	}

	return &sqliteReader{db: s.db, table: s.table}, nil
}

// Close closes the store. The underlying database is closed only when it
// was opened by OpenSQLite. Safe to call multiple times.
func (s *SQLite) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	if s.ownsDB {
		return s.db.Close()
	}

	return nil
}

// sqliteReader pages forward through the journal table by primary key.
type sqliteReader struct {
	db      *sql.DB
	table   string
	lastSeq int64
	closed  atomic.Bool
}

// ReadNext returns the next row after the reader's position.
func (r *sqliteReader) ReadNext(ctx context.Context) ([]byte, bool, error) {
	if r.closed.Load() {
		return nil, false, types.ErrReaderClosed
	}

	query := fmt.Sprintf(
		`SELECT seq, data FROM %s WHERE seq > ? ORDER BY seq LIMIT 1`,
		r.table,
	)

	var seq int64
	var data []byte
	err := r.db.QueryRowContext(ctx, query, r.lastSeq).Scan(&seq, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, &types.StoreError{Op: "read", Cause: err}
	}

	r.lastSeq = seq

	return data, true, nil
}

// Close marks the reader as closed.
func (r *sqliteReader) Close() error {
	r.closed.Store(true)

	return nil
}
