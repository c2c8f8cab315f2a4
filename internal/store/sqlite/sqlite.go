// Package sqlite implements store.Store on an embedded SQLite database.
//
// The database runs in WAL mode so readers of the live slot are never blocked
// by a sync writing into the inactive slot. Write transactions begin
// IMMEDIATE and are serialised within the process, so concurrent category
// batches queue for the write lock instead of failing with SQLITE_BUSY.
//
// Layout:
//   - kv:   plain values (key -> value)
//   - zset: sorted-set members (key, member) -> score, indexed by (key, score)
//
// Both tables share one key space: Del removes a key from either.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/Yoshino-s/hitokoto-api/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS zset (
	key    TEXT NOT NULL,
	member TEXT NOT NULL,
	score  INTEGER NOT NULL,
	PRIMARY KEY (key, member)
);

CREATE INDEX IF NOT EXISTS idx_zset_score ON zset(key, score, member);
`

// DB is a SQLite-backed store.Store.
type DB struct {
	conn   *sql.DB
	path   string
	logger *slog.Logger

	// writeMu serialises Update.
	writeMu sync.Mutex
}

var _ store.Store = (*DB)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open creates or opens the database at path and initialises the schema.
//
// The caller MUST call Close() when done so the WAL is checkpointed.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn:   conn,
		path:   path,
		logger: logger.With("component", "store.sqlite"),
	}

	if _, err := db.conn.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// dsn builds the connection string. Pragmas given as _pragma parameters are
// applied to every pooled connection, not only the first one.
func dsn(path string) string {
	return fmt.Sprintf("file:%s?_txlock=immediate"+
		"&_pragma=busy_timeout(%d)"+
		"&_pragma=journal_mode(wal)"+
		"&_pragma=synchronous(normal)",
		path, busyTimeout.Milliseconds())
}

// busyTimeout is how long a connection waits for a lock held by another
// connection or process.
const busyTimeout = 30 * time.Second

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		db.logger.Warn("failed to checkpoint WAL", "error", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, db.conn, key)
}

func (db *DB) Set(ctx context.Context, key string, value []byte) error {
	return set(ctx, db.conn, key, value)
}

func (db *DB) Del(ctx context.Context, keys ...string) error {
	return db.Update(ctx, func(tx store.Tx) error {
		return tx.Del(ctx, keys...)
	})
}

func (db *DB) ZAdd(ctx context.Context, key string, score int64, member string) error {
	return zadd(ctx, db.conn, key, score, member)
}

func (db *DB) ZCount(ctx context.Context, key string, min, max int64) (int64, error) {
	return zcount(ctx, db.conn, key, min, max)
}

func (db *DB) ZRangeByScore(ctx context.Context, key string, min, max int64) ([]store.Member, error) {
	return zrange(ctx, db.conn, key, min, max)
}

// Update implements store.Store.Update with an IMMEDIATE SQL transaction.
func (db *DB) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	sqlTx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.Warn("failed to roll back transaction", "error", rbErr)
		}
	}()

	if err := fn(&tx{q: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

// tx adapts *sql.Tx to store.Tx.
type tx struct {
	q querier
}

func (t *tx) Get(ctx context.Context, key string) ([]byte, error) {
	return get(ctx, t.q, key)
}

func (t *tx) Set(ctx context.Context, key string, value []byte) error {
	return set(ctx, t.q, key, value)
}

func (t *tx) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := t.q.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		if _, err := t.q.ExecContext(ctx, `DELETE FROM zset WHERE key = ?`, key); err != nil {
			return fmt.Errorf("failed to delete sorted set %s: %w", key, err)
		}
	}
	return nil
}

func (t *tx) ZAdd(ctx context.Context, key string, score int64, member string) error {
	return zadd(ctx, t.q, key, score, member)
}

func (t *tx) ZCount(ctx context.Context, key string, min, max int64) (int64, error) {
	return zcount(ctx, t.q, key, min, max)
}

func (t *tx) ZRangeByScore(ctx context.Context, key string, min, max int64) ([]store.Member, error) {
	return zrange(ctx, t.q, key, min, max)
}

func get(ctx context.Context, q querier, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func set(ctx context.Context, q querier, key string, value []byte) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func zadd(ctx context.Context, q querier, key string, score int64, member string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO zset (key, member, score) VALUES (?, ?, ?)
		ON CONFLICT(key, member) DO UPDATE SET score = excluded.score
	`, key, member, score)
	if err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", member, key, err)
	}
	return nil
}

func zcount(ctx context.Context, q querier, key string, min, max int64) (int64, error) {
	var count int64
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM zset WHERE key = ? AND score BETWEEN ? AND ?`,
		key, min, max,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", key, err)
	}
	return count, nil
}

func zrange(ctx context.Context, q querier, key string, min, max int64) ([]store.Member, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT member, score FROM zset
		WHERE key = ? AND score BETWEEN ? AND ?
		ORDER BY score ASC, member ASC
	`, key, min, max)
	if err != nil {
		return nil, fmt.Errorf("failed to range %s: %w", key, err)
	}
	defer rows.Close()

	var members []store.Member
	for rows.Next() {
		var m store.Member
		if err := rows.Scan(&m.Member, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}
