// Package badger implements store.Store on an embedded BadgerDB.
//
// Sorted sets are kept as two key families so that both member lookup and
// score-ordered scans are prefix iterations:
//
//	m\x00<set>\x00<member>          -> score (8 bytes, big endian)
//	s\x00<set>\x00<score><member>   -> empty
//
// Scores are stored with the sign bit flipped so byte order equals numeric
// order. Plain values live under v\x00<key>.
package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/Yoshino-s/hitokoto-api/internal/store"
)

// Config holds configuration for a BadgerDB-backed store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults for the given directory.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// DB is a BadgerDB-backed store.Store.
type DB struct {
	db *badger.DB
}

var _ store.Store = (*DB)(nil)

// Open opens the database described by cfg.
func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.With("component", "store.badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	return nil
}

func (d *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := d.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = (&tx{txn: txn}).Get(ctx, key)
		return err
	})
	return out, err
}

func (d *DB) ZCount(ctx context.Context, key string, min, max int64) (int64, error) {
	var n int64
	err := d.db.View(func(txn *badger.Txn) error {
		var err error
		n, err = (&tx{txn: txn}).ZCount(ctx, key, min, max)
		return err
	})
	return n, err
}

func (d *DB) ZRangeByScore(ctx context.Context, key string, min, max int64) ([]store.Member, error) {
	var out []store.Member
	err := d.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = (&tx{txn: txn}).ZRangeByScore(ctx, key, min, max)
		return err
	})
	return out, err
}

func (d *DB) Set(ctx context.Context, key string, value []byte) error {
	return d.Update(ctx, func(t store.Tx) error { return t.Set(ctx, key, value) })
}

func (d *DB) Del(ctx context.Context, keys ...string) error {
	return d.Update(ctx, func(t store.Tx) error { return t.Del(ctx, keys...) })
}

func (d *DB) ZAdd(ctx context.Context, key string, score int64, member string) error {
	return d.Update(ctx, func(t store.Tx) error { return t.ZAdd(ctx, key, score, member) })
}

// maxConflictRetries bounds how often Update reruns fn after an optimistic
// conflict with a concurrent transaction.
const maxConflictRetries = 5

// Update runs fn in a read-write badger transaction. Large batches are bound
// by badger's transaction size limit (badger.ErrTxnTooBig). fn may run more
// than once when it conflicts with a concurrent writer.
func (d *DB) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err = d.db.Update(func(txn *badger.Txn) error {
			return fn(&tx{txn: txn})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("failed to commit after %d conflicts: %w", maxConflictRetries+1, err)
}

type tx struct {
	txn *badger.Txn
}

func valueKey(key string) []byte {
	return append([]byte("v\x00"), key...)
}

func memberPrefix(set string) []byte {
	return append(append([]byte("m\x00"), set...), 0)
}

func scorePrefix(set string) []byte {
	return append(append([]byte("s\x00"), set...), 0)
}

func encodeScore(score int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(score)^(1<<63))
	return b[:]
}

func decodeScore(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

func scoreKey(set string, score int64, member string) []byte {
	k := scorePrefix(set)
	k = append(k, encodeScore(score)...)
	return append(k, member...)
}

func (t *tx) Get(ctx context.Context, key string) ([]byte, error) {
	item, err := t.txn.Get(valueKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return item.ValueCopy(nil)
}

func (t *tx) Set(ctx context.Context, key string, value []byte) error {
	if err := t.txn.Set(valueKey(key), value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (t *tx) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if err := t.txn.Delete(valueKey(key)); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		if err := t.clearSet(key); err != nil {
			return err
		}
	}
	return nil
}

// clearSet removes every member of a sorted set. Keys are collected and the
// iterator closed before deleting; a read-write txn allows one iterator.
func (t *tx) clearSet(set string) error {
	var doomed [][]byte
	for _, prefix := range [][]byte{memberPrefix(set), scorePrefix(set)} {
		it := t.txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		for it.Rewind(); it.Valid(); it.Next() {
			doomed = append(doomed, it.Item().KeyCopy(nil))
		}
		it.Close()
	}
	for _, k := range doomed {
		if err := t.txn.Delete(k); err != nil {
			return fmt.Errorf("failed to delete sorted set %s: %w", set, err)
		}
	}
	return nil
}

func (t *tx) ZAdd(ctx context.Context, key string, score int64, member string) error {
	mk := append(memberPrefix(key), member...)

	item, err := t.txn.Get(mk)
	switch {
	case err == nil:
		old, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("failed to read score of %s: %w", member, err)
		}
		if err := t.txn.Delete(scoreKey(key, decodeScore(old), member)); err != nil {
			return fmt.Errorf("failed to drop old score of %s: %w", member, err)
		}
	case !errors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("failed to look up %s in %s: %w", member, key, err)
	}

	if err := t.txn.Set(mk, encodeScore(score)); err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", member, key, err)
	}
	if err := t.txn.Set(scoreKey(key, score, member), nil); err != nil {
		return fmt.Errorf("failed to index %s in %s: %w", member, key, err)
	}
	return nil
}

func (t *tx) ZCount(ctx context.Context, key string, min, max int64) (int64, error) {
	var n int64
	err := t.scan(key, min, max, false, func(store.Member) { n++ })
	return n, err
}

func (t *tx) ZRangeByScore(ctx context.Context, key string, min, max int64) ([]store.Member, error) {
	var out []store.Member
	err := t.scan(key, min, max, true, func(m store.Member) { out = append(out, m) })
	return out, err
}

func (t *tx) scan(set string, min, max int64, withMember bool, visit func(store.Member)) error {
	if min > max {
		return nil
	}
	prefix := scorePrefix(set)
	it := t.txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	start := append(append([]byte{}, prefix...), encodeScore(min)...)
	for it.Seek(start); it.Valid(); it.Next() {
		k := it.Item().Key()
		rest := k[len(prefix):]
		if len(rest) < 8 {
			return fmt.Errorf("corrupt score key in %s", set)
		}
		score := decodeScore(rest[:8])
		if score > max {
			break
		}
		m := store.Member{Score: score}
		if withMember {
			m.Member = string(bytes.Clone(rest[8:]))
		}
		visit(m)
	}
	return nil
}
