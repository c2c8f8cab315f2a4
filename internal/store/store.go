// Package store defines the key-value contract the sentence sync engine writes
// through, plus helpers shared by every backend.
//
// A Store offers point reads and writes, a sorted-set structure (members with
// an integer score, counted and listed by score range), and a scoped
// transactional batch (Update). Backends live in the sqlite and badger
// subpackages.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Score bounds for open-ended range queries.
const (
	ScoreNegInf int64 = math.MinInt64
	ScoreInf    int64 = math.MaxInt64
)

// Member is one entry of a sorted set.
type Member struct {
	Member string
	Score  int64
}

// Reader holds the read operations shared by Store and Tx.
type Reader interface {
	// Get returns the raw value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// ZCount counts members of the sorted set at key whose score lies in
	// [min, max]. A missing set counts as zero.
	ZCount(ctx context.Context, key string, min, max int64) (int64, error)

	// ZRangeByScore lists members with score in [min, max], ordered by
	// score then member.
	ZRangeByScore(ctx context.Context, key string, min, max int64) ([]Member, error)
}

// Writer holds the mutations shared by Store and Tx.
type Writer interface {
	// Set stores value at key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Del removes the given keys. Both plain values and sorted sets are
	// removed. Missing keys are ignored.
	Del(ctx context.Context, keys ...string) error

	// ZAdd inserts member into the sorted set at key with the given score,
	// updating the score if the member already exists.
	ZAdd(ctx context.Context, key string, score int64, member string) error
}

// Tx is a transactional batch handed to Store.Update.
type Tx interface {
	Reader
	Writer
}

// Store is the key-value backing store.
type Store interface {
	Reader
	Writer

	// Update runs fn inside a single transaction. The transaction commits
	// if fn returns nil and rolls back otherwise; it is released on every
	// exit path, including a panic in fn.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying resources.
	Close() error
}

// GetJSON reads key and decodes it into v.
func GetJSON(ctx context.Context, r Reader, key string, v any) error {
	data, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, w Writer, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return w.Set(ctx, key, data)
}
