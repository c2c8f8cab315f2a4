package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/Yoshino-s/hitokoto-api/internal/slot"
)

// Syncer brings the sentence corpus in the backing store up to date with
// a bundle on disk.
//
// A sync never mutates the live slot. It writes into the other slot, records
// the version metadata there and promotes it as its very last step, so
// concurrent readers see either the old corpus or the new one.
//
// Callers must serialise Run; two concurrent runs would write into the same
// inactive slot.
type Syncer interface {
	// Run performs one sync attempt.
	//
	// A no-op (bundle version and timestamp unchanged) returns a Result with
	// DecisionNoop and writes nothing. Any failure aborts the attempt
	// without promotion and is returned as a single error; the live slot is
	// left untouched.
	//
	// Example:
	//   res, err := syncer.Run(ctx)
	Run(ctx context.Context) (*Result, error)

	// RunTask runs a sync, logs the outcome and swallows failures,
	// including panics. It is the entry point for schedulers.
	RunTask(ctx context.Context)
}

// Result summarises a sync attempt.
type Result struct {
	Decision      Decision
	From          slot.Slot
	To            slot.Slot
	BundleVersion string
	Total         int64
	Duration      time.Duration

	// CategoriesLoaded counts categories written (full, new or resynced).
	CategoriesLoaded int
	// CategoriesSkipped counts recorded categories absent from the new
	// descriptor, which are left in place.
	CategoriesSkipped int
}

// Promoted reports whether the attempt switched the live slot.
func (r *Result) Promoted() bool {
	return r != nil && r.Decision != DecisionNoop
}

// Config holds optional collaborators of a Syncer.
type Config struct {
	// Concurrency bounds how many categories are loaded at once. Values
	// below 1 mean sequential.
	Concurrency int

	// Notifier receives a slot-switched event after each promotion. Nil
	// disables notification.
	Notifier Notifier

	// Metrics records run outcomes. Nil disables metrics.
	Metrics *Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a sequential configuration without notifier or
// metrics.
func DefaultConfig() Config {
	return Config{Concurrency: 1}
}
