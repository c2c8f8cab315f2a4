// Package loadtest exercises the sentence corpus under concurrent reads while
// syncs keep promoting new bundle versions.
//
// It validates the slot switch from the reader's side: every read resolves
// the pointer to a valid slot and sees a complete corpus, however many
// promotions happen meanwhile.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Yoshino-s/hitokoto-api/internal/bundle"
	"github.com/Yoshino-s/hitokoto-api/internal/corpus"
	"github.com/Yoshino-s/hitokoto-api/internal/slot"
	"github.com/Yoshino-s/hitokoto-api/internal/store"
	hsync "github.com/Yoshino-s/hitokoto-api/internal/sync"
)

// maxReported bounds how many inconsistency descriptions a Report keeps.
const maxReported = 20

// Options shapes the generated bundle.
type Options struct {
	Categories           int
	SentencesPerCategory int
	MaxLength            int
	Seed                 int64

	// Prefix is the global key prefix (default "hitokoto:").
	Prefix string

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// DefaultOptions returns a small corpus suitable for tests.
func DefaultOptions() Options {
	return Options{
		Categories:           6,
		SentencesPerCategory: 50,
		MaxLength:            120,
		Seed:                 42,
		Prefix:               "hitokoto:",
	}
}

// TestCorpus is a generated bundle synced into a store.
type TestCorpus struct {
	Bundle *bundle.Bundle
	Store  store.Store
	Syncer hsync.Syncer
	Reader *corpus.Reader

	opts       Options
	rng        *rand.Rand
	keys       []string
	timestamps map[string]int64
	revision   int
}

// LatencyStats captures read latency from a load run.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration // Median
	P95          time.Duration
	P99          time.Duration
	TotalQueries int
	Errors       int
	Durations    []time.Duration
}

// Report summarises a consistency run.
type Report struct {
	Reads      int64
	Syncs      int
	Promotions int

	// Inconsistencies counts reads that saw an invalid pointer or an
	// incomplete corpus.
	Inconsistencies int64
	Samples         []string

	// StaleReads counts reads whose sentence record disappeared between
	// resolving the pointer and fetching it. It happens only to a reader
	// that outlives two promotions.
	StaleReads int64

	Latency *LatencyStats
}

// Consistent reports whether no read saw a torn corpus.
func (r *Report) Consistent() bool {
	return r.Inconsistencies == 0
}

// CreateTestCorpus generates a bundle under root and performs the initial
// full sync into s.
func CreateTestCorpus(ctx context.Context, root string, s store.Store, opts Options) (*TestCorpus, error) {
	if opts.Categories < 1 || opts.SentencesPerCategory < 1 {
		return nil, fmt.Errorf("need at least one category and one sentence per category")
	}
	if opts.MaxLength < 1 {
		opts.MaxLength = 1
	}
	if opts.Prefix == "" {
		opts.Prefix = "hitokoto:"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tc := &TestCorpus{
		Bundle:     bundle.New(root),
		Store:      s,
		Reader:     corpus.NewReader(s, opts.Prefix, logger),
		opts:       opts,
		rng:        rand.New(rand.NewSource(opts.Seed)),
		timestamps: make(map[string]int64),
	}

	cfg := hsync.DefaultConfig()
	cfg.Concurrency = 4
	cfg.Logger = logger
	tc.Syncer = hsync.New(tc.Bundle, slot.NewManager(s, opts.Prefix, logger), cfg)

	for i := 0; i < opts.Categories; i++ {
		key := string(rune('a' + i%26))
		if i >= 26 {
			key = fmt.Sprintf("%s%d", key, i/26)
		}
		tc.keys = append(tc.keys, key)
		if err := tc.writeCategory(key); err != nil {
			return nil, err
		}
	}
	if err := tc.writeDescriptor(); err != nil {
		return nil, err
	}

	if _, err := tc.Syncer.Run(ctx); err != nil {
		return nil, fmt.Errorf("failed to run initial sync: %w", err)
	}
	return tc, nil
}

// Total is the number of sentences in every bundle revision.
func (tc *TestCorpus) Total() int64 {
	return int64(tc.opts.Categories * tc.opts.SentencesPerCategory)
}

// Keys returns the category keys.
func (tc *TestCorpus) Keys() []string {
	return append([]string(nil), tc.keys...)
}

// Mutate regenerates the sentences of one random category and publishes a
// new bundle version. The sentence count of every category is unchanged.
func (tc *TestCorpus) Mutate() (string, error) {
	key := tc.keys[tc.rng.Intn(len(tc.keys))]
	if err := tc.writeCategory(key); err != nil {
		return "", err
	}
	if err := tc.writeDescriptor(); err != nil {
		return "", err
	}
	return key, nil
}

// Version returns the bundle version of the current revision.
func (tc *TestCorpus) Version() string {
	return fmt.Sprintf("1.0.%d", tc.revision)
}

func (tc *TestCorpus) writeCategory(key string) error {
	sentences := make([]bundle.Sentence, tc.opts.SentencesPerCategory)
	for i := range sentences {
		id, err := uuid.NewRandomFromReader(tc.rng)
		if err != nil {
			return fmt.Errorf("failed to generate uuid: %w", err)
		}
		length := tc.rng.Intn(tc.opts.MaxLength) + 1
		sentences[i] = bundle.Sentence{
			ID:       i + 1,
			UUID:     id.String(),
			Hitokoto: strings.Repeat("言", length),
			Type:     key,
			From:     "loadtest",
			Length:   length,
		}
	}
	tc.timestamps[key]++
	return tc.Bundle.WriteFile(categoryPath(key), sentences)
}

func (tc *TestCorpus) writeDescriptor() error {
	tc.revision++
	desc := bundle.VersionDescriptor{
		ProtocolVersion: "1.0.0",
		BundleVersion:   tc.Version(),
		UpdatedAt:       int64(tc.revision),
		Categories:      bundle.CategoriesRef{Path: "./categories.json", Timestamp: 1},
	}
	categories := make([]bundle.Category, 0, len(tc.keys))
	for i, key := range tc.keys {
		desc.Sentences = append(desc.Sentences, bundle.SentenceRef{
			Key: key, Path: categoryPath(key), Timestamp: tc.timestamps[key],
		})
		categories = append(categories, bundle.Category{
			ID: i + 1, Name: "category " + key, Key: key, Path: categoryPath(key),
		})
	}
	if err := tc.Bundle.WriteFile("categories.json", categories); err != nil {
		return err
	}
	return tc.Bundle.WriteFile(bundle.VersionFile, desc)
}

func categoryPath(key string) string {
	return "./sentences/" + key + ".json"
}

// RunConcurrentQueries simulates numReaders clients each issuing
// queriesPerReader length-range queries against the live slot.
func (tc *TestCorpus) RunConcurrentQueries(ctx context.Context, numReaders, queriesPerReader int) (*LatencyStats, error) {
	var mu sync.Mutex
	var allDurations []time.Duration
	var errorCount int

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < numReaders; i++ {
		rng := rand.New(rand.NewSource(tc.opts.Seed + int64(i)))
		g.Go(func() error {
			durations := make([]time.Duration, 0, queriesPerReader)
			failed := 0
			for j := 0; j < queriesPerReader; j++ {
				start := time.Now()
				_, err := tc.query(ctx, rng)
				durations = append(durations, time.Since(start))
				if err != nil {
					failed++
				}
			}

			mu.Lock()
			allDurations = append(allDurations, durations...)
			errorCount += failed
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(allDurations) == 0 {
		return nil, fmt.Errorf("no queries completed")
	}
	stats := computeLatencyStats(allDurations)
	stats.Errors = errorCount
	return stats, nil
}

func (tc *TestCorpus) query(ctx context.Context, rng *rand.Rand) ([]bundle.Sentence, error) {
	key := tc.keys[rng.Intn(len(tc.keys))]
	lo := int64(rng.Intn(tc.opts.MaxLength) + 1)
	return tc.Reader.ByLength(ctx, key, lo, lo+20, 10)
}

// VerifyConsistency runs numSyncs bundle mutations and syncs while
// numReaders check, on every read, that the pointer names a valid slot and
// that the live slot holds the complete corpus.
func (tc *TestCorpus) VerifyConsistency(ctx context.Context, numReaders, numSyncs int, syncInterval time.Duration) (*Report, error) {
	report := &Report{}
	var samplesMu sync.Mutex
	var reads, inconsistencies, stale atomic.Int64
	var durMu sync.Mutex
	var durations []time.Duration

	flag := func(format string, args ...any) {
		inconsistencies.Add(1)
		samplesMu.Lock()
		if len(report.Samples) < maxReported {
			report.Samples = append(report.Samples, fmt.Sprintf(format, args...))
		}
		samplesMu.Unlock()
	}

	readCtx, stopReaders := context.WithCancel(ctx)
	defer stopReaders()

	readers, readCtx := errgroup.WithContext(readCtx)
	perCategory := int64(tc.opts.SentencesPerCategory)
	for i := 0; i < numReaders; i++ {
		rng := rand.New(rand.NewSource(tc.opts.Seed + int64(i)))
		readers.Go(func() error {
			local := make([]time.Duration, 0, 256)
			defer func() {
				durMu.Lock()
				durations = append(durations, local...)
				durMu.Unlock()
			}()

			for readCtx.Err() == nil {
				start := time.Now()
				reads.Add(1)

				total, err := tc.Reader.Total(readCtx)
				switch {
				case readCtx.Err() != nil:
					return nil
				case errors.Is(err, slot.ErrInvalidSlot):
					flag("invalid pointer: %v", err)
					continue
				case err != nil:
					return fmt.Errorf("failed to read total: %w", err)
				case total != tc.Total():
					flag("total %d, want %d", total, tc.Total())
				}

				categories, err := tc.Reader.Categories(readCtx)
				if readCtx.Err() != nil {
					return nil
				}
				if err != nil {
					flag("categories failed: %v", err)
				} else {
					var sum int64
					for _, c := range categories {
						sum += c.Count
					}
					if sum != tc.Total() {
						flag("category counts sum to %d, want %d", sum, tc.Total())
					}
				}

				key := tc.keys[rng.Intn(len(tc.keys))]
				count, err := tc.Reader.CountByLength(readCtx, key, 0, store.ScoreInf)
				switch {
				case readCtx.Err() != nil:
					return nil
				case err != nil:
					flag("count of %s failed: %v", key, err)
				case count != perCategory:
					flag("category %s has %d sentences, want %d", key, count, perCategory)
				}

				if _, err := tc.query(readCtx, rng); err != nil && readCtx.Err() == nil {
					if errors.Is(err, store.ErrNotFound) {
						stale.Add(1)
					} else {
						flag("query failed: %v", err)
					}
				}
				local = append(local, time.Since(start))
			}
			return nil
		})
	}

	var syncErr error
	for i := 0; i < numSyncs && syncErr == nil; i++ {
		if _, err := tc.Mutate(); err != nil {
			syncErr = err
			break
		}
		res, err := tc.Syncer.Run(ctx)
		if err != nil {
			syncErr = fmt.Errorf("sync %d failed: %w", i, err)
			break
		}
		report.Syncs++
		if res.Promoted() {
			report.Promotions++
		}
		select {
		case <-ctx.Done():
			syncErr = ctx.Err()
		case <-time.After(syncInterval):
		}
	}

	stopReaders()
	if err := readers.Wait(); err != nil {
		return nil, err
	}
	if syncErr != nil {
		return nil, syncErr
	}

	report.Reads = reads.Load()
	report.Inconsistencies = inconsistencies.Load()
	report.StaleReads = stale.Load()
	if len(durations) > 0 {
		report.Latency = computeLatencyStats(durations)
	}
	return report, nil
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return &LatencyStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Mean:         sum / time.Duration(len(durations)),
		P50:          sorted[len(sorted)*50/100],
		P95:          sorted[len(sorted)*95/100],
		P99:          sorted[len(sorted)*99/100],
		TotalQueries: len(durations),
		Durations:    sorted,
	}
}

// String formats latency statistics.
func (s *LatencyStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Latency Statistics:\n")
	fmt.Fprintf(&b, "  Total Queries: %d\n", s.TotalQueries)
	fmt.Fprintf(&b, "  Errors:        %d\n", s.Errors)
	fmt.Fprintf(&b, "  Min:           %v\n", s.Min)
	fmt.Fprintf(&b, "  P50 (Median):  %v\n", s.P50)
	fmt.Fprintf(&b, "  Mean:          %v\n", s.Mean)
	fmt.Fprintf(&b, "  P95:           %v\n", s.P95)
	fmt.Fprintf(&b, "  P99:           %v\n", s.P99)
	fmt.Fprintf(&b, "  Max:           %v\n", s.Max)
	return b.String()
}
