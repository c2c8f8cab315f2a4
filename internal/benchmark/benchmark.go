// Package benchmark compares the store backends under the sync workload.
//
// Each run generates the same synthetic bundle, times a full sync and an
// incremental sync into a fresh store, then measures concurrent read
// latency against the live slot. Running the same configuration on sqlite
// and badger shows which backend suits a deployment.
package benchmark

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Yoshino-s/hitokoto-api/internal/loadtest"
	"github.com/Yoshino-s/hitokoto-api/internal/store"
	"github.com/Yoshino-s/hitokoto-api/internal/store/badger"
	"github.com/Yoshino-s/hitokoto-api/internal/store/sqlite"
)

// Backends that Run accepts.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config defines the parameters for a benchmark run.
type Config struct {
	// Categories and SentencesPerCategory size the generated bundle
	Categories           int
	SentencesPerCategory int

	// Readers is the number of concurrent readers
	Readers int

	// QueriesPerReader is how many queries each reader performs
	QueriesPerReader int

	// Dir holds the bundle and on-disk stores. Empty means a temporary
	// directory removed afterwards.
	Dir string
}

// DefaultConfig returns a benchmark configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Categories:           12,
		SentencesPerCategory: 500,
		Readers:              50,
		QueriesPerReader:     20,
	}
}

// Result captures the metrics of one backend.
type Result struct {
	Backend string
	Config  Config

	FullSync        time.Duration
	IncrementalSync time.Duration

	Latency          *loadtest.LatencyStats
	QueriesPerSecond float64

	MemoryDeltaBytes uint64
	Sentences        int64
}

// Run benchmarks one backend.
func Run(ctx context.Context, backend string, cfg Config) (*Result, error) {
	dir := cfg.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "hitokoto-bench-")
		if err != nil {
			return nil, fmt.Errorf("failed to create benchmark directory: %w", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}
	dir = filepath.Join(dir, backend)

	s, err := openBackend(backend, dir)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	opts := loadtest.DefaultOptions()
	opts.Categories = cfg.Categories
	opts.SentencesPerCategory = cfg.SentencesPerCategory

	memBefore := allocated()
	start := time.Now()
	tc, err := loadtest.CreateTestCorpus(ctx, filepath.Join(dir, "bundle"), s, opts)
	if err != nil {
		return nil, fmt.Errorf("%s full sync failed: %w", backend, err)
	}
	result := &Result{
		Backend:   backend,
		Config:    cfg,
		FullSync:  time.Since(start),
		Sentences: tc.Total(),
	}

	if _, err := tc.Mutate(); err != nil {
		return nil, err
	}
	start = time.Now()
	if _, err := tc.Syncer.Run(ctx); err != nil {
		return nil, fmt.Errorf("%s incremental sync failed: %w", backend, err)
	}
	result.IncrementalSync = time.Since(start)

	start = time.Now()
	stats, err := tc.RunConcurrentQueries(ctx, cfg.Readers, cfg.QueriesPerReader)
	if err != nil {
		return nil, fmt.Errorf("%s queries failed: %w", backend, err)
	}
	elapsed := time.Since(start)
	result.Latency = stats
	if elapsed > 0 {
		result.QueriesPerSecond = float64(stats.TotalQueries) / elapsed.Seconds()
	}

	if after := allocated(); after > memBefore {
		result.MemoryDeltaBytes = after - memBefore
	}
	return result, nil
}

func openBackend(backend, dir string) (store.Store, error) {
	switch backend {
	case BackendSQLite:
		db, err := sqlite.Open(filepath.Join(dir, "bench.db"), nil)
		if err != nil {
			return nil, err
		}
		return db, nil
	case BackendBadger:
		db, err := badger.Open(badger.Config{Path: filepath.Join(dir, "badger")})
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func allocated() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}

// FormatDuration formats a duration into a human-readable string.
func FormatDuration(d time.Duration) string {
	if d < time.Microsecond {
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000.0)
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000.0)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// PrintResult writes a formatted benchmark result.
func PrintResult(w io.Writer, result *Result) {
	fmt.Fprintf(w, "\n=== Benchmark Results (%s) ===\n\n", result.Backend)

	fmt.Fprintf(w, "Configuration:\n")
	fmt.Fprintf(w, "  Categories:         %d\n", result.Config.Categories)
	fmt.Fprintf(w, "  Sentences:          %d\n", result.Sentences)
	fmt.Fprintf(w, "  Readers:            %d\n", result.Config.Readers)
	fmt.Fprintf(w, "  Queries per Reader: %d\n\n", result.Config.QueriesPerReader)

	fmt.Fprintf(w, "Sync:\n")
	fmt.Fprintf(w, "  Full:        %s\n", FormatDuration(result.FullSync))
	fmt.Fprintf(w, "  Incremental: %s\n\n", FormatDuration(result.IncrementalSync))

	fmt.Fprintf(w, "Latency:\n")
	fmt.Fprintf(w, "  Min:       %s\n", FormatDuration(result.Latency.Min))
	fmt.Fprintf(w, "  P50:       %s\n", FormatDuration(result.Latency.P50))
	fmt.Fprintf(w, "  Mean:      %s\n", FormatDuration(result.Latency.Mean))
	fmt.Fprintf(w, "  P95:       %s\n", FormatDuration(result.Latency.P95))
	fmt.Fprintf(w, "  P99:       %s\n", FormatDuration(result.Latency.P99))
	fmt.Fprintf(w, "  Max:       %s\n\n", FormatDuration(result.Latency.Max))

	fmt.Fprintf(w, "Throughput:   %.2f queries/sec (%d errors)\n", result.QueriesPerSecond, result.Latency.Errors)
	fmt.Fprintf(w, "Memory Delta: %s\n\n", humanize.IBytes(result.MemoryDeltaBytes))
}
