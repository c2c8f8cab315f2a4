package benchmark

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ComparisonResult contains the results of running both backends.
type ComparisonResult struct {
	SQLite *Result
	Badger *Result

	// Improvement of badger over sqlite in percent per metric; positive
	// means badger is better.
	Improvement   map[string]float64
	WinCount      map[string]int
	OverallWinner string // "sqlite", "badger" or "tie"
}

// Compare runs the same configuration on both backends.
func Compare(ctx context.Context, cfg Config) (*ComparisonResult, error) {
	sqliteResult, err := Run(ctx, BackendSQLite, cfg)
	if err != nil {
		return nil, err
	}
	badgerResult, err := Run(ctx, BackendBadger, cfg)
	if err != nil {
		return nil, err
	}
	return compareResults(sqliteResult, badgerResult), nil
}

func compareResults(s, b *Result) *ComparisonResult {
	result := &ComparisonResult{
		SQLite: s,
		Badger: b,
		Improvement: map[string]float64{
			"full_sync":        lowerIsBetter(b.FullSync, s.FullSync),
			"incremental_sync": lowerIsBetter(b.IncrementalSync, s.IncrementalSync),
			"p50":              lowerIsBetter(b.Latency.P50, s.Latency.P50),
			"p95":              lowerIsBetter(b.Latency.P95, s.Latency.P95),
			"p99":              lowerIsBetter(b.Latency.P99, s.Latency.P99),
		},
		WinCount: map[string]int{},
	}
	if s.QueriesPerSecond > 0 {
		result.Improvement["throughput"] = (b.QueriesPerSecond - s.QueriesPerSecond) / s.QueriesPerSecond * 100
	}

	for _, improvement := range result.Improvement {
		switch {
		case improvement > 0:
			result.WinCount[BackendBadger]++
		case improvement < 0:
			result.WinCount[BackendSQLite]++
		}
	}

	switch {
	case result.WinCount[BackendBadger] > result.WinCount[BackendSQLite]:
		result.OverallWinner = BackendBadger
	case result.WinCount[BackendSQLite] > result.WinCount[BackendBadger]:
		result.OverallWinner = BackendSQLite
	default:
		result.OverallWinner = "tie"
	}
	return result
}

// lowerIsBetter returns how much lower candidate is than reference, in
// percent of reference.
func lowerIsBetter(candidate, reference time.Duration) float64 {
	if reference == 0 {
		return 0
	}
	return float64(reference-candidate) / float64(reference) * 100
}

// PrintComparison writes a formatted comparison report.
func PrintComparison(w io.Writer, result *ComparisonResult) {
	separator := strings.Repeat("=", 72)
	fmt.Fprintf(w, "\n%s\n", separator)
	fmt.Fprintf(w, "BENCHMARK COMPARISON: sqlite vs badger\n")
	fmt.Fprintf(w, "%s\n\n", separator)

	fmt.Fprintf(w, "%-18s | %-12s | %-12s | %-12s\n", "Metric", "sqlite", "badger", "badger gain")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 64))
	row := func(name, key string, s, b time.Duration) {
		fmt.Fprintf(w, "%-18s | %-12s | %-12s | %s%.1f%%\n",
			name, FormatDuration(s), FormatDuration(b), formatSign(result.Improvement[key]), result.Improvement[key])
	}
	row("Full sync", "full_sync", result.SQLite.FullSync, result.Badger.FullSync)
	row("Incremental sync", "incremental_sync", result.SQLite.IncrementalSync, result.Badger.IncrementalSync)
	row("Read P50", "p50", result.SQLite.Latency.P50, result.Badger.Latency.P50)
	row("Read P95", "p95", result.SQLite.Latency.P95, result.Badger.Latency.P95)
	row("Read P99", "p99", result.SQLite.Latency.P99, result.Badger.Latency.P99)
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "THROUGHPUT:\n")
	fmt.Fprintf(w, "  sqlite: %.2f queries/sec\n", result.SQLite.QueriesPerSecond)
	fmt.Fprintf(w, "  badger: %.2f queries/sec\n\n", result.Badger.QueriesPerSecond)

	fmt.Fprintf(w, "MEMORY DELTA:\n")
	fmt.Fprintf(w, "  sqlite: %s\n", humanize.IBytes(result.SQLite.MemoryDeltaBytes))
	fmt.Fprintf(w, "  badger: %s\n\n", humanize.IBytes(result.Badger.MemoryDeltaBytes))

	fmt.Fprintf(w, "SUMMARY:\n")
	fmt.Fprintf(w, "  sqlite wins:    %d metrics\n", result.WinCount[BackendSQLite])
	fmt.Fprintf(w, "  badger wins:    %d metrics\n", result.WinCount[BackendBadger])
	fmt.Fprintf(w, "  Overall Winner: %s\n", strings.ToUpper(result.OverallWinner))
	fmt.Fprintf(w, "%s\n\n", separator)
}

// formatSign returns a + sign for positive values.
func formatSign(value float64) string {
	if value > 0 {
		return "+"
	}
	return ""
}
