package benchmark

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Yoshino-s/hitokoto-api/internal/loadtest"
)

func smallConfig(t *testing.T) Config {
	return Config{
		Categories:           3,
		SentencesPerCategory: 20,
		Readers:              4,
		QueriesPerReader:     5,
		Dir:                  t.TempDir(),
	}
}

func TestRun(t *testing.T) {
	for _, backend := range []string{BackendSQLite, BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			result, err := Run(context.Background(), backend, smallConfig(t))
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if result.Sentences != 60 {
				t.Errorf("Expected 60 sentences, got %d", result.Sentences)
			}
			if result.FullSync <= 0 || result.IncrementalSync <= 0 {
				t.Errorf("Sync timings not recorded: %+v", result)
			}
			if result.Latency.TotalQueries != 20 {
				t.Errorf("Expected 20 queries, got %d", result.Latency.TotalQueries)
			}
			if result.Latency.Errors != 0 {
				t.Errorf("Got %d query errors", result.Latency.Errors)
			}

			var buf bytes.Buffer
			PrintResult(&buf, result)
			if !strings.Contains(buf.String(), "Benchmark Results ("+backend+")") {
				t.Errorf("Unexpected report:\n%s", buf.String())
			}
		})
	}
}

func TestRun_UnknownBackend(t *testing.T) {
	if _, err := Run(context.Background(), "redis", smallConfig(t)); err == nil {
		t.Error("Expected error for unknown backend")
	}
}

func TestCompareResults(t *testing.T) {
	s := &Result{
		Backend:          BackendSQLite,
		FullSync:         200 * time.Millisecond,
		IncrementalSync:  20 * time.Millisecond,
		Latency:          &loadtest.LatencyStats{P50: time.Millisecond, P95: 4 * time.Millisecond, P99: 8 * time.Millisecond},
		QueriesPerSecond: 1000,
	}
	b := &Result{
		Backend:          BackendBadger,
		FullSync:         100 * time.Millisecond,
		IncrementalSync:  40 * time.Millisecond,
		Latency:          &loadtest.LatencyStats{P50: time.Millisecond / 2, P95: 2 * time.Millisecond, P99: 8 * time.Millisecond},
		QueriesPerSecond: 1500,
	}

	result := compareResults(s, b)
	if got := result.Improvement["full_sync"]; got != 50 {
		t.Errorf("full_sync improvement = %.1f, want 50", got)
	}
	if got := result.Improvement["incremental_sync"]; got != -100 {
		t.Errorf("incremental_sync improvement = %.1f, want -100", got)
	}
	if got := result.Improvement["throughput"]; got != 50 {
		t.Errorf("throughput improvement = %.1f, want 50", got)
	}
	// badger: full, p50, p95, throughput; sqlite: incremental; p99 tied
	if result.WinCount[BackendBadger] != 4 || result.WinCount[BackendSQLite] != 1 {
		t.Errorf("WinCount = %v", result.WinCount)
	}
	if result.OverallWinner != BackendBadger {
		t.Errorf("OverallWinner = %s, want badger", result.OverallWinner)
	}

	var buf bytes.Buffer
	PrintComparison(&buf, result)
	if !strings.Contains(buf.String(), "Overall Winner: BADGER") {
		t.Errorf("Unexpected report:\n%s", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "500ns"},
		{1500 * time.Nanosecond, "1.50µs"},
		{2500 * time.Microsecond, "2.50ms"},
		{1500 * time.Millisecond, "1.50s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
