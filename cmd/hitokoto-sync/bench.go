package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Yoshino-s/hitokoto-api/internal/benchmark"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Compare sqlite and badger under the sync workload",
	Long: `Benchmark both store backends on the same synthetic bundle.

For each backend:
  1. Time a full sync into a fresh store
  2. Time an incremental sync after one category changes
  3. Measure concurrent read latency on the live slot

Example usage:
  hitokoto-sync bench                      # Compare both backends
  hitokoto-sync bench --backend badger     # Benchmark one backend
  hitokoto-sync bench --readers 200        # More concurrent readers`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		backend, _ := flags.GetString("backend")

		bc := benchmark.DefaultConfig()
		bc.Categories, _ = flags.GetInt("categories")
		bc.SentencesPerCategory, _ = flags.GetInt("sentences")
		bc.Readers, _ = flags.GetInt("readers")
		bc.QueriesPerReader, _ = flags.GetInt("queries")

		if backend != "" {
			fmt.Printf("Running %s benchmark...\n", backend)
			result, err := benchmark.Run(cmd.Context(), backend, bc)
			if err != nil {
				return err
			}
			benchmark.PrintResult(os.Stdout, result)
			return nil
		}

		fmt.Println("Running sqlite and badger benchmarks...")
		result, err := benchmark.Compare(cmd.Context(), bc)
		if err != nil {
			return err
		}
		benchmark.PrintComparison(os.Stdout, result)
		return nil
	},
}

func init() {
	defaults := benchmark.DefaultConfig()
	flags := benchCmd.Flags()
	flags.String("backend", "", "benchmark only this backend (sqlite or badger)")
	flags.Int("categories", defaults.Categories, "generated categories")
	flags.Int("sentences", defaults.SentencesPerCategory, "sentences per category")
	flags.Int("readers", defaults.Readers, "concurrent readers")
	flags.Int("queries", defaults.QueriesPerReader, "queries per reader")

	rootCmd.AddCommand(benchCmd)
}
