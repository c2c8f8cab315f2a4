package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync from the bundle into the store",
	Long: `Run a single sync attempt.

The bundle's version.json is compared with the live slot:
  1. Same bundle version and timestamp: nothing is written
  2. Live slot never written: every category is loaded into the other slot
  3. Otherwise: new categories and categories whose file timestamp changed
     are rewritten in the other slot

The other slot is promoted to live only when the attempt completes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			fmt.Printf("Syncing %s into %s (%s)...\n", a.cfg.Bundle.Root, a.cfg.Store.Path, a.cfg.Store.Driver)

			res, err := a.syncer(nil, nil).Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			if !res.Promoted() {
				fmt.Printf("Already up to date (bundle %s, slot %s)\n", res.BundleVersion, res.From)
				return nil
			}
			fmt.Printf("Sync complete in %v\n", res.Duration.Round(time.Millisecond))
			fmt.Printf("   Decision: %s\n", res.Decision)
			fmt.Printf("   Slot: %s -> %s\n", res.From, res.To)
			fmt.Printf("   Bundle: %s\n", res.BundleVersion)
			fmt.Printf("   Sentences: %d\n", res.Total)
			fmt.Printf("   Categories loaded: %d\n", res.CategoriesLoaded)
			if res.CategoriesSkipped > 0 {
				fmt.Printf("   Categories kept from previous bundle: %d\n", res.CategoriesSkipped)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
