package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the live slot and both slots' versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		return withApp(func(a *app) error {
			st, err := a.reader().Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read status: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}

			fmt.Printf("Live slot: %s\n\n", st.Live)
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SLOT\tLIVE\tVERSION\tUPDATED\tSENTENCES\tCATEGORIES")
			for _, s := range st.Slots {
				live := ""
				if s.Live {
					live = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n", s.Slot, live, s.BundleVersion, s.UpdatedAt, s.Total, s.Categories)
			}
			return w.Flush()
		})
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "print status as JSON")
	rootCmd.AddCommand(statusCmd)
}
