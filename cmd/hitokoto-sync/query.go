package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Yoshino-s/hitokoto-api/internal/store"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read sentences from the live slot",
}

var queryCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories with sentence counts and length ranges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			categories, err := a.reader().Categories(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tSENTENCES\tMIN\tMAX")
			for _, c := range categories {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", c.Key, c.Name, c.Count, c.Min, c.Max)
			}
			return w.Flush()
		})
	},
}

var queryCountCmd = &cobra.Command{
	Use:   "count <category>",
	Short: "Count sentences of a category within a length range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		min, max := lengthRange(cmd)
		return withApp(func(a *app) error {
			n, err := a.reader().CountByLength(cmd.Context(), args[0], min, max)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		})
	},
}

var queryListCmd = &cobra.Command{
	Use:   "list <category>",
	Short: "List sentences of a category within a length range, shortest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		min, max := lengthRange(cmd)
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(func(a *app) error {
			sentences, err := a.reader().ByLength(cmd.Context(), args[0], min, max, limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "UUID\tLENGTH\tHITOKOTO\tFROM")
			for _, s := range sentences {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", s.UUID, s.Length, s.Hitokoto, s.From)
			}
			return w.Flush()
		})
	},
}

var queryGetCmd = &cobra.Command{
	Use:   "get <uuid>",
	Short: "Print one sentence as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			s, err := a.reader().Sentence(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("sentence %s not found", args[0])
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		})
	},
}

// lengthRange reads --min/--max; a negative --max means unbounded.
func lengthRange(cmd *cobra.Command) (int64, int64) {
	min, _ := cmd.Flags().GetInt64("min")
	max, _ := cmd.Flags().GetInt64("max")
	if max < 0 {
		max = store.ScoreInf
	}
	return min, max
}

func init() {
	for _, c := range []*cobra.Command{queryCountCmd, queryListCmd} {
		c.Flags().Int64("min", 0, "minimum sentence length")
		c.Flags().Int64("max", -1, "maximum sentence length (-1: unbounded)")
	}
	queryListCmd.Flags().Int("limit", 20, "maximum sentences to list (0: all)")

	queryCmd.AddCommand(queryCategoriesCmd, queryCountCmd, queryListCmd, queryGetCmd)
	rootCmd.AddCommand(queryCmd)
}
