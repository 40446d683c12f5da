package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/longregen/refinery/internal/history"
	"github.com/spf13/cobra"
)

// historyCmd lists recorded refinement runs
func historyCmd() *cobra.Command {
	var (
		limit    int
		showJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded refinement runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := history.NewLog(cfg.Data.HistoryFile).Load(limit)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("No refinement runs recorded.")
				return nil
			}

			if showJSON {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tSTRATEGY\tMODEL\tITERATIONS\tBEST SCORE\tCOMPLETED")
			fmt.Fprintln(w, "---\t--------\t-----\t----------\t----------\t---------")

			for _, entry := range entries {
				scoreStr := "N/A"
				if entry.BestScore != nil {
					scoreStr = fmt.Sprintf("%.2f", *entry.BestScore)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					entry.RunID,
					entry.Strategy,
					entry.Model,
					entry.IterationsRun,
					scoreStr,
					entry.CompletedAt.Format("2006-01-02 15:04"),
				)
			}

			w.Flush()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to list")
	cmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")

	return cmd
}
