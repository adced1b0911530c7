package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"traycore/pkg/domain"
)

func (a *app) gridCmd() *cobra.Command {
	var resultsFile string
	cmd := &cobra.Command{
		Use:   "grid <tray>",
		Short: "Print the read-only result grid of a tray",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.tray(args[0])
			if err != nil {
				return err
			}
			var summaries []domain.WellSummary
			if resultsFile != "" {
				data, err := os.ReadFile(resultsFile)
				if err != nil {
					return fmt.Errorf("read results: %w", err)
				}
				if err := json.Unmarshal(data, &summaries); err != nil {
					return fmt.Errorf("decode results: %w", err)
				}
			}
			grid, err := a.svc.ResultGrid(t.SequenceID, summaries)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, row := range grid {
				cells := make([]string, len(row))
				for x, well := range row {
					cell := well.Label
					if well.RegionName != "" {
						cell += "[" + well.RegionName + "]"
					}
					if well.Summary != nil && well.Summary.FinalState != "" {
						cell += "=" + well.Summary.FinalState
					}
					cells[x] = cell
				}
				fmt.Fprintln(w, strings.Join(cells, "\t"))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&resultsFile, "results", "", "JSON array of well summaries")
	return cmd
}
