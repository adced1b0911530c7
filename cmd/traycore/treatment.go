package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) applyTreatmentCmd() *cobra.Command {
	var draft bool
	cmd := &cobra.Command{
		Use:   "apply-treatment <treatment-id>",
		Short: "Set the treatment of every region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.svc.ApplyTreatmentToAll(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.commit(cmd, draft)
		},
	}
	cmd.Flags().BoolVar(&draft, "draft", false, "persist without validation")
	return cmd
}

func (a *app) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Print the location, sample and treatment of every region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			select {
			case <-a.svc.ResolveTreatments(ctx):
			case <-ctx.Done():
				return ctx.Err()
			}
			displays := a.svc.Displays()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tREGION\tTREATMENT ID\tLOCATION → SAMPLE → TREATMENT\tSTATUS")
			for i, r := range a.svc.Snapshot().Regions {
				if r.TreatmentID == "" {
					fmt.Fprintf(w, "%d\t%s\t-\t-\t-\n", i, r.TrimmedName())
					continue
				}
				d, ok := displays[r.ID]
				if !ok {
					fmt.Fprintf(w, "%d\t%s\t%s\t-\tpending\n", i, r.TrimmedName(), r.TreatmentID)
					continue
				}
				chain := fmt.Sprintf("%s → %s → %s", dash(d.LocationName), dash(d.SampleName), dash(d.TreatmentName))
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i, r.TrimmedName(), r.TreatmentID, chain, d.Status)
			}
			return w.Flush()
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
