package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Assign legacy regions to trays and persist the result",
		Long: `Loading an experiment assigns regions without a tray to the first tray
that contains their bounds. migrate persists that assignment without
running the validation rules, so incomplete legacy regions survive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.persistDraft(cmd.Context()); err != nil {
				return err
			}
			snap := a.svc.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "experiment %s: %d regions persisted\n", snap.ExperimentID, len(snap.Regions))
			return a.listRegions(cmd)
		},
	}
}
