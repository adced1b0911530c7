package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Run the region rules without saving",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.svc.Validate(cmd.Context())
			if err != nil {
				return err
			}
			for _, v := range res.Violations {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", v.Severity, v.Rule, v.Message)
			}
			if err := res.Err(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d regions valid\n", len(a.svc.Snapshot().Regions))
			return nil
		},
	}
}
