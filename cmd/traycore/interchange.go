package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"traycore/internal/core"
	"traycore/internal/interchange"
	"traycore/pkg/domain"
)

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <key|->",
		Short: "Export regions in the interchange format to the document store or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var skipped []interchange.Skipped
			if args[0] == "-" {
				data, sk, err := a.svc.ExportData(ctx)
				if err != nil {
					return err
				}
				skipped = sk
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return err
				}
			} else {
				info, sk, err := a.svc.ExportDocument(ctx, args[0])
				if err != nil {
					return err
				}
				skipped = sk
				fmt.Fprintf(cmd.OutOrStdout(), "exported %s (%d bytes)\n", info.Key, info.Size)
			}
			for _, s := range skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %s\n", s)
			}
			return nil
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	var file string
	var draft bool
	cmd := &cobra.Command{
		Use:   "import [key]",
		Short: "Import regions from the document store or a local file",
		Long: "Import regions from the document store or a local file.\n\n" +
			"Interchange documents carry no treatment or dilution, so a plain import\n" +
			"fails validation. Pass --draft to persist the imported regions and\n" +
			"complete them with set or apply-treatment.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				report core.ImportReport
				err    error
			)
			switch {
			case file != "" && len(args) == 0:
				if err := interchange.CheckExtension(file); err != nil {
					return err
				}
				data, rerr := os.ReadFile(file)
				if rerr != nil {
					return fmt.Errorf("read %s: %w", file, rerr)
				}
				report, _, err = a.svc.ImportData(ctx, data)
			case file == "" && len(args) == 1:
				report, _, err = a.svc.ImportDocument(ctx, args[0])
			default:
				return fmt.Errorf("%w: import takes a document key or --file", errUsage)
			}
			for _, s := range report.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %s\n", s)
			}
			for _, r := range report.Rejected {
				fmt.Fprintf(cmd.ErrOrStderr(), "rejected: %v\n", r)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d regions\n", len(report.Imported))
			if err := a.commit(cmd, draft); err != nil {
				var verr domain.ValidationError
				if !draft && errors.As(err, &verr) {
					return fmt.Errorf("%w (nothing saved; rerun with --draft to keep the imported regions)", err)
				}
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read a local .yaml or .yml file instead of the document store")
	cmd.Flags().BoolVar(&draft, "draft", false, "persist without validation")
	return cmd
}
