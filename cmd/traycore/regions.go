package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"traycore/internal/core"
	"traycore/internal/geometry"
	"traycore/pkg/domain"
)

func (a *app) createCmd() *cobra.Command {
	var name, treatmentID, dilution string
	var draft bool
	cmd := &cobra.Command{
		Use:   "create <tray> <from-label> <to-label>",
		Short: "Create a region spanning two well labels",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			t, err := a.tray(args[0])
			if err != nil {
				return err
			}
			from, err := geometry.ParseLabel(args[1], t)
			if err != nil {
				return err
			}
			to, err := geometry.ParseLabel(args[2], t)
			if err != nil {
				return err
			}
			region, snap, err := a.svc.CreateRegion(ctx, t.SequenceID, from, to)
			if err != nil {
				return err
			}
			index := len(snap.Regions) - 1
			updates := []struct {
				field core.RegionField
				value string
			}{
				{core.FieldName, name},
				{core.FieldTreatmentID, treatmentID},
				{core.FieldDilution, dilution},
			}
			for _, u := range updates {
				if u.value == "" {
					continue
				}
				if _, err := a.svc.UpdateRegion(ctx, index, u.field, u.value); err != nil {
					return err
				}
			}
			if err := a.commit(cmd, draft); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created region %d %s on %s\n", index, region.ID, t.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "region name")
	cmd.Flags().StringVar(&treatmentID, "treatment", "", "treatment id")
	cmd.Flags().StringVar(&dilution, "dilution", "", "dilution factor")
	cmd.Flags().BoolVar(&draft, "draft", false, "persist without validation")
	return cmd
}

func (a *app) removeCmd() *cobra.Command {
	var draft bool
	cmd := &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the region at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: index %q", errUsage, args[0])
			}
			if _, err := a.svc.RemoveRegion(cmd.Context(), index); err != nil {
				return err
			}
			return a.commit(cmd, draft)
		},
	}
	cmd.Flags().BoolVar(&draft, "draft", false, "persist without validation")
	return cmd
}

func (a *app) setCmd() *cobra.Command {
	var draft bool
	cmd := &cobra.Command{
		Use:   "set <index> <field> <value>",
		Short: "Update one field of the region at index",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: index %q", errUsage, args[0])
			}
			field, err := core.ParseRegionField(args[1])
			if err != nil {
				return err
			}
			value, err := a.fieldValue(field, args[2])
			if err != nil {
				return err
			}
			if _, err := a.svc.UpdateRegion(cmd.Context(), index, field, value); err != nil {
				return err
			}
			return a.commit(cmd, draft)
		},
	}
	cmd.Flags().BoolVar(&draft, "draft", false, "persist without validation")
	return cmd
}

// fieldValue converts a command line value to the type UpdateRegion expects.
func (a *app) fieldValue(field core.RegionField, raw string) (any, error) {
	switch field {
	case core.FieldIsBackgroundKey:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects true or false", errUsage, field)
		}
		return v, nil
	case core.FieldTraySequenceID:
		t, err := a.tray(raw)
		if err != nil {
			return nil, err
		}
		return t.SequenceID, nil
	case core.FieldTreatment:
		return nil, fmt.Errorf("%w: set %s through treatment_id", domain.ErrInvalidFieldValue, field)
	default:
		return raw, nil
	}
}

// commit persists the session, validated unless draft is set, and lists the
// resulting regions.
func (a *app) commit(cmd *cobra.Command, draft bool) error {
	if draft {
		if err := a.persistDraft(cmd.Context()); err != nil {
			return err
		}
	} else if err := a.save(cmd); err != nil {
		return err
	}
	return a.listRegions(cmd)
}

func (a *app) listRegions(cmd *cobra.Command) error {
	snap := a.svc.Snapshot()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tTRAY\tWELLS\tTREATMENT\tDILUTION\tCOLOR")
	for i, r := range snap.Regions {
		tray, span := "-", "-"
		if r.TraySequenceID != nil {
			if t, err := a.svc.Tray(*r.TraySequenceID); err == nil {
				tray = t.Name
				b := r.Bounds()
				from, _ := geometry.FormatLabel(b.UpperLeft(), t)
				to, _ := geometry.FormatLabel(b.LowerRight(), t)
				span = from + ":" + to
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", i, r.TrimmedName(), tray, span, r.TreatmentID, r.Dilution, r.Color)
	}
	return w.Flush()
}
