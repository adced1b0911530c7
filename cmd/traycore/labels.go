package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"traycore/pkg/domain"
)

func (a *app) labelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels <tray>",
		Short: "Print the axis headers and well labels of a tray as displayed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.tray(args[0])
			if err != nil {
				return err
			}
			g, err := a.svc.Geometry(t.SequenceID)
			if err != nil {
				return err
			}
			axes := g.Axes()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 1, ' ', 0)
			fmt.Fprintf(w, "%s (%d°)\t%s\n", t.Name, int(t.Rotation), strings.Join(axes.X, "\t"))
			for y, head := range axes.Y {
				cells := make([]string, len(axes.X))
				for x := range axes.X {
					cells[x] = g.LabelAt(domain.DisplayCell{X: x, Y: y})
				}
				fmt.Fprintf(w, "%s\t%s\n", head, strings.Join(cells, "\t"))
			}
			return w.Flush()
		},
	}
}
