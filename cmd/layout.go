package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hcanvas/diagram"
	"hcanvas/export"
	"hcanvas/layout"
)

func layoutCmd() *cobra.Command {
	var (
		in     = input{collapse: -1}
		output string
	)
	cmd := &cobra.Command{
		Use:   "layout [input]",
		Short: "Run a layout engine and write the canvas snapshot as JSON",
		Example: "  hcanvas layout arch.yaml -e tree -o arch.json\n" +
			"  cat graph.json | hcanvas layout - > snapshot.json",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				in.path = args[0]
			}
			start := time.Now()
			e, err := load(in, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer e.Destroy()
			view := e.View()
			elapsed := time.Since(start)

			exp, err := export.NewExporter(export.FormatJSON, export.DefaultOptions())
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return exp.Export(cmd.OutOrStdout(), view)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := exp.Export(f, view); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			printSummary(cmd, e.ActiveEngine(), view, elapsed)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file (stdout if empty)")
	cmd.Flags().StringVar(&in.format, "input-format", "", "input format (detected if empty)")
	cmd.Flags().IntVar(&in.collapse, "collapse-level", -1, "collapse every container at this depth or deeper")
	return cmd
}

func printSummary(cmd *cobra.Command, engineName string, view *diagram.CanvasData, elapsed time.Duration) {
	inherited := 0
	for _, e := range view.Edges {
		if e.Inherited {
			inherited++
		}
	}
	bounds, _ := diagram.ContentBounds(view.Nodes, cfg.Frames())
	w := cmd.ErrOrStderr()
	table(w, []string{"engine", "nodes", "edges", "inherited", "bounds", "time"}, [][]string{{
		engineName,
		strconv.Itoa(view.NodeCount()),
		strconv.Itoa(len(view.OriginalEdges)),
		strconv.Itoa(inherited),
		fmt.Sprintf("%.0fx%.0f", bounds.Width, bounds.Height),
		elapsed.Round(time.Microsecond).String(),
	}})
}

func enginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the layout engines and their traits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := layout.NewRegistryWith(cfg.Engine().Layout)
			yes := func(b bool) string {
				if b {
					return "yes"
				}
				return "-"
			}
			var rows [][]string
			for _, name := range reg.Names() {
				eng, _ := reg.Get(name)
				t := eng.Traits()
				_, stepwise := eng.(layout.Stepper)
				marker := ""
				if name == cfg.Layout.Engine {
					marker = "*"
				}
				rows = append(rows, []string{
					marker + name, yes(t.Deterministic), yes(t.Containment), yes(t.Routed), yes(stepwise),
				})
			}
			table(cmd.OutOrStdout(), []string{"engine", "deterministic", "containment", "routed", "stepwise"}, rows)
			return nil
		},
	}
}
