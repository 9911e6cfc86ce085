package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hcanvas/validation"
)

func validateCmd() *cobra.Command {
	in := input{collapse: -1}
	cmd := &cobra.Command{
		Use:   "validate [input]",
		Short: "Check a laid-out scene against the canvas invariants",
		Long: "Validate lays out the input (or loads a snapshot) and checks GUID uniqueness,\n" +
			"finite geometry, containment, edge references, the visible edge set and the camera.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				in.path = args[0]
			}
			e, err := load(in, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer e.Destroy()

			v := validation.NewSnapshotValidator()
			if eng, ok := e.Layouts().Get(e.ActiveEngine()); ok && eng.Traits().Containment {
				v.SetContainment(true, cfg.Layout.Padding)
			}
			view := e.View()
			issues := v.Validate(view)

			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintf(out, "%s %d nodes, %d edges\n", Good.Sprint("valid:"), view.NodeCount(), len(view.Edges))
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(out, "  %s %s\n", Bad.Sprint("✗"), issue.String())
			}
			return fmt.Errorf("%d invariant violations", len(issues))
		},
	}
	cmd.Flags().StringVar(&in.format, "input-format", "", "input format (detected if empty)")
	cmd.Flags().IntVar(&in.collapse, "collapse-level", -1, "collapse every container at this depth or deeper")
	return cmd
}
