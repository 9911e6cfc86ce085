package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hcanvas/diagram"
	"hcanvas/export"
	"hcanvas/render"
)

type renderFlags struct {
	input   input
	outputs []string
	format  string
	width   float64
	height  float64
	watch   bool
}

func renderCmd() *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render [input]",
		Short: "Lay out a graph and write it as an image or diagram source",
		Long: "Render reads Mermaid, D2, JSON or YAML input (or a saved snapshot) and writes\n" +
			"one or more outputs. The format of each -o file follows its extension.",
		Example: "  hcanvas render arch.mmd -o arch.svg -o arch.png\n" +
			"  hcanvas render arch.d2 --collapse-level 1\n" +
			"  hcanvas render arch.yaml -o arch.svg --watch",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.input.path = args[0]
			}
			if f.watch {
				if f.input.path == "" || f.input.path == "-" {
					return fmt.Errorf("--watch needs an input file")
				}
				if len(f.outputs) == 0 {
					return fmt.Errorf("--watch needs at least one -o file")
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				return watchAndRender(ctx, cmd, f)
			}
			return runRender(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.outputs, "output", "o", nil, "output file; repeat for several formats")
	fl.StringVarP(&f.format, "format", "f", "text", "format written to stdout when no -o is given")
	fl.StringVar(&f.input.format, "input-format", "", "input format: JSON, YAML, Mermaid, D2, GraphResponse (detected if empty)")
	fl.IntVar(&f.input.collapse, "collapse-level", -1, "collapse every container at this depth or deeper")
	fl.Float64Var(&f.width, "width", 0, "image width in pixels (0 fits the scene)")
	fl.Float64Var(&f.height, "height", 0, "image height in pixels (0 fits the scene)")
	fl.BoolVarP(&f.watch, "watch", "w", false, "re-render whenever the input changes")
	return cmd
}

func runRender(cmd *cobra.Command, f *renderFlags) error {
	e, err := load(f.input, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer e.Destroy()
	view := e.View()

	if len(f.outputs) == 0 {
		format, err := export.ParseFormat(f.format)
		if err != nil {
			return err
		}
		return exportTo(cmd.OutOrStdout(), format, view, f)
	}
	if err := writeOutputs(cmd.Context(), view, f); err != nil {
		return err
	}
	for _, out := range f.outputs {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", Good.Sprint("wrote"), out)
	}
	return nil
}

// exportOptions applies the configuration and flags to the exporter options.
func exportOptions(f *renderFlags) export.Options {
	opts := export.DefaultOptions()
	opts.Margin = cfg.Render.Margin
	opts.Size.Width, opts.Size.Height = f.width, f.height
	opts.Render.Frames = cfg.Frames()
	opts.Render.Arrows = cfg.Render.Arrows
	switch cfg.Render.Terminal {
	case "ascii":
		opts.Caps = render.ForceASCII()
	case "unicode":
		opts.Caps = render.ForceUnicode()
	default:
		if colorOutput {
			opts.Caps = render.DetectCapabilities()
		}
	}
	return opts
}

func exportTo(w io.Writer, format export.Format, view *diagram.CanvasData, f *renderFlags) error {
	exp, err := export.NewExporter(format, exportOptions(f))
	if err != nil {
		return err
	}
	return exp.Export(w, view)
}

// writeOutputs encodes every output concurrently. A file is only written
// once its encoding succeeded.
func writeOutputs(ctx context.Context, view *diagram.CanvasData, f *renderFlags) error {
	g, _ := errgroup.WithContext(ctx)
	for _, out := range f.outputs {
		g.Go(func() error {
			format, err := export.FormatForPath(out)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := exportTo(&buf, format, view, f); err != nil {
				return fmt.Errorf("%s: %w", out, err)
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			return os.WriteFile(out, buf.Bytes(), 0o644)
		})
	}
	return g.Wait()
}

func watchAndRender(ctx context.Context, cmd *cobra.Command, f *renderFlags) error {
	rerender := func() {
		if err := runRender(cmd, f); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", Bad.Sprint("render failed:"), err)
		}
	}
	rerender()
	Subtle.Fprintf(cmd.ErrOrStderr(), "watching %s (Ctrl-C to stop)\n", f.input.path)
	return watchFile(ctx, f.input.path, defaultDebounce, rerender)
}
