package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hcanvas/export"
	"hcanvas/store"
)

// storePath returns the configured snapshot database, defaulting to the XDG
// data directory.
func storePath() string {
	if cfg.Store.Path != "" {
		return cfg.Store.Path
	}
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "hcanvas.db"
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "hcanvas", "snapshots.db")
}

func openStore() (*store.SQLite, error) {
	path := storePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return store.Open(path)
}

func storeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Save, load and list named canvas snapshots",
	}
	cmd.AddCommand(storeSaveCmd(), storeLoadCmd(), storeListCmd(), storeDeleteCmd())
	return cmd
}

func storeSaveCmd() *cobra.Command {
	in := input{collapse: -1}
	cmd := &cobra.Command{
		Use:   "save <name> [input]",
		Short: "Lay out the input and store the snapshot under name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				in.path = args[1]
			}
			e, err := load(in, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer e.Destroy()

			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Save(cmd.Context(), args[0], e.ActiveEngine(), e.Snapshot()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", Good.Sprint("saved"), args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&in.format, "input-format", "", "input format (detected if empty)")
	cmd.Flags().IntVar(&in.collapse, "collapse-level", -1, "collapse every container at this depth or deeper")
	return cmd
}

func storeLoadCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "load <name>",
		Short: "Write a stored snapshot; the format follows -o's extension (JSON on stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			data, err := s.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			e, err := newEngine(cfg)
			if err != nil {
				return err
			}
			defer e.Destroy()
			e.LoadSnapshot(data)
			view := e.View()

			f := &renderFlags{}
			if output == "" || output == "-" {
				return exportTo(cmd.OutOrStdout(), export.FormatJSON, view, f)
			}
			f.outputs = []string{output}
			return writeOutputs(cmd.Context(), view, f)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}

func storeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored snapshots, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			entries, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				Subtle.Fprintln(cmd.OutOrStdout(), "no snapshots")
				return nil
			}
			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{
					e.Name, e.Engine, strconv.Itoa(e.Nodes), strconv.Itoa(e.Edges),
					e.UpdatedAt.Local().Format(time.DateTime),
				}
			}
			table(cmd.OutOrStdout(), []string{"name", "engine", "nodes", "edges", "updated"}, rows)
			return nil
		},
	}
}

func storeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"delete"},
		Short:   "Delete a stored snapshot",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", Good.Sprint("deleted"), args[0])
			return nil
		},
	}
}
