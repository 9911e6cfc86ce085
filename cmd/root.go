// Package cmd implements the hcanvas command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hcanvas/config"
)

var version = "0.3.0"

var (
	configPath  string
	logLevel    string
	engineFlag  string
	cfg         *config.Config
	logger      = slog.New(slog.DiscardHandler)
	colorOutput = stdoutIsTerminal()
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hcanvas",
		Short: "hcanvas: hierarchical canvas layout and rendering",
		Long: Brand.Sprint("hcanvas") + " lays out nested graphs and renders them\n" +
			Subtle.Sprint("Import Mermaid, D2, JSON or YAML; export SVG, PNG, text and more"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
	}
	root.SetVersionTemplate("hcanvas {{ .Version }}\n")

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (.yaml, .yml or .toml; default $XDG_CONFIG_HOME/hcanvas/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVarP(&engineFlag, "engine", "e", "", "layout engine (see `hcanvas engines`)")

	root.AddCommand(
		renderCmd(),
		layoutCmd(),
		validateCmd(),
		enginesCmd(),
		viewCmd(),
		storeCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger.
func setup(cmd *cobra.Command) error {
	path, optional := configPath, false
	if path == "" {
		path, optional = config.DefaultPath(), true
	}
	c, err := config.Load(path, optional)
	if err != nil {
		return err
	}
	if engineFlag != "" {
		c.Layout.Engine = engineFlag
		if err := c.Validate(); err != nil {
			return err
		}
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	cfg = c

	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", Bad.Sprint("hcanvas:"), err)
	}
	return err
}
