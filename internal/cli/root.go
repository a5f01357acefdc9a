// Package cli implements the iantel command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bryan-buckman/iantel/internal/config"
	"github.com/bryan-buckman/iantel/internal/observability"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	version    string
	cfg        *config.Config
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	cmd := &cobra.Command{
		Use:   "iantel",
		Short: "IANTEL - personal daily briefing",
		Long: `IANTEL gathers a handful of news feeds and a crypto price snapshot into one
briefing document, and serves a calm page to read it on.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			setupLogging(cmd.ErrOrStderr(), cfg.Log)
			observability.InitTracer(cfg.Tracing.Endpoint, version)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.ShutdownTracer()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultFile+" if present)")

	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSourcesCmd(opts))
	cmd.AddCommand(newHealthCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

// Execute runs the root command.
func Execute(version string) error {
	if err := newRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func setupLogging(w io.Writer, cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}
