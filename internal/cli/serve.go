package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bryan-buckman/iantel/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the briefing viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}

			store := openStore(cfg)
			if store != nil {
				defer store.Close()
			}
			builder, err := newBuilder(cfg, store)
			if err != nil {
				return err
			}

			srv, err := server.New(server.Options{
				Builder:         builder,
				Store:           store,
				Artifact:        cfg.Output,
				RebuildInterval: cfg.Server.RebuildInterval,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Start(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (overrides server.addr)")
	return cmd
}
