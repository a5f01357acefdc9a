package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBuildCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Fetch every source and write the briefing document",
		Long: `Fetch every source and the price snapshot, then atomically replace the
briefing document. Unreachable sources are skipped; only a failure to write
the document makes the command fail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if output != "" {
				cfg.Output = output
			}

			store := openStore(cfg)
			if store != nil {
				defer store.Close()
			}
			builder, err := newBuilder(cfg, store)
			if err != nil {
				return err
			}

			doc, err := builder.Publish(cmd.Context(), cfg.Output)
			if err != nil {
				return fmt.Errorf("write briefing: %w", err)
			}

			total := 0
			for _, items := range doc.Sections {
				total += len(items)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (edition %d, %d items, %d assets)\n",
				cfg.Output, doc.Meta.Edition, total, len(doc.Snapshot.Items))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "artifact path (overrides config output)")
	return cmd
}
