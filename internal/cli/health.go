package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/bryan-buckman/iantel/internal/database"
	"github.com/bryan-buckman/iantel/internal/model"
	"github.com/spf13/cobra"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the outcome of the latest fetch of every source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			store, err := database.Open(cfg.Store.Driver, cfg.Store.DSN)
			if err != nil {
				return fmt.Errorf("open health store: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			lastBuild, err := store.GetSetting(model.SettingLastBuildAt)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				fmt.Fprintln(out, "No build recorded yet.")
			case err != nil:
				return fmt.Errorf("read last build: %w", err)
			default:
				edition, _ := store.GetSetting(model.SettingLastEdition)
				fmt.Fprintf(out, "Last build: %s (edition %s, %s)\n", lastBuild, edition, store.DatabaseType())
			}

			statuses, err := store.ListSourceStatus()
			if err != nil {
				return fmt.Errorf("list source status: %w", err)
			}
			if len(statuses) == 0 {
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "\nTOPIC\tSOURCE\tITEMS\tFETCHED\tERROR")
			failing := 0
			for _, st := range statuses {
				if st.LastError != "" {
					failing++
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					st.Topic, st.Label, st.ItemCount, st.LastFetched.UTC().Format(time.DateTime), st.LastError)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d sources, %d failing\n", len(statuses), failing)
			return nil
		},
	}
}
