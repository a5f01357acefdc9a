package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSourcesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect the source catalogue",
	}
	cmd.AddCommand(newSourcesListCmd(opts))
	cmd.AddCommand(newSourcesExportCmd(opts))
	return cmd
}

func newSourcesListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every topic and its sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalogue(opts.cfg)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TOPIC\tLIMIT\tKIND\tLABEL\tURL")
			for _, sec := range cat {
				for _, src := range sec.Sources {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", sec.Topic, sec.Limit, src.Kind, src.Label, src.URL)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d topics, %d sources\n", len(cat), cat.Count())
			return nil
		},
	}
}

func newSourcesExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalogue as OPML",
		Long: `Export the effective catalogue as OPML. The file can be edited and named as
sources_file in the config to override the built-in catalogue.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalogue(opts.cfg)
			if err != nil {
				return err
			}
			data, err := cat.OPML("IANTEL Sources")
			if err != nil {
				return fmt.Errorf("export opml: %w", err)
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}
