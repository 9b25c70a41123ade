package cli

import (
	"github.com/spf13/cobra"

	"github.com/gork-labs/gork/internal/server"
	"github.com/gork-labs/gork/pkg/gorkson"
)

func newSchemaCommand(a *app) *cobra.Command {
	var (
		output string
		title  string
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the OpenAPI document of the Item API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("title") {
				cfg.Server.Title = title
			}
			srv, err := server.New(cfg, a.logger)
			if err != nil {
				return err
			}

			f, err := formatFor("", output, cfg.WireFormat())
			if err != nil {
				return err
			}
			if _, ok := f.(gorkson.JSONFormat); ok {
				f = gorkson.JSONFormat{Indent: "  "}
			}

			data, err := srv.Spec().Encode(f)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file or '-' for stdout")
	cmd.Flags().StringVar(&title, "title", "Items", "API title")
	return cmd
}
