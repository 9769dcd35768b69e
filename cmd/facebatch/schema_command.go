package main

import (
	"github.com/spf13/cobra"

	"github.com/anime-shed/face-batch-inspector-go/internal/export"
)

func newSchemaCommand() *cobra.Command {
	var records bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the enriched export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			generate := export.EnrichedSchema
			if records {
				generate = export.RecordsSchema
			}
			doc, err := generate()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(doc); err != nil {
				return err
			}
			_, err = out.Write([]byte("\n"))
			return err
		},
	}

	cmd.Flags().BoolVar(&records, "records", false, "Print the schema of the raw records export instead")
	return cmd
}
