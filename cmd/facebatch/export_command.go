package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anime-shed/face-batch-inspector-go/internal/storage"
	"github.com/anime-shed/face-batch-inspector-go/pkg/models"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags
	var formats []string
	var outDir string
	var publish bool

	cmd := &cobra.Command{
		Use:   "export [submissions.ndjson ...]",
		Short: "Ingest result submissions and write export artifacts",
		Long: "Reads newline-delimited JSON result submissions (\"-\" for stdin), reconciles them into one\n" +
			"record per image and writes one artifact per requested format.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(formats) == 0 {
				formats = []string{cfg.Export.DefaultFormat}
			}
			dir := outDir
			if dir == "" {
				dir = cfg.Export.OutputDir
			}

			c, stats, err := ingestFiles(cmd.Context(), cfg, flags, args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer c.Close()

			sink, err := storage.NewFileSink(dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %d images (%d submissions, %d rejected, %d settled)\n",
				stats.RunID, stats.Images, stats.Submitted, stats.Rejected, stats.Settled)

			for _, raw := range formats {
				format := models.ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
				art, err := c.Service().Export(cmd.Context(), format)
				if err != nil {
					return err
				}
				location, err := sink.Publish(cmd.Context(), art)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-8s %s (%s)\n", art.Format, location, humanBytes(int64(art.Size())))

				if publish {
					resp, err := c.Service().Publish(cmd.Context(), format)
					if err != nil {
						return err
					}
					for _, name := range sortedKeys(resp.Locations) {
						fmt.Fprintf(out, "%-8s published to %s: %s\n", art.Format, name, resp.Locations[name])
					}
					for _, name := range sortedKeys(resp.Failures) {
						fmt.Fprintf(cmd.ErrOrStderr(), "%-8s publish to %s failed: %s\n", art.Format, name, resp.Failures[name])
					}
				}
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "Export formats (csv, json, enriched, xlsx, parquet); defaults to export.default_format")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory; defaults to export.output_dir")
	cmd.Flags().BoolVar(&publish, "publish", false, "Also push each artifact to the configured sinks")

	return cmd
}
