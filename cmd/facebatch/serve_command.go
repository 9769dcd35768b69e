package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anime-shed/face-batch-inspector-go/internal/container"
	"github.com/anime-shed/face-batch-inspector-go/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP ingest and export API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			c, err := container.NewContainer(cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.Run(runCtx, cfg, c.Handler())
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on; defaults to server.port")
	return cmd
}
