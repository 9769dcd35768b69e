package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/anime-shed/face-batch-inspector-go/internal/config"
	"github.com/anime-shed/face-batch-inspector-go/internal/container"
	"github.com/anime-shed/face-batch-inspector-go/internal/logger"
	"github.com/anime-shed/face-batch-inspector-go/internal/server"
)

func main() {
	// Load configuration; FACEBATCH_CONFIG optionally points at a TOML file
	cfg, err := config.Load(os.Getenv("FACEBATCH_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize dependency injection container
	c, err := container.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Wait for interrupt signal to gracefully shutdown the server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if err := serve(ctx, cfg, c); err != nil {
		stop()
		logger.WithError(err).Fatal("Server failed")
	}
	stop()
}

// application is the part of the container the server needs
type application interface {
	Handler() http.Handler
	Close() error
}

// serve runs the server and always closes the artifact sinks before returning
func serve(ctx context.Context, cfg *config.Config, c application) error {
	runErr := server.Run(ctx, cfg, c.Handler())
	if err := c.Close(); err != nil {
		logger.WithError(err).Error("Failed to close artifact sinks")
	}
	return runErr
}
