package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/chirag127/TinyImage/internal/batch"
	"github.com/chirag127/TinyImage/internal/bus"
	"github.com/chirag127/TinyImage/internal/config"
	"github.com/chirag127/TinyImage/internal/encoder"
	"github.com/chirag127/TinyImage/internal/server"
	"github.com/chirag127/TinyImage/internal/transcode"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP compression API",
	Long: `Starts the HTTP API. Settings come from the environment, after loading
.env.local or .env from the working directory or its parent:

  PORT, GIN_MODE, CORS_ALLOWED_ORIGINS, MAX_FILE_SIZE, MAX_BATCH_FILES,
  MAX_PIXELS, WORKERS, SESSION_TTL_MINUTES, NATS_URL, EVENT_SUBJECT, LOG_LEVEL

When NATS_URL is set every job transition is published as JSON on
<EVENT_SUBJECT>.<status>.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := newLogger(level)
	gin.SetMode(cfg.GinMode)

	registry := encoder.NewRegistry()
	engine := transcode.New(transcode.Options{MaxPixels: cfg.MaxPixels, Registry: registry})
	logger.Info("encoders ready", "available", formatNames(registry.Available()))

	opts := batch.Options{Workers: cfg.Workers, Logger: logger}
	var publisher *bus.Publisher
	if cfg.NATSURL != "" {
		nc, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			return err
		}
		publisher = bus.NewPublisher(nc, cfg.EventSubject)
		opts.Publisher = publisher
		logger.Info("publishing job events", "url", cfg.NATSURL, "subject", cfg.EventSubject)
	}
	orch := batch.New(engine, opts)

	srv := server.New(orch, server.Options{
		Limits:         cfg.Limits(),
		AllowedOrigins: cfg.AllowedOrigins(),
		SessionTTL:     cfg.SessionTTL(),
		Formats:        engine,
		Logger:         logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := srv.Run(ctx, ":"+cfg.Port)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Warn("worker shutdown incomplete", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("drain nats", "error", err)
		}
	}
	logger.Info("stopped")
	return runErr
}
