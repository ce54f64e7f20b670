// Package server exposes the batch orchestrator over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/chirag127/TinyImage/internal/batch"
	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/validate"
)

// FormatLister reports the output formats that can be produced right now.
type FormatLister interface {
	Formats() []codec.Format
}

// Options configures a Server.
type Options struct {
	Limits         validate.Limits
	AllowedOrigins []string
	// SessionTTL is how long finished batches are kept before the reaper
	// discards them. Zero disables reaping.
	SessionTTL time.Duration
	Formats    FormatLister
	Logger     *slog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	orch    *batch.Orchestrator
	limits  validate.Limits
	origins []string
	ttl     time.Duration
	formats FormatLister
	logger  *slog.Logger
}

// New creates a server over orch.
func New(orch *batch.Orchestrator, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		orch:    orch,
		limits:  opts.Limits.WithDefaults(),
		origins: opts.AllowedOrigins,
		ttl:     opts.SessionTTL,
		formats: opts.Formats,
		logger:  opts.Logger,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if gin.Mode() != gin.TestMode {
		router.Use(gin.Logger())
	}
	router.MaxMultipartMemory = 32 << 20

	if len(s.origins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = s.origins
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
		corsConfig.ExposeHeaders = exposedHeaders
		router.Use(cors.New(corsConfig))
	}

	s.setupRoutes(router)
	return router
}

func (s *Server) setupRoutes(router *gin.Engine) {
	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/compress", s.handleHealth)
		api.POST("/compress", s.handleCompress)

		batches := api.Group("/batches")
		{
			batches.POST("", s.handleSubmit)
			batches.GET("/:id", s.handleSession)
			batches.GET("/:id/stats", s.handleStats)
			batches.POST("/:id/cancel", s.handleCancel)
			batches.DELETE("/:id", s.handleDiscard)
			batches.GET("/:id/jobs/:jobId", s.handleJob)
			batches.GET("/:id/jobs/:jobId/download", s.handleDownload)
			batches.DELETE("/:id/jobs/:jobId/output", s.handleRelease)
		}
	}
}

// Run serves on addr until ctx ends, reaping expired sessions meanwhile,
// then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.ttl > 0 {
		go s.reap(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

func (s *Server) reap(ctx context.Context) {
	interval := s.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.orch.Reap(s.ttl)
		}
	}
}
