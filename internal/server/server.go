// Package server exposes the ops HTTP surface: a liveness endpoint for
// the hosting platform and a status endpoint with engine run statistics.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/playtrack-dev/playtrack/internal/engine"
)

// StatusProvider reports engine run statistics.
type StatusProvider interface {
	Status() engine.Status
}

type Server struct {
	Engine *gin.Engine
	Addr   string
	status StatusProvider
}

// New creates the ops server.
func New(addr string, mode string, status StatusProvider) *Server {
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	s := &Server{
		Engine: r,
		Addr:   addr,
		status: status,
	}

	r.GET("/health", s.healthHandler)
	r.GET("/status", s.statusHandler)

	return s
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.status.Status())
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Addr,
		Handler: s.Engine,
	}

	slog.Info("Starting HTTP server...", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
