package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/postsmith/internal/logger"
	"github.com/custodia-labs/postsmith/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP API server.
type Server struct {
	addr   string
	engine *gin.Engine
}

// NewServer builds the engine with recovery, request logging and, when a
// collector is given, request metrics and a /metrics endpoint.
func NewServer(addr string, h *Handler, collector *metrics.Collector) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	if collector != nil {
		engine.Use(collector.Middleware())
		engine.GET("/metrics", gin.WrapH(collector.Handler()))
	}
	h.RegisterRoutes(engine)

	return &Server{addr: addr, engine: engine}
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("HTTP API listening on %s", s.addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
