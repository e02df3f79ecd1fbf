package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ShepAlderson/copilot-orchestra/config"
	"github.com/ShepAlderson/copilot-orchestra/internal/usecase"
)

// Version of the API, reported on the root endpoint.
const Version = "1.0.0"

const serviceName = "Copilot Orchestra RAG API"

// Server exposes the RAG service over HTTP.
type Server struct {
	cfg    *config.Config
	svc    *usecase.Service
	router *gin.Engine
	http   *http.Server
	log    *slog.Logger
}

func New(cfg *config.Config, svc *usecase.Service, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		svc:    svc,
		router: gin.New(),
		log:    log,
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(log))
	s.router.Use(cors())
	s.registerRoutes()

	s.http = &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: s.router,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/", s.root)
	s.router.GET("/health", s.health)
	s.router.POST("/ingest", s.ingest)
	s.router.POST("/query", s.query)
	s.router.DELETE("/index", s.clearIndex)
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.cfg.HTTP.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("shutting down")
	return s.http.Shutdown(shutdownCtx)
}

// cors allows any origin, mirroring the permissive policy of the
// deployed service.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
