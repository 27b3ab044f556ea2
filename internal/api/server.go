package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/cost"
	"github.com/philipparndt/partquote/pkg/surrogate"
)

const shutdownTimeout = 10 * time.Second

// Dependencies holds everything the server needs
type Dependencies struct {
	Advisor         *advisor.Advisor
	Backend         *surrogate.Backend
	History         HistoryStore
	DefaultMaterial string
	RunTTL          time.Duration
	BodyLimit       string
	Version         string
	Logger          zerolog.Logger // the zero Logger discards
}

// Server is the HTTP API
type Server struct {
	echo    *echo.Echo
	handler *Handler
	runs    *Registry
	ttl     time.Duration
	logger  zerolog.Logger
}

// New creates the server and registers its routes
func New(deps Dependencies) *Server {
	logger := deps.Logger
	if deps.DefaultMaterial == "" {
		deps.DefaultMaterial = cost.DefaultMaterial
	}
	if deps.RunTTL <= 0 {
		deps.RunTTL = time.Hour
	}

	var recorder Recorder
	if deps.History != nil {
		recorder = deps.History
	}
	runs := NewRegistry(deps.Backend, deps.Advisor, recorder, deps.RunTTL, logger)
	h := &Handler{
		advisor:         deps.Advisor,
		runs:            runs,
		history:         deps.History,
		defaultMaterial: deps.DefaultMaterial,
		version:         deps.Version,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/api/health"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	if deps.BodyLimit != "" {
		e.Use(middleware.BodyLimit(deps.BodyLimit))
	}

	RegisterRoutes(e, h)

	return &Server{echo: e, handler: h, runs: runs, ttl: deps.RunTTL, logger: logger}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler) {
	g := e.Group("/api")
	g.GET("/health", h.HandleHealth)
	g.GET("/materials", h.HandleMaterials)
	g.POST("/estimate-cost", h.HandleEstimateCost)
	g.GET("/history", h.HandleHistory)

	g.POST("/runs", h.HandleCreateRun)
	g.GET("/runs/:id", h.HandleGetRun)
	g.GET("/runs/:id/mesh", h.HandleGetRunMesh)
	g.DELETE("/runs/:id", h.HandleDeleteRun)
}

// Echo returns the underlying echo instance
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Runs returns the run registry
func (s *Server) Runs() *Registry {
	return s.runs
}

// ListenAndServe serves on address until ctx ends, then shuts down
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.runs.RunCleanup(cleanupCtx, s.cleanupInterval())

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", address).Msg("listening")
		errCh <- s.echo.Start(address)
	}()

	select {
	case err := <-errCh:
		s.runs.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.runs.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) cleanupInterval() time.Duration {
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}
