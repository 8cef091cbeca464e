package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/akave-ai/postlogger/internal/config"
	"github.com/akave-ai/postlogger/internal/handler"
	"github.com/akave-ai/postlogger/internal/logwriter"
	"github.com/akave-ai/postlogger/internal/observability"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
	Logger zerolog.Logger
	Writer *logwriter.Writer
}

// New builds the Echo server and registers routes. nrApp may be nil.
func New(cfg *config.Config, logger zerolog.Logger, nrApp *newrelic.Application) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Server.IdleTimeout = cfg.Server.IdleTimeout

	e.Use(
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		observability.Middleware(nrApp),
		requestLogger(logger),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSAllowedOrigins,
			AllowMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		}),
	)

	writer := logwriter.New(cfg.Log.File, cfg.Log.Sync)
	post := &handler.PostHandler{
		Sink:     writer,
		MaxBytes: cfg.Log.MaxBytes,
		Logger:   logger,
		Now:      time.Now,
	}
	canned := &handler.CannedHandler{Now: time.Now}

	e.GET("/api/hello", canned.Hello)
	e.GET("/api/ir-diff", canned.IRDiff)
	e.GET("/*", canned.Echo)
	e.POST("/*", post.Receive)

	return &Server{Echo: e, Config: cfg, Logger: logger, Writer: writer}
}

// requestLogger emits one zerolog event per request.
func requestLogger(logger zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil {
				ev = logger.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// Start starts the HTTP server. Blocks until the context is cancelled or the server fails.
// On context cancel it returns once in-flight requests have finished.
func (s *Server) Start(ctx context.Context) error {
	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr <- s.Shutdown(shutdownCtx)
	}()

	s.Logger.Info().
		Str("addr", s.Config.Server.Addr()).
		Str("logfile", s.Writer.Path()).
		Int64("max_bytes", s.Config.Log.MaxBytes).
		Msg("listening")

	err := s.Echo.Start(s.Config.Server.Addr())
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if ctx.Err() != nil {
		return <-shutdownErr
	}
	return nil
}

// Shutdown gracefully stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
