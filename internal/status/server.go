package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"signal-scanner/internal/calendar"
	"signal-scanner/internal/storage"
	"signal-scanner/internal/version"
)

// Options configure the read-only status server.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RecentSignals   int
}

// Server exposes scanner state over HTTP. It never mutates anything.
type Server struct {
	echo    *echo.Echo
	opts    Options
	cal     *calendar.Calendar
	signals storage.SignalStore
	cycles  storage.CycleStore
	logger  zerolog.Logger
	started time.Time
}

// NewServer wires routes against the calendar and the signal store.
func NewServer(opts Options, cal *calendar.Calendar, signals storage.SignalStore, cycles storage.CycleStore, logger zerolog.Logger) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.RecentSignals <= 0 {
		opts.RecentSignals = 50
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = opts.ReadTimeout
	e.Server.WriteTimeout = opts.WriteTimeout
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		opts:    opts,
		cal:     cal,
		signals: signals,
		cycles:  cycles,
		logger:  logger.With().Str("component", "status").Logger(),
		started: time.Now(),
	}

	e.GET("/health", s.handleHealth)
	e.GET("/api/stats", s.handleStats)
	e.GET("/api/signals", s.handleSignals)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Start serves in a background goroutine and returns immediately.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.opts.Addr).Msg("status server listening")
		if err := s.echo.Start(s.opts.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("status server stopped unexpectedly")
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	now := time.Now()
	out := map[string]any{
		"time":     now.UTC(),
		"sessions": s.cal.Status(now),
	}

	if s.cycles != nil {
		if last, err := s.cycles.LatestCycle(c.Request().Context()); err == nil && last != nil {
			out["last_cycle"] = last
		}
	}
	if s.signals != nil {
		if n, err := s.signals.CountSignalsSince(c.Request().Context(), now.Add(-24*time.Hour)); err == nil {
			out["signals_24h"] = n
		}
	}

	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSignals(c echo.Context) error {
	if s.signals == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "storage not configured"})
	}
	records, err := s.signals.ListRecentSignals(c.Request().Context(), s.opts.RecentSignals)
	if err != nil {
		s.logger.Error().Err(err).Msg("list recent signals")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, records)
}
