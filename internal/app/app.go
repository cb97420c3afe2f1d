package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/alerting"
	"signal-scanner/internal/calendar"
	"signal-scanner/internal/config"
	"signal-scanner/internal/fetcher"
	"signal-scanner/internal/metrics"
	"signal-scanner/internal/model"
	"signal-scanner/internal/scheduler"
	"signal-scanner/internal/service"
	"signal-scanner/internal/status"
	"signal-scanner/internal/storage"
	"signal-scanner/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newCalendar() (*calendar.Calendar, error) {
	return calendar.New(a.Config.Sessions)
}

func (a *App) newBarFetcher() fetcher.BarFetcher {
	return fetcher.NewHTTPBars(fetcher.BarOptions{
		BaseURL:   a.Config.Provider.BaseURL,
		APIKey:    a.Config.Provider.APIKey,
		Timeout:   a.Config.Provider.RequestTimeout,
		UserAgent: a.Config.Provider.UserAgent,
	}, a.Logger)
}

func (a *App) newSentimentFetcher() fetcher.SentimentFetcher {
	if !a.Config.Sentiment.Enabled {
		return nil
	}
	return fetcher.NewHTTPSentiment(fetcher.SentimentOptions{
		BaseURL:      a.Config.Provider.BaseURL,
		APIKey:       a.Config.Provider.APIKey,
		Timeout:      a.Config.Provider.RequestTimeout,
		MaxHeadlines: a.Config.Sentiment.MaxHeadlines,
		Weight:       a.Config.Sentiment.Weight,
		MaxOffset:    a.Config.Sentiment.MaxOffset,
	}, a.Logger)
}

func (a *App) newScreener() fetcher.CandidateFetcher {
	if !a.Config.Screener.Enabled {
		return nil
	}
	return fetcher.NewHTTPScreener(fetcher.ScreenerOptions{
		BaseURL:      a.Config.Provider.BaseURL,
		APIKey:       a.Config.Provider.APIKey,
		Timeout:      a.Config.Provider.RequestTimeout,
		MaxPrice:     a.Config.Screener.MaxPrice,
		MaxMarketCap: a.Config.Screener.MaxMarketCap,
		MinVolume:    a.Config.Screener.MinVolume,
		Sessions:     []string{a.Config.Screener.Session},
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled || !a.Config.Alerting.Telegram.Enabled {
		return nil
	}
	cfg := a.Config.Alerting.Telegram
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, timeout, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the long-running scanning service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	cal, err := a.newCalendar()
	if err != nil {
		return err
	}

	var signalStore storage.SignalStore
	var cycleStore storage.CycleStore
	if store != nil {
		signalStore = store
		cycleStore = store
	}

	rec := metrics.New()
	notifier := a.newNotifier()

	svc := service.New(
		service.Options{
			Pacing:            a.Config.Scheduler.Pacing,
			ScreenerEvery:     a.Config.Scheduler.ScreenerEvery,
			ScreenerLimit:     a.Config.Screener.Limit,
			ScreenerSession:   a.Config.Screener.Session,
			PrimarySession:    a.Config.Scheduler.PrimarySession,
			SecondarySessions: a.Config.Scheduler.SecondarySessions,
		},
		cal,
		a.newBarFetcher(),
		a.newSentimentFetcher(),
		a.newScreener(),
		notifier,
		signalStore,
		cycleStore,
		model.New(a.Config.Model, a.Logger),
		a.Config.BuildUniverse(),
		a.Config.BuildPolicies(),
		a.Config.BuildIntervals(),
		rec,
		a.Logger,
	)

	var statusServer *status.Server
	if a.Config.Status.Enabled {
		statusServer = status.NewServer(status.Options{
			Addr:          a.Config.Status.Addr,
			RecentSignals: a.Config.Status.RecentSignals,
		}, cal, signalStore, cycleStore, a.Logger)
		statusServer.Start()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := statusServer.Stop(shutdownCtx); err != nil {
				a.Logger.Warn().Err(err).Msg("status server shutdown failed")
			}
		}()
	}

	svc.Announce(ctx, fmt.Sprintf("Signal scanner %s started, universe of %d assets", version.Version, len(a.Config.Universe)))

	sched := scheduler.New(scheduler.Options{
		PrimaryWait:   a.Config.Scheduler.PrimaryWait,
		SecondaryWait: a.Config.Scheduler.SecondaryWait,
		OffHoursWait:  a.Config.Scheduler.OffHoursWait,
		Cooldown:      a.Config.Scheduler.Cooldown,
		StartupDelay:  a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Msg("starting scanning service")
	err = sched.Run(ctx, svc.Cycle)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("scanning service stopped")
	return nil
}

// ScanOptions configure a one-shot evaluation.
type ScanOptions struct {
	Symbol   string
	Class    string
	Interval string
	Lookback time.Duration
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting stored signals.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
