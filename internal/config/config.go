package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"signal-scanner/internal/calendar"
	"signal-scanner/internal/gate"
	"signal-scanner/internal/logging"
	"signal-scanner/internal/market"
	"signal-scanner/internal/model"
	"signal-scanner/internal/service"
	"signal-scanner/internal/storage"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig                 `mapstructure:"app"`
	Logging   logging.Config            `mapstructure:"logging"`
	Database  storage.DatabaseConfig    `mapstructure:"database"`
	Scheduler SchedulerConfig           `mapstructure:"scheduler"`
	Provider  ProviderConfig            `mapstructure:"provider"`
	Sentiment SentimentConfig           `mapstructure:"sentiment"`
	Screener  ScreenerConfig            `mapstructure:"screener"`
	Model     model.Config              `mapstructure:"model"`
	Alerting  AlertingConfig            `mapstructure:"alerting"`
	Status    StatusConfig              `mapstructure:"status"`
	Sessions  []calendar.SessionConfig  `mapstructure:"sessions"`
	Universe  []AssetConfig             `mapstructure:"universe"`
	Policies  map[string]PolicyConfig   `mapstructure:"policies"`
	Intervals map[string]IntervalConfig `mapstructure:"intervals"`
	Export    ExportConfig              `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SchedulerConfig governs scan cadence.
type SchedulerConfig struct {
	PrimaryWait   time.Duration `mapstructure:"primary_wait"`
	SecondaryWait time.Duration `mapstructure:"secondary_wait"`
	OffHoursWait  time.Duration `mapstructure:"off_hours_wait"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
	Pacing        time.Duration `mapstructure:"pacing"`
	ScreenerEvery int           `mapstructure:"screener_every"`
	// PrimarySession drives the shortest wait tier; SecondarySessions the
	// middle one.
	PrimarySession    string   `mapstructure:"primary_session"`
	SecondarySessions []string `mapstructure:"secondary_sessions"`
}

// ProviderConfig locates the market data API.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// SentimentConfig tunes the headline polarity adjustment.
type SentimentConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	MaxHeadlines int     `mapstructure:"max_headlines"`
	Weight       float64 `mapstructure:"weight"`
	MaxOffset    float64 `mapstructure:"max_offset"`
}

// ScreenerConfig tunes micro-cap candidate discovery.
type ScreenerConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Limit        int     `mapstructure:"limit"`
	MaxPrice     float64 `mapstructure:"max_price"`
	MaxMarketCap int64   `mapstructure:"max_market_cap"`
	MinVolume    int64   `mapstructure:"min_volume"`
	Session      string  `mapstructure:"session"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StatusConfig controls the read-only HTTP server.
type StatusConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Addr          string `mapstructure:"addr"`
	RecentSignals int    `mapstructure:"recent_signals"`
}

// AssetConfig declares one scan universe member.
type AssetConfig struct {
	Symbol   string   `mapstructure:"symbol"`
	Name     string   `mapstructure:"name"`
	Class    string   `mapstructure:"class"`
	Sessions []string `mapstructure:"sessions"`
}

// PolicyConfig is the per-class signal gate, keyed by asset class tag.
type PolicyConfig struct {
	Threshold    float64  `mapstructure:"threshold"`
	RSIMin       float64  `mapstructure:"rsi_min"`
	RSIMax       float64  `mapstructure:"rsi_max"`
	MinRelVolume float64  `mapstructure:"min_rel_volume"`
	Quorum       int      `mapstructure:"quorum"`
	StrictTrend  bool     `mapstructure:"strict_trend"`
	Advisory     []string `mapstructure:"advisory"`
}

// IntervalConfig is the per-class bar request shape.
type IntervalConfig struct {
	Interval string        `mapstructure:"interval"`
	Lookback time.Duration `mapstructure:"lookback"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SIGSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sigscan")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.primary_wait", "30m")
	v.SetDefault("scheduler.secondary_wait", "40m")
	v.SetDefault("scheduler.off_hours_wait", "60m")
	v.SetDefault("scheduler.cooldown", "5m")
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.pacing", "1500ms")
	v.SetDefault("scheduler.screener_every", 3)
	v.SetDefault("scheduler.primary_session", "nyse")
	v.SetDefault("scheduler.secondary_sessions", []string{"bvc"})

	v.SetDefault("provider.base_url", "https://financialmodelingprep.com")
	v.SetDefault("provider.request_timeout", "15s")
	v.SetDefault("provider.user_agent", "sigscan/1.0")

	v.SetDefault("sentiment.enabled", true)
	v.SetDefault("sentiment.max_headlines", 3)
	v.SetDefault("sentiment.weight", 0.08)
	v.SetDefault("sentiment.max_offset", 0.2)

	v.SetDefault("screener.enabled", true)
	v.SetDefault("screener.limit", 10)
	v.SetDefault("screener.max_price", 3.0)
	v.SetDefault("screener.max_market_cap", int64(500_000_000))
	v.SetDefault("screener.min_volume", int64(5_000_000))
	v.SetDefault("screener.session", "nyse")

	v.SetDefault("model.trees", 100)
	v.SetDefault("model.max_depth", 8)
	v.SetDefault("model.seed", int64(42))
	v.SetDefault("model.train_fraction", 0.85)
	v.SetDefault("model.min_rows", 10)
	v.SetDefault("model.predict_tail", 3)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("status.enabled", true)
	v.SetDefault("status.addr", ":8090")
	v.SetDefault("status.recent_signals", 50)

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// applyFallbacks fills the structured tables viper defaults cannot express.
func (c *Config) applyFallbacks() {
	if len(c.Sessions) == 0 {
		c.Sessions = DefaultSessions()
	}
	if len(c.Universe) == 0 {
		c.Universe = DefaultUniverse()
	}
	if len(c.Policies) == 0 {
		c.Policies = DefaultPolicies()
	}
	if len(c.Intervals) == 0 {
		c.Intervals = DefaultIntervals()
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.PrimaryWait <= 0 || c.Scheduler.SecondaryWait <= 0 || c.Scheduler.OffHoursWait <= 0 {
		return fmt.Errorf("scheduler wait tiers must be greater than zero")
	}
	if c.Scheduler.Pacing < 0 {
		return fmt.Errorf("scheduler.pacing cannot be negative")
	}
	if c.Scheduler.ScreenerEvery <= 0 {
		return fmt.Errorf("scheduler.screener_every must be greater than zero")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	for class, p := range c.Policies {
		if p.Threshold < 0 || p.Threshold > 1 {
			return fmt.Errorf("policies.%s.threshold must be within [0, 1]", class)
		}
		if p.RSIMin >= p.RSIMax {
			return fmt.Errorf("policies.%s: rsi_min must be below rsi_max", class)
		}
		if p.Quorum < 0 || p.Quorum > 4 {
			return fmt.Errorf("policies.%s.quorum must be within [0, 4]", class)
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// BuildUniverse converts the configured universe into market assets.
func (c *Config) BuildUniverse() []market.Asset {
	assets := make([]market.Asset, 0, len(c.Universe))
	for _, a := range c.Universe {
		assets = append(assets, market.Asset{
			Symbol:   a.Symbol,
			Name:     a.Name,
			Class:    market.ParseAssetClass(a.Class),
			Sessions: a.Sessions,
		})
	}
	return assets
}

// BuildPolicies converts the policy table into gate policies keyed by class.
func (c *Config) BuildPolicies() map[market.AssetClass]gate.Policy {
	policies := make(map[market.AssetClass]gate.Policy, len(c.Policies))
	for class, p := range c.Policies {
		advisory := make([]gate.Condition, 0, len(p.Advisory))
		for _, a := range p.Advisory {
			advisory = append(advisory, gate.Condition(a))
		}
		policies[market.ParseAssetClass(class)] = gate.Policy{
			ProbabilityThreshold: p.Threshold,
			RSIMin:               p.RSIMin,
			RSIMax:               p.RSIMax,
			MinRelVolume:         p.MinRelVolume,
			Quorum:               p.Quorum,
			StrictTrend:          p.StrictTrend,
			Advisory:             advisory,
		}
	}
	return policies
}

// BuildIntervals converts the interval table keyed by class.
func (c *Config) BuildIntervals() map[market.AssetClass]service.IntervalSpec {
	intervals := make(map[market.AssetClass]service.IntervalSpec, len(c.Intervals))
	for class, spec := range c.Intervals {
		intervals[market.ParseAssetClass(class)] = service.IntervalSpec{
			Interval: spec.Interval,
			Lookback: spec.Lookback,
		}
	}
	return intervals
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
