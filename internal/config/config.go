package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	DB         DBConfig         `mapstructure:"db"`
	Cron       CronConfig       `mapstructure:"cron"`
	Gamma      GammaConfig      `mapstructure:"gamma"`
	ClobREST   ClobRESTConfig   `mapstructure:"clob_rest"`
	ClobStream ClobStreamConfig `mapstructure:"clob_stream"`
	Yahoo      YahooConfig      `mapstructure:"yahoo"`

	Pricing     PricingConfig      `mapstructure:"pricing"`
	Volatility  VolatilityConfig   `mapstructure:"volatility"`
	Ranking     RankingConfig      `mapstructure:"ranking"`
	Refresh     RefreshConfig      `mapstructure:"refresh"`
	Instruments []InstrumentConfig `mapstructure:"instruments"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Refresh       string `mapstructure:"refresh"`
	RunsRetention string `mapstructure:"runs_retention"`
}

type GammaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ClobRESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ClobStreamConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	MaxAssets       int           `mapstructure:"max_assets"`
}

type YahooConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Range    string        `mapstructure:"range"`
	Interval string        `mapstructure:"interval"`
}

type PricingConfig struct {
	RiskFreeRate       float64 `mapstructure:"risk_free_rate"`
	TradingDaysPerYear float64 `mapstructure:"trading_days_per_year"`
	ResolutionDate     string  `mapstructure:"resolution_date"`
}

// ResolutionTime parses the configured market resolution date (RFC3339).
func (p PricingConfig) ResolutionTime() (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, p.ResolutionDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid pricing.resolution_date %q: %w", p.ResolutionDate, err)
	}
	return ts, nil
}

type VolatilityConfig struct {
	MinClosePoints int     `mapstructure:"min_close_points"`
	MinReturns     int     `mapstructure:"min_returns"`
	MinAnnualized  float64 `mapstructure:"min_annualized"`
	MaxAnnualized  float64 `mapstructure:"max_annualized"`
}

type RankingConfig struct {
	TopN           int     `mapstructure:"top_n"`
	ROIChangePct   float64 `mapstructure:"roi_change_pct"`
	PriceChange    float64 `mapstructure:"price_change"`
	KellyChangePct float64 `mapstructure:"kelly_change_pct"`
}

type RefreshConfig struct {
	StockCacheTTL time.Duration `mapstructure:"stock_cache_ttl"`
	RunRetention  time.Duration `mapstructure:"run_retention"`
}

type InstrumentConfig struct {
	Ticker            string  `mapstructure:"ticker"`
	Name              string  `mapstructure:"name"`
	Slug              string  `mapstructure:"slug"`
	DividendYield     float64 `mapstructure:"dividend_yield"`
	DefaultVolatility float64 `mapstructure:"default_volatility"`
	DefaultPrice      float64 `mapstructure:"default_price"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.refresh", "@every 30s")
	v.SetDefault("cron.runs_retention", "@every 1h")
	v.SetDefault("gamma.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("gamma.timeout", "15s")
	v.SetDefault("clob_rest.base_url", "https://clob.polymarket.com")
	v.SetDefault("clob_rest.timeout", "15s")
	v.SetDefault("clob_stream.enabled", false)
	v.SetDefault("clob_stream.url", "")
	v.SetDefault("clob_stream.refresh_interval", "30s")
	v.SetDefault("clob_stream.max_assets", 200)
	v.SetDefault("yahoo.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("yahoo.timeout", "15s")
	v.SetDefault("yahoo.range", "3mo")
	v.SetDefault("yahoo.interval", "1d")
	v.SetDefault("pricing.risk_free_rate", 0.045)
	v.SetDefault("pricing.trading_days_per_year", 252)
	v.SetDefault("pricing.resolution_date", "2026-01-30T21:00:00Z")
	v.SetDefault("volatility.min_close_points", 20)
	v.SetDefault("volatility.min_returns", 15)
	v.SetDefault("volatility.min_annualized", 0.10)
	v.SetDefault("volatility.max_annualized", 2.0)
	v.SetDefault("ranking.top_n", 20)
	v.SetDefault("ranking.roi_change_pct", 0.5)
	v.SetDefault("ranking.price_change", 0.001)
	v.SetDefault("ranking.kelly_change_pct", 0.5)
	v.SetDefault("refresh.stock_cache_ttl", "5m")
	v.SetDefault("refresh.run_retention", "24h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
