package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. RETAIL_SERVER_PORT.
const EnvPrefix = "RETAIL"

type Config struct {
	Server   ServerConfig   `envconfig:"SERVER"`
	Data     DataConfig     `envconfig:"DATA"`
	Analysis AnalysisConfig `envconfig:"ANALYSIS"`
	Logger   LoggerConfig   `envconfig:"LOG"`
	Security SecurityConfig `envconfig:"SECURITY"`
}

type ServerConfig struct {
	Host            string        `envconfig:"HOST" default:"localhost"`
	Port            int           `envconfig:"PORT" default:"8084"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// DataConfig points at the sales extract. Loading happens lazily on first use
// unless EagerLoad is set.
type DataConfig struct {
	File        string        `envconfig:"FILE" default:"Test_Data.xlsx"`
	Sheet       string        `envconfig:"SHEET"`
	CacheDir    string        `envconfig:"CACHE_DIR" default:".cache"`
	UseCache    bool          `envconfig:"USE_CACHE" default:"true"`
	EagerLoad   bool          `envconfig:"EAGER_LOAD" default:"false"`
	LoadTimeout time.Duration `envconfig:"LOAD_TIMEOUT" default:"60s"`
}

type AnalysisConfig struct {
	DiscountThreshold float64 `envconfig:"DISCOUNT_THRESHOLD" default:"0.10"`
	MinPromoDays      int     `envconfig:"MIN_PROMO_DAYS" default:"2"`
	PromoSupplier     string  `envconfig:"PROMO_SUPPLIER" default:"BIDCO"`
	PriceSupplier     string  `envconfig:"PRICE_SUPPLIER" default:"BIDCO AFRICA LIMITED"`
}

type LoggerConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"json"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitRPS    int      `envconfig:"RATE_LIMIT_RPS" default:"100"`
	RateLimitBurst  int      `envconfig:"RATE_LIMIT_BURST" default:"10"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8084"`
	TrustedProxies  []string `envconfig:"TRUSTED_PROXIES" default:"127.0.0.1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Data.File == "" {
		return fmt.Errorf("data file path cannot be empty")
	}

	if c.Data.LoadTimeout <= 0 {
		return fmt.Errorf("data load timeout must be positive")
	}

	if c.Analysis.DiscountThreshold <= 0 || c.Analysis.DiscountThreshold >= 1 {
		return fmt.Errorf("discount threshold must be between 0 and 1, got %g", c.Analysis.DiscountThreshold)
	}

	if c.Analysis.MinPromoDays < 1 {
		return fmt.Errorf("minimum promo days must be at least 1, got %d", c.Analysis.MinPromoDays)
	}

	if c.Analysis.PriceSupplier == "" {
		return fmt.Errorf("price supplier cannot be empty")
	}

	validLogLevels := []string{"debug", "info", "warn", "warning", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
