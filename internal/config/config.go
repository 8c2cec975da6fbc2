package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// SymbolPlaceholder is replaced with the uppercase ticker in endpoint paths.
const SymbolPlaceholder = "{symbol}"

// Config holds all application configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig describes the analytics backend.
type APIConfig struct {
	BaseURL       string  `yaml:"base_url"`
	StockPath     string  `yaml:"stock_path"`
	SentimentPath string  `yaml:"sentiment_path"`
	Timeout       string  `yaml:"timeout"`
	RateLimit     float64 `yaml:"rate_limit"` // requests per second, shared by both endpoints
	Proxy         string  `yaml:"proxy"`
	UserAgent     string  `yaml:"user_agent"`
	Mock          bool    `yaml:"mock"` // serve canned data instead of calling the backend
}

// GetTimeout parses the transport timeout, falling back to 30s.
func (c *APIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

type DashboardConfig struct {
	DefaultSymbol string `yaml:"default_symbol"`
	RefreshCron   string `yaml:"refresh_cron"`
	ChartDir      string `yaml:"chart_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
	Output string `yaml:"output"` // file path; empty means stderr
}

// envOverrides maps VOLA_* environment variables onto the config.
type envOverrides struct {
	BaseURL       string  `envconfig:"BASE_URL"`
	RateLimit     float64 `envconfig:"RATE_LIMIT"`
	Proxy         string  `envconfig:"PROXY"`
	Mock          *bool   `envconfig:"MOCK"`
	DefaultSymbol string  `envconfig:"DEFAULT_SYMBOL"`
	RefreshCron   string  `envconfig:"REFRESH_CRON"`
	ChartDir      string  `envconfig:"CHART_DIR"`
	LogLevel      string  `envconfig:"LOG_LEVEL"`
	LogFormat     string  `envconfig:"LOG_FORMAT"`
	LogOutput     string  `envconfig:"LOG_OUTPUT"`
}

// Load reads config from a YAML file, then applies .env and environment overrides.
// A missing file is not an error; defaults cover every key.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()

	var ov envOverrides
	if err := envconfig.Process("VOLA", &ov); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	ov.apply(cfg)

	cfg.applyDefaults()
	return cfg, nil
}

func (ov *envOverrides) apply(cfg *Config) {
	if ov.BaseURL != "" {
		cfg.API.BaseURL = ov.BaseURL
	}
	if ov.RateLimit > 0 {
		cfg.API.RateLimit = ov.RateLimit
	}
	if ov.Proxy != "" {
		cfg.API.Proxy = ov.Proxy
	}
	if ov.Mock != nil {
		cfg.API.Mock = *ov.Mock
	}
	if ov.DefaultSymbol != "" {
		cfg.Dashboard.DefaultSymbol = ov.DefaultSymbol
	}
	if ov.RefreshCron != "" {
		cfg.Dashboard.RefreshCron = ov.RefreshCron
	}
	if ov.ChartDir != "" {
		cfg.Dashboard.ChartDir = ov.ChartDir
	}
	if ov.LogLevel != "" {
		cfg.Logging.Level = ov.LogLevel
	}
	if ov.LogFormat != "" {
		cfg.Logging.Format = ov.LogFormat
	}
	if ov.LogOutput != "" {
		cfg.Logging.Output = ov.LogOutput
	}
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8000"
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.StockPath == "" {
		c.API.StockPath = "/api/analyze/" + SymbolPlaceholder
	}
	if c.API.SentimentPath == "" {
		c.API.SentimentPath = "/api/sentiment/" + SymbolPlaceholder
	}
	if c.API.Timeout == "" {
		c.API.Timeout = "30s"
	}
	if c.API.RateLimit == 0 {
		c.API.RateLimit = 5
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = "vola-dashboard/1.0"
	}
	if c.Dashboard.DefaultSymbol == "" {
		c.Dashboard.DefaultSymbol = "AAPL"
	}
	c.Dashboard.DefaultSymbol = strings.ToUpper(strings.TrimSpace(c.Dashboard.DefaultSymbol))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
}

// Validate checks that all required fields are set and well formed.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if !strings.Contains(c.API.StockPath, SymbolPlaceholder) {
		return fmt.Errorf("api.stock_path must contain %s", SymbolPlaceholder)
	}
	if !strings.Contains(c.API.SentimentPath, SymbolPlaceholder) {
		return fmt.Errorf("api.sentiment_path must contain %s", SymbolPlaceholder)
	}
	if c.API.RateLimit <= 0 {
		return fmt.Errorf("api.rate_limit must be positive")
	}
	if c.API.Proxy != "" {
		if _, err := url.Parse(c.API.Proxy); err != nil {
			return fmt.Errorf("api.proxy: %w", err)
		}
	}
	if c.Dashboard.RefreshCron != "" {
		if _, err := CronParser.Parse(c.Dashboard.RefreshCron); err != nil {
			return fmt.Errorf("dashboard.refresh_cron: %w", err)
		}
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// CronParser matches the scheduler's cron.WithSeconds() field layout.
var CronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)
