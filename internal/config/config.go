package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"MarketSeasons/internal/model"
)

// DefaultIndexTickers are the volatility indexes kept current by the scheduler.
var DefaultIndexTickers = []string{"^VIX", "^VIX9D", "^VIX3M", "^VIX6M", "^SKEW", "^SDEX", "^TDEX", "^VOLI"}

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr" validate:"required"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	DataSource struct {
		BaseURL      string   `yaml:"base_url" validate:"omitempty,url"`
		APIKey       string   `yaml:"api_key"`
		HistoryStart string   `yaml:"history_start" validate:"required,datetime=2006-01-02"`
		IndexTickers []string `yaml:"index_tickers" validate:"required,min=1,dive,required"`
		RateLimit    float64  `yaml:"rate_limit" validate:"gte=0"`
		Concurrency  int      `yaml:"concurrency" validate:"gte=1,lte=16"`
	} `yaml:"data_source"`
	Schedule struct {
		IndexRefreshCron string `yaml:"index_refresh_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	DefaultTicker string `yaml:"default_ticker" validate:"required"`
	LogLevel      string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Proxy         string `yaml:"proxy" validate:"omitempty,url"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
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

	// Environment variable overrides
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("INDEX_TICKERS"); v != "" {
		cfg.DataSource.IndexTickers = strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DataSource.RateLimit = f
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_INDEX_REFRESH"); v != "" {
		cfg.Schedule.IndexRefreshCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5004"
	}
	if cfg.DataSource.HistoryStart == "" {
		cfg.DataSource.HistoryStart = "2020-01-01"
	}
	if len(cfg.DataSource.IndexTickers) == 0 {
		cfg.DataSource.IndexTickers = append([]string(nil), DefaultIndexTickers...)
	}
	if cfg.DataSource.RateLimit == 0 {
		cfg.DataSource.RateLimit = 2
	}
	if cfg.DataSource.Concurrency == 0 {
		cfg.DataSource.Concurrency = 4
	}
	if cfg.Schedule.IndexRefreshCron == "" {
		cfg.Schedule.IndexRefreshCron = "0 30 6 * * 2-6"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/market.db"
	}
	if cfg.DefaultTicker == "" {
		cfg.DefaultTicker = "AAPL"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and that the cron spec parses.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Schedule.IndexRefreshCron != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Schedule.IndexRefreshCron); err != nil {
			return fmt.Errorf("schedule.index_refresh_cron: %w", err)
		}
	}
	return nil
}

// HistoryStart returns the parsed data_source.history_start.
func (c *Config) HistoryStart() time.Time {
	d, err := model.ParseDay(c.DataSource.HistoryStart)
	if err != nil {
		return time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return d
}

// TelegramEnabled reports whether refresh summaries should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
