// Package config loads iantel's configuration.
//
// Sources, lowest precedence first: built-in defaults, the YAML config file,
// a .env file in the working directory, and IANTEL_* environment variables
// (IANTEL_FETCH_TIMEOUT overrides fetch.timeout, and so on).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config file is named explicitly.
const DefaultFile = "iantel.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IANTEL"

type Config struct {
	Output      string        `mapstructure:"output" yaml:"output" validate:"required"`
	SourcesFile string        `mapstructure:"sources_file" yaml:"sources_file"`
	Fetch       FetchConfig   `mapstructure:"fetch" yaml:"fetch"`
	Prices      PricesConfig  `mapstructure:"prices" yaml:"prices"`
	Store       StoreConfig   `mapstructure:"store" yaml:"store"`
	Server      ServerConfig  `mapstructure:"server" yaml:"server"`
	Notify      NotifyConfig  `mapstructure:"notify" yaml:"notify"`
	Tracing     TracingConfig `mapstructure:"tracing" yaml:"tracing"`
	Log         LogConfig     `mapstructure:"log" yaml:"log"`
}

type FetchConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	UserAgent   string        `mapstructure:"user_agent" yaml:"user_agent" validate:"required"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency" validate:"min=1,max=32"`
}

type PricesConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" validate:"required,url"`
	Count    int    `mapstructure:"count" yaml:"count" validate:"min=1,max=250"`
	Timezone string `mapstructure:"timezone" yaml:"timezone" validate:"required"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn" yaml:"dsn" validate:"required"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"required"`
	// RebuildInterval enables periodic rebuilds in serve; 0 disables them.
	RebuildInterval time.Duration `mapstructure:"rebuild_interval" yaml:"rebuild_interval" validate:"gte=0"`
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`
}

type NotifyConfig struct {
	TelegramToken  string `mapstructure:"telegram_token" yaml:"telegram_token"`
	TelegramChatID string `mapstructure:"telegram_chat_id" yaml:"telegram_chat_id" validate:"required_with=TelegramToken"`
}

// Enabled reports whether Telegram announcements are configured.
func (n NotifyConfig) Enabled() bool {
	return n.TelegramToken != "" && n.TelegramChatID != ""
}

type TracingConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output", "data/briefing.json")
	v.SetDefault("sources_file", "")
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.user_agent", "iantel-bot")
	v.SetDefault("fetch.concurrency", 1)
	v.SetDefault("prices.endpoint", "https://api.coingecko.com/api/v3/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=8&page=1&sparkline=false&price_change_percentage=24h")
	v.SetDefault("prices.count", 8)
	v.SetDefault("prices.timezone", "Australia/Sydney")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "data/iantel.db")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rebuild_interval", time.Duration(0))
	v.SetDefault("server.base_url", "")
	v.SetDefault("notify.telegram_token", "")
	v.SetDefault("notify.telegram_chat_id", "")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. An explicitly named file must exist; the
// default file is optional.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// YAML renders the configuration with secrets masked.
func (c *Config) YAML() ([]byte, error) {
	masked := *c
	if masked.Notify.TelegramToken != "" {
		masked.Notify.TelegramToken = "********"
	}
	return yaml.Marshal(masked)
}
