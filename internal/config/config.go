package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Provider ProviderConfig `mapstructure:"provider"`
	Server   ServerConfig   `mapstructure:"server"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type TelegramConfig struct {
	BotToken       string `mapstructure:"bot_token"`
	AdminID        int64  `mapstructure:"admin_id"`
	PollingTimeout int    `mapstructure:"polling_timeout"`
}

type ProviderConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	PublicBaseURL string `mapstructure:"public_base_url"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	Port          int    `mapstructure:"port"`
}

type LedgerConfig struct {
	Path         string        `mapstructure:"path"`
	AllowedUsers []int64       `mapstructure:"allowed_users"`
	LookupCost   int           `mapstructure:"lookup_cost"`
	CallbackTTL  time.Duration `mapstructure:"callback_ttl"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	JSONFormat bool   `mapstructure:"json_format"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("telegram.polling_timeout", 60)
	v.SetDefault("provider.timeout", "2m")
	v.SetDefault("server.port", 8080)
	v.SetDefault("ledger.path", "data/ledger.json")
	v.SetDefault("ledger.lookup_cost", 1)
	v.SetDefault("ledger.callback_ttl", "15m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json_format", false)

	// Config file locations
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/historial-bot")

	// Environment variables
	v.SetEnvPrefix("HISTORIAL_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Without a configured secret the callback path changes every restart,
	// which is acceptable for ad-hoc deployments.
	if cfg.Server.WebhookSecret == "" {
		cfg.Server.WebhookSecret = uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required")
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	if c.Server.PublicBaseURL == "" {
		return fmt.Errorf("server.public_base_url is required")
	}
	if c.Ledger.LookupCost < 1 {
		return fmt.Errorf("ledger.lookup_cost must be at least 1")
	}
	return nil
}

// CallbackPath is the secret-bearing path the provider posts results to.
func (c *Config) CallbackPath() string {
	return "/callback/" + c.Server.WebhookSecret
}

// CallbackURL is the externally reachable webhook URL sent with each lookup.
func (c *Config) CallbackURL() string {
	return strings.TrimSuffix(c.Server.PublicBaseURL, "/") + c.CallbackPath()
}

// DefaultRecipient is the chat that receives callbacks whose correlation
// cannot be resolved. First configured allow-list entry, admin otherwise.
func (c *Config) DefaultRecipient() int64 {
	if len(c.Ledger.AllowedUsers) > 0 {
		return c.Ledger.AllowedUsers[0]
	}
	return c.Telegram.AdminID
}
