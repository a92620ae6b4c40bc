package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// RateLimitConfig holds per-user throttling intervals. Typed messages and
// button presses are limited independently.
type RateLimitConfig struct {
	MessageIntervalMS  int  `yaml:"message_interval_ms" envconfig:"RATE_LIMIT_MESSAGE_INTERVAL_MS"`
	CallbackIntervalMS int  `yaml:"callback_interval_ms" envconfig:"RATE_LIMIT_CALLBACK_INTERVAL_MS"`
	Notify             bool `yaml:"notify" envconfig:"RATE_LIMIT_NOTIFY"`
}

// DatabaseConfig locates the embedded database file.
type DatabaseConfig struct {
	File          string `yaml:"file" envconfig:"DB_FILE"`
	MigrationsDir string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// PaymentConfig carries the public payment links shown during dialogues.
// Confirmation is a trusted button press; no gateway is integrated.
type PaymentConfig struct {
	RunOneTime   string `yaml:"run_onetime"`
	RunMonthly   string `yaml:"run_monthly"`
	TrailOneTime string `yaml:"trail_onetime"`
	TrailMonthly string `yaml:"trail_monthly"`
	Relay        string `yaml:"relay"`
	CampHalf     string `yaml:"camp_half"`
	CampFull     string `yaml:"camp_full"`
	PhoneInfo    string `yaml:"phone_info"`
}

// EventsConfig overrides live event parameters.
type EventsConfig struct {
	CampCapacity int `yaml:"camp_capacity" envconfig:"CAMP_CAPACITY"`
}

// WebConfig configures the read-only status server. Empty listen address
// disables it.
type WebConfig struct {
	Listen string `yaml:"listen" envconfig:"WEB_LISTEN"`
}

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Payments  PaymentConfig   `yaml:"payments"`
	Events    EventsConfig    `yaml:"events"`
	Web       WebConfig       `yaml:"web"`

	// BotVersion gates stale dialogue sessions: bump it and every user's
	// in-flight session is cleared on their next action.
	BotVersion string `yaml:"bot_version" envconfig:"BOT_VERSION"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and
// adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Database.File == "" {
		cfg.Database.File = "clubbot.db"
	}
	if cfg.Database.MigrationsDir == "" {
		cfg.Database.MigrationsDir = "migrations"
	}

	if cfg.RateLimit.MessageIntervalMS < 0 || cfg.RateLimit.CallbackIntervalMS < 0 {
		return fmt.Errorf("rate_limit intervals must be >= 0")
	}
	if cfg.RateLimit.MessageIntervalMS == 0 {
		cfg.RateLimit.MessageIntervalMS = 700
	}
	if cfg.RateLimit.CallbackIntervalMS == 0 {
		cfg.RateLimit.CallbackIntervalMS = 300
	}

	if cfg.Events.CampCapacity < 0 {
		return fmt.Errorf("events.camp_capacity must be >= 0")
	}

	if cfg.BotVersion == "" {
		cfg.BotVersion = "1.0.0"
	}

	return nil
}
