// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Env         string
	Port        string
	FrontendURL string
	PageSize    int
	SessionTTL  time.Duration

	Log             LogConfig
	Telegram        TelegramConfig
	ERP             ERPConfig
	NLU             NLUConfig
	Redis           RedisConfig
	Cache           CacheConfig
	RateLimit       RateLimitConfig
	Email           EmailConfig
	ConversationLog ConversationLogConfig
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// TelegramConfig configures the Telegram transport. An empty token disables it.
type TelegramConfig struct {
	Token         string
	Webhook       bool
	WebhookDomain string
	WebhookPath   string
}

// ERPConfig holds ERPNext credentials.
type ERPConfig struct {
	URL       string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// NLUConfig configures the Rasa compatible NLU service.
type NLUConfig struct {
	Enabled bool
	URL     string
	Token   string
	Timeout time.Duration
}

// RedisConfig is only used when Enabled is set.
type RedisConfig struct {
	Enabled bool
	URL     string
}

// CacheConfig controls the ERP read cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	MaxKeys int
}

// RateLimitConfig bounds chat requests per user.
type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int
}

// EmailConfig holds SMTP settings. Empty User disables sending.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:         v.GetString("APP_ENV"),
		Port:        v.GetString("PORT"),
		FrontendURL: v.GetString("FRONTEND_URL"),
		PageSize:    v.GetInt("PAGE_SIZE"),
		SessionTTL:  v.GetDuration("SESSION_TTL"),
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
		Telegram: TelegramConfig{
			Token:         v.GetString("TELEGRAM_BOT_TOKEN"),
			Webhook:       v.GetBool("ENABLE_WEBHOOK"),
			WebhookDomain: strings.TrimRight(v.GetString("TELEGRAM_WEBHOOK_DOMAIN"), "/"),
			WebhookPath:   v.GetString("TELEGRAM_WEBHOOK_PATH"),
		},
		ERP: ERPConfig{
			URL:       strings.TrimRight(v.GetString("ERPNEXT_URL"), "/"),
			APIKey:    v.GetString("ERPNEXT_API_KEY"),
			APISecret: v.GetString("ERPNEXT_API_SECRET"),
			Timeout:   v.GetDuration("ERP_TIMEOUT"),
		},
		NLU: NLUConfig{
			Enabled: v.GetBool("ENABLE_RASA"),
			URL:     strings.TrimRight(v.GetString("RASA_URL"), "/"),
			Token:   v.GetString("RASA_TOKEN"),
			Timeout: v.GetDuration("NLU_TIMEOUT"),
		},
		Redis: RedisConfig{
			Enabled: v.GetBool("ENABLE_REDIS"),
			URL:     v.GetString("REDIS_URL"),
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("ENABLE_CACHE"),
			TTL:     time.Duration(v.GetInt("CACHE_TTL")) * time.Second,
			MaxKeys: v.GetInt("CACHE_MAX_KEYS"),
		},
		RateLimit: RateLimitConfig{
			Window:      time.Duration(v.GetInt("RATE_LIMIT_WINDOW")) * time.Millisecond,
			MaxRequests: v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
		},
		Email: EmailConfig{
			Host:     v.GetString("EMAIL_HOST"),
			Port:     v.GetInt("EMAIL_PORT"),
			User:     v.GetString("EMAIL_USER"),
			Password: v.GetString("EMAIL_PASSWORD"),
			From:     v.GetString("EMAIL_FROM"),
			FromName: v.GetString("EMAIL_FROM_NAME"),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:   v.GetBool("CONVERSATION_LOG_ENABLED"),
			Dir:       v.GetString("CONVERSATION_LOG_DIR"),
			QueueSize: v.GetInt("CONVERSATION_LOG_QUEUE_SIZE"),
		},
	}
	if cfg.Email.From == "" {
		cfg.Email.From = cfg.Email.User
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("PAGE_SIZE", 10)
	v.SetDefault("SESSION_TTL", 24*time.Hour)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("TELEGRAM_WEBHOOK_PATH", "/telegram/webhook")
	v.SetDefault("ENABLE_WEBHOOK", false)
	v.SetDefault("ERP_TIMEOUT", 30*time.Second)
	v.SetDefault("ENABLE_RASA", true)
	v.SetDefault("RASA_URL", "http://localhost:5005")
	v.SetDefault("NLU_TIMEOUT", 10*time.Second)
	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("ENABLE_CACHE", true)
	v.SetDefault("CACHE_TTL", 3600)
	v.SetDefault("CACHE_MAX_KEYS", 1000)
	v.SetDefault("RATE_LIMIT_WINDOW", 60000)
	v.SetDefault("RATE_LIMIT_MAX_REQUESTS", 20)
	v.SetDefault("EMAIL_HOST", "smtp.gmail.com")
	v.SetDefault("EMAIL_PORT", 587)
	v.SetDefault("EMAIL_FROM_NAME", "ERP Assistant")
	v.SetDefault("CONVERSATION_LOG_ENABLED", false)
	v.SetDefault("CONVERSATION_LOG_DIR", "./data/logs/conversations")
	v.SetDefault("CONVERSATION_LOG_QUEUE_SIZE", 1000)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT cannot be empty"))
	}
	if c.ERP.URL == "" {
		errs = append(errs, errors.New("ERPNEXT_URL is required"))
	} else if u, err := url.Parse(c.ERP.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("ERPNEXT_URL is not a valid URL: %q", c.ERP.URL))
	}
	if c.ERP.APIKey == "" {
		errs = append(errs, errors.New("ERPNEXT_API_KEY is required"))
	}
	if c.ERP.APISecret == "" {
		errs = append(errs, errors.New("ERPNEXT_API_SECRET is required"))
	}
	if c.ERP.Timeout <= 0 {
		errs = append(errs, errors.New("ERP_TIMEOUT must be > 0"))
	}
	if c.NLU.Enabled && c.NLU.URL == "" {
		errs = append(errs, errors.New("RASA_URL is required when ENABLE_RASA is set"))
	}
	if c.NLU.Timeout <= 0 {
		errs = append(errs, errors.New("NLU_TIMEOUT must be > 0"))
	}
	if c.Telegram.Webhook && c.Telegram.WebhookDomain == "" {
		errs = append(errs, errors.New("TELEGRAM_WEBHOOK_DOMAIN is required when ENABLE_WEBHOOK is set"))
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		errs = append(errs, errors.New("REDIS_URL is required when ENABLE_REDIS is set"))
	}
	if c.PageSize <= 0 {
		errs = append(errs, errors.New("PAGE_SIZE must be > 0"))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL cannot be negative"))
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW and RATE_LIMIT_MAX_REQUESTS must be > 0"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %s", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("invalid LOG_FORMAT: %s, must be 'json' or 'text'", c.Log.Format))
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		errs = append(errs, errors.New("CONVERSATION_LOG_DIR cannot be empty"))
	}
	if c.ConversationLog.QueueSize <= 0 {
		errs = append(errs, errors.New("CONVERSATION_LOG_QUEUE_SIZE must be > 0"))
	}

	return errors.Join(errs...)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// EmailEnabled reports whether SMTP credentials are present.
func (c *Config) EmailEnabled() bool {
	return c.Email.User != "" && c.Email.Password != ""
}

// WebhookURL is the public URL Telegram posts updates to.
func (c *Config) WebhookURL() string {
	return c.Telegram.WebhookDomain + c.Telegram.WebhookPath
}
