// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetMigrationsEnabled() bool
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// ContentConfig provides links rendered into outbound copy.
type ContentConfig interface {
	GetAppBaseURL() string
	GetWhatsAppContactURL() string
}

// RateLimitConfig provides settings for intake admission control.
type RateLimitConfig interface {
	GetRateLimitBackend() string
	GetRateLimitMax() int
	GetRateLimitWindow() time.Duration
}

// RedisConfig provides connection settings for Redis-backed components.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq scheduler process.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetDispatchCron() string
}

// DispatchConfig provides settings for follow-up dispatch runs.
type DispatchConfig interface {
	GetDispatchSecret() string
	GetDispatchTimeout() time.Duration
	GetDispatchLockTTL() time.Duration
	GetDispatchSendInterval() time.Duration
}

// AnalyticsConfig provides settings for analytics sinks.
type AnalyticsConfig interface {
	GetPostHogAPIKey() string
	GetPostHogHost() string
	GetAnalyticsAMQPURL() string
	GetAnalyticsAMQPExchange() string
}

// PhoneConfig provides the region used to parse local phone numbers.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	HTTPAddr              string
	DatabaseURL           string
	MigrationsEnabled     bool
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	AppBaseURL            string
	WhatsAppContactURL    string
	EmailEnabled          bool
	EmailProvider         string
	BrevoAPIKey           string
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	RateLimitBackend      string
	RateLimitMax          int
	RateLimitWindow       time.Duration
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	DispatchCron          string
	DispatchSecret        string
	DispatchTimeout       time.Duration
	DispatchLockTTL       time.Duration
	DispatchSendInterval  time.Duration
	PostHogAPIKey         string
	PostHogHost           string
	AnalyticsAMQPURL      string
	AnalyticsAMQPExchange string
	PhoneDefaultRegion    string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetMigrationsEnabled() bool { return c.MigrationsEnabled }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailProvider() string    { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// ContentConfig implementation
func (c *Config) GetAppBaseURL() string         { return c.AppBaseURL }
func (c *Config) GetWhatsAppContactURL() string { return c.WhatsAppContactURL }

// RateLimitConfig implementation
func (c *Config) GetRateLimitBackend() string       { return c.RateLimitBackend }
func (c *Config) GetRateLimitMax() int              { return c.RateLimitMax }
func (c *Config) GetRateLimitWindow() time.Duration { return c.RateLimitWindow }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }
func (c *Config) GetDispatchCron() string   { return c.DispatchCron }

// DispatchConfig implementation
func (c *Config) GetDispatchSecret() string              { return c.DispatchSecret }
func (c *Config) GetDispatchTimeout() time.Duration      { return c.DispatchTimeout }
func (c *Config) GetDispatchLockTTL() time.Duration      { return c.DispatchLockTTL }
func (c *Config) GetDispatchSendInterval() time.Duration { return c.DispatchSendInterval }

// AnalyticsConfig implementation
func (c *Config) GetPostHogAPIKey() string         { return c.PostHogAPIKey }
func (c *Config) GetPostHogHost() string           { return c.PostHogHost }
func (c *Config) GetAnalyticsAMQPURL() string      { return c.AnalyticsAMQPURL }
func (c *Config) GetAnalyticsAMQPExchange() string { return c.AnalyticsAMQPExchange }

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")
	emailProvider := strings.ToLower(getEnv("EMAIL_PROVIDER", "brevo"))

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		MigrationsEnabled:     strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "true"),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		AppBaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
		WhatsAppContactURL:    getEnv("WHATSAPP_CONTACT_URL", ""),
		EmailEnabled:          emailEnabled,
		EmailProvider:         emailProvider,
		BrevoAPIKey:           getEnv("BREVO_API_KEY", ""),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Leadflow"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		RateLimitBackend:      strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "memory")),
		RateLimitMax:          mustInt(getEnv("RATE_LIMIT_MAX", "3")),
		RateLimitWindow:       mustDuration(getEnv("RATE_LIMIT_WINDOW", "15m")),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "2")),
		DispatchCron:          getEnv("DISPATCH_CRON", "@every 1h"),
		DispatchSecret:        getEnv("DISPATCH_SECRET", ""),
		DispatchTimeout:       mustDuration(getEnv("DISPATCH_TIMEOUT", "5m")),
		DispatchLockTTL:       mustDuration(getEnv("DISPATCH_LOCK_TTL", "10m")),
		DispatchSendInterval:  mustDuration(getEnv("DISPATCH_SEND_INTERVAL", "100ms")),
		PostHogAPIKey:         getEnv("POSTHOG_API_KEY", ""),
		PostHogHost:           getEnv("POSTHOG_HOST", "https://app.posthog.com"),
		AnalyticsAMQPURL:      getEnv("ANALYTICS_AMQP_URL", ""),
		AnalyticsAMQPExchange: getEnv("ANALYTICS_AMQP_EXCHANGE", "leadflow.analytics"),
		PhoneDefaultRegion:    strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "MX")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if err := cfg.validateEmail(); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}
	if cfg.RateLimitBackend == "redis" && cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required when RATE_LIMIT_BACKEND is redis")
	}
	if cfg.DispatchTimeout <= 0 || cfg.DispatchLockTTL <= 0 {
		return nil, fmt.Errorf("DISPATCH_TIMEOUT and DISPATCH_LOCK_TTL must be positive")
	}
	if cfg.DispatchLockTTL <= cfg.DispatchTimeout {
		return nil, fmt.Errorf("DISPATCH_LOCK_TTL (%s) must be longer than DISPATCH_TIMEOUT (%s)", cfg.DispatchLockTTL, cfg.DispatchTimeout)
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func (c *Config) validateEmail() error {
	if !c.EmailEnabled {
		return nil
	}
	switch c.EmailProvider {
	case "brevo":
		if c.BrevoAPIKey == "" {
			return fmt.Errorf("BREVO_API_KEY is required when EMAIL_PROVIDER is brevo")
		}
	case "smtp":
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER is smtp")
		}
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.EmailProvider)
	}
	if c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
