package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	EmailProviderResend = "resend"
	EmailProviderSMTP   = "smtp"
)

// Config holds application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	CORS       CORSConfig
	Email      EmailConfig
	SMS        SMSConfig
	Validation ValidationConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name     string
	Version  string
	Env      string // "production" or "development"
	Port     string
	Host     string
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL            string
	Name           string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// EmailConfig holds notification email configuration
type EmailConfig struct {
	Provider     string // "resend" or "smtp"
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     int
	Username     string
	Password     string
	FromEmail    string
	FromName     string
	NotifyEmail  string
	Timeout      time.Duration
}

// SMSConfig holds operator SMS alert configuration
type SMSConfig struct {
	Enabled     bool
	TwilioSID   string
	TwilioAuth  string
	TwilioFrom  string
	NotifyPhone string
}

// ValidationConfig controls optional intake checks
type ValidationConfig struct {
	VerifyEmailDomain bool
	DNSTimeout        time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:     getEnv("APP_NAME", "Barakah IT Contact API"),
			Version:  getEnv("APP_VERSION", "1.0.0"),
			Env:      strings.ToLower(getEnv("APP_ENV", EnvProduction)),
			Port:     getEnv("PORT", "3001"),
			Host:     getEnv("HOST", "0.0.0.0"),
			LogLevel: getEnv("LOG_LEVEL", ""),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			Name:           getEnv("DATABASE_NAME", ""),
			ConnectTimeout: getEnvAsDuration("DB_CONNECT_TIMEOUT", 5*time.Second),
			WriteTimeout:   getEnvAsDuration("DB_WRITE_TIMEOUT", 5*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: []string{"POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			MaxAge:         86400,
		},
		Email: EmailConfig{
			Provider:     strings.ToLower(getEnv("EMAIL_PROVIDER", EmailProviderResend)),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			Username:     getEnv("SMTP_USERNAME", ""),
			Password:     getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("EMAIL_FROM", "noreply@barakah-it.com"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Barakah IT Contact Form"),
			NotifyEmail:  getEnv("NOTIFY_EMAIL", "info@barakah-it.com"),
			Timeout:      getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		SMS: SMSConfig{
			Enabled:     getEnvAsBool("SMS_ENABLED", false),
			TwilioSID:   getEnv("TWILIO_ACCOUNT_SID", ""),
			TwilioAuth:  getEnv("TWILIO_AUTH_TOKEN", ""),
			TwilioFrom:  getEnv("TWILIO_PHONE_NUMBER", ""),
			NotifyPhone: getEnv("NOTIFY_PHONE", ""),
		},
		Validation: ValidationConfig{
			VerifyEmailDomain: getEnvAsBool("VERIFY_EMAIL_DOMAIN", false),
			DNSTimeout:        getEnvAsDuration("DNS_TIMEOUT", 3*time.Second),
		},
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// validateConfig validates the configuration.
// DATABASE_URL is checked by the database connector on first use.
func validateConfig(cfg *Config) error {
	if cfg.App.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	if cfg.App.Env != EnvProduction && cfg.App.Env != EnvDevelopment {
		return fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvProduction, EnvDevelopment, cfg.App.Env)
	}
	if cfg.Email.Provider != EmailProviderResend && cfg.Email.Provider != EmailProviderSMTP {
		return fmt.Errorf("EMAIL_PROVIDER must be %q or %q, got %q", EmailProviderResend, EmailProviderSMTP, cfg.Email.Provider)
	}
	if cfg.Database.ConnectTimeout <= 0 || cfg.Database.WriteTimeout <= 0 {
		return fmt.Errorf("database timeouts must be greater than 0")
	}
	if cfg.Email.Timeout <= 0 || cfg.Validation.DNSTimeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT and DNS_TIMEOUT must be greater than 0")
	}
	return nil
}

// IsDevelopment reports whether error responses may carry debug detail.
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsPostgres checks if the database URL is for PostgreSQL
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://") ||
		strings.Contains(c.URL, "host=")
}

// GetPostgresDSN returns the connection string for the postgres driver.
// URLs are passed through untouched so encoded credentials and every query
// parameter reach the driver. DATABASE_NAME, when set, replaces the database
// in the URL path or is appended to a key=value string.
func (c *DatabaseConfig) GetPostgresDSN() string {
	dsn := c.URL

	// Already in key=value form
	if !strings.Contains(dsn, "://") && (strings.Contains(dsn, " ") || strings.Contains(dsn, "=")) {
		if c.Name != "" {
			return dsn + " dbname=" + quoteDSNValue(c.Name)
		}
		return dsn
	}

	if c.Name == "" {
		return dsn
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	u.Path = "/" + c.Name
	u.RawPath = ""
	return u.String()
}

// quoteDSNValue quotes v for a key=value connection string.
func quoteDSNValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// GetSQLitePath extracts SQLite database path from URL
func (c *DatabaseConfig) GetSQLitePath() string {
	if path, ok := strings.CutPrefix(c.URL, "sqlite:///"); ok {
		return path
	}
	if path, ok := strings.CutPrefix(c.URL, "sqlite://"); ok {
		return path
	}
	return c.URL
}
