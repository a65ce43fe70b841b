package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config represents the full application configuration surface.
type Config struct {
	Server     ServerConfig
	WhatsApp   WhatsAppConfig
	Sheets     SheetsConfig
	Reporting  ReportingConfig
	AI         AIConfig
	MongoDB    MongoDBConfig
	Redis      RedisConfig
	Commission CommissionConfig
	Business   BusinessConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
}

// Enabled reports whether outbound messaging is configured.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	SettlementRange string
}

// Enabled reports whether the settlement sheet is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	WeeklyCronSchedule  string
	OverdueCronSchedule string
	Timezone            string
	OwnerPhone          string
}

// AIConfig holds settings for LLM providers.
type AIConfig struct {
	AnthropicKey string
	Model        string
}

// MongoDBConfig holds settings for MongoDB. An empty URI keeps the dataset in memory.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// RedisConfig holds the idempotency guard settings. An empty Addr uses an
// in-process guard.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

// CommissionConfig is the two-tier commission policy.
type CommissionConfig struct {
	Threshold   decimal.Decimal
	BaseRate    decimal.Decimal
	PremiumRate decimal.Decimal
}

// BusinessConfig identifies the organization owning the data.
type BusinessConfig struct {
	OrganizationID string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	ttl, err := time.ParseDuration(getenvWithDefault("IDEMPOTENCY_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("IDEMPOTENCY_TTL: %w", err)
	}
	commission, err := loadCommission()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			SettlementRange: getenvWithDefault("SETTLEMENT_SHEET_RANGE", "Acertos!A:G"),
		},
		Reporting: ReportingConfig{
			WeeklyCronSchedule:  getenvWithDefault("REPORT_CRON_SCHEDULE", "0 19 * * 6"),
			OverdueCronSchedule: getenvWithDefault("OVERDUE_CRON_SCHEDULE", "0 6 * * *"),
			Timezone:            getenvWithDefault("TIMEZONE", "America/Sao_Paulo"),
			OwnerPhone:          os.Getenv("OWNER_PHONE"),
		},
		AI: AIConfig{
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:        getenvWithDefault("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "maleta"),
		},
		Redis: RedisConfig{
			Addr:           os.Getenv("REDIS_ADDR"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			IdempotencyTTL: ttl,
		},
		Commission: commission,
		Business: BusinessConfig{
			OrganizationID: getenvWithDefault("ORGANIZATION_ID", "default"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadCommission() (CommissionConfig, error) {
	var out CommissionConfig
	for _, f := range []struct {
		key, fallback string
		dst           *decimal.Decimal
	}{
		{"COMMISSION_THRESHOLD", "5000", &out.Threshold},
		{"COMMISSION_BASE_RATE", "0.30", &out.BaseRate},
		{"COMMISSION_PREMIUM_RATE", "0.40", &out.PremiumRate},
	} {
		v, err := decimal.NewFromString(strings.TrimSpace(getenvWithDefault(f.key, f.fallback)))
		if err != nil {
			return out, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = v
	}
	return out, nil
}

// Validate ensures that required configuration fields are populated.
// Integrations left empty are disabled rather than rejected.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.WhatsApp.AccessToken != "" && c.WhatsApp.PhoneNumberID == "" {
		return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided with WHATSAPP_TOKEN")
	}

	if c.WhatsApp.BaseURL == "" {
		return errors.New("WHATSAPP_BASE_URL must not be empty")
	}

	if c.WhatsApp.APIVersion == "" {
		return errors.New("WHATSAPP_API_VERSION must not be empty")
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	if c.Redis.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be positive")
	}

	cm := c.Commission
	if !cm.Threshold.IsPositive() {
		return errors.New("COMMISSION_THRESHOLD must be positive")
	}
	one := decimal.NewFromInt(1)
	for name, rate := range map[string]decimal.Decimal{"COMMISSION_BASE_RATE": cm.BaseRate, "COMMISSION_PREMIUM_RATE": cm.PremiumRate} {
		if rate.IsNegative() || rate.GreaterThan(one) {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
