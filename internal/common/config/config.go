// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig         `mapstructure:"app"`
	Database     DatabaseConfig    `mapstructure:"database"`
	Scraper      ScraperConfig     `mapstructure:"scraper"`
	APIs         APIsConfig        `mapstructure:"apis"`
	Integrations IntegrationConfig `mapstructure:"integrations"`
	Webhook      WebhookConfig     `mapstructure:"webhook"`
	Ops          OpsConfig         `mapstructure:"ops"`
	Logging      LoggingConfig     `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// Timezone used for clinic updatedAt stamps, e.g. "America/Toronto".
	Timezone string `mapstructure:"timezone"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	// Empty Address disables the duplicate-alert guard.
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// --- Scraper Configuration ---

// ScraperConfig holds the batch-run settings: seed list, fetch budgets and
// the optional pre-notification preference gate.
type ScraperConfig struct {
	SeedFile string `mapstructure:"seed_file"`
	// Timeouts in milliseconds.
	PageTimeout    int `mapstructure:"page_timeout"`
	SubpageTimeout int `mapstructure:"subpage_timeout"`
	MaxSubpages    int `mapstructure:"max_subpages"`
	// Optional filters applied before any subscriber matching. Absence
	// means no filter.
	PreferredLanguages []string `mapstructure:"preferred_languages"`
	PreferredAreas     []string `mapstructure:"preferred_areas"`
}

// --- External API Configuration ---

type APIsConfig struct {
	GenAI struct {
		BaseURL string `mapstructure:"base_url"`
		APIKey  string `mapstructure:"api_key"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"genai"`

	// Renderer is the headless-browser service that returns the rendered
	// DOM text of JS-heavy clinic sites.
	Renderer struct {
		BaseURL string `mapstructure:"base_url"`
		Token   string `mapstructure:"token"`
	} `mapstructure:"renderer"`
}

// IntegrationConfig holds settings for the outbound message channels.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled            bool   `mapstructure:"enabled"`
			DefaultSMSSenderID string `mapstructure:"default_sms_sender_id"`
		} `mapstructure:"sns"`
		SES struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
			// SummaryRecipient receives the operator batch-summary email.
			SummaryRecipient string `mapstructure:"summary_recipient"`
		} `mapstructure:"ses"`
	} `mapstructure:"aws"`
}

// WebhookConfig holds settings for the payment webhook handler.
type WebhookConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	VerificationToken string `mapstructure:"verification_token"`
}

// OpsConfig holds settings for the operational HTTP server (metrics and
// the payment webhook endpoint).
type OpsConfig struct {
	Listen string `mapstructure:"listen"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
