// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like GENAI_API_KEY
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, e.g. config.production.yaml
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from the working directory or any parent up to the
// project root, so runs from cmd/ subdirectories and tests behave the same.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig falls back to well-known environment variables for
// values still empty after expansion.
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.GenAI.APIKey == "" {
		if val := os.Getenv("GENAI_API_KEY"); val != "" {
			cfg.APIs.GenAI.APIKey = val
		}
	}
	if cfg.APIs.Renderer.Token == "" {
		if val := os.Getenv("RENDERER_TOKEN"); val != "" {
			cfg.APIs.Renderer.Token = val
		}
	}
	if cfg.Webhook.VerificationToken == "" {
		if val := os.Getenv("PAYMENT_VERIFICATION_TOKEN"); val != "" {
			cfg.Webhook.VerificationToken = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}

	// Preference filters may arrive as comma-joined env strings.
	if len(cfg.Scraper.PreferredLanguages) == 0 {
		if val := os.Getenv("PREFERRED_LANGUAGES"); val != "" {
			cfg.Scraper.PreferredLanguages = splitAndTrim(val)
		}
	}
	if len(cfg.Scraper.PreferredAreas) == 0 {
		if val := os.Getenv("PREFERRED_AREAS"); val != "" {
			cfg.Scraper.PreferredAreas = splitAndTrim(val)
		}
	}
	if cfg.Scraper.SeedFile == "" {
		if val := os.Getenv("SEED_FILE"); val != "" {
			cfg.Scraper.SeedFile = val
		}
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Timezone == "" {
		cfg.App.Timezone = "America/Toronto"
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Scraper defaults
	if cfg.Scraper.SeedFile == "" {
		cfg.Scraper.SeedFile = "clinic_seed.csv"
	}
	if cfg.Scraper.PageTimeout == 0 {
		cfg.Scraper.PageTimeout = 30000
	}
	if cfg.Scraper.SubpageTimeout == 0 {
		cfg.Scraper.SubpageTimeout = 20000
	}
	if cfg.Scraper.MaxSubpages == 0 {
		cfg.Scraper.MaxSubpages = 3
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Ops server defaults
	if cfg.Ops.Listen == "" {
		cfg.Ops.Listen = ":9090"
	}

	// API timeout defaults
	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 60000
	}
}

// validateConfig validates critical configuration fields.
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.APIs.GenAI.BaseURL == "" {
		return fmt.Errorf("apis.genai.base_url is required")
	}
	if cfg.APIs.Renderer.BaseURL == "" {
		return fmt.Errorf("apis.renderer.base_url is required")
	}

	if cfg.Webhook.Enabled && cfg.Webhook.VerificationToken == "" {
		return fmt.Errorf("webhook.verification_token is required when webhook is enabled")
	}

	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		return fmt.Errorf("invalid app.timezone %q: %w", cfg.App.Timezone, err)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
