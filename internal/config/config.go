// Package config loads application settings from the environment, once
// at startup. The resulting struct is treated as immutable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Server
	Port    int
	BaseURL string

	// Storage
	DBPath    string
	UploadDir string
	UploadURL string

	// Auth
	JWTSecret          string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// Payments
	StripeSecretKey string
	StripeAPIBase   string
}

// Load reads the configuration from environment variables. Secrets are
// required; everything else has a development-friendly default.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.StripeSecretKey = os.Getenv("STRIPE_SECRET_KEY")
	if cfg.StripeSecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.Port = getEnvInt("PORT", 8080)
	cfg.BaseURL = getEnvString("BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port))
	cfg.DBPath = getEnvString("DB_PATH", "snipmart.db")
	cfg.UploadDir = getEnvString("UPLOAD_DIR", "uploads")
	cfg.UploadURL = getEnvString("UPLOAD_URL", cfg.BaseURL+"/uploads")
	cfg.StripeAPIBase = getEnvString("STRIPE_API_BASE", "https://api.stripe.com")

	// The GitHub flow is optional; with no client id the login routes
	// are simply not mounted.
	cfg.GitHubClientID = os.Getenv("GITHUB_CLIENT_ID")
	cfg.GitHubClientSecret = os.Getenv("GITHUB_CLIENT_SECRET")
	cfg.GitHubCallbackURL = getEnvString("GITHUB_CALLBACK_URL", cfg.BaseURL+"/auth/github/callback")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("BASE_URL %q must start with http:// or https://", c.BaseURL)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.GitHubClientID != "" && c.GitHubClientSecret == "" {
		return fmt.Errorf("GITHUB_CLIENT_SECRET is required when GITHUB_CLIENT_ID is set")
	}
	return nil
}

// GitHubEnabled reports whether the federated login flow is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
