// Package config assembles the tool's runtime configuration from an
// optional .env file, environment variables, and command-line flag
// overrides, in that order of increasing precedence.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	// BaseURL is the root of the Jama instance, e.g.
	// "https://jama.example.com/contour". Endpoint paths are appended to it.
	BaseURL string

	// ClientID and ClientSecret are the OAuth client credentials created
	// in the Jama Admin Console.
	ClientID     string
	ClientSecret string

	// Insecure disables TLS certificate verification.
	Insecure bool

	// HTTPTimeout bounds each of the two requests.
	HTTPTimeout time.Duration

	// LogLevel and LogFormat configure the stderr logger.
	LogLevel  string
	LogFormat string
}

// envConfig holds raw env values before validation.
type envConfig struct {
	BaseURL      string        `env:"JAMA_BASE_URL"`
	ClientID     string        `env:"JAMA_CLIENT_ID"`
	ClientSecret string        `env:"JAMA_CLIENT_SECRET"`
	Insecure     bool          `env:"JAMA_INSECURE" envDefault:"false"`
	HTTPTimeout  time.Duration `env:"JAMA_HTTP_TIMEOUT" envDefault:"30s"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string        `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from the environment. When envFile is non-empty
// it must exist and is loaded first; otherwise a .env file in the working
// directory is picked up when present.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return &Config{
		BaseURL:      strings.TrimRight(strings.TrimSpace(raw.BaseURL), "/"),
		ClientID:     raw.ClientID,
		ClientSecret: raw.ClientSecret,
		Insecure:     raw.Insecure,
		HTTPTimeout:  raw.HTTPTimeout,
		LogLevel:     raw.LogLevel,
		LogFormat:    raw.LogFormat,
	}, nil
}

// Validate reports the problems that make the configuration unusable. It
// runs after flag overrides have been applied.
func (c *Config) Validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "base URL (JAMA_BASE_URL or --base-url)")
	}
	if c.ClientID == "" {
		missing = append(missing, "client ID (JAMA_CLIENT_ID or --client-id)")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client secret (JAMA_CLIENT_SECRET or --client-secret)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL %q must use http or https", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL %q has no host", c.BaseURL)
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %s", c.HTTPTimeout)
	}

	return nil
}
