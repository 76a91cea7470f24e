package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete client configuration, loadable from environment
// variables (VENDO_ prefix), flags, or YAML config files.
type Config struct {
	ServerURL string        `usage:"Vending API base URL (VENDO_SERVER_URL or API_BASE_URL)" flag:"server-url"`
	Timeout   time.Duration `default:"10s" usage:"HTTP request timeout"`
	RateLimit RateLimitConfig
}

// RateLimitConfig throttles outgoing API calls. Disabled by default; the
// server enforces its own limits either way.
type RateLimitConfig struct {
	RPS   float64 `default:"0" usage:"Max requests per second (0 disables)"`
	Burst int     `default:"1" usage:"Request burst size when throttled"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform fallbacks.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "VENDO",
		Files:     []string{"config.yaml", "/etc/vendo/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.ServerURL == "" {
		return nil, errors.New("server URL is required: set VENDO_SERVER_URL or API_BASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps the generic API_BASE_URL variable, used by the
// hosted deployments, to the client's VENDO_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.ServerURL == "" {
		if v := os.Getenv("API_BASE_URL"); v != "" {
			c.ServerURL = v
		}
	}
}
