// ABOUTME: Configuration loading and parsing for relay-gateway.
// ABOUTME: YAML files with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete relay-gateway configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Tailscale  TailscaleConfig  `yaml:"tailscale"`
	BotService BotServiceConfig `yaml:"botservice"`
	DirectLine DirectLineConfig `yaml:"directline"`
	Relay      RelayConfig      `yaml:"relay"`
	SilentAuth SilentAuthConfig `yaml:"silentauth"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds optional tsnet serving configuration.
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// BotServiceConfig identifies the backend agent and its token endpoint.
type BotServiceConfig struct {
	// Name is the display name the agent replies under; reply filtering
	// matches it exactly.
	Name          string `yaml:"name"`
	BotID         string `yaml:"bot_id"`
	TenantID      string `yaml:"tenant_id"`
	TokenEndpoint string `yaml:"token_endpoint"`
}

// DirectLineConfig holds the activity-exchange API endpoint.
type DirectLineConfig struct {
	// BaseURL overrides the public Direct Line endpoint, mainly for tests.
	BaseURL string `yaml:"base_url"`
}

// RelayConfig holds poll loop timing.
type RelayConfig struct {
	MaxWait      time.Duration `yaml:"-"`
	PollInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	MaxWaitRaw      string `yaml:"max_wait"`
	PollIntervalRaw string `yaml:"poll_interval"`
}

// SilentAuthConfig holds service-account credentials for resolving
// sign-in prompts without user interaction.
type SilentAuthConfig struct {
	Enabled  bool     `yaml:"enabled"`
	TokenURL string   `yaml:"token_url"`
	ClientID string   `yaml:"client_id"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Scopes   []string `yaml:"scopes"`
}

// AuthConfig holds inbound channel authentication configuration. An
// empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// DatabaseConfig holds the audit ledger location. An empty path disables
// the ledger.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a
// parsed Config. Environment variables in the format ${VAR_NAME} are
// expanded. Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if c.BotService.Name == "" {
		return fmt.Errorf("botservice.name is required")
	}
	if c.BotService.BotID == "" {
		return fmt.Errorf("botservice.bot_id is required")
	}
	if c.BotService.TenantID == "" {
		return fmt.Errorf("botservice.tenant_id is required")
	}
	if c.BotService.TokenEndpoint == "" {
		return fmt.Errorf("botservice.token_endpoint is required")
	}

	if c.SilentAuth.Enabled {
		if c.SilentAuth.TokenURL == "" {
			return fmt.Errorf("silentauth.token_url is required when silentauth is enabled")
		}
		if c.SilentAuth.Username == "" || c.SilentAuth.Password == "" {
			return fmt.Errorf("silentauth.username and silentauth.password are required when silentauth is enabled")
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Relay.MaxWaitRaw != "" {
		cfg.Relay.MaxWait, err = time.ParseDuration(cfg.Relay.MaxWaitRaw)
		if err != nil {
			return fmt.Errorf("parsing max_wait %q: %w", cfg.Relay.MaxWaitRaw, err)
		}
	}

	if cfg.Relay.PollIntervalRaw != "" {
		cfg.Relay.PollInterval, err = time.ParseDuration(cfg.Relay.PollIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_interval %q: %w", cfg.Relay.PollIntervalRaw, err)
		}
	}

	return nil
}
