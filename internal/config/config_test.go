// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, durations, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

const validConfig = `
server:
  http_addr: "0.0.0.0:3978"

botservice:
  name: "Contoso Agent"
  bot_id: "bot-guid"
  tenant_id: "tenant-guid"
  token_endpoint: "https://example.com/api/token"

relay:
  max_wait: "5s"
  poll_interval: "1s"

silentauth:
  enabled: true
  token_url: "https://login.example.com/oauth2/v2.0/token"
  client_id: "client-guid"
  username: "svc@contoso.com"
  password: "secret"
  scopes:
    - "api://bot/.default"

auth:
  jwt_secret: "channel-secret"

database:
  path: "./relay.db"

logging:
  level: "debug"
  format: "json"
`

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:3978" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:3978")
	}
	if cfg.BotService.Name != "Contoso Agent" {
		t.Errorf("BotService.Name = %q, want %q", cfg.BotService.Name, "Contoso Agent")
	}
	if cfg.Relay.MaxWait != 5*time.Second {
		t.Errorf("Relay.MaxWait = %v, want 5s", cfg.Relay.MaxWait)
	}
	if cfg.Relay.PollInterval != time.Second {
		t.Errorf("Relay.PollInterval = %v, want 1s", cfg.Relay.PollInterval)
	}
	if !cfg.SilentAuth.Enabled {
		t.Error("SilentAuth.Enabled = false, want true")
	}
	if len(cfg.SilentAuth.Scopes) != 1 || cfg.SilentAuth.Scopes[0] != "api://bot/.default" {
		t.Errorf("SilentAuth.Scopes = %v", cfg.SilentAuth.Scopes)
	}
	if cfg.Database.Path != "./relay.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./relay.db")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("RELAY_TEST_SECRET", "from-env")

	content := strings.Replace(validConfig, `jwt_secret: "channel-secret"`, `jwt_secret: "${RELAY_TEST_SECRET}"`, 1)
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "from-env")
	}
}

func TestLoad_UnsetEnvVarExpandsEmpty(t *testing.T) {
	content := strings.Replace(validConfig, `jwt_secret: "channel-secret"`, `jwt_secret: "${RELAY_TEST_UNSET_VAR}"`, 1)
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "" {
		t.Errorf("Auth.JWTSecret = %q, want empty", cfg.Auth.JWTSecret)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	content := strings.Replace(validConfig, `max_wait: "5s"`, `max_wait: "not-a-duration"`, 1)
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() succeeded with invalid duration")
	}
	if !strings.Contains(err.Error(), "max_wait") {
		t.Errorf("error %q does not mention max_wait", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() succeeded for missing file")
	}
}

func TestValidate_RequiredBotServiceFields(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing name", func(c *Config) { c.BotService.Name = "" }, "botservice.name"},
		{"missing bot id", func(c *Config) { c.BotService.BotID = "" }, "botservice.bot_id"},
		{"missing tenant id", func(c *Config) { c.BotService.TenantID = "" }, "botservice.tenant_id"},
		{"missing token endpoint", func(c *Config) { c.BotService.TokenEndpoint = "" }, "botservice.token_endpoint"},
		{"missing http addr", func(c *Config) { c.Server.HTTPAddr = "" }, "server.http_addr"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validConfig))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tc.mutate(cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatal("Validate() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_TailscaleReplacesHTTPAddr(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Server.HTTPAddr = ""
	cfg.Tailscale.Enabled = true
	cfg.Tailscale.Hostname = "relay"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	cfg.Tailscale.Hostname = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() succeeded without tailscale.hostname")
	}
}

func TestValidate_SilentAuthCredentials(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.SilentAuth.Password = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() succeeded without silentauth password")
	}

	// Disabled silentauth needs no credentials.
	cfg.SilentAuth = SilentAuthConfig{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil with silentauth disabled", err)
	}
}
