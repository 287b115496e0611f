package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnvKeys = []string{
	EnvConfigFile, EnvHTTPAddr, EnvDBDriver, EnvDBDSN, EnvLogLevel, EnvHistoryWindow,
	EnvCollaboratorTimeout, EnvReplyTimeout, EnvDefaultLat, EnvDefaultLon, EnvReferenceFile,
	EnvRoutingURL, EnvLocationURL, EnvKnowledgeURL, EnvToolHostURLs, EnvWebhookURLs,
	EnvInputRate, EnvInputBurst, EnvOpenAIAPIKey, EnvAnthropicAPIKey,
	"THUNDERFIRE_FAST_API_KEY", "THUNDERFIRE_LEGAL_API_KEY", "THUNDERFIRE_GENERAL_API_KEY",
	"THUNDERFIRE_FALLBACK_API_KEY", "THUNDERFIRE_CLASSIFIER_API_KEY", "THUNDERFIRE_GENERAL_MODEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
	}
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()

	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, DefaultDBDriver, cfg.DBDriver)
	assert.Equal(t, DefaultHistoryWindow, cfg.HistoryWindow)
	assert.Equal(t, DefaultCollaboratorTimeout, cfg.CollaboratorTimeout)
	assert.False(t, cfg.General.Configured())
	require.NoError(t, cfg.Validate())
}

func TestFromYAMLAndEnvLoadsYAMLAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDBDSN, "postgres://env/override")
	t.Setenv("THUNDERFIRE_GENERAL_MODEL", "gpt-env")
	t.Setenv(EnvAnthropicAPIKey, "env-anthropic")

	path := writeConfigFile(t, `
version: 1
http_addr: "127.0.0.1:7070"
db_driver: "postgres"
db_dsn: "postgres://yaml/db"
history_window: 8
collaborator_timeout: "3s"
default_location:
  lat: 29.95
  lon: -90.07
routing_url: "http://routing.local"
tool_host_urls:
  - "records=http://records.local:9000"
webhook_urls:
  - "http://hooks.local/a"
backends:
  general:
    provider: openai
    api_key: yaml-openai
    model: gpt-yaml
  fast:
    provider: openai
`)
	t.Setenv(EnvConfigFile, path)

	cfg, err := FromYAMLAndEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7070", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "postgres://env/override", cfg.DBDSN)
	assert.Equal(t, 8, cfg.HistoryWindow)
	assert.Equal(t, 3*time.Second, cfg.CollaboratorTimeout)
	assert.Equal(t, Location{Lat: 29.95, Lon: -90.07}, cfg.DefaultLocation)
	assert.Equal(t, "http://routing.local", cfg.RoutingURL)
	require.Len(t, cfg.ToolHosts, 1)
	assert.Equal(t, ToolHostConfig{Name: "records", BaseURL: "http://records.local:9000"}, cfg.ToolHosts[0])
	assert.Equal(t, []string{"http://hooks.local/a"}, cfg.WebhookURLs)

	assert.Equal(t, "yaml-openai", cfg.General.APIKey)
	assert.Equal(t, "gpt-env", cfg.General.Model)
	assert.False(t, cfg.Fast.Configured())
	assert.Equal(t, "env-anthropic", cfg.Legal.APIKey, "legal slot inherits provider-wide key")
	require.NoError(t, cfg.Validate())
}

func TestFromYAMLRejectsUnknownBackendSlot(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigFile, writeConfigFile(t, "backends:\n  turbo:\n    provider: openai\n"))

	_, err := FromYAMLAndEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turbo")
}

func TestFromYAMLRejectsBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigFile, writeConfigFile(t, "reply_timeout: soon\n"))

	_, err := FromYAMLAndEnv()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty addr":      func(c *Config) { c.HTTPAddr = "" },
		"bad driver":      func(c *Config) { c.DBDriver = "mysql" },
		"zero history":    func(c *Config) { c.HistoryWindow = 0 },
		"zero timeout":    func(c *Config) { c.CollaboratorTimeout = 0 },
		"bad routing url": func(c *Config) { c.RoutingURL = "not a url" },
		"bad provider":    func(c *Config) { c.Legal.Provider = "llama" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseToolHosts(t *testing.T) {
	hosts, err := ParseToolHosts("a=http://a.local, b=https://b.local/tools")
	require.NoError(t, err)
	assert.Len(t, hosts, 2)

	_, err = ParseToolHosts("missing-equals")
	assert.Error(t, err)
	_, err = ParseToolHosts("a=not-a-url")
	assert.Error(t, err)
}
