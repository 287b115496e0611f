package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

func EnvString(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func EnvOrDefault(key, fallback string) string {
	value := EnvString(key)
	if value == "" {
		return fallback
	}
	return value
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = EnvOrDefault(EnvHTTPAddr, cfg.HTTPAddr)
	cfg.DBDriver = strings.ToLower(EnvOrDefault(EnvDBDriver, cfg.DBDriver))
	cfg.DBDSN = EnvOrDefault(EnvDBDSN, cfg.DBDSN)
	cfg.LogLevel = strings.ToLower(EnvOrDefault(EnvLogLevel, cfg.LogLevel))
	cfg.HistoryWindow = parseIntEnv(EnvHistoryWindow, cfg.HistoryWindow)
	cfg.CollaboratorTimeout = parseDurationEnv(EnvCollaboratorTimeout, cfg.CollaboratorTimeout)
	cfg.ReplyTimeout = parseDurationEnv(EnvReplyTimeout, cfg.ReplyTimeout)
	cfg.DefaultLocation.Lat = parseFloatEnv(EnvDefaultLat, cfg.DefaultLocation.Lat)
	cfg.DefaultLocation.Lon = parseFloatEnv(EnvDefaultLon, cfg.DefaultLocation.Lon)
	cfg.ReferenceFile = EnvOrDefault(EnvReferenceFile, cfg.ReferenceFile)
	cfg.RoutingURL = EnvOrDefault(EnvRoutingURL, cfg.RoutingURL)
	cfg.LocationURL = EnvOrDefault(EnvLocationURL, cfg.LocationURL)
	cfg.KnowledgeURL = EnvOrDefault(EnvKnowledgeURL, cfg.KnowledgeURL)
	cfg.InputRatePerSecond = parseFloatEnv(EnvInputRate, cfg.InputRatePerSecond)
	cfg.InputBurst = parseIntEnv(EnvInputBurst, cfg.InputBurst)

	if raw := EnvString(EnvToolHostURLs); raw != "" {
		if hosts, err := ParseToolHosts(raw); err == nil {
			cfg.ToolHosts = hosts
		}
	}
	if raw := EnvString(EnvWebhookURLs); raw != "" {
		cfg.WebhookURLs = splitList(raw)
	}

	applyBackendEnv(&cfg.Fast, SlotFast)
	applyBackendEnv(&cfg.Legal, SlotLegal)
	applyBackendEnv(&cfg.General, SlotGeneral)
	applyBackendEnv(&cfg.Fallback, SlotFallback)
	applyBackendEnv(&cfg.Classifier, SlotClassifier)
}

// applyBackendEnv reads THUNDERFIRE_<SLOT>_{PROVIDER,API_KEY,MODEL,ENDPOINT}.
// A slot without its own key inherits the provider-wide key.
func applyBackendEnv(b *BackendConfig, slot string) {
	prefix := "THUNDERFIRE_" + strings.ToUpper(slot) + "_"
	b.Provider = strings.ToLower(EnvOrDefault(prefix+"PROVIDER", b.Provider))
	b.APIKey = EnvOrDefault(prefix+"API_KEY", b.APIKey)
	b.Model = EnvOrDefault(prefix+"MODEL", b.Model)
	b.Endpoint = EnvOrDefault(prefix+"ENDPOINT", b.Endpoint)
	if b.APIKey != "" {
		return
	}
	switch b.Provider {
	case ProviderOpenAI:
		b.APIKey = EnvString(EnvOpenAIAPIKey)
	case ProviderAnthropic:
		b.APIKey = EnvString(EnvAnthropicAPIKey)
	}
}

// ParseToolHosts parses a comma separated list of name=url entries.
func ParseToolHosts(raw string) ([]ToolHostConfig, error) {
	parts := splitList(raw)
	hosts := make([]ToolHostConfig, 0, len(parts))
	for _, entry := range parts {
		name, rawURL, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid entry %q (expected name=url)", entry)
		}
		name = strings.TrimSpace(name)
		rawURL = strings.TrimSpace(rawURL)
		if name == "" || rawURL == "" {
			return nil, fmt.Errorf("invalid entry %q (name and url are required)", entry)
		}
		parsed, err := url.Parse(rawURL)
		if err != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
			return nil, fmt.Errorf("invalid url %q for host %q", rawURL, name)
		}
		hosts = append(hosts, ToolHostConfig{Name: name, BaseURL: rawURL})
	}
	return hosts, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func parseIntEnv(key string, fallback int) int {
	raw := EnvString(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloatEnv(key string, fallback float64) float64 {
	raw := EnvString(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := EnvString(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseOptionalDuration(raw string, fallback time.Duration, field string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration %q: %w", field, value, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be > 0", field)
	}
	return parsed, nil
}
