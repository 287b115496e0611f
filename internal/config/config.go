package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	EnvHTTPAddr            = "THUNDERFIRE_HTTP_ADDR"
	EnvDBDriver            = "THUNDERFIRE_DB_DRIVER"
	EnvDBDSN               = "THUNDERFIRE_DB_DSN"
	EnvLogLevel            = "THUNDERFIRE_LOG_LEVEL"
	EnvHistoryWindow       = "THUNDERFIRE_HISTORY_WINDOW"
	EnvCollaboratorTimeout = "THUNDERFIRE_COLLABORATOR_TIMEOUT"
	EnvReplyTimeout        = "THUNDERFIRE_REPLY_TIMEOUT"
	EnvDefaultLat          = "THUNDERFIRE_DEFAULT_LAT"
	EnvDefaultLon          = "THUNDERFIRE_DEFAULT_LON"
	EnvReferenceFile       = "THUNDERFIRE_REFERENCE_FILE"
	EnvRoutingURL          = "THUNDERFIRE_ROUTING_URL"
	EnvLocationURL         = "THUNDERFIRE_LOCATION_URL"
	EnvKnowledgeURL        = "THUNDERFIRE_KNOWLEDGE_URL"
	EnvToolHostURLs        = "THUNDERFIRE_TOOL_HOST_URLS"
	EnvWebhookURLs         = "THUNDERFIRE_WEBHOOK_URLS"
	EnvInputRate           = "THUNDERFIRE_INPUT_RATE"
	EnvInputBurst          = "THUNDERFIRE_INPUT_BURST"
	EnvOpenAIAPIKey        = "OPENAI_API_KEY"
	EnvAnthropicAPIKey     = "ANTHROPIC_API_KEY"
)

const (
	DefaultHTTPAddr            = ":8080"
	DefaultDBDriver            = "sqlite"
	DefaultDBDSN               = "thunderfire.db"
	DefaultLogLevel            = "info"
	DefaultHistoryWindow       = 5
	DefaultCollaboratorTimeout = 8 * time.Second
	DefaultReplyTimeout        = 30 * time.Second
	DefaultInputRate           = 5.0
	DefaultInputBurst          = 10
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Backend slot names. Each slot is one independently configured
// language-model backend.
const (
	SlotFast       = "fast"
	SlotLegal      = "legal"
	SlotGeneral    = "general"
	SlotFallback   = "fallback"
	SlotClassifier = "classifier"
)

type BackendConfig struct {
	Provider string
	APIKey   string
	Model    string
	Endpoint string
}

// Configured reports whether the backend carries a credential.
func (b BackendConfig) Configured() bool {
	return strings.TrimSpace(b.APIKey) != ""
}

type Location struct {
	Lat float64
	Lon float64
}

type ToolHostConfig struct {
	Name    string
	BaseURL string
}

type Config struct {
	HTTPAddr            string
	DBDriver            string
	DBDSN               string
	LogLevel            string
	HistoryWindow       int
	CollaboratorTimeout time.Duration
	ReplyTimeout        time.Duration
	DefaultLocation     Location
	ReferenceFile       string
	RoutingURL          string
	LocationURL         string
	KnowledgeURL        string
	ToolHosts           []ToolHostConfig
	WebhookURLs         []string
	InputRatePerSecond  float64
	InputBurst          int
	Fast                BackendConfig
	Legal               BackendConfig
	General             BackendConfig
	Fallback            BackendConfig
	Classifier          BackendConfig
}

func Default() Config {
	return Config{
		HTTPAddr:            DefaultHTTPAddr,
		DBDriver:            DefaultDBDriver,
		DBDSN:               DefaultDBDSN,
		LogLevel:            DefaultLogLevel,
		HistoryWindow:       DefaultHistoryWindow,
		CollaboratorTimeout: DefaultCollaboratorTimeout,
		ReplyTimeout:        DefaultReplyTimeout,
		DefaultLocation:     Location{Lat: 30.4515, Lon: -91.1871},
		InputRatePerSecond:  DefaultInputRate,
		InputBurst:          DefaultInputBurst,
		Fast:                BackendConfig{Provider: ProviderOpenAI, Model: "gpt-4o-mini"},
		Legal:               BackendConfig{Provider: ProviderAnthropic, Model: "claude-sonnet-4-20250514"},
		General:             BackendConfig{Provider: ProviderOpenAI, Model: "gpt-4o"},
		Fallback:            BackendConfig{Provider: ProviderOpenAI, Model: "gpt-4o-mini"},
		Classifier:          BackendConfig{Provider: ProviderOpenAI, Model: "gpt-4o-mini"},
	}
}

func FromEnv() Config {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

func FromYAMLAndEnv() (Config, error) {
	cfg := Default()

	fileCfg, err := loadFileConfig()
	if err != nil {
		return Config{}, err
	}
	if err := applyYAML(&cfg, fileCfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Slots returns the language-model backend slots keyed by slot name.
func (c Config) Slots() map[string]BackendConfig {
	return map[string]BackendConfig{
		SlotFast:     c.Fast,
		SlotLegal:    c.Legal,
		SlotGeneral:  c.General,
		SlotFallback: c.Fallback,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%s must not be empty", EnvHTTPAddr)
	}
	switch strings.ToLower(strings.TrimSpace(c.DBDriver)) {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%s must be sqlite or postgres", EnvDBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("%s must not be empty", EnvDBDSN)
	}
	if c.HistoryWindow <= 0 {
		return fmt.Errorf("%s must be > 0", EnvHistoryWindow)
	}
	if c.CollaboratorTimeout <= 0 {
		return fmt.Errorf("%s must be > 0", EnvCollaboratorTimeout)
	}
	if c.ReplyTimeout <= 0 {
		return fmt.Errorf("%s must be > 0", EnvReplyTimeout)
	}
	if c.InputRatePerSecond < 0 || c.InputBurst < 0 {
		return fmt.Errorf("%s and %s must not be negative", EnvInputRate, EnvInputBurst)
	}
	for _, raw := range []string{c.RoutingURL, c.LocationURL, c.KnowledgeURL} {
		if raw == "" {
			continue
		}
		if err := validateURL(raw); err != nil {
			return err
		}
	}
	slots := c.Slots()
	slots[SlotClassifier] = c.Classifier
	for name, slot := range slots {
		switch slot.Provider {
		case ProviderOpenAI, ProviderAnthropic:
		default:
			return fmt.Errorf("backend %s: unsupported provider %q", name, slot.Provider)
		}
	}
	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return fmt.Errorf("invalid url %q", raw)
	}
	return nil
}
