package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigFile           = "THUNDERFIRE_CONFIG_FILE"
	configDirName           = ".thunderfire"
	defaultConfigFileName   = "config.yaml"
	alternateConfigFileName = "config.yml"
)

type fileConfig struct {
	Version             int                    `yaml:"version"`
	HTTPAddr            string                 `yaml:"http_addr"`
	DBDriver            string                 `yaml:"db_driver"`
	DBDSN               string                 `yaml:"db_dsn"`
	LogLevel            string                 `yaml:"log_level"`
	HistoryWindow       int                    `yaml:"history_window"`
	CollaboratorTimeout string                 `yaml:"collaborator_timeout"`
	ReplyTimeout        string                 `yaml:"reply_timeout"`
	DefaultLocation     *fileLocation          `yaml:"default_location"`
	ReferenceFile       string                 `yaml:"reference_file"`
	RoutingURL          string                 `yaml:"routing_url"`
	LocationURL         string                 `yaml:"location_url"`
	KnowledgeURL        string                 `yaml:"knowledge_url"`
	ToolHostURLs        []string               `yaml:"tool_host_urls"`
	WebhookURLs         []string               `yaml:"webhook_urls"`
	InputRatePerSecond  *float64               `yaml:"input_rate_per_second"`
	InputBurst          *int                   `yaml:"input_burst"`
	Backends            map[string]fileBackend `yaml:"backends"`
}

type fileLocation struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

type fileBackend struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
}

func loadFileConfig() (fileConfig, error) {
	path, ok, err := resolveConfigFilePath()
	if err != nil {
		return fileConfig{}, err
	}
	if !ok {
		return fileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyYAML(cfg *Config, source fileConfig) error {
	if value := strings.TrimSpace(source.HTTPAddr); value != "" {
		cfg.HTTPAddr = value
	}
	if value := strings.TrimSpace(source.DBDriver); value != "" {
		cfg.DBDriver = strings.ToLower(value)
	}
	if value := strings.TrimSpace(source.DBDSN); value != "" {
		cfg.DBDSN = value
	}
	if value := strings.TrimSpace(source.LogLevel); value != "" {
		cfg.LogLevel = strings.ToLower(value)
	}
	if source.HistoryWindow > 0 {
		cfg.HistoryWindow = source.HistoryWindow
	}

	collaboratorTimeout, err := parseOptionalDuration(source.CollaboratorTimeout, cfg.CollaboratorTimeout, "collaborator_timeout")
	if err != nil {
		return err
	}
	cfg.CollaboratorTimeout = collaboratorTimeout

	replyTimeout, err := parseOptionalDuration(source.ReplyTimeout, cfg.ReplyTimeout, "reply_timeout")
	if err != nil {
		return err
	}
	cfg.ReplyTimeout = replyTimeout

	if source.DefaultLocation != nil {
		cfg.DefaultLocation = Location{Lat: source.DefaultLocation.Lat, Lon: source.DefaultLocation.Lon}
	}
	if value := strings.TrimSpace(source.ReferenceFile); value != "" {
		cfg.ReferenceFile = value
	}
	if value := strings.TrimSpace(source.RoutingURL); value != "" {
		cfg.RoutingURL = value
	}
	if value := strings.TrimSpace(source.LocationURL); value != "" {
		cfg.LocationURL = value
	}
	if value := strings.TrimSpace(source.KnowledgeURL); value != "" {
		cfg.KnowledgeURL = value
	}
	if len(source.ToolHostURLs) > 0 {
		hosts, err := ParseToolHosts(strings.Join(source.ToolHostURLs, ","))
		if err != nil {
			return fmt.Errorf("tool_host_urls: %w", err)
		}
		cfg.ToolHosts = hosts
	}
	if len(source.WebhookURLs) > 0 {
		cfg.WebhookURLs = splitList(strings.Join(source.WebhookURLs, ","))
	}
	if source.InputRatePerSecond != nil {
		cfg.InputRatePerSecond = *source.InputRatePerSecond
	}
	if source.InputBurst != nil {
		cfg.InputBurst = *source.InputBurst
	}

	for name, backend := range source.Backends {
		target, ok := cfg.slot(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return fmt.Errorf("backends: unknown slot %q", name)
		}
		mergeBackend(target, backend)
	}
	return nil
}

func (c *Config) slot(name string) (*BackendConfig, bool) {
	switch name {
	case SlotFast:
		return &c.Fast, true
	case SlotLegal:
		return &c.Legal, true
	case SlotGeneral:
		return &c.General, true
	case SlotFallback:
		return &c.Fallback, true
	case SlotClassifier:
		return &c.Classifier, true
	default:
		return nil, false
	}
}

func mergeBackend(dst *BackendConfig, src fileBackend) {
	if value := strings.TrimSpace(src.Provider); value != "" {
		dst.Provider = strings.ToLower(value)
	}
	if value := strings.TrimSpace(src.APIKey); value != "" {
		dst.APIKey = value
	}
	if value := strings.TrimSpace(src.Model); value != "" {
		dst.Model = value
	}
	if value := strings.TrimSpace(src.Endpoint); value != "" {
		dst.Endpoint = value
	}
}

func resolveConfigFilePath() (string, bool, error) {
	if explicit := EnvString(EnvConfigFile); explicit != "" {
		resolvedPath, err := expandPath(explicit)
		if err != nil {
			return "", false, fmt.Errorf("resolve %s: %w", EnvConfigFile, err)
		}
		info, err := os.Stat(resolvedPath)
		if err != nil {
			return "", false, fmt.Errorf("config file %s: %w", resolvedPath, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config file %s is a directory", resolvedPath)
		}
		return resolvedPath, true, nil
	}

	candidates := []string{
		filepath.Join(configDirName, defaultConfigFileName),
		filepath.Join(configDirName, alternateConfigFileName),
	}
	if homeDir, err := os.UserHomeDir(); err == nil && strings.TrimSpace(homeDir) != "" {
		candidates = append(candidates,
			filepath.Join(homeDir, configDirName, defaultConfigFileName),
			filepath.Join(homeDir, configDirName, alternateConfigFileName),
		)
	}
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", false, fmt.Errorf("config path %s is a directory", candidate)
			}
			return candidate, true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat config file %s: %w", candidate, err)
		}
	}
	return "", false, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(trimmed, "~/")), nil
	}
	return trimmed, nil
}
