package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content after expanding environment variables.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	switch cfg.Logging.Format {
	case "":
		cfg.Logging.Format = LogFormatText
	case LogFormatText, LogFormatJSON:
	default:
		return nil, fmt.Errorf("invalid logging format %q: want %s or %s",
			cfg.Logging.Format, LogFormatText, LogFormatJSON)
	}
	if cfg.Prospeo.URL == "" {
		cfg.Prospeo.URL = "https://api.prospeo.io"
	}
	if cfg.Prospeo.Timeout == 0 {
		cfg.Prospeo.Timeout = 30 * time.Second
	}
	if cfg.Firestore.BaseURL == "" {
		cfg.Firestore.BaseURL = "https://firestore.googleapis.com/v1"
	}

	if _, err := cfg.Retry.Policy(); err != nil {
		return nil, fmt.Errorf("invalid retry section: %w", err)
	}

	return &cfg, nil
}
