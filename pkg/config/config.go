// Package config loads API server settings from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the campaignflow-api flags. Zero values mean "not configured".
type Config struct {
	Port        int    `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	EventBus    string `yaml:"event_bus"`
	LogLevel    string `yaml:"log_level"`
	Tracing     bool   `yaml:"tracing"`
}

// Load reads a YAML settings file. Unknown keys are rejected.
func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	defer file.Close()

	var cfg Config

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	err = decoder.Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML config %s: %w", path, err)
	}

	return cfg, nil
}

// Resolve merges flag values with the file. A flag wins when isSet reports it was given
// explicitly (command line or environment); otherwise a non-zero file value is used.
func (c Config) Resolve(flags Config, isSet func(flag string) bool) Config {
	resolved := flags

	if !isSet("port") && c.Port != 0 {
		resolved.Port = c.Port
	}

	if !isSet("database-url") && c.DatabaseURL != "" {
		resolved.DatabaseURL = c.DatabaseURL
	}

	if !isSet("event-bus") && c.EventBus != "" {
		resolved.EventBus = c.EventBus
	}

	if !isSet("log-level") && c.LogLevel != "" {
		resolved.LogLevel = c.LogLevel
	}

	if !isSet("tracing") && c.Tracing {
		resolved.Tracing = true
	}

	return resolved
}
