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

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Agent.Name == "" {
		cfg.Agent.Name = "courier"
	}
	if cfg.Health.Interval == 0 {
		cfg.Health.Interval = 30 * time.Second
	}
	if cfg.DeadLetter.Backend == "" {
		cfg.DeadLetter.Backend = "memory"
	}

	cfg.Retry = cfg.Retry.WithDefaults()

	for i := range cfg.Transports {
		if cfg.Transports[i].Name == "" {
			cfg.Transports[i].Name = string(cfg.Transports[i].Kind)
		}
		if cfg.Transports[i].Timeout == "" {
			cfg.Transports[i].Timeout = "30s"
		}
	}

	return &cfg, nil
}
