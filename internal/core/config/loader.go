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

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = 500 * time.Millisecond
	}
	if cfg.Retry.DelayCap == 0 {
		cfg.Retry.DelayCap = 5000 * time.Millisecond
	}
	if cfg.Retry.JitterMax == 0 {
		cfg.Retry.JitterMax = 100 * time.Millisecond
	}

	seen := make(map[string]struct{}, len(cfg.Resources))
	for _, r := range cfg.Resources {
		if r.Name == "" {
			return nil, fmt.Errorf("resource with empty name in config")
		}
		if _, dup := seen[r.Name]; dup {
			return nil, fmt.Errorf("duplicate resource name %q in config", r.Name)
		}
		seen[r.Name] = struct{}{}
	}

	return &cfg, nil
}
