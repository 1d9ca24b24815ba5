// internal/config/load.go
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// envOverrides are applied on top of the YAML file.
// Zero values mean "not set".
type envOverrides struct {
	Backend   string `env:"IAP_BACKEND"`
	Endpoint  string `env:"IAP_ENDPOINT"`
	UnitID    uint8  `env:"IAP_UNIT_ID"`
	Path      string `env:"IAP_PATH"`
	TimeoutMs int    `env:"IAP_TIMEOUT_MS"`
}

// Load reads a YAML config file and applies environment overrides.
// An empty path yields an empty config (all defaults) plus overrides.
func Load(path string) (*Config, error) {
	var raw []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		raw = b
	}
	return Parse(raw)
}

// Parse decodes YAML and applies environment overrides.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}

	b := &cfg.BootState.Backend
	if o.Backend != "" {
		b.Kind = o.Backend
	}
	if o.Endpoint != "" {
		b.Endpoint = o.Endpoint
	}
	if o.UnitID != 0 {
		b.UnitID = o.UnitID
	}
	if o.Path != "" {
		b.Path = o.Path
	}
	if o.TimeoutMs != 0 {
		b.TimeoutMs = o.TimeoutMs
	}
	return nil
}
