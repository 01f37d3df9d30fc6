package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when --config is
// not given.
const DefaultConfigFile = ".stanzaflow.yaml"

// Config is the project configuration. Every knob has a working default;
// a missing config file is not an error.
type Config struct {
	Oracle struct {
		URL            string `yaml:"url"`
		Model          string `yaml:"model"`
		APIKeyEnv      string `yaml:"api_key_env"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"oracle"`

	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`

	Sandbox struct {
		Command        []string `yaml:"command"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
	} `yaml:"sandbox"`

	Audit struct {
		Threshold float64 `yaml:"threshold"`
	} `yaml:"audit"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Oracle.TimeoutSeconds = 30
	cfg.Oracle.APIKeyEnv = "STANZAFLOW_ORACLE_KEY"
	cfg.Cache.Path = ".stanzaflow/cache.db"
	cfg.Sandbox.Command = []string{"go", "vet"}
	cfg.Sandbox.TimeoutSeconds = 5
	cfg.Audit.Threshold = 0.5
	return cfg
}

// LoadConfig reads a config file over the defaults. An empty path tries
// DefaultConfigFile; if that is absent, defaults are returned as-is.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
