package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/annotate/pkg/annotate/bundled"
	"github.com/cognicore/annotate/pkg/annotate/model"
)

// Config is the pipeline configuration file.
type Config struct {
	Models  Models `yaml:"models"`
	Workers int    `yaml:"workers"`
	// Store is an optional SQLite path for persisted results and models.
	Store string `yaml:"store"`
}

// Models selects where blobs come from and which ones to load.
type Models struct {
	// Dir holds name-version.bin blobs. Empty means the bundled models.
	Dir        string `yaml:"dir"`
	model.Refs `yaml:",inline"`
}

// Default returns the configuration for the bundled English models.
func Default() *Config {
	return &Config{
		Models:  Models{Refs: bundled.Refs()},
		Workers: 1,
	}
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their Default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML configuration document over Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks refs and worker count.
func (c *Config) Validate() error {
	if err := c.Models.Refs.Validate(); err != nil {
		return fmt.Errorf("models: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	return nil
}

// Locator returns the model locator the configuration selects.
func (c *Config) Locator() model.Locator {
	if c.Models.Dir != "" {
		return model.DirLocator(c.Models.Dir)
	}
	return bundled.Locator{}
}
