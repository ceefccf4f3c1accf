package config

import (
	"fmt"
	"os"
)

// Loader resolves the effective configuration from a file and overrides.
type Loader struct {
	ConfigPath string
	ModelsDir  string // overrides models.dir when set
	Workers    int    // overrides workers when > 0
	StorePath  string // overrides store when set
}

// FromEnv fills empty Loader fields from ANNOTATE_CONFIG, ANNOTATE_MODELS_DIR
// and ANNOTATE_STORE.
func (l *Loader) FromEnv() {
	if l.ConfigPath == "" {
		l.ConfigPath = os.Getenv("ANNOTATE_CONFIG")
	}
	if l.ModelsDir == "" {
		l.ModelsDir = os.Getenv("ANNOTATE_MODELS_DIR")
	}
	if l.StorePath == "" {
		l.StorePath = os.Getenv("ANNOTATE_STORE")
	}
}

// Load reads the configuration file (if any) and applies overrides.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()
	if l.ConfigPath != "" {
		loaded, err := LoadConfig(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	if l.ModelsDir != "" {
		cfg.Models.Dir = l.ModelsDir
	}
	if l.Workers > 0 {
		cfg.Workers = l.Workers
	}
	if l.StorePath != "" {
		cfg.Store = l.StorePath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
