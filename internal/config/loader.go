package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the serve command.
// Zero values mean "unspecified" and are replaced by defaults or flags in the CLI.
type Config struct {
	Addr        string            `json:"addr" yaml:"addr" toml:"addr"`
	Models      []string          `json:"models" yaml:"models" toml:"models"`
	Aliases     map[string]string `json:"aliases" yaml:"aliases" toml:"aliases"`
	LogLevel    string            `json:"log_level" yaml:"log_level" toml:"log_level"`
	CacheDir    string            `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	ContextSize int               `json:"context_size" yaml:"context_size" toml:"context_size"`
	Threads     int               `json:"threads" yaml:"threads" toml:"threads"`
	CORSEnabled bool              `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string          `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
