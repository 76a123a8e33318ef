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

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// Directory holding model artifacts. Adapter paths and ModelPath are
	// resolved relative to it; micro_batching.json is looked up here too.
	ModelDir string `json:"model_dir" yaml:"model_dir" toml:"model_dir"`
	// Served model name. When empty, ModelPath must resolve to something.
	Model string `json:"model" yaml:"model" toml:"model"`
	// Model path relative to ModelDir, used when Model is empty.
	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path"`
	// Adapter name -> relative path map file (yaml or json).
	AdaptersFile string `json:"adapters_file" yaml:"adapters_file" toml:"adapters_file"`
	// Base URL of the generation engine backend.
	EngineURL string `json:"engine_url" yaml:"engine_url" toml:"engine_url"`
	// Optional bearer token for the engine backend.
	EngineAPIKey string `json:"engine_api_key" yaml:"engine_api_key" toml:"engine_api_key"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// CORS is opt-in; when disabled no CORS middleware is installed.
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
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
