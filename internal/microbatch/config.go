// Package microbatch wraps the handler entry point with micro-batch
// splitting under a configured parallelism budget.
package microbatch

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ConfigFileName is looked up beside the model artifacts.
const ConfigFileName = "micro_batching.json"

// Config controls how calls into the handler entry point are grouped.
type Config struct {
	Parallelism    int `json:"parallelism"`
	MicroBatchSize int `json:"micro_batch_size"`
}

// DefaultConfig returns the defaults applied when no config file is present.
func DefaultConfig() Config {
	return Config{Parallelism: 1, MicroBatchSize: 1}
}

// LoadConfig reads micro_batching.json from dir. A missing file is not an
// error: defaults apply. A present file with a missing key logs a warning
// and keeps the default for that key.
func LoadConfig(dir string, log zerolog.Logger) Config {
	cfg := DefaultConfig()
	path := filepath.Join(dir, ConfigFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", path).Msg("no micro batching config file found")
		} else {
			log.Warn().Err(err).Str("path", path).Msg("failed to read micro batching config")
		}
		return cfg
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to parse micro batching config")
		return cfg
	}
	loadKey(raw, "parallelism", &cfg.Parallelism, path, log)
	loadKey(raw, "micro_batch_size", &cfg.MicroBatchSize, path, log)
	log.Info().Str("path", path).Int("parallelism", cfg.Parallelism).Int("micro_batch_size", cfg.MicroBatchSize).Msg("loaded micro batching config")
	return cfg
}

func loadKey(raw map[string]json.RawMessage, key string, dst *int, path string, log zerolog.Logger) {
	v, ok := raw[key]
	if !ok {
		log.Warn().Str("path", path).Str("key", key).Msg("micro batching config key missing, keeping default")
		return
	}
	var n int
	if err := json.Unmarshal(v, &n); err != nil {
		log.Warn().Err(err).Str("path", path).Str("key", key).Msg("invalid micro batching config value, keeping default")
		return
	}
	if n > 0 {
		*dst = n
	}
}
