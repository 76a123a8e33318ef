// Package registry loads the externally supplied adapter configuration.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadAdapters reads an adapter name -> relative path map from a YAML or
// JSON file. An empty path means no adapters are configured.
func LoadAdapters(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	p, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read adapters file: %w", err)
	}
	adapters := map[string]string{}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &adapters); err != nil {
			return nil, fmt.Errorf("parse adapters file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &adapters); err != nil {
			return nil, fmt.Errorf("parse adapters file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported adapters file extension: %s", ext)
	}
	return adapters, nil
}

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
