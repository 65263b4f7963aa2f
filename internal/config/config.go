// Package config loads JSON configuration files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load decodes the JSON file at path into a new T. Fields absent from the
// file keep the values in defaults.
func Load[T any](path string, defaults T) (*T, error) {
	cfg := defaults
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return &cfg, nil
}
