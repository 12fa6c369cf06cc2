package main

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config drives a batch migration run. YAML file values are overridden by
// flags.
type Config struct {
	// In is the directory walked for scene documents.
	In string `json:"in" yaml:"in"`
	// Out is the directory migrated documents are written to, mirroring the
	// input layout. Empty means rewrite in place.
	Out string `json:"out" yaml:"out"`
	// Workers bounds concurrent file migrations.
	Workers int `json:"workers" yaml:"workers"`
	// DryRun loads and migrates but writes nothing.
	DryRun bool `json:"dryRun" yaml:"dryRun"`
	// Verbose switches the logger to debug level.
	Verbose bool `json:"verbose" yaml:"verbose"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer func() { _ = f.Close() }()
	var c Config
	if err := yaml.NewDecoder(f).Decode(&c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// Validate normalizes the config and rejects unusable values.
func (c *Config) Validate() error {
	if c.In == "" {
		return fmt.Errorf("input directory is required")
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Out == "" {
		c.Out = c.In
	}
	return nil
}
