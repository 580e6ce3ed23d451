// Package config defines the engine configuration surface shared by
// the CLI and embedding applications.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/tabular/pkg/compression"
	"github.com/ajitpratap0/tabular/pkg/errors"
	"github.com/ajitpratap0/tabular/pkg/logger"
)

// Config is the root engine configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	CSV     CSVConfig     `yaml:"csv"`
	Logging logger.Config `yaml:"logging"`
}

// StorageConfig tunes block management and persistence.
type StorageConfig struct {
	// AutoConsolidate merges same-kind blocks after structural edits
	// once the block count crosses ConsolidateThreshold.
	AutoConsolidate bool `yaml:"auto_consolidate"`
	// ConsolidateThreshold is the block count that triggers automatic
	// consolidation. Zero means consolidate on every edit.
	ConsolidateThreshold int `yaml:"consolidate_threshold"`
	// SnapshotCompression names the codec for snapshot files.
	SnapshotCompression string `yaml:"snapshot_compression"`
}

// CSVConfig tunes CSV ingestion.
type CSVConfig struct {
	Delimiter  string   `yaml:"delimiter"`
	NoHeader   bool     `yaml:"no_header"`
	NullTokens []string `yaml:"null_tokens"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			AutoConsolidate:      true,
			ConsolidateThreshold: 16,
			SnapshotCompression:  string(compression.Zstd),
		},
		CSV: CSVConfig{
			Delimiter:  ",",
			NullTokens: []string{"NA", "null"},
		},
		Logging: logger.Config{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if _, err := compression.ParseAlgorithm(c.Storage.SnapshotCompression); err != nil {
		return err
	}
	if c.Storage.ConsolidateThreshold < 0 {
		return errors.New(errors.ErrorTypeValidation, "consolidate_threshold must not be negative")
	}
	if len(c.CSV.Delimiter) > 1 {
		return errors.New(errors.ErrorTypeValidation, "csv delimiter must be a single character")
	}
	return nil
}
