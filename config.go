package hydraprep

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/brunobiangulo/hydraprep/publish"
)

// Config holds all configuration for the hydraprep pipeline.
type Config struct {
	// RawDir is the directory holding the raw dataset sources.
	RawDir string `json:"raw_dir" yaml:"raw_dir"`

	// OutputDir receives sensors.csv, features.csv, targets.csv and,
	// when Workbook is set, report.xlsx.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// StableOnly restricts the output to test runs during which the
	// hydraulic system was stable. Defaults to true.
	StableOnly bool `json:"stable_only" yaml:"stable_only"`

	// StrictSampling rejects sensor sources whose sample count does not
	// match the catalogued sampling rate.
	StrictSampling bool `json:"strict_sampling" yaml:"strict_sampling"`

	Workbook bool `json:"workbook" yaml:"workbook"` // also write report.xlsx

	// Persist records every run in a SQLite database.
	Persist bool `json:"persist" yaml:"persist"`

	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.hydraprep/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.hydraprep/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// Publish uploads the outputs to an S3-compatible bucket when set.
	Publish *publish.Config `json:"publish,omitempty" yaml:"publish,omitempty"`
}

// DefaultConfig returns a Config that reads data/raw, writes
// data/processed and keeps stable test runs only.
func DefaultConfig() Config {
	return Config{
		RawDir:     "data/raw",
		OutputDir:  "data/processed",
		StableOnly: true,
		DBName:     "hydraprep",
		StorageDir: "home",
	}
}

// LoadConfigFile decodes a JSON config file over DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from HYDRAPREP_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("HYDRAPREP_RAW_DIR"); v != "" {
		c.RawDir = v
	}
	if v := os.Getenv("HYDRAPREP_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("HYDRAPREP_STABLE_ONLY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: HYDRAPREP_STABLE_ONLY=%q", ErrInvalidConfig, v)
		}
		c.StableOnly = b
	}
	if v := os.Getenv("HYDRAPREP_DB_PATH"); v != "" {
		c.DBPath = v
		c.Persist = true
	}

	endpoint := os.Getenv("HYDRAPREP_S3_ENDPOINT")
	bucket := os.Getenv("HYDRAPREP_S3_BUCKET")
	if endpoint != "" || bucket != "" {
		if c.Publish == nil {
			c.Publish = &publish.Config{}
		}
		if endpoint != "" {
			c.Publish.Endpoint = endpoint
		}
		if bucket != "" {
			c.Publish.Bucket = bucket
		}
	}
	if c.Publish != nil {
		if v := os.Getenv("HYDRAPREP_S3_ACCESS_KEY"); v != "" {
			c.Publish.AccessKey = v
		}
		if v := os.Getenv("HYDRAPREP_S3_SECRET_KEY"); v != "" {
			c.Publish.SecretKey = v
		}
	}
	return nil
}

// Validate checks the fields a run needs.
func (c *Config) Validate() error {
	if c.RawDir == "" {
		return fmt.Errorf("%w: raw_dir is empty", ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output_dir is empty", ErrInvalidConfig)
	}
	if c.Publish != nil {
		if err := c.Publish.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "hydraprep"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".hydraprep", name+".db")
	}
}
