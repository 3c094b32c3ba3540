package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	defaultShortlistSize = 3
	defaultBlocks        = 2
)

// Config is the run configuration, optionally read from a YAML file.
type Config struct {
	Input  string `yaml:"input"`  // directory holding preferences.csv and courses.csv
	Output string `yaml:"output"` // defaults to output/<base name of input>

	// overrides for the input files; local paths or http(s) URLs
	Preferences string `yaml:"preferences"`
	Courses     string `yaml:"courses"`

	ShortlistSize int    `yaml:"shortlist_size"`
	Blocks        int    `yaml:"blocks"`
	Slots         int    `yaml:"slots"` // 0 means the same as blocks
	Seed          *int64 `yaml:"seed"`

	SQLite  string `yaml:"sqlite"`
	Metrics string `yaml:"metrics"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ShortlistSize: defaultShortlistSize,
		Blocks:        defaultBlocks,
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w: %v", path, ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Validate checks the sizes and fills in derived defaults.
func (cfg *Config) Validate() error {
	if cfg.Input == "" && (cfg.Preferences == "" || cfg.Courses == "") {
		return fmt.Errorf("%w: an input directory is required", ErrInvalidConfig)
	}
	if cfg.ShortlistSize < 1 {
		return fmt.Errorf("%w: shortlist size must be >= 1", ErrInvalidConfig)
	}
	if cfg.Blocks < 1 {
		return fmt.Errorf("%w: blocks must be >= 1", ErrInvalidConfig)
	}
	if cfg.Slots < 0 {
		return fmt.Errorf("%w: slots must be >= 1", ErrInvalidConfig)
	}
	if cfg.Slots == 0 {
		cfg.Slots = cfg.Blocks
	}
	if cfg.Preferences == "" {
		cfg.Preferences = filepath.Join(cfg.Input, "preferences.csv")
	}
	if cfg.Courses == "" {
		cfg.Courses = filepath.Join(cfg.Input, "courses.csv")
	}
	if cfg.Output == "" {
		base := "default"
		if cfg.Input != "" {
			base = filepath.Base(filepath.Clean(cfg.Input))
		}
		cfg.Output = filepath.Join("output", base)
	}
	return nil
}

// Params returns the run parameters, deriving the seed from the input when none was given.
func (cfg *Config) Params(input *Input) Params {
	seed := DefaultSeed(input.Fingerprint)
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	return Params{
		ShortlistSize: cfg.ShortlistSize,
		Blocks:        cfg.Blocks,
		Slots:         cfg.Slots,
		Seed:          seed,
	}
}
