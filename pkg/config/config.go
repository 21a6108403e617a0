// Package config provides configuration loading and management for miraseg.
// It handles loading cost weights and solver tuning from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"miraseg/pkg/costmap"
	"miraseg/pkg/regiongrow"
)

// Config represents the segmentation configuration loaded from YAML.
type Config struct {
	// CostMap holds the 2D cost-distance model parameters.
	CostMap struct {
		Weights costmap.Weights `yaml:"weights"`
		Tuning  costmap.Tuning  `yaml:"tuning"`

		// SeedCount is the working seed set size, anchor included.
		SeedCount int `yaml:"seedCount"`
	} `yaml:"costMap"`

	// Grow holds the 3D region-growth parameters.
	Grow struct {
		Weights regiongrow.Weights `yaml:"weights"`
		Tuning  regiongrow.Tuning  `yaml:"tuning"`

		// MaxVoxels caps the included-voxel list.
		MaxVoxels int `yaml:"maxVoxels"`

		// MaxCost is the guided growth budget.
		MaxCost float64 `yaml:"maxCost"`

		// Connectivity is 6 or 26.
		Connectivity int `yaml:"connectivity"`
	} `yaml:"grow"`

	// Output parameters.
	Output struct {
		// SaveMaskSlices writes per-axis mask overlay slices after a run.
		SaveMaskSlices bool `yaml:"saveMaskSlices"`

		// SliceDir is where mask slices are written.
		SliceDir string `yaml:"sliceDir"`

		// Verbose controls the level of logging output.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.CostMap.Weights = costmap.DefaultWeights()
	cfg.CostMap.Tuning = costmap.DefaultTuning()
	cfg.CostMap.SeedCount = 1

	cfg.Grow.Weights = regiongrow.DefaultWeights()
	cfg.Grow.Tuning = regiongrow.DefaultTuning()
	cfg.Grow.MaxVoxels = regiongrow.DefaultMaxVoxels
	cfg.Grow.MaxCost = regiongrow.DefaultMaxCost
	cfg.Grow.Connectivity = 6

	cfg.Output.SaveMaskSlices = false
	cfg.Output.SliceDir = "mask_slices"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
