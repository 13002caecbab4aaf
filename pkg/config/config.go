// Package config provides configuration loading and management for qumin.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"qumin/pkg/masks"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Quantification parameters
	Quantify struct {
		// MainChannel is the channel index thresholded to derive the masks
		MainChannel int `yaml:"mainChannel"`

		// RedChannel is the channel index measured over aggregates and cytoplasm
		RedChannel int `yaml:"redChannel"`

		// LowerK scales the standard deviation for the background-removed threshold
		LowerK float64 `yaml:"lowerK"`

		// UpperK scales the standard deviation for the aggregates threshold
		UpperK float64 `yaml:"upperK"`

		// BlurSigma is the Gaussian sigma in pixels applied before thresholding (0 disables)
		BlurSigma float64 `yaml:"blurSigma"`

		// DilateSize is the odd side length of the square dilation element (0 disables)
		DilateSize int `yaml:"dilateSize"`

		// MetricsSource is "raw" or "smoothed"
		MetricsSource string `yaml:"metricsSource"`
	} `yaml:"quantify"`

	// Processing parameters
	Processing struct {
		// NumWorkers is how many images are processed at once
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// OutputDir is where stage images are written, relative to the input directory
		OutputDir string `yaml:"outputDir"`

		// ResultsFile is the results table name, relative to the input directory
		ResultsFile string `yaml:"resultsFile"`

		// SaveStages writes the stage PNGs of every image
		SaveStages bool `yaml:"saveStages"`

		// StitchDir is where stitched montages are written, relative to the input directory
		StitchDir string `yaml:"stitchDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	s := masks.DefaultSettings()
	cfg.Quantify.MainChannel = 0
	cfg.Quantify.RedChannel = 1
	cfg.Quantify.LowerK = s.LowerK
	cfg.Quantify.UpperK = s.UpperK
	cfg.Quantify.BlurSigma = 0
	cfg.Quantify.DilateSize = 0
	cfg.Quantify.MetricsSource = masks.MetricsRaw.String()

	cfg.Processing.NumWorkers = runtime.NumCPU()

	cfg.Output.OutputDir = "qumin_output"
	cfg.Output.ResultsFile = "Results.csv"
	cfg.Output.SaveStages = false
	cfg.Output.StitchDir = "qumin_stitched"

	return cfg
}

// Settings converts the quantification section into mask engine settings
func (c *Config) Settings() (masks.Settings, error) {
	source, err := masks.ParseMetricsSource(c.Quantify.MetricsSource)
	if err != nil {
		return masks.Settings{}, err
	}
	s := masks.Settings{
		LowerK:        c.Quantify.LowerK,
		UpperK:        c.Quantify.UpperK,
		BlurSigma:     c.Quantify.BlurSigma,
		DilateSize:    c.Quantify.DilateSize,
		MetricsSource: source,
	}
	return s, s.Validate()
}

// Validate checks values that would fail every image
func (c *Config) Validate() error {
	if c.Quantify.MainChannel < 0 || c.Quantify.RedChannel < 0 {
		return fmt.Errorf("channel indices must be non-negative (main %d, red %d)",
			c.Quantify.MainChannel, c.Quantify.RedChannel)
	}
	if c.Quantify.BlurSigma < 0 {
		return fmt.Errorf("blur sigma must be non-negative, got %g", c.Quantify.BlurSigma)
	}
	if c.Processing.NumWorkers < 1 {
		return fmt.Errorf("numWorkers must be at least 1, got %d", c.Processing.NumWorkers)
	}
	if c.Output.ResultsFile == "" {
		return fmt.Errorf("resultsFile must not be empty")
	}
	if err := validateSubdir("outputDir", c.Output.OutputDir); err != nil {
		return err
	}
	if err := validateSubdir("stitchDir", c.Output.StitchDir); err != nil {
		return err
	}
	_, err := c.Settings()
	return err
}

// validateSubdir requires dir to name a directory inside the input directory,
// so that it can be told apart from image stacks when listing inputs
func validateSubdir(name, dir string) error {
	clean := filepath.Clean(dir)
	if dir == "" || filepath.IsAbs(dir) || clean == "." || clean == ".." ||
		strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s must be a subdirectory of the input directory, got %q", name, dir)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

	// Check if config file exists
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

// SaveConfig saves the configuration to a YAML file
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

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
