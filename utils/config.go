package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScenarioConfig describes one oracle run over a (1, H, W, C) index tensor.
type ScenarioConfig struct {
	Name      string `yaml:"name"`
	Height    int    `yaml:"height"`
	Width     int    `yaml:"width"`
	Channels  int    `yaml:"channels"`
	BlockSize int    `yaml:"block_size"`
}

// Config holds oracle run configuration
type Config struct {
	Scenarios []ScenarioConfig `yaml:"scenarios"`
	Encrypted bool             `yaml:"encrypted"`
	Split     bool             `yaml:"split"`
	LogN      int              `yaml:"log_n"`
	Verbose   bool             `yaml:"verbose"`
	DumpPath  string           `yaml:"dump_path"`
}

const (
	DefaultBlockSize = 2
	DefaultLogN      = 13
)

// DefaultConfig returns the two reference scenarios in plaintext mode.
func DefaultConfig() *Config {
	return &Config{
		Scenarios: []ScenarioConfig{
			{Name: "A", Height: 28, Width: 28, Channels: 3, BlockSize: DefaultBlockSize},
			{Name: "B", Height: 38, Width: 38, Channels: 8, BlockSize: DefaultBlockSize},
		},
		LogN:    DefaultLogN,
		Verbose: true,
	}
}

// LoadConfig reads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Config{Verbose: true}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Set defaults
	if cfg.LogN == 0 {
		cfg.LogN = DefaultLogN
	}
	for i := range cfg.Scenarios {
		sc := &cfg.Scenarios[i]
		if sc.BlockSize == 0 {
			sc.BlockSize = DefaultBlockSize
		}
		if sc.Name == "" {
			sc.Name = fmt.Sprintf("%dx%dx%d", sc.Height, sc.Width, sc.Channels)
		}
	}
	return &cfg, nil
}

// ParseShape parses an "H W C" string into a scenario with the given block size
func ParseShape(shapeStr string, blockSize int) (ScenarioConfig, error) {
	parts := strings.Fields(shapeStr)
	if len(parts) != 3 {
		return ScenarioConfig{}, fmt.Errorf("shape must be \"H W C\", got %q", shapeStr)
	}
	dims := make([]int, len(parts))
	for i, s := range parts {
		n, err := strconv.Atoi(s)
		if err != nil {
			return ScenarioConfig{}, err
		}
		dims[i] = n
	}
	return ScenarioConfig{
		Name:      fmt.Sprintf("%dx%dx%d", dims[0], dims[1], dims[2]),
		Height:    dims[0],
		Width:     dims[1],
		Channels:  dims[2],
		BlockSize: blockSize,
	}, nil
}

// ValidateConfig validates run configuration. Divisibility of the spatial
// dimensions by the block size is left to the oracle, which reports it as
// its own error kind.
func ValidateConfig(config *Config) error {
	if len(config.Scenarios) == 0 {
		return fmt.Errorf("at least one scenario is required")
	}

	for _, sc := range config.Scenarios {
		if sc.Height <= 0 || sc.Width <= 0 || sc.Channels <= 0 {
			return fmt.Errorf("scenario %s: dimensions must be positive", sc.Name)
		}
	}

	if config.LogN < 13 || config.LogN > 16 {
		return fmt.Errorf("logN must be in [13, 16], got %d", config.LogN)
	}

	return nil
}
