package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, ValidateConfig(cfg))
	require.Len(t, cfg.Scenarios, 2)
	assert.Equal(t, ScenarioConfig{Name: "A", Height: 28, Width: 28, Channels: 3, BlockSize: 2}, cfg.Scenarios[0])
	assert.Equal(t, ScenarioConfig{Name: "B", Height: 38, Width: 38, Channels: 8, BlockSize: 2}, cfg.Scenarios[1])
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oracle.yaml")
	yamlText := `
encrypted: true
split: true
scenarios:
  - name: small
    height: 4
    width: 4
    channels: 2
  - height: 6
    width: 9
    channels: 1
    block_size: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, ValidateConfig(cfg))

	assert.True(t, cfg.Encrypted)
	assert.True(t, cfg.Split)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, DefaultLogN, cfg.LogN)
	assert.Equal(t, 2, cfg.Scenarios[0].BlockSize)
	assert.Equal(t, "6x9x1", cfg.Scenarios[1].Name)
	assert.Equal(t, 3, cfg.Scenarios[1].BlockSize)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenarios: [1, 2"), 0644))
	_, err = LoadConfig(path)
	require.Error(t, err)
}

func TestParseShape(t *testing.T) {
	sc, err := ParseShape("27 28 3", 2)
	require.NoError(t, err)
	assert.Equal(t, ScenarioConfig{Name: "27x28x3", Height: 27, Width: 28, Channels: 3, BlockSize: 2}, sc)

	_, err = ParseShape("28 28", 2)
	require.Error(t, err)
	_, err = ParseShape("28 x 3", 2)
	require.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scenarios = nil
	require.Error(t, ValidateConfig(cfg))

	cfg = DefaultConfig()
	cfg.Scenarios[1].Channels = 0
	require.Error(t, ValidateConfig(cfg))

	cfg = DefaultConfig()
	cfg.LogN = 9
	require.Error(t, ValidateConfig(cfg))

	// divisibility is not a config concern
	cfg = DefaultConfig()
	cfg.Scenarios[0].Height = 27
	require.NoError(t, ValidateConfig(cfg))
}
