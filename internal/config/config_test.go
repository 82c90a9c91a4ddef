package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonfdez/minipc-agent/internal/types"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	content := `{
		"targets": {
			"GEEKOM": ["https://www.geekom.es/geekom-mini-it13"],
			"Minisforum": ["https://minisforum.com/um790", "https://minisforum.com/um890"]
		},
		"output_dir": "./scrapeResults",
		"llm_provider": "openai",
		"llm_model": "qwen2.5:14b",
		"refresh_existing": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "./scrapeResults", cfg.OutputDir)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "qwen2.5:14b", cfg.LLMModel)
	assert.True(t, cfg.RefreshExisting)
	assert.Len(t, cfg.Targets["Minisforum"], 2)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestLoadTargetsFile(t *testing.T) {
	content := "https://example.com/a\n\n# comment line\nhttps://example.com/b\n"

	tmpFile := filepath.Join(t.TempDir(), "targets.txt")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	targets, err := LoadTargetsFile(tmpFile, "GEEKOM")
	require.NoError(t, err)

	require.Len(t, targets, 2)
	assert.Equal(t, types.Target{URL: "https://example.com/a", Brand: "GEEKOM"}, targets[0])
	assert.Equal(t, types.Target{URL: "https://example.com/b", Brand: "GEEKOM"}, targets[1])
}

func TestLoadTargetsFile_RequiresBrand(t *testing.T) {
	_, err := LoadTargetsFile("targets.txt", "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires a brand")
}

func TestScrapeTargets_DeterministicOrder(t *testing.T) {
	cfg := &Config{
		Targets: map[string][]string{
			"Minisforum": {"https://minisforum.com/um790"},
			"GEEKOM":     {"https://geekom.es/it13", "https://geekom.es/a8"},
		},
	}

	targets := cfg.ScrapeTargets()
	require.Len(t, targets, 3)
	assert.Equal(t, "GEEKOM", targets[0].Brand)
	assert.Equal(t, "GEEKOM", targets[1].Brand)
	assert.Equal(t, "Minisforum", targets[2].Brand)
}

func TestValidate_InvalidTargetURL(t *testing.T) {
	cfg := &Config{
		Targets: map[string][]string{
			"GEEKOM": {"ftp://geekom.es/it13"},
		},
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid target URL")
}

func TestValidate_EmptyBrand(t *testing.T) {
	cfg := &Config{
		Targets: map[string][]string{
			"  ": {"https://example.com/x"},
		},
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "brand cannot be empty")
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := &Config{LLMProvider: "anthropic"}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "llm_provider")
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := &Config{LLMModel: "qwen2.5:14b"}
	defaults := Config{
		OutputDir:   "./scrapeResults",
		LLMProvider: "openai",
		LLMModel:    "llama3",
		DatabaseURL: "postgres://localhost/minipc",
	}

	merged := cfg.MergeWithDefaults(defaults)

	assert.Equal(t, "./scrapeResults", merged.OutputDir)
	assert.Equal(t, "openai", merged.LLMProvider)
	assert.Equal(t, "qwen2.5:14b", merged.LLMModel, "explicit value wins over default")
	assert.Equal(t, "postgres://localhost/minipc", merged.DatabaseURL)
}
