// Package config provides configuration loading and validation for the CLI.
package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gonfdez/minipc-agent/internal/types"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Scrape targets: brand name -> vendor page URLs.
	Targets map[string][]string `json:"targets,omitempty"`

	// Paths
	OutputDir string `json:"output_dir,omitempty"` // Root directory for cleaned HTML and extracted JSON

	// Behavior
	RefreshExisting bool   `json:"refresh_existing,omitempty"` // Re-process targets that already have cached output
	TargetTimeout   string `json:"target_timeout,omitempty"`   // Per-target timeout, Go duration string (e.g. "3m")

	// LLM
	LLMProvider string `json:"llm_provider,omitempty"` // "openai" or "gemini"
	LLMEndpoint string `json:"llm_endpoint,omitempty"` // Base URL for OpenAI-compatible servers
	LLMModel    string `json:"llm_model,omitempty"`    // Model name
	APIKey      string `json:"api_key,omitempty"`      // API key for the LLM provider

	// Persistence
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// LoadTargetsFile reads a newline-delimited list of URLs and assigns them all
// to one brand. Blank lines and lines starting with '#' are skipped.
func LoadTargetsFile(path, brand string) ([]types.Target, error) {
	if brand == "" {
		return nil, fmt.Errorf("targets file requires a brand")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file %s: %w", path, err)
	}
	defer f.Close()

	var targets []types.Target
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, types.Target{URL: line, Brand: brand})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read targets file %s: %w", path, err)
	}

	return targets, nil
}

// ScrapeTargets flattens the brand -> URLs map into an ordered target list.
// Brands are visited in sorted order so runs are deterministic.
func (c *Config) ScrapeTargets() []types.Target {
	brands := make([]string, 0, len(c.Targets))
	for brand := range c.Targets {
		brands = append(brands, brand)
	}
	sort.Strings(brands)

	var targets []types.Target
	for _, brand := range brands {
		for _, u := range c.Targets[brand] {
			targets = append(targets, types.Target{URL: u, Brand: brand})
		}
	}
	return targets
}

// Validate checks that the configuration has valid values. Configuration
// errors are fatal at startup; a batch never starts on a bad config.
func (c *Config) Validate() error {
	for brand, urls := range c.Targets {
		if strings.TrimSpace(brand) == "" {
			return fmt.Errorf("config error: target brand cannot be empty")
		}
		for _, raw := range urls {
			parsed, err := url.Parse(raw)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return fmt.Errorf("config error: invalid target URL for brand %s: %q", brand, raw)
			}
		}
	}

	if c.LLMProvider != "" && c.LLMProvider != "openai" && c.LLMProvider != "gemini" {
		return fmt.Errorf("config error: 'llm_provider' must be \"openai\" or \"gemini\", got %q", c.LLMProvider)
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.TargetTimeout == "" {
		result.TargetTimeout = defaults.TargetTimeout
	}
	if result.LLMProvider == "" {
		result.LLMProvider = defaults.LLMProvider
	}
	if result.LLMEndpoint == "" {
		result.LLMEndpoint = defaults.LLMEndpoint
	}
	if result.LLMModel == "" {
		result.LLMModel = defaults.LLMModel
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
