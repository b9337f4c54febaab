// Package config provides configuration loading and validation for the CLI
// and server commands.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided
// via CLI flags or environment variables.
type Config struct {
	// Server
	Port        int    `json:"port,omitempty"`         // HTTP listen port
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Providers
	APIKey     string `json:"api_key,omitempty"`     // Gemini API key
	UseBrowser bool   `json:"use_browser,omitempty"` // Headless browser fallback for SPA sites

	// Dispatcher
	Workers     int `json:"workers,omitempty"`      // Worker pool size
	MaxAttempts int `json:"max_attempts,omitempty"` // Executions per job before it fails

	// Campaign input (run command)
	BusinessURL    string `json:"business_url,omitempty"`
	TargetAudience string `json:"target_audience,omitempty"`
	CampaignGoal   string `json:"campaign_goal,omitempty"`
	BrandVoice     string `json:"brand_voice,omitempty"`
	Title          string `json:"title,omitempty"`
	Tier           string `json:"tier,omitempty"` // basic, plus, pro, enterprise

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed pipeline artifacts (run command)
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

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

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config error: 'workers' must be non-negative")
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("config error: 'max_attempts' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if result.BusinessURL == "" {
		result.BusinessURL = defaults.BusinessURL
	}
	if result.TargetAudience == "" {
		result.TargetAudience = defaults.TargetAudience
	}
	if result.CampaignGoal == "" {
		result.CampaignGoal = defaults.CampaignGoal
	}
	if result.BrandVoice == "" {
		result.BrandVoice = defaults.BrandVoice
	}
	if result.Title == "" {
		result.Title = defaults.Title
	}
	if result.Tier == "" {
		result.Tier = defaults.Tier
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
