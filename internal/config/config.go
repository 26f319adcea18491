package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the flat Atelier configuration
type Config struct {
	Version       string `json:"version"`
	UserID        string `json:"user_id,omitempty"`
	GenerationURL string `json:"generation_url,omitempty"` // completion endpoint base URL
	Model         string `json:"model,omitempty"`
	DBPath        string `json:"db_path,omitempty"`        // overrides ~/.atelier/atelier.db
	CooldownMS    int    `json:"cooldown_ms,omitempty"`    // minimum interval between chat submissions
	ListenAddr    string `json:"listen_addr,omitempty"`    // serve command bind address
	ActiveProject string `json:"active_project,omitempty"` // last project used by the CLI
}

// Defaults applied when the corresponding config field is empty.
const (
	DefaultGenerationURL = "http://localhost:8090"
	DefaultModel         = "atelier-designer-1"
	DefaultListenAddr    = ":8085"
	DefaultCooldownMS    = 2000
)

// LoadConfig reads .atelier/config.json from the specified directory.
// Resolution order: cwd only (no home fallback).
// Returns error if no config found - caller should handle accordingly.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, ".atelier", "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// SaveConfig writes config.json to directory
func SaveConfig(dir string, cfg *Config) error {
	atelierDir := filepath.Join(dir, ".atelier")
	if err := os.MkdirAll(atelierDir, 0755); err != nil {
		return fmt.Errorf("failed to create .atelier dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(atelierDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GenerationEndpoint returns the configured completion endpoint, falling
// back to the default.
func (c *Config) GenerationEndpoint() string {
	if c.GenerationURL != "" {
		return c.GenerationURL
	}
	return DefaultGenerationURL
}

// ModelName returns the configured model, falling back to the default.
func (c *Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}
	return DefaultModel
}

// Addr returns the configured listen address, falling back to the default.
func (c *Config) Addr() string {
	if c.ListenAddr != "" {
		return c.ListenAddr
	}
	return DefaultListenAddr
}
