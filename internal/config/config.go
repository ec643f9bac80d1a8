/*
Package config handles loading, saving, and validating advisor configuration.

Configuration is stored in ~/.tool-advisor/config.json.

Schema:

	{
	  "database": {"path": "~/.tool-advisor/advisor.db"},
	  "learning": {
	    "alpha": 0.1,
	    "gamma": 0.9,
	    "epsilon": 0.1,
	    "epsilonDecay": 0.995,
	    "minEpsilon": 0.01,
	    "minSamples": 5,
	    "bootstrap": "single"
	  },
	  "tools": [
	    {"name": "get_dimensions", "description": "List dimensions"}
	  ]
	}
*/
package config

import (
	"os"
	"path/filepath"

	"github.com/toolsmith-ai/advisor/internal/learning"
)

// Config represents the root configuration structure.
type Config struct {
	// Database contains storage settings.
	Database DatabaseConfig `json:"database"`

	// Learning contains the learning parameters, including reward weights.
	Learning learning.Config `json:"learning"`

	// Tools is the registered tool catalog.
	Tools []ToolConfig `json:"tools,omitempty"`
}

// DatabaseConfig contains storage settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path. Empty means the default
	// location under the user home directory.
	Path string `json:"path,omitempty"`
}

// ToolConfig is one registered tool.
type ToolConfig struct {
	// Name is the unique tool name.
	Name string `json:"name"`

	// Description is a human-readable description for the search surface.
	Description string `json:"description,omitempty"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Learning: learning.DefaultConfig(),
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tool-advisor", "config.json"), nil
}
