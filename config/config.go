// Package config handles reins configuration loading: a YAML file for
// budgets, providers, and sub-agent definitions, with API keys sourced
// from the environment (optionally seeded from a .env file).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spetersoncode/reins/agent"
)

// DefaultSearchPaths returns the config file search order: ./reins.yaml,
// ~/.config/reins/config.yaml, /etc/reins/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"reins.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reins", "config.yaml"))
	}
	paths = append(paths, "/etc/reins/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty it must exist;
// otherwise the default search paths are tried in order.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all reins configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Budget   BudgetConfig   `yaml:"budget"`
	History  HistoryConfig  `yaml:"history"`
	Agents   []AgentConfig  `yaml:"agents"`
}

// ProviderConfig selects and configures the model backend.
type ProviderConfig struct {
	// Name is one of: openai, anthropic, google, ollama.
	Name    string `yaml:"name"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// BudgetConfig bounds a run. Zero values fall back to the defaults.
type BudgetConfig struct {
	MaxIterations        int `yaml:"max_iterations"`
	MaxToolCalls         int `yaml:"max_tool_calls"`
	MaxConsecutiveErrors int `yaml:"max_consecutive_errors"`
}

// Budget converts the config values to an agent.Budget, filling gaps with
// defaults.
func (b BudgetConfig) Budget() agent.Budget {
	budget := agent.DefaultBudget()
	if b.MaxIterations > 0 {
		budget.MaxIterations = b.MaxIterations
	}
	if b.MaxToolCalls > 0 {
		budget.MaxToolCalls = b.MaxToolCalls
	}
	if b.MaxConsecutiveErrors > 0 {
		budget.MaxConsecutiveErrors = b.MaxConsecutiveErrors
	}
	return budget
}

// HistoryConfig bounds the conversation log.
type HistoryConfig struct {
	MaxMessages       int    `yaml:"max_messages"`
	KeepSystemMessage bool   `yaml:"keep_system_message"`
	SQLitePath        string `yaml:"sqlite_path"`
}

// AgentConfig describes a delegable sub-agent.
type AgentConfig struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	SystemPrompt string `yaml:"system_prompt"`
	Model        string `yaml:"model"`
}

// Load reads configuration from a YAML file. ${VAR} references in the file
// are expanded from the environment before parsing, so API keys can stay
// out of the file itself.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv reads a .env file into the process environment when one exists.
// Missing files are not an error; existing environment variables win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		return godotenv.Load()
	}
	return godotenv.Load(files...)
}

// Default returns a default configuration targeting a local Ollama server.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name: "ollama",
		},
		History: HistoryConfig{
			KeepSystemMessage: true,
		},
	}
}
