// Package config loads partquote settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/cost"
)

// Config holds all partquote settings
type Config struct {
	DefaultMaterial string             `yaml:"default_material"`
	Materials       map[string]float64 `yaml:"materials"`
	Advisor         Advisor            `yaml:"advisor"`
	Server          Server             `yaml:"server"`
	History         History            `yaml:"history"`
}

// Advisor configures the language model cost advisor
type Advisor struct {
	Enabled     bool          `yaml:"enabled"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// Server configures the HTTP API
type Server struct {
	Address   string        `yaml:"address"`
	BodyLimit string        `yaml:"body_limit"`
	RunTTL    time.Duration `yaml:"run_ttl"`
}

// History configures the estimate history store
type History struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		DefaultMaterial: cost.DefaultMaterial,
		Advisor: Advisor{
			Enabled:     true,
			Endpoint:    advisor.DefaultEndpoint,
			Model:       advisor.DefaultModel,
			APIKeyEnv:   "GROQ_API_KEY",
			Timeout:     advisor.DefaultTimeout,
			Temperature: advisor.DefaultTemperature,
			MaxTokens:   advisor.DefaultMaxTokens,
		},
		Server: Server{
			Address:   "127.0.0.1:8080",
			BodyLimit: "50M",
			RunTTL:    time.Hour,
		},
		History: History{
			Enabled: true,
			Path:    filepath.Join(defaultDir(), "history.db"),
		},
	}
}

// DefaultPath returns ~/.partquote/config.yaml
func DefaultPath() string {
	return filepath.Join(defaultDir(), "config.yaml")
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".partquote"
	}
	return filepath.Join(home, ".partquote")
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults. An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings
func (c *Config) Validate() error {
	var problems []string
	if c.Advisor.Timeout <= 0 {
		problems = append(problems, "advisor.timeout must be positive")
	}
	if c.Advisor.MaxTokens < 0 {
		problems = append(problems, "advisor.max_tokens must not be negative")
	}
	if c.Advisor.Enabled && c.Advisor.Endpoint == "" {
		problems = append(problems, "advisor.endpoint is required when the advisor is enabled")
	}
	if c.Server.RunTTL <= 0 {
		problems = append(problems, "server.run_ttl must be positive")
	}
	for name, rate := range c.Materials {
		if rate < 0 {
			problems = append(problems, fmt.Sprintf("materials.%s must not be negative", name))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Rates returns the default rate table with the configured overrides
func (c *Config) Rates() cost.Rates {
	return cost.DefaultRates().Merge(c.Materials)
}

// APIKey returns the advisor key from the configured environment variable
func (c *Config) APIKey() string {
	if c.Advisor.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.Advisor.APIKeyEnv)
}

// NewAdvisor builds the cost advisor. Without a key, or with the advisor
// disabled, the advisor answers from the cost model alone.
func (c *Config) NewAdvisor(opts ...advisor.Option) *advisor.Advisor {
	model := cost.NewModel(c.Rates())
	opts = append([]advisor.Option{advisor.WithTimeout(c.Advisor.Timeout)}, opts...)

	key := c.APIKey()
	if !c.Advisor.Enabled || key == "" {
		return advisor.New(nil, model, opts...)
	}

	client := advisor.NewChatClient(key,
		advisor.WithEndpoint(c.Advisor.Endpoint),
		advisor.WithModel(c.Advisor.Model),
		advisor.WithTemperature(c.Advisor.Temperature),
		advisor.WithMaxTokens(c.Advisor.MaxTokens),
	)
	return advisor.New(client, model, opts...)
}
