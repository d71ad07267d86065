// Package config provides configuration loading and management for
// Gatekeep: layered defaults, user config, project config, and model API
// key resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gatekeep-dev/gatekeep/model"
)

// Config represents the complete Gatekeep configuration.
type Config struct {
	Project ProjectConfig `yaml:"project"`
	Model   ModelConfig   `yaml:"model"`
	Review  ReviewConfig  `yaml:"review"`
	Deploy  DeployConfig  `yaml:"deploy"`
	Metrics MetricsConfig `yaml:"metrics"`

	// Endpoints adds or overrides model endpoint definitions.
	Endpoints map[string]*model.EndpointConfig `yaml:"endpoints"`
}

// ProjectConfig identifies the project and its compliance scope.
type ProjectConfig struct {
	Name string `yaml:"name"`

	// Standards lists the standard ids the project opts into.
	Standards []string `yaml:"standards"`

	// BudgetLimit is the monthly spend guardrail (USD) surfaced to
	// cost-role personas.
	BudgetLimit int `yaml:"budget_limit"`
}

// ModelConfig configures model invocation behavior.
type ModelConfig struct {
	// Timeout bounds each model call.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the retry budget for transient failures
	// (maxRetries+1 total attempts).
	MaxRetries int `yaml:"max_retries"`

	// Temperature controls sampling randomness (0.0-1.0).
	Temperature float64 `yaml:"temperature"`
}

// UnmarshalYAML accepts timeout as a duration string ("90s") or as
// integer nanoseconds.
func (m *ModelConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Timeout     yamlDuration `yaml:"timeout"`
		MaxRetries  int          `yaml:"max_retries"`
		Temperature float64      `yaml:"temperature"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	m.Timeout = time.Duration(raw.Timeout)
	m.MaxRetries = raw.MaxRetries
	m.Temperature = raw.Temperature
	return nil
}

// ReviewConfig configures team review mode.
type ReviewConfig struct {
	// Deadline bounds the whole parallel review; personas still pending
	// when it elapses report as unavailable.
	Deadline time.Duration `yaml:"deadline"`
}

// UnmarshalYAML accepts deadline as a duration string or integer
// nanoseconds.
func (r *ReviewConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Deadline yamlDuration `yaml:"deadline"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	r.Deadline = time.Duration(raw.Deadline)
	return nil
}

// yamlDuration decodes either a Go duration string or an integer
// nanosecond count, so hand-written and machine-written configs both
// parse.
type yamlDuration time.Duration

func (d *yamlDuration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("invalid duration value: %w", err)
		}
		*d = yamlDuration(n)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = yamlDuration(parsed)
	return nil
}

// DeployConfig configures deployment gate mode.
type DeployConfig struct {
	// Stages overrides the per-environment stage personas from the
	// personas file. Execution order matches declaration order.
	Stages map[string][]string `yaml:"stages"`
}

// MetricsConfig configures the optional prometheus listener.
type MetricsConfig struct {
	// Addr is the listen address (e.g. "127.0.0.1:9090"); empty disables
	// the listener.
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			BudgetLimit: 30,
		},
		Model: ModelConfig{
			Timeout:     60 * time.Second,
			MaxRetries:  2,
			Temperature: 0.2,
		},
		Review: ReviewConfig{
			Deadline: 3 * time.Minute,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model.timeout must be positive")
	}
	if c.Model.MaxRetries < 0 {
		return fmt.Errorf("model.max_retries must not be negative")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Merge merges another config into this one; other takes precedence for
// non-zero values.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Project.Name != "" {
		c.Project.Name = other.Project.Name
	}
	if len(other.Project.Standards) > 0 {
		c.Project.Standards = other.Project.Standards
	}
	if other.Project.BudgetLimit != 0 {
		c.Project.BudgetLimit = other.Project.BudgetLimit
	}

	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}
	if other.Model.MaxRetries != 0 {
		c.Model.MaxRetries = other.Model.MaxRetries
	}
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}

	if other.Review.Deadline != 0 {
		c.Review.Deadline = other.Review.Deadline
	}

	if len(other.Deploy.Stages) > 0 {
		c.Deploy.Stages = other.Deploy.Stages
	}

	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}

	if len(other.Endpoints) > 0 {
		if c.Endpoints == nil {
			c.Endpoints = make(map[string]*model.EndpointConfig, len(other.Endpoints))
		}
		for name, ep := range other.Endpoints {
			c.Endpoints[name] = ep
		}
	}
}
