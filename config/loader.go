package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// ProjectConfigFile is the project marker and config file name.
	ProjectConfigFile = "gatekeep.yaml"
	// ProjectGovernanceDir also marks a project root when present.
	ProjectGovernanceDir = "governance"
	// UserConfigDir is the directory for user-level config.
	UserConfigDir = ".config/gatekeep"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/gatekeep/config.yaml)
// 3. Project config (gatekeep.yaml in current or parent directories)
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfig, err := LoadFromFile(userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		config.Merge(userConfig)
	} else if !os.IsNotExist(err) {
		l.logger.Warn("Failed to load user config",
			slog.String("path", userConfigPath),
			slog.String("error", err.Error()))
	}

	if root := FindProjectRoot(); root != "" {
		projectConfigPath := filepath.Join(root, ProjectConfigFile)
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load project config: %w", err)
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// FindProjectRoot walks from the working directory toward the filesystem
// root looking for the project marker: a gatekeep.yaml file or a
// governance/ directory. Returns "" when neither is found.
func FindProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, ProjectConfigFile)); err == nil {
			return dir
		}
		if info, err := os.Stat(filepath.Join(dir, ProjectGovernanceDir)); err == nil && info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// userConfigPath returns the path to the user config file.
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// apiKeyPlaceholder is the scaffolded .env.example value; treated as
// unset so a copied example file doesn't masquerade as a real key.
const apiKeyPlaceholder = "your_openrouter_api_key_here"

// LoadAPIKey resolves the OpenRouter API key from the environment, the
// project .env, or ~/.gatekeep/.env, in that order. The resolved key is
// exported into the process environment for the providers to pick up.
func LoadAPIKey() (string, error) {
	const envKey = "OPENROUTER_API_KEY"

	if key := os.Getenv(envKey); key != "" && key != apiKeyPlaceholder {
		return key, nil
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".gatekeep", ".env"))
	}

	for _, path := range candidates {
		vals, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		key := strings.TrimSpace(vals[envKey])
		if key != "" && key != apiKeyPlaceholder {
			os.Setenv(envKey, key)
			return key, nil
		}
	}

	return "", fmt.Errorf("%s not found; set it in the environment or a .env file", envKey)
}
