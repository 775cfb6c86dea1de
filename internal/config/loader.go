package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables → overrides
	Load() (*Config, error)
}

// LoaderOption customizes a Loader.
type LoaderOption func(*loader)

// WithEntryPoint overrides project.entry_point, typically from a CLI flag.
func WithEntryPoint(path string) LoaderOption {
	return func(l *loader) {
		if path != "" {
			l.overrides["project.entry_point"] = path
		}
	}
}

type loader struct {
	rootDir   string
	overrides map[string]any
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string, opts ...LoaderOption) Loader {
	l := &loader{
		rootDir:   rootDir,
		overrides: make(map[string]any),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Loader overrides (CLI flags)
// 2. Environment variables (DTSROLL_*)
// 3. Config file (.dtsroll/config.yml or .dtsroll/config.yaml)
// 4. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".dtsroll")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	// Replace . with _ in env var names (e.g., DTSROLL_PROJECT_ENTRY_POINT)
	v.SetEnvPrefix("DTSROLL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("project.entry_point")
	v.BindEnv("rollup.newline")
	v.BindEnv("rollup.outputs.internal")
	v.BindEnv("rollup.outputs.preview")
	v.BindEnv("rollup.outputs.public")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	for key, value := range l.overrides {
		v.Set(key, value)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("project.entry_point", defaults.Project.EntryPoint)

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)
	v.SetDefault("paths.ambient", defaults.Paths.Ambient)

	v.SetDefault("rollup.newline", defaults.Rollup.Newline)
	v.SetDefault("rollup.outputs.internal", defaults.Rollup.Outputs.Internal)
	v.SetDefault("rollup.outputs.preview", defaults.Rollup.Outputs.Preview)
	v.SetDefault("rollup.outputs.public", defaults.Rollup.Outputs.Public)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig(opts ...LoaderOption) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd, opts...).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string, opts ...LoaderOption) (*Config, error) {
	return NewLoader(rootDir, opts...).Load()
}
