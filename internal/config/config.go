package config

import (
	"path/filepath"

	"github.com/mvp-joe/dtsroll/internal/rollup"
)

// Config represents the complete dtsroll configuration.
// It can be loaded from .dtsroll/config.yml with environment variable overrides.
type Config struct {
	Project ProjectConfig `yaml:"project" mapstructure:"project"`
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Rollup  RollupConfig  `yaml:"rollup" mapstructure:"rollup"`
}

// ProjectConfig names the package being rolled up.
type ProjectConfig struct {
	EntryPoint string `yaml:"entry_point" mapstructure:"entry_point"` // root module, relative to the project root
}

// PathsConfig defines which declaration files make up the program.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for declaration files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
	Ambient []string `yaml:"ambient" mapstructure:"ambient"` // files whose declarations are global
}

// RollupConfig defines the generated files.
type RollupConfig struct {
	Newline string        `yaml:"newline" mapstructure:"newline"` // "lf" or "crlf"
	Outputs OutputsConfig `yaml:"outputs" mapstructure:"outputs"`
}

// OutputsConfig maps release kinds to output paths. Empty paths are skipped.
type OutputsConfig struct {
	Internal string `yaml:"internal" mapstructure:"internal"`
	Preview  string `yaml:"preview" mapstructure:"preview"`
	Public   string `yaml:"public" mapstructure:"public"`
}

// Output is one file to generate.
type Output struct {
	Kind rollup.ReleaseKind
	Path string
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Include: []string{
				"**/*.d.ts",
			},
			Ignore: []string{
				"node_modules/**",
				".git/**",
				".dtsroll/**",
				"dist/**",
			},
			Ambient: []string{},
		},
		Rollup: RollupConfig{
			Newline: "lf",
			Outputs: OutputsConfig{
				Public: "dist/index.d.ts",
			},
		},
	}
}

// List returns the configured outputs in release kind order.
func (o OutputsConfig) List() ([]Output, error) {
	byName := []struct {
		name string
		path string
	}{
		{"internal", o.Internal},
		{"preview", o.Preview},
		{"public", o.Public},
	}

	var outputs []Output
	for _, entry := range byName {
		if entry.path == "" {
			continue
		}
		kind, err := rollup.ParseReleaseKind(entry.name)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, Output{Kind: kind, Path: entry.path})
	}
	return outputs, nil
}

// NewlineConvention returns the parsed line ending convention.
func (r RollupConfig) NewlineConvention() (rollup.Newline, error) {
	return rollup.ParseNewline(r.Newline)
}

// GetSourceExtensions extracts the file extensions to watch from the include
// patterns. Returns extensions with leading dot (e.g., []string{".ts"}).
func (c *Config) GetSourceExtensions() []string {
	extMap := make(map[string]bool)
	for _, pattern := range c.Paths.Include {
		if ext := extractExtension(pattern); ext != "" {
			extMap[filepath.Ext(ext)] = true
		}
	}

	extensions := make([]string, 0, len(extMap))
	for ext := range extMap {
		extensions = append(extensions, ext)
	}
	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.d.ts" -> ".d.ts", "*.ts" -> ".ts"
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
