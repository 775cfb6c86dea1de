package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/dtsroll/internal/rollup"
)

// Test Plan for Config System:
// - Default() carries include/ignore patterns, LF newlines and a public output
// - Default() alone fails validation because the entry point is required
// - LoadConfig() loads from .dtsroll/config.yml and .dtsroll/config.yaml
// - LoadConfig() merges the config file with defaults
// - Environment variables override the config file
// - WithEntryPoint overrides both file and environment
// - LoadConfig() returns error for malformed YAML and invalid values
// - Validate() rejects empty entry point, bad globs, unknown newline, no outputs
// - Validate() reports every problem and keeps them matchable with errors.Is
// - OutputsConfig.List() returns outputs in release kind order
// - GetSourceExtensions() reduces include patterns to watchable extensions

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	configDir := filepath.Join(dir, ".dtsroll")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, name), []byte(content), 0644))
}

func validConfig() *Config {
	cfg := Default()
	cfg.Project.EntryPoint = "lib/index.d.ts"
	return cfg
}

func TestDefault_ReturnsExpectedValues(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"**/*.d.ts"}, cfg.Paths.Include)
	assert.Contains(t, cfg.Paths.Ignore, "node_modules/**")
	assert.Empty(t, cfg.Paths.Ambient)
	assert.Equal(t, "lf", cfg.Rollup.Newline)
	assert.Equal(t, "dist/index.d.ts", cfg.Rollup.Outputs.Public)

	err := Validate(cfg)
	assert.ErrorIs(t, err, ErrEmptyEntryPoint)

	assert.NoError(t, Validate(validConfig()))
}

func TestLoadConfig_RequiresEntryPoint(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(t.TempDir()).Load()
	assert.ErrorIs(t, err, ErrEmptyEntryPoint)
	assert.Nil(t, cfg)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
project:
  entry_point: lib/index.d.ts

paths:
  include:
    - "lib/**/*.d.ts"
  ignore:
    - "lib/internal/**"
  ambient:
    - "lib/globals.d.ts"

rollup:
  newline: crlf
  outputs:
    internal: out/internal.d.ts
    preview: out/beta.d.ts
    public: out/public.d.ts
`)

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "lib/index.d.ts", cfg.Project.EntryPoint)
	assert.Equal(t, []string{"lib/**/*.d.ts"}, cfg.Paths.Include)
	assert.Equal(t, []string{"lib/internal/**"}, cfg.Paths.Ignore)
	assert.Equal(t, []string{"lib/globals.d.ts"}, cfg.Paths.Ambient)
	assert.Equal(t, "crlf", cfg.Rollup.Newline)

	nl, err := cfg.Rollup.NewlineConvention()
	require.NoError(t, err)
	assert.Equal(t, rollup.NewlineCRLF, nl)

	outputs, err := cfg.Rollup.Outputs.List()
	require.NoError(t, err)
	assert.Equal(t, []Output{
		{Kind: rollup.InternalRelease, Path: "out/internal.d.ts"},
		{Kind: rollup.PreviewRelease, Path: "out/beta.d.ts"},
		{Kind: rollup.PublicRelease, Path: "out/public.d.ts"},
	}, outputs)
}

func TestLoadConfig_LoadsFromConfigYamlWithDefaults(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yaml", "project:\n  entry_point: index.d.ts\n")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	expected := Default()
	assert.Equal(t, "index.d.ts", cfg.Project.EntryPoint)
	assert.Equal(t, expected.Paths.Include, cfg.Paths.Include)
	assert.Equal(t, expected.Paths.Ignore, cfg.Paths.Ignore)
	assert.Equal(t, expected.Rollup.Newline, cfg.Rollup.Newline)
	assert.Equal(t, expected.Rollup.Outputs, cfg.Rollup.Outputs)
}

func TestLoadConfig_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
project:
  entry_point: lib/index.d.ts
rollup:
  newline: lf
  outputs:
    public: dist/index.d.ts
`)

	t.Setenv("DTSROLL_ROLLUP_NEWLINE", "crlf")
	t.Setenv("DTSROLL_ROLLUP_OUTPUTS_INTERNAL", "dist/internal.d.ts")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)

	assert.Equal(t, "crlf", cfg.Rollup.Newline)
	assert.Equal(t, "dist/internal.d.ts", cfg.Rollup.Outputs.Internal)
	// Not overridden, should come from config file
	assert.Equal(t, "lib/index.d.ts", cfg.Project.EntryPoint)
	assert.Equal(t, "dist/index.d.ts", cfg.Rollup.Outputs.Public)
}

func TestLoadConfig_EntryPointOverride(t *testing.T) {
	// Note: Cannot use t.Parallel() with t.Setenv()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", "project:\n  entry_point: lib/index.d.ts\n")
	t.Setenv("DTSROLL_PROJECT_ENTRY_POINT", "env/index.d.ts")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)
	assert.Equal(t, "env/index.d.ts", cfg.Project.EntryPoint)

	cfg, err = NewLoader(tempDir, WithEntryPoint("flag/index.d.ts")).Load()
	require.NoError(t, err)
	assert.Equal(t, "flag/index.d.ts", cfg.Project.EntryPoint)

	// An empty flag keeps the loaded value
	cfg, err = LoadConfigFromDir(tempDir, WithEntryPoint(""))
	require.NoError(t, err)
	assert.Equal(t, "env/index.d.ts", cfg.Project.EntryPoint)
}

func TestLoadConfig_ReturnsErrorForMalformedYaml(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
project:
  entry_point: "unclosed quote
rollup: [
`)

	cfg, err := NewLoader(tempDir).Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_ReturnsErrorForInvalidValues(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	writeConfig(t, tempDir, "config.yml", `
project:
  entry_point: index.d.ts
rollup:
  newline: cr
`)

	cfg, err := NewLoader(tempDir).Load()
	assert.ErrorIs(t, err, ErrInvalidNewline)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate_RejectsInvalidPatterns(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Paths.Ignore = []string{"[unterminated"}
	assert.ErrorIs(t, Validate(cfg), ErrInvalidPattern)

	cfg = validConfig()
	cfg.Paths.Include = nil
	assert.ErrorIs(t, Validate(cfg), ErrEmptyInclude)
}

func TestValidate_RejectsMissingOutputs(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Rollup.Outputs = OutputsConfig{}
	assert.ErrorIs(t, Validate(cfg), ErrNoOutputs)
}

func TestValidate_ReturnsMultipleErrorsForMultipleInvalidFields(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Paths:  PathsConfig{Include: []string{"**/*.d.ts"}},
		Rollup: RollupConfig{Newline: "mac"},
	}

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyEntryPoint)
	assert.ErrorIs(t, err, ErrInvalidNewline)
	assert.ErrorIs(t, err, ErrNoOutputs)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestGetSourceExtensions(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Paths.Include = []string{"**/*.d.ts", "types/*.ts", "README"}

	exts := cfg.GetSourceExtensions()
	sort.Strings(exts)
	assert.Equal(t, []string{".ts"}, exts)
}
