package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyEntryPoint indicates a missing project entry point
	ErrEmptyEntryPoint = errors.New("empty entry point")

	// ErrEmptyInclude indicates no include patterns
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidNewline indicates an unsupported newline convention
	ErrInvalidNewline = errors.New("invalid newline convention")

	// ErrNoOutputs indicates that no release kind has an output path
	ErrNoOutputs = errors.New("no outputs configured")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateProject(&cfg.Project); err != nil {
		errs = append(errs, err)
	}

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if err := validateRollup(&cfg.Rollup); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateProject(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.EntryPoint) == "" {
		return fmt.Errorf("%w: project.entry_point is required", ErrEmptyEntryPoint)
	}
	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	if len(cfg.Include) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one include pattern required", ErrEmptyInclude))
	}

	groups := []struct {
		key      string
		patterns []string
	}{
		{"paths.include", cfg.Include},
		{"paths.ignore", cfg.Ignore},
		{"paths.ambient", cfg.Ambient},
	}
	for _, group := range groups {
		for _, pattern := range group.patterns {
			if _, err := glob.Compile(pattern, '/'); err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: %q: %v", ErrInvalidPattern, group.key, pattern, err))
			}
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateRollup(cfg *RollupConfig) error {
	var errs []error

	newline := strings.ToLower(cfg.Newline)
	if newline != "lf" && newline != "crlf" {
		errs = append(errs, fmt.Errorf("%w: must be 'lf' or 'crlf', got '%s'", ErrInvalidNewline, cfg.Newline))
	}

	outputs, err := cfg.Outputs.List()
	if err != nil {
		errs = append(errs, err)
	} else if len(outputs) == 0 {
		errs = append(errs, fmt.Errorf("%w: set at least one of rollup.outputs.internal, preview or public", ErrNoOutputs))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The individual errors stay reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return &validationError{msg: fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - ")), errs: errs}
}

type validationError struct {
	msg  string
	errs []error
}

func (e *validationError) Error() string   { return e.msg }
func (e *validationError) Unwrap() []error { return e.errs }
