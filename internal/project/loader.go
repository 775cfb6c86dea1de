package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/mvp-joe/dtsroll/internal/checker"
	"github.com/mvp-joe/dtsroll/internal/config"
	"github.com/mvp-joe/dtsroll/internal/syntax"
)

// ErrEntryPointNotFound is returned when the configured entry point is not
// one of the discovered files.
var ErrEntryPointNotFound = errors.New("entry point not found")

// Option configures a Loader.
type Option func(*Loader)

// WithProgress sets the progress reporter.
func WithProgress(progress ProgressReporter) Option {
	return func(l *Loader) {
		l.progress = progress
	}
}

// WithLogger sets the logger used by the loader and the rollup it drives.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// Loader discovers, parses and binds the declaration files of a project.
type Loader struct {
	rootDir  string
	cfg      *config.Config
	parser   *syntax.Parser
	progress ProgressReporter
	logger   *log.Logger
}

// Program is a bound project together with its entry file.
type Program struct {
	*checker.Program
	Entry *syntax.File
}

// NewLoader creates a loader for the project rooted at rootDir.
func NewLoader(rootDir string, cfg *config.Config, opts ...Option) *Loader {
	l := &Loader{
		rootDir:  rootDir,
		cfg:      cfg,
		parser:   syntax.NewParser(),
		progress: &NoOpProgressReporter{},
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Discovery returns the file discovery for the configured patterns.
func (l *Loader) Discovery() (*FileDiscovery, error) {
	return NewFileDiscovery(l.rootDir, l.cfg.Paths.Include, l.cfg.Paths.Ignore)
}

// Load parses every discovered file and binds them into one program. File
// paths inside the program are relative to the root, slash separated.
func (l *Loader) Load(ctx context.Context) (*Program, error) {
	discovery, err := l.Discovery()
	if err != nil {
		return nil, fmt.Errorf("failed to create file discovery: %w", err)
	}

	l.progress.OnDiscoveryStart()
	paths, err := discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	paths = l.withoutOutputs(paths)
	l.progress.OnDiscoveryComplete(len(paths))
	l.logger.Debug("discovered files", "root", l.rootDir, "count", len(paths))

	l.progress.OnParsingStart(len(paths))
	files := make([]*syntax.File, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := l.parseFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
		l.progress.OnFileParsed(f.Path)
	}

	prog, err := checker.NewProgram(files, checker.WithAmbientPatterns(l.cfg.Paths.Ambient...))
	if err != nil {
		return nil, err
	}

	entry := prog.File(l.cfg.Project.EntryPoint)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s is not matched by paths.include under %s",
			ErrEntryPointNotFound, l.cfg.Project.EntryPoint, l.rootDir)
	}
	return &Program{Program: prog, Entry: entry}, nil
}

// withoutOutputs drops previously written rollups that the include patterns
// would otherwise pick up.
func (l *Loader) withoutOutputs(paths []string) []string {
	outputs, err := l.cfg.Rollup.Outputs.List()
	if err != nil || len(outputs) == 0 {
		return paths
	}
	skip := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		p := out.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(l.rootDir, p)
		}
		if abs, err := filepath.Abs(p); err == nil {
			skip[abs] = true
		}
	}
	kept := paths[:0]
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil && skip[abs] {
			l.logger.Debug("skipping rollup output", "path", p)
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func (l *Loader) parseFile(path string) (*syntax.File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	rel, err := filepath.Rel(l.rootDir, path)
	if err != nil {
		return nil, err
	}
	return l.parser.Parse(filepath.ToSlash(rel), src)
}
