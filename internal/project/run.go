package project

import (
	"context"
	"path/filepath"
	"time"

	"github.com/mvp-joe/dtsroll/internal/config"
	"github.com/mvp-joe/dtsroll/internal/rollup"
)

// Result describes one completed run.
type Result struct {
	Entries []*rollup.Entry
	Outputs []string
}

// Analyze loads the project and runs the rollup analysis on its entry
// point.
func Analyze(ctx context.Context, rootDir string, cfg *config.Config, opts ...Option) (*rollup.Generator, error) {
	l := NewLoader(rootDir, cfg, opts...)
	prog, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}

	newline, err := cfg.Rollup.NewlineConvention()
	if err != nil {
		return nil, err
	}
	g := rollup.NewGenerator(prog, prog.Entry, rollup.WithLogger(l.logger), rollup.WithNewline(newline))
	if err := g.Analyze(); err != nil {
		return nil, err
	}
	return g, nil
}

// Run performs one complete pass: load, analyze, and write every configured
// output. Relative output paths are resolved against rootDir.
func Run(ctx context.Context, rootDir string, cfg *config.Config, opts ...Option) (*Result, error) {
	start := time.Now()
	l := NewLoader(rootDir, cfg, opts...)

	outputs, err := cfg.Rollup.Outputs.List()
	if err != nil {
		return nil, err
	}

	g, err := Analyze(ctx, rootDir, cfg, opts...)
	if err != nil {
		return nil, err
	}

	result := &Result{Entries: g.Entries()}
	for _, out := range outputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := out.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(rootDir, path)
		}
		if err := g.WriteFile(path, out.Kind); err != nil {
			return nil, err
		}
		result.Outputs = append(result.Outputs, path)
		l.progress.OnOutputWritten(path, len(result.Entries))
		l.logger.Info("wrote rollup", "kind", out.Kind, "path", path)
	}

	l.progress.OnComplete(result, time.Since(start))
	return result, nil
}
