package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/dtsroll/internal/config"
	"github.com/mvp-joe/dtsroll/internal/project"
	"github.com/mvp-joe/dtsroll/internal/watcher"
)

var (
	entryFlag string
	quietFlag bool
	watchFlag bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Write the rolled-up declaration files",
	Long: `Run loads every declaration file matched by paths.include, follows the
exports of the entry point and writes one rolled-up .d.ts per configured
release tier (internal, preview, public).

Examples:
  # Roll up the current directory
  dtsroll run

  # Override the entry point
  dtsroll run --entry lib/index.d.ts

  # Rerun whenever a declaration file changes
  dtsroll run --watch
`,
	RunE: runRollup,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&entryFlag, "entry", "e", "", "Entry point, relative to the project directory")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Replace progress bars and log output with a one-line summary")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for declaration changes and rerun")
}

func runRollup(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootDir, err := resolveProjectDir()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfigFromDir(rootDir, config.WithEntryPoint(entryFlag))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	result, err := runOnce(ctx, rootDir, cfg)
	if err != nil {
		return err
	}
	// without --quiet the progress reporter already printed the summary
	if quietFlag {
		fmt.Fprintf(cmd.OutOrStdout(), "Rollup complete: %d declarations, %d outputs\n",
			len(result.Entries), len(result.Outputs))
	}

	if !watchFlag {
		return nil
	}
	return watchRollup(ctx, rootDir, cfg, result.Outputs)
}

func runOnce(ctx context.Context, rootDir string, cfg *config.Config) (*project.Result, error) {
	result, err := project.Run(ctx, rootDir, cfg,
		project.WithProgress(NewCLIProgressReporter(quietFlag)),
		project.WithLogger(logger))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("rollup cancelled")
		}
		return nil, fmt.Errorf("rollup failed: %w", err)
	}
	return result, nil
}

// watchRollup reruns the rollup whenever a file that belongs to the program
// changes. Written outputs never trigger a rerun.
func watchRollup(ctx context.Context, rootDir string, cfg *config.Config, outputs []string) error {
	discovery, err := project.NewFileDiscovery(rootDir, cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return err
	}
	written := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		written[filepath.Clean(out)] = true
	}

	fw, err := watcher.NewFileWatcher([]string{rootDir}, cfg.GetSourceExtensions(),
		watcher.WithLogger(logger),
		watcher.WithFilter(func(path string) bool {
			if written[filepath.Clean(path)] {
				return false
			}
			rel, err := filepath.Rel(rootDir, path)
			if err != nil {
				return false
			}
			return discovery.Matches(filepath.ToSlash(rel))
		}))
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fw.Stop()

	err = fw.Start(ctx, func(files []string) {
		fw.Pause()
		defer fw.Resume()

		logger.Info("Declarations changed, rerunning", "files", len(files))
		for _, f := range files {
			logger.Debug("changed", "file", f)
		}
		if _, err := runOnce(ctx, rootDir, cfg); err != nil && ctx.Err() == nil {
			// keep watching; the next edit may fix it
			logger.Error("rollup failed", "err", err)
		}
	})
	if err != nil {
		return err
	}

	if !quietFlag {
		logger.Info("Watching for changes", "root", rootDir)
	}
	<-ctx.Done()
	if !quietFlag {
		logger.Info("Watch mode stopped")
	}
	return nil
}
