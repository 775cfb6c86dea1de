package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	projectDir string
	verbose    bool

	baseLogger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "dtsroll"})

	// logger is derived from baseLogger for each command invocation.
	logger = baseLogger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dtsroll",
	Short: "dtsroll - roll up TypeScript declaration files",
	Long: `dtsroll merges the .d.ts files reachable from a package entry point into
a single declaration file, with one output per release tier.

Configuration is read from .dtsroll/config.yml in the project directory and
may be overridden with DTSROLL_* environment variables.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "project directory (default is the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindEnv("verbose", "DTSROLL_VERBOSE")
}

// setupLogging configures the shared logger. Every invocation gets a run id
// so interleaved watch passes can be told apart.
func setupLogging(cmd *cobra.Command, args []string) error {
	level := log.InfoLevel
	switch {
	case viper.GetBool("verbose"):
		level = log.DebugLevel
	case quietFlag:
		level = log.WarnLevel
	}
	baseLogger.SetLevel(level)
	baseLogger.SetReportTimestamp(level == log.DebugLevel)
	logger = baseLogger.With("run", uuid.NewString()[:8])
	return nil
}

// resolveProjectDir returns the absolute project directory.
func resolveProjectDir() (string, error) {
	dir := projectDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project directory: %s is not a directory", abs)
	}
	return abs, nil
}
