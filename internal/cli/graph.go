package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dominikbraun/graph/draw"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/dtsroll/internal/config"
	"github.com/mvp-joe/dtsroll/internal/project"
)

var graphOutput string

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the reference graph of the rollup as DOT",
	Long: `Graph analyzes the entry point the same way run does and prints the
references between rolled-up declarations in Graphviz DOT format. Nodes are
named as they would be emitted; exported declarations are drawn bold.

Groups of declarations that reference each other are reported on stderr.

Examples:
  # Render with Graphviz
  dtsroll graph | dot -Tsvg > rollup.svg

  # Write the DOT file directly
  dtsroll graph --output rollup.dot
`,
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringVarP(&entryFlag, "entry", "e", "", "Entry point, relative to the project directory")
	graphCmd.Flags().StringVarP(&graphOutput, "output", "o", "", "Write DOT output to a file instead of stdout")
}

func runGraph(cmd *cobra.Command, args []string) error {
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

	g, err := project.Analyze(ctx, rootDir, cfg, project.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	rg, err := g.ReferenceGraph()
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if graphOutput != "" {
		f, err := os.Create(graphOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", graphOutput, err)
		}
		defer f.Close()
		out = f
	}
	if err := draw.DOT(rg, out, draw.GraphAttribute("rankdir", "LR")); err != nil {
		return fmt.Errorf("failed to render graph: %w", err)
	}

	cycles, err := g.Cycles()
	if err != nil {
		return err
	}
	for _, c := range cycles {
		logger.Warn("Reference cycle", "declarations", strings.Join(c, " -> "))
	}
	return nil
}
