package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/dtsroll/internal/project"
)

// CLIProgressReporter implements project.ProgressReporter with a progress bar
// for parsing and a summary line per written output.
type CLIProgressReporter struct {
	quiet      bool
	out        io.Writer
	parseBar   *progressbar.ProgressBar
	totalFiles int
}

var _ project.ProgressReporter = (*CLIProgressReporter)(nil)

// NewCLIProgressReporter creates a new CLI progress reporter.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{
		quiet: quiet,
		out:   os.Stdout,
	}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	if c.quiet {
		return
	}
	logger.Debug("Discovering declaration files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(files int) {
	if c.quiet {
		return
	}
	logger.Info("Discovered declaration files", "count", files)
}

func (c *CLIProgressReporter) OnParsingStart(totalFiles int) {
	if c.quiet {
		return
	}
	c.totalFiles = totalFiles
	c.parseBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Parsing declarations"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnFileParsed(fileName string) {
	if c.quiet {
		return
	}
	if c.parseBar != nil {
		c.parseBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnOutputWritten(path string, entries int) {
	if c.quiet {
		return
	}
	if c.parseBar != nil {
		c.parseBar.Finish()
		c.parseBar = nil
	}
	fmt.Fprintf(c.out, "✓ Wrote %s\n", path)
}

func (c *CLIProgressReporter) OnComplete(result *project.Result, duration time.Duration) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "✓ Rollup complete: %s declarations, %d outputs in %.2fs\n",
		formatNumber(len(result.Entries)), len(result.Outputs), duration.Seconds())
}

// formatNumber renders n with thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
