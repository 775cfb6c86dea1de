package project

import "time"

// ProgressReporter provides callbacks for reporting rollup progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called when file discovery finishes.
	OnDiscoveryComplete(files int)

	// OnParsingStart is called before parsing files.
	OnParsingStart(totalFiles int)

	// OnFileParsed is called after each file is parsed.
	OnFileParsed(fileName string)

	// OnOutputWritten is called after each output file is written.
	OnOutputWritten(path string, entries int)

	// OnComplete is called when the run completes successfully.
	OnComplete(result *Result, duration time.Duration)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()                                 {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(files int)                     {}
func (n *NoOpProgressReporter) OnParsingStart(totalFiles int)                     {}
func (n *NoOpProgressReporter) OnFileParsed(fileName string)                      {}
func (n *NoOpProgressReporter) OnOutputWritten(path string, entries int)          {}
func (n *NoOpProgressReporter) OnComplete(result *Result, duration time.Duration) {}
