package logging

import (
	"os"

	chlog "github.com/charmbracelet/log"
)

// Init configures the process-wide default logger. Reports go to stdout;
// logs stay on stderr so piped output remains parseable.
func Init(verbose bool) {
	chlog.SetOutput(os.Stderr)
	chlog.SetTimeFormat("2006-01-02 15:04:05.000")
	chlog.SetReportTimestamp(true)

	if verbose {
		chlog.SetLevel(chlog.DebugLevel)
	} else {
		chlog.SetLevel(chlog.WarnLevel)
	}
}
