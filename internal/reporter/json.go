package reporter

import (
	"encoding/json"
	"io"

	"github.com/loveteshchandra/kafka-lens/internal/diagnose"
)

// JSONReporter writes each result as a single JSON document.
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(w io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{writer: w, pretty: pretty}
}

func (r *JSONReporter) emit(v any) error {
	var output []byte
	var err error

	if r.pretty {
		output, err = json.MarshalIndent(v, "", "  ")
	} else {
		output, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	if _, err = r.writer.Write(output); err != nil {
		return err
	}
	_, err = r.writer.Write([]byte("\n"))
	return err
}

// Health emits a health verdict.
func (r *JSONReporter) Health(verdict diagnose.HealthVerdict) error {
	return r.emit(verdict)
}

// Lag emits a lag report.
func (r *JSONReporter) Lag(report diagnose.LagReport) error {
	return r.emit(report)
}

// Staleness emits staleness candidates.
func (r *JSONReporter) Staleness(candidates []diagnose.Candidate) error {
	return r.emit(candidates)
}

// Deletion emits a deletion result.
func (r *JSONReporter) Deletion(result diagnose.DeletionResult) error {
	return r.emit(result)
}
