// Package reporter renders diagnostic results for the terminal. Reporters
// hold a writer and emit one result object per call; they never compute
// verdicts themselves.
package reporter

import (
	"github.com/loveteshchandra/kafka-lens/internal/diagnose"
)

// Reporter renders each of the four diagnostic result kinds.
type Reporter interface {
	Health(verdict diagnose.HealthVerdict) error
	Lag(report diagnose.LagReport) error
	Staleness(candidates []diagnose.Candidate) error
	Deletion(result diagnose.DeletionResult) error
}
