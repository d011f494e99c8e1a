package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/loveteshchandra/kafka-lens/internal/diagnose"
)

// TextReporter writes results in human-readable text.
type TextReporter struct {
	writer io.Writer
}

// NewTextReporter creates a text reporter.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{writer: w}
}

// Health emits a cluster health report.
func (r *TextReporter) Health(verdict diagnose.HealthVerdict) error {
	var writeErr error
	writef := func(format string, args ...any) {
		if writeErr != nil {
			return
		}
		_, writeErr = fmt.Fprintf(r.writer, format, args...)
	}

	writef("Cluster Health Report\n")
	writef("=====================\n\n")
	writef("  Status:                     %s\n", verdict.Status)
	writef("  Brokers Reachable:          %d/%d\n", verdict.BrokersReachable, verdict.BrokersExpected)
	if len(verdict.UnreachableBrokers) > 0 {
		ids := make([]string, len(verdict.UnreachableBrokers))
		for i, id := range verdict.UnreachableBrokers {
			ids[i] = fmt.Sprintf("%d", id)
		}
		writef("  Unreachable Brokers:        %s\n", strings.Join(ids, ", "))
	}
	if verdict.ControllerPresent {
		writef("  Controller:                 broker %d\n", verdict.ControllerID)
	} else {
		writef("  Controller:                 MISSING\n")
	}
	writef("  Under-replicated Partitions: %d\n", len(verdict.UnderReplicated))
	for _, ref := range verdict.UnderReplicated {
		writef("    - %s/%d\n", ref.Topic, ref.Partition)
	}

	switch verdict.Status {
	case diagnose.StatusHealthy:
		writef("\nCluster is healthy.\n")
	case diagnose.StatusDegraded:
		writef("\nCluster is degraded: durability at risk on the partitions above.\n")
	default:
		writef("\nCluster is unhealthy and needs attention.\n")
	}

	return writeErr
}

// Lag emits a consumer group lag report, worst group first.
func (r *TextReporter) Lag(report diagnose.LagReport) error {
	var writeErr error
	writef := func(format string, args ...any) {
		if writeErr != nil {
			return
		}
		_, writeErr = fmt.Fprintf(r.writer, format, args...)
	}

	writef("Consumer Group Lag Report\n")
	writef("=========================\n\n")
	writef("  Threshold: %d messages\n\n", report.Threshold)

	if len(report.Groups) == 0 {
		writef("No consumer groups found.\n")
		return writeErr
	}

	over := 0
	for _, group := range report.Groups {
		marker := ""
		if group.ExceedsThreshold {
			marker = " (HIGH LAG)"
			over++
		}
		writef("  %s: %d messages%s\n", group.Group, group.TotalLag, marker)
		for _, rec := range group.Records {
			note := ""
			if rec.Anomalous {
				note = " [inconsistent read, clamped]"
			}
			writef("    %s/%d: committed=%d end=%d lag=%d%s\n",
				rec.Topic, rec.Partition, rec.Committed, rec.End, rec.Lag, note)
		}
	}

	if over > 0 {
		writef("\n%d consumer group(s) exceed the lag threshold.\n", over)
	} else {
		writef("\nAll consumer groups are within the lag threshold.\n")
	}

	return writeErr
}

// Staleness emits staleness candidates, longest idle first.
func (r *TextReporter) Staleness(candidates []diagnose.Candidate) error {
	var writeErr error
	writef := func(format string, args ...any) {
		if writeErr != nil {
			return
		}
		_, writeErr = fmt.Fprintf(r.writer, format, args...)
	}

	kind := "Resources"
	if len(candidates) > 0 {
		switch candidates[0].Kind {
		case diagnose.KindConsumerGroup:
			kind = "Consumer Groups"
		case diagnose.KindTopic:
			kind = "Topics"
		}
	}

	writef("Stale %s Report\n", kind)
	writef("%s\n\n", strings.Repeat("=", len(kind)+13))

	stale := 0
	for _, c := range candidates {
		if c.Decision == diagnose.DecisionStale {
			stale++
		}
	}

	if stale == 0 {
		writef("No stale resources found (%d inspected).\n", len(candidates))
		return writeErr
	}

	writef("Found %d stale of %d inspected:\n\n", stale, len(candidates))
	for _, c := range candidates {
		if c.Decision != diagnose.DecisionStale {
			continue
		}
		writef("  %s: %s\n", c.Name, idleHuman(c))
	}

	return writeErr
}

// Deletion emits the outcome of a deletion request.
func (r *TextReporter) Deletion(result diagnose.DeletionResult) error {
	var writeErr error
	writef := func(format string, args ...any) {
		if writeErr != nil {
			return
		}
		_, writeErr = fmt.Fprintf(r.writer, format, args...)
	}

	noun := "resource"
	switch result.Kind {
	case diagnose.KindConsumerGroup:
		noun = "consumer group"
	case diagnose.KindTopic:
		noun = "topic"
	}

	switch result.Outcome {
	case diagnose.OutcomeDeleted:
		writef("Deleted %s %q.\n", noun, result.Name)
	case diagnose.OutcomeRejected:
		writef("Deletion of %s %q rejected: not confirmed. No call was issued.\n", noun, result.Name)
	default:
		writef("Failed to delete %s %q: %s\n", noun, result.Name, result.Failure)
	}

	return writeErr
}

func idleHuman(c diagnose.Candidate) string {
	if c.NeverActive {
		if c.Kind == diagnose.KindConsumerGroup {
			return "no commits"
		}
		return "no messages"
	}
	days := c.IdleFor.Hours() / 24
	return fmt.Sprintf("%.1f days idle", days)
}
