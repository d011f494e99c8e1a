package diagnose

import (
	"sort"
	"time"

	"github.com/loveteshchandra/kafka-lens/internal/kafka"
)

// ResourceKind is the closed set of resources the hygiene workflow acts on.
type ResourceKind string

const (
	KindConsumerGroup ResourceKind = "CONSUMER_GROUP"
	KindTopic         ResourceKind = "TOPIC"
)

// Decision says whether a resource crossed its idle threshold.
type Decision string

const (
	DecisionStale  Decision = "STALE"
	DecisionActive Decision = "ACTIVE"
)

// Candidate is one resource with its measured idle duration and decision.
// NeverActive means no activity timestamp exists at all (a group with no
// commit history, a topic with no messages); such resources are always
// stale, with an effectively infinite idle duration.
type Candidate struct {
	Kind         ResourceKind  `json:"kind"`
	Name         string        `json:"name"`
	IdleFor      time.Duration `json:"idle_for"`
	NeverActive  bool          `json:"never_active,omitempty"`
	Threshold    time.Duration `json:"threshold"`
	Decision     Decision      `json:"decision"`
	LastActivity time.Time     `json:"last_activity,omitempty"`
	Members      int           `json:"members,omitempty"` // consumer groups only; 0 suggests abandonment
}

// StaleGroups finds consumer groups whose last commit is older than the
// threshold. A group's last-commit time is the oldest estimated commit
// across its partitions, so one busy partition cannot mask an otherwise
// dead group. Groups with no usable commit time anywhere are always stale.
// Every group is returned with a decision, sorted longest-idle first.
func StaleGroups(snap *kafka.Snapshot, now time.Time, threshold time.Duration) []Candidate {
	candidates := make([]Candidate, 0, len(snap.Groups))

	for name, group := range snap.Groups {
		var oldest time.Time
		for _, partitions := range group.Offsets {
			for _, offset := range partitions {
				if offset.CommittedAt.IsZero() {
					continue
				}
				if oldest.IsZero() || offset.CommittedAt.Before(oldest) {
					oldest = offset.CommittedAt
				}
			}
		}

		c := Candidate{
			Kind:      KindConsumerGroup,
			Name:      name,
			Threshold: threshold,
			Members:   group.Members,
		}
		if oldest.IsZero() {
			c.NeverActive = true
			c.Decision = DecisionStale
		} else {
			c.LastActivity = oldest
			c.IdleFor = now.Sub(oldest)
			c.Decision = decide(c.IdleFor, threshold)
		}
		candidates = append(candidates, c)
	}

	sortCandidates(candidates)
	return candidates
}

// UnusedTopics finds topics that have not received a message within the
// threshold. A topic's last activity is the newest record timestamp across
// its partitions; a topic is in use if any partition still gets traffic.
// Topics with no messages anywhere are always stale. Internal topics are
// excluded. Every inspected topic is returned with a decision, sorted
// longest-idle first.
func UnusedTopics(snap *kafka.Snapshot, now time.Time, threshold time.Duration) []Candidate {
	candidates := make([]Candidate, 0, len(snap.Topics))

	for name, topic := range snap.Topics {
		if topic.Internal {
			continue
		}

		var newest time.Time
		for _, part := range topic.Partitions {
			if part.LastMessage.After(newest) {
				newest = part.LastMessage
			}
		}

		c := Candidate{
			Kind:      KindTopic,
			Name:      name,
			Threshold: threshold,
		}
		if newest.IsZero() {
			c.NeverActive = true
			c.Decision = DecisionStale
		} else {
			c.LastActivity = newest
			c.IdleFor = now.Sub(newest)
			c.Decision = decide(c.IdleFor, threshold)
		}
		candidates = append(candidates, c)
	}

	sortCandidates(candidates)
	return candidates
}

func decide(idle, threshold time.Duration) Decision {
	if idle >= threshold {
		return DecisionStale
	}
	return DecisionActive
}

// sortCandidates orders longest-idle first: never-active resources lead
// (infinite idle), then descending idle duration, names ascending on ties.
func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.NeverActive != b.NeverActive {
			return a.NeverActive
		}
		if a.IdleFor != b.IdleFor {
			return a.IdleFor > b.IdleFor
		}
		return a.Name < b.Name
	})
}
