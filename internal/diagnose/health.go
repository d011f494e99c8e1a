// Package diagnose is the interpretation layer: it turns one metadata
// snapshot into bounded, threshold-driven judgments. Every function here is
// pure over the snapshot it is given; fetching and mutation live in the
// kafka package.
package diagnose

import (
	"sort"

	"github.com/loveteshchandra/kafka-lens/internal/kafka"
)

// HealthStatus is the overall cluster health classification.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "HEALTHY"
	StatusDegraded  HealthStatus = "DEGRADED"
	StatusUnhealthy HealthStatus = "UNHEALTHY"
)

// PartitionRef identifies one partition in a verdict.
type PartitionRef struct {
	Topic     string `json:"topic"`
	Partition int32  `json:"partition"`
}

// HealthVerdict is the structured result of a health classification.
type HealthVerdict struct {
	Status             HealthStatus   `json:"status"`
	BrokersExpected    int            `json:"brokers_expected"`
	BrokersReachable   int            `json:"brokers_reachable"`
	UnreachableBrokers []int32        `json:"unreachable_brokers,omitempty"`
	ControllerID       int32          `json:"controller_id"`
	ControllerPresent  bool           `json:"controller_present"`
	UnderReplicated    []PartitionRef `json:"under_replicated,omitempty"`
}

// ClassifyHealth derives a health verdict from one snapshot. The expected
// broker set is every broker referenced by a partition replica assignment
// plus every live broker; replicas pointing at brokers absent from the live
// list mark those brokers unreachable. Verdict rules are ordered, first
// match wins: unreachable broker or missing controller is UNHEALTHY,
// any under-replicated partition is DEGRADED, otherwise HEALTHY.
func ClassifyHealth(snap *kafka.Snapshot) HealthVerdict {
	live := make(map[int32]struct{}, len(snap.Brokers))
	for _, b := range snap.Brokers {
		live[b.ID] = struct{}{}
	}

	expected := make(map[int32]struct{}, len(live))
	for id := range live {
		expected[id] = struct{}{}
	}

	var underReplicated []PartitionRef
	unreachableSet := make(map[int32]struct{})

	for _, topic := range snap.Topics {
		for _, part := range topic.Partitions {
			if part.UnderReplicated() {
				underReplicated = append(underReplicated, PartitionRef{
					Topic:     part.Topic,
					Partition: part.Partition,
				})
			}
			if part.Leader >= 0 {
				expected[part.Leader] = struct{}{}
				if _, ok := live[part.Leader]; !ok {
					unreachableSet[part.Leader] = struct{}{}
				}
			}
		}
	}

	unreachable := make([]int32, 0, len(unreachableSet))
	for id := range unreachableSet {
		unreachable = append(unreachable, id)
	}
	sort.Slice(unreachable, func(i, j int) bool { return unreachable[i] < unreachable[j] })

	sort.Slice(underReplicated, func(i, j int) bool {
		if underReplicated[i].Topic != underReplicated[j].Topic {
			return underReplicated[i].Topic < underReplicated[j].Topic
		}
		return underReplicated[i].Partition < underReplicated[j].Partition
	})

	_, controllerPresent := live[snap.ControllerID]
	if snap.ControllerID < 0 {
		controllerPresent = false
	}

	verdict := HealthVerdict{
		BrokersExpected:    len(expected),
		BrokersReachable:   len(live),
		UnreachableBrokers: unreachable,
		ControllerID:       snap.ControllerID,
		ControllerPresent:  controllerPresent,
		UnderReplicated:    underReplicated,
	}

	switch {
	case len(unreachable) > 0 || !controllerPresent:
		verdict.Status = StatusUnhealthy
	case len(underReplicated) > 0:
		verdict.Status = StatusDegraded
	default:
		verdict.Status = StatusHealthy
	}

	return verdict
}
