package diagnose

import (
	"sort"

	"github.com/loveteshchandra/kafka-lens/internal/kafka"
)

// LagRecord is the lag of one (group, topic, partition) tuple. Anomalous
// marks tuples where the snapshot was internally inconsistent: a committed
// offset ahead of the end offset, or a committed partition missing from the
// topic metadata. Anomalous records are clamped to zero and kept, never
// dropped.
type LagRecord struct {
	Group     string `json:"group"`
	Topic     string `json:"topic"`
	Partition int32  `json:"partition"`
	Committed int64  `json:"committed"`
	End       int64  `json:"end"`
	Lag       int64  `json:"lag"`
	Anomalous bool   `json:"anomalous,omitempty"`
}

// GroupLag aggregates lag for one consumer group.
type GroupLag struct {
	Group            string      `json:"group"`
	TotalLag         int64       `json:"total_lag"`
	ExceedsThreshold bool        `json:"exceeds_threshold"`
	Anomalies        int         `json:"anomalies,omitempty"`
	Records          []LagRecord `json:"records"`
}

// LagReport is the full lag computation for one snapshot, groups ordered by
// descending total lag so the worst offender is first. The presentation
// layer depends on this ordering.
type LagReport struct {
	Threshold int64      `json:"threshold"`
	Groups    []GroupLag `json:"groups"`
}

// ComputeLag computes per-partition and per-group lag from one snapshot.
// Only partitions the group has committed to are counted; a group that
// never committed to a partition has not consumed it. Lag per tuple is
// max(0, end-committed); a group exceeds the threshold when its total lag
// is at or above it. A group with no committed offsets yields lag 0 and is
// still reported.
func ComputeLag(snap *kafka.Snapshot, threshold int64) LagReport {
	report := LagReport{Threshold: threshold, Groups: make([]GroupLag, 0, len(snap.Groups))}

	for name, group := range snap.Groups {
		gl := GroupLag{Group: name}

		for topic, partitions := range group.Offsets {
			state := snap.Topics[topic]
			for id, offset := range partitions {
				rec := LagRecord{
					Group:     name,
					Topic:     topic,
					Partition: id,
					Committed: offset.At,
				}

				var part *kafka.PartitionState
				if state != nil {
					part = state.Partitions[id]
				}
				switch {
				case part == nil || part.EndOffset < 0:
					// Group references a partition the snapshot has no end
					// offset for. Lag is unknowable; report zero and flag it.
					rec.Anomalous = true
				case part.EndOffset < offset.At:
					// End offset read raced a commit or rebalance.
					rec.End = part.EndOffset
					rec.Anomalous = true
				default:
					rec.End = part.EndOffset
					rec.Lag = part.EndOffset - offset.At
				}

				if rec.Anomalous {
					gl.Anomalies++
				}
				gl.TotalLag += rec.Lag
				gl.Records = append(gl.Records, rec)
			}
		}

		sort.Slice(gl.Records, func(i, j int) bool {
			a, b := gl.Records[i], gl.Records[j]
			if a.Anomalous != b.Anomalous {
				return !a.Anomalous
			}
			if a.Topic != b.Topic {
				return a.Topic < b.Topic
			}
			return a.Partition < b.Partition
		})

		gl.ExceedsThreshold = gl.TotalLag >= threshold
		report.Groups = append(report.Groups, gl)
	}

	sort.Slice(report.Groups, func(i, j int) bool {
		if report.Groups[i].TotalLag != report.Groups[j].TotalLag {
			return report.Groups[i].TotalLag > report.Groups[j].TotalLag
		}
		return report.Groups[i].Group < report.Groups[j].Group
	})

	return report
}
