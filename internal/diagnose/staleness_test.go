package diagnose

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loveteshchandra/kafka-lens/internal/kafka"
)

var now = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func groupWithCommits(name string, commits map[int32]time.Time) *kafka.GroupState {
	group := &kafka.GroupState{
		Group:   name,
		Offsets: map[string]map[int32]kafka.GroupOffset{"t": {}},
	}
	for id, at := range commits {
		group.Offsets["t"][id] = kafka.GroupOffset{Topic: "t", Partition: id, At: 10, CommittedAt: at}
	}
	return group
}

func TestStaleGroupsNoCommitsAlwaysStale(t *testing.T) {
	snap := &kafka.Snapshot{
		Groups: map[string]*kafka.GroupState{
			"never": {Group: "never", Offsets: map[string]map[int32]kafka.GroupOffset{}},
		},
	}

	candidates := StaleGroups(snap, now, 365*24*time.Hour)

	require.Len(t, candidates, 1)
	require.Equal(t, DecisionStale, candidates[0].Decision)
	require.True(t, candidates[0].NeverActive)
	require.Equal(t, KindConsumerGroup, candidates[0].Kind)
}

func TestStaleGroupsUsesOldestCommit(t *testing.T) {
	// One busy partition must not mask a mostly dead group.
	snap := &kafka.Snapshot{
		Groups: map[string]*kafka.GroupState{
			"g": groupWithCommits("g", map[int32]time.Time{
				0: now.Add(-40 * 24 * time.Hour),
				1: now.Add(-1 * time.Hour),
			}),
		},
	}

	candidates := StaleGroups(snap, now, 30*24*time.Hour)

	require.Len(t, candidates, 1)
	require.Equal(t, DecisionStale, candidates[0].Decision)
	require.Equal(t, now.Add(-40*24*time.Hour), candidates[0].LastActivity)
}

func TestStaleGroupsActiveUnderThreshold(t *testing.T) {
	snap := &kafka.Snapshot{
		Groups: map[string]*kafka.GroupState{
			"g": groupWithCommits("g", map[int32]time.Time{0: now.Add(-2 * 24 * time.Hour)}),
		},
	}

	candidates := StaleGroups(snap, now, 30*24*time.Hour)

	require.Equal(t, DecisionActive, candidates[0].Decision)
	require.Equal(t, 2*24*time.Hour, candidates[0].IdleFor)
}

func TestStaleGroupsOrdering(t *testing.T) {
	snap := &kafka.Snapshot{
		Groups: map[string]*kafka.GroupState{
			"old":    groupWithCommits("old", map[int32]time.Time{0: now.Add(-90 * 24 * time.Hour)}),
			"older":  groupWithCommits("older", map[int32]time.Time{0: now.Add(-180 * 24 * time.Hour)}),
			"znever": {Group: "znever", Offsets: map[string]map[int32]kafka.GroupOffset{}},
			"anever": {Group: "anever", Offsets: map[string]map[int32]kafka.GroupOffset{}},
		},
	}

	candidates := StaleGroups(snap, now, 30*24*time.Hour)

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	// Never-active first (name ties ascending), then idle descending.
	require.Equal(t, []string{"anever", "znever", "older", "old"}, names)
}

func topicWithLastMessages(name string, stamps map[int32]time.Time) *kafka.TopicState {
	topic := &kafka.TopicState{Name: name, Partitions: map[int32]*kafka.PartitionState{}}
	for id, at := range stamps {
		topic.Partitions[id] = &kafka.PartitionState{Topic: name, Partition: id, LastMessage: at}
	}
	return topic
}

func TestUnusedTopicsEmptyTopicAlwaysStale(t *testing.T) {
	snap := &kafka.Snapshot{
		Topics: map[string]*kafka.TopicState{
			"t": topicWithLastMessages("t", map[int32]time.Time{0: {}, 1: {}}),
		},
	}

	candidates := UnusedTopics(snap, now, 90*24*time.Hour)

	require.Len(t, candidates, 1)
	require.Equal(t, DecisionStale, candidates[0].Decision)
	require.True(t, candidates[0].NeverActive)
	require.Equal(t, KindTopic, candidates[0].Kind)
}

func TestUnusedTopicsUsesNewestPartition(t *testing.T) {
	// A topic is in use if any partition still receives traffic.
	snap := &kafka.Snapshot{
		Topics: map[string]*kafka.TopicState{
			"t": topicWithLastMessages("t", map[int32]time.Time{
				0: now.Add(-400 * 24 * time.Hour),
				1: now.Add(-2 * 24 * time.Hour),
			}),
		},
	}

	candidates := UnusedTopics(snap, now, 90*24*time.Hour)

	require.Equal(t, DecisionActive, candidates[0].Decision)
	require.Equal(t, now.Add(-2*24*time.Hour), candidates[0].LastActivity)
}

func TestUnusedTopicsSkipsInternal(t *testing.T) {
	snap := &kafka.Snapshot{
		Topics: map[string]*kafka.TopicState{
			"__consumer_offsets": {Name: "__consumer_offsets", Internal: true, Partitions: map[int32]*kafka.PartitionState{}},
			"orders":             topicWithLastMessages("orders", map[int32]time.Time{0: now.Add(-100 * 24 * time.Hour)}),
		},
	}

	candidates := UnusedTopics(snap, now, 90*24*time.Hour)

	require.Len(t, candidates, 1)
	require.Equal(t, "orders", candidates[0].Name)
	require.Equal(t, DecisionStale, candidates[0].Decision)
}
