package diagnose

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loveteshchandra/kafka-lens/internal/kafka"
)

func testSnapshot() *kafka.Snapshot {
	return &kafka.Snapshot{
		Brokers: []kafka.BrokerInfo{
			{ID: 1, Host: "b1", Port: 9092},
			{ID: 2, Host: "b2", Port: 9092},
			{ID: 3, Host: "b3", Port: 9092},
		},
		ControllerID: 1,
		Topics: map[string]*kafka.TopicState{
			"orders": {
				Name: "orders",
				Partitions: map[int32]*kafka.PartitionState{
					0: {Topic: "orders", Partition: 0, Leader: 1, Replicas: 3, ISR: 3, StartOffset: 0, EndOffset: 100},
					1: {Topic: "orders", Partition: 1, Leader: 2, Replicas: 3, ISR: 3, StartOffset: 0, EndOffset: 80},
				},
			},
		},
		Groups: map[string]*kafka.GroupState{},
	}
}

func TestClassifyHealthHealthy(t *testing.T) {
	verdict := ClassifyHealth(testSnapshot())

	require.Equal(t, StatusHealthy, verdict.Status)
	require.True(t, verdict.ControllerPresent)
	require.Equal(t, int32(1), verdict.ControllerID)
	require.Equal(t, 3, verdict.BrokersReachable)
	require.Empty(t, verdict.UnreachableBrokers)
	require.Empty(t, verdict.UnderReplicated)
}

func TestClassifyHealthUnderReplicatedIsDegraded(t *testing.T) {
	snap := testSnapshot()
	snap.Topics["orders"].Partitions[1].ISR = 2

	verdict := ClassifyHealth(snap)

	require.Equal(t, StatusDegraded, verdict.Status)
	require.Equal(t, []PartitionRef{{Topic: "orders", Partition: 1}}, verdict.UnderReplicated)
}

func TestClassifyHealthMissingControllerIsUnhealthy(t *testing.T) {
	snap := testSnapshot()
	snap.ControllerID = -1

	verdict := ClassifyHealth(snap)

	require.Equal(t, StatusUnhealthy, verdict.Status)
	require.False(t, verdict.ControllerPresent)
}

func TestClassifyHealthRemovedControllerBrokerIsUnhealthy(t *testing.T) {
	// The controller-bearing broker vanishes from the live list but is still
	// referenced as a partition leader.
	snap := testSnapshot()
	snap.Brokers = snap.Brokers[1:] // drop broker 1, the controller

	verdict := ClassifyHealth(snap)

	require.Equal(t, StatusUnhealthy, verdict.Status)
	require.False(t, verdict.ControllerPresent)
	require.Equal(t, []int32{1}, verdict.UnreachableBrokers)
	require.Equal(t, 2, verdict.BrokersReachable)
	require.Equal(t, 3, verdict.BrokersExpected)
}

func TestClassifyHealthUnreachableWinsOverUnderReplication(t *testing.T) {
	// Ordered verdict: unreachable broker beats the DEGRADED signal.
	snap := testSnapshot()
	snap.Topics["orders"].Partitions[0].ISR = 1
	snap.Topics["orders"].Partitions[1].Leader = 9

	verdict := ClassifyHealth(snap)

	require.Equal(t, StatusUnhealthy, verdict.Status)
	require.Equal(t, []int32{9}, verdict.UnreachableBrokers)
	require.Len(t, verdict.UnderReplicated, 1)
}

func TestClassifyHealthThreeBrokersTwoReachableControllerMissing(t *testing.T) {
	snap := &kafka.Snapshot{
		Brokers: []kafka.BrokerInfo{
			{ID: 1, Host: "b1", Port: 9092},
			{ID: 2, Host: "b2", Port: 9092},
		},
		ControllerID: 3,
		Topics: map[string]*kafka.TopicState{
			"t": {
				Name: "t",
				Partitions: map[int32]*kafka.PartitionState{
					0: {Topic: "t", Partition: 0, Leader: 3, Replicas: 2, ISR: 2},
				},
			},
		},
		Groups: map[string]*kafka.GroupState{},
	}

	verdict := ClassifyHealth(snap)

	require.Equal(t, StatusUnhealthy, verdict.Status)
	require.Equal(t, []int32{3}, verdict.UnreachableBrokers)
	require.False(t, verdict.ControllerPresent)
}
