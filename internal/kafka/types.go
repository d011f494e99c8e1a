package kafka

import "time"

// Snapshot is a single point-in-time read of cluster, topic, and consumer
// group metadata. One diagnostic command consumes exactly one snapshot; no
// state is carried between invocations.
type Snapshot struct {
	Brokers      []BrokerInfo           `json:"brokers"`
	ControllerID int32                  `json:"controller_id"` // -1 when the cluster reports no controller
	Topics       map[string]*TopicState `json:"topics"`
	Groups       map[string]*GroupState `json:"groups"`
	FetchedAt    time.Time              `json:"fetched_at"`
}

// BrokerInfo describes a broker that answered the metadata request.
type BrokerInfo struct {
	ID   int32  `json:"id"`
	Host string `json:"host"`
	Port int32  `json:"port"`
	Rack string `json:"rack,omitempty"`
}

// TopicState holds per-topic partition states.
type TopicState struct {
	Name       string                    `json:"name"`
	Internal   bool                      `json:"internal"` // system topics like __consumer_offsets
	Partitions map[int32]*PartitionState `json:"partitions"`
}

// PartitionState is the replication and offset state of one partition.
// LastMessage is the timestamp of the newest record, zero when the
// partition is empty or the probe could not read it.
type PartitionState struct {
	Topic       string    `json:"topic"`
	Partition   int32     `json:"partition"`
	Leader      int32     `json:"leader"`
	Replicas    int       `json:"replicas"`
	ISR         int       `json:"isr"`
	StartOffset int64     `json:"start_offset"`
	EndOffset   int64     `json:"end_offset"`
	LastMessage time.Time `json:"last_message,omitempty"`
}

// UnderReplicated reports whether the partition has fewer in-sync replicas
// than assigned replicas.
func (p *PartitionState) UnderReplicated() bool {
	return p.ISR < p.Replicas
}

// GroupOffset is one committed offset of a consumer group. CommittedAt is an
// estimate taken from the timestamp of the record at offset-1; it is zero
// when that record is gone or could not be read.
type GroupOffset struct {
	Topic       string    `json:"topic"`
	Partition   int32     `json:"partition"`
	At          int64     `json:"at"`
	CommittedAt time.Time `json:"committed_at,omitempty"`
}

// GroupState describes a consumer group and its committed offsets.
type GroupState struct {
	Group   string                           `json:"group"`
	State   string                           `json:"state"` // Stable, Empty, Dead, etc.
	Members int                              `json:"members"`
	Offsets map[string]map[int32]GroupOffset `json:"offsets"`
}

// Config holds the configuration for connecting to Kafka.
type Config struct {
	BootstrapServers string
	AuthMechanism    string // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512, AWS_MSK_IAM
	Username         string
	Password         string
	AWSRegion        string // for AWS_MSK_IAM credential resolution
	AWSProfile       string
	TLSEnabled       bool // enable TLS without client certificates
	TLSCertFile      string
	TLSKeyFile       string
	TLSCAFile        string
	QueryTimeout     time.Duration
	ProbeTimeout     time.Duration // budget per record-timestamp probe round
}
