package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	chlog "github.com/charmbracelet/log"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	kaws "github.com/twmb/franz-go/pkg/sasl/aws"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"
)

const defaultProbeTimeout = 5 * time.Second

// Inspector fetches metadata snapshots from a Kafka cluster and issues the
// two deletion calls the hygiene workflow needs.
type Inspector struct {
	client   *kgo.Client
	admin    *kadm.Client
	config   Config
	baseOpts []kgo.Opt
}

// NewInspector creates a new Kafka inspector with the given configuration.
func NewInspector(ctx context.Context, cfg Config) (*Inspector, error) {
	seeds := strings.Split(cfg.BootstrapServers, ",")
	for i, seed := range seeds {
		seeds[i] = strings.TrimSpace(seed)
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(seeds...),
		kgo.RequestTimeoutOverhead(cfg.QueryTimeout),
	}

	if cfg.AuthMechanism != "" {
		saslOpt, err := buildSASL(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure SASL: %w", err)
		}
		opts = append(opts, saslOpt)
	}

	// AWS_MSK_IAM only works over TLS; force it on rather than fail the dial.
	if cfg.TLSEnabled || cfg.TLSCertFile != "" || cfg.TLSCAFile != "" || isIAMMechanism(cfg.AuthMechanism) {
		tlsConfig, err := buildTLS(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
		opts = append(opts, kgo.DialTLSConfig(tlsConfig))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	// Verify connectivity before handing the inspector out; a dead cluster
	// should surface as a connectivity error, not a half-fetched snapshot.
	pingCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()

	if err := withRetry(pingCtx, "ping broker", func() error {
		return client.Ping(pingCtx)
	}); err != nil {
		client.Close()
		return nil, ClassifyError("connect to cluster", err)
	}

	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = defaultProbeTimeout
	}

	return &Inspector{
		client:   client,
		admin:    kadm.NewClient(client),
		config:   cfg,
		baseOpts: opts,
	}, nil
}

// Close closes the Kafka client connection.
func (i *Inspector) Close() {
	if i.client != nil {
		i.client.Close()
	}
}

// FetchSnapshot fetches one internally consistent snapshot of the cluster:
// brokers and controller, partition replication and offset state, consumer
// groups with committed offsets, and record-timestamp estimates for topic
// activity and commit times.
func (i *Inspector) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		ControllerID: -1,
		Topics:       make(map[string]*TopicState),
		Groups:       make(map[string]*GroupState),
		FetchedAt:    time.Now(),
	}

	var meta kadm.Metadata
	if err := withRetry(ctx, "fetch cluster metadata", func() error {
		var metaErr error
		meta, metaErr = i.admin.Metadata(ctx)
		return metaErr
	}); err != nil {
		return nil, ClassifyError("fetch cluster metadata", err)
	}

	snap.ControllerID = meta.Controller
	for _, broker := range meta.Brokers {
		rack := ""
		if broker.Rack != nil {
			rack = *broker.Rack
		}
		snap.Brokers = append(snap.Brokers, BrokerInfo{
			ID:   broker.NodeID,
			Host: broker.Host,
			Port: broker.Port,
			Rack: rack,
		})
	}

	for topic, details := range meta.Topics {
		state := &TopicState{
			Name:       topic,
			Internal:   details.IsInternal || strings.HasPrefix(topic, "__"),
			Partitions: make(map[int32]*PartitionState, len(details.Partitions)),
		}
		for id, part := range details.Partitions {
			state.Partitions[id] = &PartitionState{
				Topic:       topic,
				Partition:   id,
				Leader:      part.Leader,
				Replicas:    len(part.Replicas),
				ISR:         len(part.ISR),
				StartOffset: -1,
				EndOffset:   -1,
			}
		}
		snap.Topics[topic] = state
	}

	var starts, ends kadm.ListedOffsets
	if err := withRetry(ctx, "list start offsets", func() error {
		var listErr error
		starts, listErr = i.admin.ListStartOffsets(ctx)
		return listErr
	}); err != nil {
		return nil, ClassifyError("list start offsets", err)
	}
	if err := withRetry(ctx, "list end offsets", func() error {
		var listErr error
		ends, listErr = i.admin.ListEndOffsets(ctx)
		return listErr
	}); err != nil {
		return nil, ClassifyError("list end offsets", err)
	}

	for topic, partitions := range starts {
		for id, listed := range partitions {
			if listed.Err != nil {
				continue
			}
			if state, ok := snap.Topics[topic]; ok {
				if part, ok := state.Partitions[id]; ok {
					part.StartOffset = listed.Offset
				}
			}
		}
	}
	for topic, partitions := range ends {
		for id, listed := range partitions {
			if listed.Err != nil {
				continue
			}
			if state, ok := snap.Topics[topic]; ok {
				if part, ok := state.Partitions[id]; ok {
					part.EndOffset = listed.Offset
				}
			}
		}
	}

	if err := i.fetchGroups(ctx, snap); err != nil {
		return nil, err
	}

	i.probeTimestamps(ctx, snap)

	return snap, nil
}

func (i *Inspector) fetchGroups(ctx context.Context, snap *Snapshot) error {
	var groups kadm.ListedGroups
	if err := withRetry(ctx, "list consumer groups", func() error {
		var groupErr error
		groups, groupErr = i.admin.ListGroups(ctx)
		return groupErr
	}); err != nil {
		return ClassifyError("list consumer groups", err)
	}

	groupIDs := make([]string, 0, len(groups))
	for groupID := range groups {
		groupIDs = append(groupIDs, groupID)
		snap.Groups[groupID] = &GroupState{
			Group:   groupID,
			Offsets: make(map[string]map[int32]GroupOffset),
		}
	}
	if len(groupIDs) == 0 {
		return nil
	}

	described, err := i.admin.DescribeGroups(ctx, groupIDs...)
	if err != nil {
		// Non-fatal: member counts degrade to zero, offsets still work.
		chlog.Warn("failed to describe consumer groups", "error", err, "consumer_group_count", len(groupIDs))
	} else {
		for _, d := range described.Sorted() {
			if group, ok := snap.Groups[d.Group]; ok {
				group.State = d.State
				group.Members = len(d.Members)
			}
		}
	}

	for _, groupID := range groupIDs {
		offsets, err := i.admin.FetchOffsets(ctx, groupID)
		if err != nil {
			chlog.Warn("failed to fetch group offsets", "group", groupID, "error", err)
			continue
		}
		group := snap.Groups[groupID]
		for topic, partitions := range offsets {
			for id, resp := range partitions {
				if resp.Err != nil || resp.Offset.At < 0 {
					continue
				}
				if _, ok := group.Offsets[topic]; !ok {
					group.Offsets[topic] = make(map[int32]GroupOffset)
				}
				group.Offsets[topic][id] = GroupOffset{
					Topic:     topic,
					Partition: id,
					At:        resp.Offset.At,
				}
			}
		}
	}

	return nil
}

// recordProbe asks for the timestamp of the record at one specific offset.
type recordProbe struct {
	topic     string
	partition int32
	offset    int64
}

// probeTimestamps fills PartitionState.LastMessage (record at end-1) and
// GroupOffset.CommittedAt (record at committed-1). The offset-fetch API does
// not expose commit times, so the record a commit covers is the closest
// observable lower bound. Probes that fail or time out leave the timestamp
// zero; staleness detection then treats the resource conservatively.
func (i *Inspector) probeTimestamps(ctx context.Context, snap *Snapshot) {
	probes := make(map[recordProbe]struct{})

	for _, topic := range snap.Topics {
		for _, part := range topic.Partitions {
			if part.EndOffset > part.StartOffset && part.EndOffset > 0 {
				probes[recordProbe{part.Topic, part.Partition, part.EndOffset - 1}] = struct{}{}
			}
		}
	}

	for _, group := range snap.Groups {
		for topic, partitions := range group.Offsets {
			state := snap.Topics[topic]
			for id, offset := range partitions {
				if state == nil {
					continue
				}
				part, ok := state.Partitions[id]
				if !ok {
					continue
				}
				probe := offset.At - 1
				if probe >= part.EndOffset {
					probe = part.EndOffset - 1
				}
				if probe < part.StartOffset || probe < 0 {
					// The committed record is gone; no usable estimate.
					continue
				}
				probes[recordProbe{topic, id, probe}] = struct{}{}
			}
		}
	}

	times := i.fetchRecordTimes(ctx, probes)

	for _, topic := range snap.Topics {
		for _, part := range topic.Partitions {
			if part.EndOffset > part.StartOffset && part.EndOffset > 0 {
				part.LastMessage = times[recordProbe{part.Topic, part.Partition, part.EndOffset - 1}]
			}
		}
	}

	for _, group := range snap.Groups {
		for topic, partitions := range group.Offsets {
			state := snap.Topics[topic]
			if state == nil {
				continue
			}
			for id, offset := range partitions {
				part, ok := state.Partitions[id]
				if !ok {
					continue
				}
				probe := offset.At - 1
				if probe >= part.EndOffset {
					probe = part.EndOffset - 1
				}
				if probe < part.StartOffset || probe < 0 {
					continue
				}
				offset.CommittedAt = times[recordProbe{topic, id, probe}]
				partitions[id] = offset
			}
		}
	}
}

// fetchRecordTimes reads the timestamp of one record per probe. A consumer
// client can sit at only one offset per partition, so probes are batched
// into rounds of at most one offset per partition, each round using a
// throwaway consumer bounded by the probe timeout.
func (i *Inspector) fetchRecordTimes(ctx context.Context, probes map[recordProbe]struct{}) map[recordProbe]time.Time {
	times := make(map[recordProbe]time.Time, len(probes))

	pending := make(map[recordProbe]struct{}, len(probes))
	for probe := range probes {
		pending[probe] = struct{}{}
	}

	for len(pending) > 0 {
		if ctx.Err() != nil {
			return times
		}

		round := make(map[recordProbe]struct{})
		assignment := make(map[string]map[int32]kgo.Offset)
		for probe := range pending {
			if _, taken := assignment[probe.topic][probe.partition]; taken {
				continue
			}
			if _, ok := assignment[probe.topic]; !ok {
				assignment[probe.topic] = make(map[int32]kgo.Offset)
			}
			assignment[probe.topic][probe.partition] = kgo.NewOffset().At(probe.offset)
			round[probe] = struct{}{}
			delete(pending, probe)
		}

		i.runProbeRound(ctx, round, assignment, times)
	}

	return times
}

func (i *Inspector) runProbeRound(ctx context.Context, round map[recordProbe]struct{}, assignment map[string]map[int32]kgo.Offset, times map[recordProbe]time.Time) {
	opts := append([]kgo.Opt{}, i.baseOpts...)
	opts = append(opts, kgo.ConsumePartitions(assignment))

	client, err := kgo.NewClient(opts...)
	if err != nil {
		chlog.Warn("failed to create probe consumer", "error", err)
		return
	}
	defer client.Close()

	roundCtx, cancel := context.WithTimeout(ctx, i.config.ProbeTimeout)
	defer cancel()

	remaining := len(round)
	for remaining > 0 {
		fetches := client.PollFetches(roundCtx)
		if roundCtx.Err() != nil {
			chlog.Debug("record probe round timed out", "unanswered", remaining)
			return
		}
		fetches.EachRecord(func(r *kgo.Record) {
			for probe := range round {
				if probe.topic != r.Topic || probe.partition != r.Partition {
					continue
				}
				if _, done := times[probe]; done {
					continue
				}
				// The probed record may have been compacted away; the first
				// record at or after the offset is the closest answer.
				if r.Offset >= probe.offset {
					times[probe] = r.Timestamp
					remaining--
				}
			}
		})
		fetches.EachError(func(topic string, partition int32, err error) {
			for probe := range round {
				if probe.topic == topic && probe.partition == partition {
					if _, done := times[probe]; !done {
						chlog.Debug("record probe failed", "topic", topic, "partition", partition, "error", err)
						remaining--
						times[probe] = time.Time{}
					}
				}
			}
		})
	}
}

// DeleteGroup deletes one consumer group. The caller is responsible for
// confirmation; this issues the call unconditionally.
func (i *Inspector) DeleteGroup(ctx context.Context, group string) error {
	resp, err := i.admin.DeleteGroups(ctx, group)
	if err != nil {
		return ClassifyError("delete consumer group", err)
	}
	for _, r := range resp {
		if r.Err != nil {
			return ClassifyError("delete consumer group", r.Err)
		}
	}
	return nil
}

// DeleteTopic deletes one topic. The caller is responsible for confirmation.
func (i *Inspector) DeleteTopic(ctx context.Context, topic string) error {
	resp, err := i.admin.DeleteTopics(ctx, topic)
	if err != nil {
		return ClassifyError("delete topic", err)
	}
	for _, r := range resp {
		if r.Err != nil {
			return ClassifyError("delete topic", r.Err)
		}
	}
	return nil
}

func isIAMMechanism(mechanism string) bool {
	switch strings.ToUpper(strings.ReplaceAll(mechanism, "-", "_")) {
	case "AWS_MSK_IAM", "IAM":
		return true
	}
	return false
}

// buildSASL creates SASL authentication options based on the mechanism.
func buildSASL(ctx context.Context, cfg Config) (kgo.Opt, error) {
	if isIAMMechanism(cfg.AuthMechanism) {
		loadOpts := []func(*awsconfig.LoadOptions) error{}
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load AWS credentials: %w", err)
		}

		mechanism := kaws.ManagedStreamingIAM(func(ctx context.Context) (kaws.Auth, error) {
			creds, err := awsCfg.Credentials.Retrieve(ctx)
			if err != nil {
				return kaws.Auth{}, err
			}
			return kaws.Auth{
				AccessKey:    creds.AccessKeyID,
				SecretKey:    creds.SecretAccessKey,
				SessionToken: creds.SessionToken,
			}, nil
		})
		return kgo.SASL(mechanism), nil
	}

	switch strings.ToUpper(cfg.AuthMechanism) {
	case "PLAIN":
		return kgo.SASL(plain.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsMechanism()), nil

	case "SCRAM-SHA-256":
		mechanism := scram.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsSha256Mechanism()
		return kgo.SASL(mechanism), nil

	case "SCRAM-SHA-512":
		mechanism := scram.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsSha512Mechanism()
		return kgo.SASL(mechanism), nil

	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.AuthMechanism)
	}
}

// buildTLS creates TLS configuration from the provided cert files.
func buildTLS(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.TLSCAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}
