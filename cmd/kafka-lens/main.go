package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/loveteshchandra/kafka-lens/internal/config"
	"github.com/loveteshchandra/kafka-lens/internal/diagnose"
	"github.com/loveteshchandra/kafka-lens/internal/kafka"
	"github.com/loveteshchandra/kafka-lens/internal/logging"
	"github.com/loveteshchandra/kafka-lens/internal/msk"
	"github.com/loveteshchandra/kafka-lens/internal/reporter"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	_ = godotenv.Load()
	logging.Init(false)

	if err := newRootCmd().Execute(); err != nil {
		chlog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath      string
	bootstrapServer string
	clusterARN      string
	awsRegion       string
	awsProfile      string
	authMechanism   string
	username        string
	password        string
	tlsEnabled      bool
	tlsCert         string
	tlsKey          string
	tlsCA           string
	output          string
	lagThreshold    int64
	staleDays       int
	unusedDays      int
	timeout         time.Duration
}

func newRootCmd() *cobra.Command {
	var verbose bool
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "kafka-lens",
		Short:         "Mission control for your Kafka cluster",
		Long:          "kafka-lens inspects Kafka and Amazon MSK clusters: health checks, consumer group lag, stale resource detection, and guarded cleanup.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(verbose)
		},
	}

	pf := cmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	pf.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	pf.StringVar(&opts.bootstrapServer, "bootstrap-server", "", "Kafka bootstrap server(s) (host:port, comma-separated)")
	pf.StringVar(&opts.clusterARN, "cluster-arn", "", "Amazon MSK cluster ARN (resolved to bootstrap brokers)")
	pf.StringVar(&opts.awsRegion, "aws-region", "", "AWS region for MSK resolution and IAM auth")
	pf.StringVar(&opts.awsProfile, "aws-profile", "", "AWS shared config profile")
	pf.StringVar(&opts.authMechanism, "auth-mechanism", "", "SASL mechanism (PLAIN, SCRAM-SHA-256, SCRAM-SHA-512, AWS_MSK_IAM)")
	pf.StringVar(&opts.username, "username", "", "SASL username")
	pf.StringVar(&opts.password, "password", "", "SASL password")
	pf.BoolVar(&opts.tlsEnabled, "tls", false, "Enable TLS")
	pf.StringVar(&opts.tlsCert, "tls-cert", "", "Path to TLS client certificate")
	pf.StringVar(&opts.tlsKey, "tls-key", "", "Path to TLS client private key")
	pf.StringVar(&opts.tlsCA, "tls-ca", "", "Path to TLS CA certificate")
	pf.StringVarP(&opts.output, "output", "o", "", "Output format (text|json)")
	pf.DurationVar(&opts.timeout, "timeout", 0, "Kafka query timeout (for example: 10s, 1m)")

	cmd.AddCommand(newHealthCmd(opts))
	cmd.AddCommand(newLagCmd(opts))
	cmd.AddCommand(newFindCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(out, "version: %s\n", Version); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(out, "commit:  %s\n", GitCommit); err != nil {
				return err
			}
			_, err := fmt.Fprintf(out, "date:    %s\n", BuildDate)
			return err
		},
	}
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check cluster health and display a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveOptions(cmd, *opts)
			if err != nil {
				return err
			}
			return withSnapshot(cmd, resolved, func(snap *kafka.Snapshot, rep reporter.Reporter) error {
				return rep.Health(diagnose.ClassifyHealth(snap))
			})
		},
	}
}

func newLagCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lag",
		Short: "Check consumer group lag against the configured threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveOptions(cmd, *opts)
			if err != nil {
				return err
			}
			return withSnapshot(cmd, resolved, func(snap *kafka.Snapshot, rep reporter.Reporter) error {
				return rep.Lag(diagnose.ComputeLag(snap, resolved.lagThreshold))
			})
		},
	}
	cmd.Flags().Int64Var(&opts.lagThreshold, "lag-threshold", 0, "Messages of lag at which a group is flagged")
	return cmd
}

func newFindCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find stale resources",
	}

	staleCmd := &cobra.Command{
		Use:   "stale-consumers",
		Short: "Find consumer groups that stopped committing",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveOptions(cmd, *opts)
			if err != nil {
				return err
			}
			threshold := time.Duration(resolved.staleDays) * 24 * time.Hour
			return withSnapshot(cmd, resolved, func(snap *kafka.Snapshot, rep reporter.Reporter) error {
				return rep.Staleness(diagnose.StaleGroups(snap, time.Now(), threshold))
			})
		},
	}
	staleCmd.Flags().IntVar(&opts.staleDays, "stale-days", 0, "Days without a commit before a group is stale")

	unusedCmd := &cobra.Command{
		Use:   "unused-topics",
		Short: "Find topics that stopped receiving messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveOptions(cmd, *opts)
			if err != nil {
				return err
			}
			threshold := time.Duration(resolved.unusedDays) * 24 * time.Hour
			return withSnapshot(cmd, resolved, func(snap *kafka.Snapshot, rep reporter.Reporter) error {
				return rep.Staleness(diagnose.UnusedTopics(snap, time.Now(), threshold))
			})
		},
	}
	unusedCmd.Flags().IntVar(&opts.unusedDays, "unused-days", 0, "Days without a message before a topic is unused")

	cmd.AddCommand(staleCmd)
	cmd.AddCommand(unusedCmd)
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete resources (requires explicit confirmation)",
	}
	cmd.PersistentFlags().BoolVar(&yes, "yes", false, "Confirm the deletion without prompting")

	groupCmd := &cobra.Command{
		Use:   "group NAME",
		Short: "Delete a consumer group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, opts, diagnose.KindConsumerGroup, args[0], yes)
		},
	}

	topicCmd := &cobra.Command{
		Use:   "topic NAME",
		Short: "Delete a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, opts, diagnose.KindTopic, args[0], yes)
		},
	}

	cmd.AddCommand(groupCmd)
	cmd.AddCommand(topicCmd)
	return cmd
}

func runDelete(cmd *cobra.Command, opts *options, kind diagnose.ResourceKind, name string, yes bool) error {
	resolved, err := resolveOptions(cmd, *opts)
	if err != nil {
		return err
	}

	confirmed := yes
	if !confirmed {
		confirmed, err = promptConfirmation(cmd.OutOrStdout(), cmd.InOrStdin(), kind, name)
		if err != nil {
			return err
		}
	}

	req := diagnose.DeletionRequest{Kind: kind, Name: name, Confirmed: confirmed}

	// Without confirmation nothing touches the cluster, not even a dial.
	var result diagnose.DeletionResult
	if !confirmed {
		result = diagnose.Delete(cmd.Context(), nil, req)
	} else {
		inspector, err := connect(cmd.Context(), resolved)
		if err != nil {
			return err
		}
		defer inspector.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), resolved.timeout)
		defer cancel()

		result = diagnose.Delete(ctx, inspector, req)
	}

	rep := makeReporter(resolved.output, cmd.OutOrStdout())
	if err := rep.Deletion(result); err != nil {
		return err
	}
	if result.Outcome == diagnose.OutcomeFailed {
		return result.Err
	}
	return nil
}

// promptConfirmation accepts only the exact word "yes"; anything else,
// including EOF, is a rejection.
func promptConfirmation(out io.Writer, in io.Reader, kind diagnose.ResourceKind, name string) (bool, error) {
	noun := "resource"
	switch kind {
	case diagnose.KindConsumerGroup:
		noun = "consumer group"
	case diagnose.KindTopic:
		noun = "topic"
	}

	if _, err := fmt.Fprintf(out, "Delete %s %q? This cannot be undone. Type 'yes' to confirm: ", noun, name); err != nil {
		return false, err
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	return isConfirmation(line), nil
}

func isConfirmation(input string) bool {
	return strings.TrimSpace(input) == "yes"
}

func resolveOptions(cmd *cobra.Command, opts options) (options, error) {
	var cfg *config.Config
	var cfgPath string
	var err error

	if opts.configPath != "" {
		cfg, err = config.LoadFromPath(opts.configPath)
		cfgPath = opts.configPath
	} else {
		cfg, cfgPath, err = config.Load()
	}
	if err != nil {
		return opts, err
	}

	if cfg != nil {
		chlog.Debug("loaded defaults from config", "path", cfgPath)
		cfg.Normalize()
		opts = applyConfigDefaults(cmd, opts, cfg)
	} else {
		defaults := &config.Config{}
		defaults.Normalize()
		opts = applyConfigDefaults(cmd, opts, defaults)
	}

	return opts, validateOptions(opts)
}

func applyConfigDefaults(cmd *cobra.Command, opts options, cfg *config.Config) options {
	if !flagChanged(cmd, "bootstrap-server") && strings.TrimSpace(opts.bootstrapServer) == "" {
		opts.bootstrapServer = cfg.BootstrapServers
	}
	if !flagChanged(cmd, "cluster-arn") && strings.TrimSpace(opts.clusterARN) == "" {
		opts.clusterARN = cfg.ClusterARN
	}
	if !flagChanged(cmd, "aws-region") && opts.awsRegion == "" {
		opts.awsRegion = cfg.AWSRegion
	}
	if !flagChanged(cmd, "aws-profile") && opts.awsProfile == "" {
		opts.awsProfile = cfg.AWSProfile
	}
	if !flagChanged(cmd, "auth-mechanism") && opts.authMechanism == "" {
		opts.authMechanism = cfg.AuthMechanism
	}
	if !flagChanged(cmd, "username") && opts.username == "" {
		opts.username = cfg.Username
	}
	if !flagChanged(cmd, "password") && opts.password == "" {
		opts.password = cfg.Password
	}
	if !flagChanged(cmd, "tls") && !opts.tlsEnabled {
		opts.tlsEnabled = cfg.TLS.Enabled
	}
	if !flagChanged(cmd, "tls-cert") && opts.tlsCert == "" {
		opts.tlsCert = cfg.TLS.CertFile
	}
	if !flagChanged(cmd, "tls-key") && opts.tlsKey == "" {
		opts.tlsKey = cfg.TLS.KeyFile
	}
	if !flagChanged(cmd, "tls-ca") && opts.tlsCA == "" {
		opts.tlsCA = cfg.TLS.CAFile
	}
	if !flagChanged(cmd, "output") && opts.output == "" {
		opts.output = cfg.Format
	}
	if !flagChanged(cmd, "timeout") && opts.timeout == 0 {
		opts.timeout = cfg.Timeout
	}
	if !flagChanged(cmd, "lag-threshold") && opts.lagThreshold == 0 {
		opts.lagThreshold = cfg.LagThreshold
	}
	if !flagChanged(cmd, "stale-days") && opts.staleDays == 0 {
		opts.staleDays = cfg.StaleConsumerDays
	}
	if !flagChanged(cmd, "unused-days") && opts.unusedDays == 0 {
		opts.unusedDays = cfg.UnusedTopicDays
	}

	return opts
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}

	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		flag = cmd.InheritedFlags().Lookup(name)
	}
	if flag == nil {
		return false
	}

	return flag.Changed
}

func validateOptions(opts options) error {
	if strings.TrimSpace(opts.bootstrapServer) == "" && strings.TrimSpace(opts.clusterARN) == "" {
		return errors.New("either --bootstrap-server or --cluster-arn is required")
	}

	output := strings.ToLower(strings.TrimSpace(opts.output))
	if output != "" && output != "json" && output != "text" {
		return fmt.Errorf("invalid output format %q (expected text or json)", opts.output)
	}

	mechanism := strings.ToUpper(strings.ReplaceAll(opts.authMechanism, "-", "_"))
	needsCredentials := opts.authMechanism != "" && mechanism != "AWS_MSK_IAM" && mechanism != "IAM"
	if needsCredentials && (opts.username == "" || opts.password == "") {
		return errors.New("auth-mechanism requires both --username and --password")
	}
	if (opts.tlsCert == "") != (opts.tlsKey == "") {
		return errors.New("--tls-cert and --tls-key must be provided together")
	}
	if opts.timeout <= 0 {
		return errors.New("timeout must be greater than zero")
	}

	return nil
}

func connect(ctx context.Context, opts options) (*kafka.Inspector, error) {
	bootstrap := opts.bootstrapServer
	if strings.TrimSpace(bootstrap) == "" {
		resolver, err := msk.NewResolver(ctx, opts.awsRegion, opts.awsProfile)
		if err != nil {
			return nil, err
		}
		bootstrap, err = resolver.BootstrapBrokers(ctx, opts.clusterARN, opts.authMechanism)
		if err != nil {
			return nil, err
		}
		chlog.Debug("resolved MSK bootstrap brokers", "cluster_arn", opts.clusterARN)
	}

	chlog.Info("connecting to Kafka", "bootstrap_servers", bootstrap)

	return kafka.NewInspector(ctx, kafka.Config{
		BootstrapServers: bootstrap,
		AuthMechanism:    opts.authMechanism,
		Username:         opts.username,
		Password:         opts.password,
		AWSRegion:        opts.awsRegion,
		AWSProfile:       opts.awsProfile,
		TLSEnabled:       opts.tlsEnabled,
		TLSCertFile:      opts.tlsCert,
		TLSKeyFile:       opts.tlsKey,
		TLSCAFile:        opts.tlsCA,
		QueryTimeout:     opts.timeout,
	})
}

// withSnapshot runs one read-only diagnostic: connect, fetch exactly one
// snapshot, compute, report.
func withSnapshot(cmd *cobra.Command, opts options, fn func(*kafka.Snapshot, reporter.Reporter) error) error {
	start := time.Now()

	inspector, err := connect(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer inspector.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	snap, err := inspector.FetchSnapshot(ctx)
	if err != nil {
		return err
	}

	rep := makeReporter(opts.output, cmd.OutOrStdout())
	if err := fn(snap, rep); err != nil {
		return err
	}

	chlog.Info("diagnostic completed",
		"topic_count", len(snap.Topics),
		"consumer_group_count", len(snap.Groups),
		"duration", time.Since(start),
	)

	return nil
}

func makeReporter(output string, w io.Writer) reporter.Reporter {
	if strings.ToLower(strings.TrimSpace(output)) == "json" {
		return reporter.NewJSONReporter(w, true)
	}
	return reporter.NewTextReporter(w)
}
