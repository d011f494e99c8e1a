// Package msk resolves Amazon MSK cluster ARNs to bootstrap broker lists.
package msk

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kafka"
)

// BootstrapAPI is the slice of the MSK SDK surface the resolver needs.
type BootstrapAPI interface {
	GetBootstrapBrokers(ctx context.Context, params *kafka.GetBootstrapBrokersInput, optFns ...func(*kafka.Options)) (*kafka.GetBootstrapBrokersOutput, error)
}

// Resolver turns an MSK cluster ARN into a bootstrap broker string.
type Resolver struct {
	api BootstrapAPI
}

// NewResolver builds a resolver on the default AWS credential chain,
// optionally pinned to a region and shared-config profile.
func NewResolver(ctx context.Context, region, profile string) (*Resolver, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Resolver{api: kafka.NewFromConfig(awsCfg)}, nil
}

// NewResolverWithAPI builds a resolver on a caller-supplied API, for tests.
func NewResolverWithAPI(api BootstrapAPI) *Resolver {
	return &Resolver{api: api}
}

// BootstrapBrokers resolves the bootstrap broker string for the cluster.
// IAM auth gets the SASL/IAM endpoint; otherwise the TLS endpoint is
// preferred, falling back to plaintext for clusters without TLS listeners.
func (r *Resolver) BootstrapBrokers(ctx context.Context, clusterARN, authMechanism string) (string, error) {
	out, err := r.api.GetBootstrapBrokers(ctx, &kafka.GetBootstrapBrokersInput{
		ClusterArn: aws.String(clusterARN),
	})
	if err != nil {
		return "", fmt.Errorf("get bootstrap brokers for %s: %w", clusterARN, err)
	}

	var ordered []string
	if isIAM(authMechanism) {
		ordered = []string{
			aws.ToString(out.BootstrapBrokerStringSaslIam),
			aws.ToString(out.BootstrapBrokerStringPublicSaslIam),
		}
	} else {
		ordered = []string{
			aws.ToString(out.BootstrapBrokerStringTls),
			aws.ToString(out.BootstrapBrokerString),
		}
	}

	for _, brokers := range ordered {
		if strings.TrimSpace(brokers) != "" {
			return brokers, nil
		}
	}

	return "", fmt.Errorf("cluster %s exposes no bootstrap brokers for auth mechanism %q", clusterARN, authMechanism)
}

func isIAM(mechanism string) bool {
	switch strings.ToUpper(strings.ReplaceAll(mechanism, "-", "_")) {
	case "AWS_MSK_IAM", "IAM":
		return true
	}
	return false
}
