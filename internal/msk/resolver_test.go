package msk

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kafka"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	out   *kafka.GetBootstrapBrokersOutput
	err   error
	calls []string
}

func (f *fakeAPI) GetBootstrapBrokers(_ context.Context, params *kafka.GetBootstrapBrokersInput, _ ...func(*kafka.Options)) (*kafka.GetBootstrapBrokersOutput, error) {
	f.calls = append(f.calls, aws.ToString(params.ClusterArn))
	return f.out, f.err
}

const testARN = "arn:aws:kafka:eu-west-1:123456789012:cluster/demo/abc"

func TestBootstrapBrokersPrefersTLS(t *testing.T) {
	api := &fakeAPI{out: &kafka.GetBootstrapBrokersOutput{
		BootstrapBrokerString:    aws.String("plain:9092"),
		BootstrapBrokerStringTls: aws.String("tls:9094"),
	}}
	r := NewResolverWithAPI(api)

	brokers, err := r.BootstrapBrokers(context.Background(), testARN, "SCRAM-SHA-512")
	require.NoError(t, err)
	require.Equal(t, "tls:9094", brokers)
	require.Equal(t, []string{testARN}, api.calls)
}

func TestBootstrapBrokersFallsBackToPlaintext(t *testing.T) {
	api := &fakeAPI{out: &kafka.GetBootstrapBrokersOutput{
		BootstrapBrokerString: aws.String("plain:9092"),
	}}
	r := NewResolverWithAPI(api)

	brokers, err := r.BootstrapBrokers(context.Background(), testARN, "")
	require.NoError(t, err)
	require.Equal(t, "plain:9092", brokers)
}

func TestBootstrapBrokersIAMEndpoint(t *testing.T) {
	api := &fakeAPI{out: &kafka.GetBootstrapBrokersOutput{
		BootstrapBrokerStringTls:     aws.String("tls:9094"),
		BootstrapBrokerStringSaslIam: aws.String("iam:9098"),
	}}
	r := NewResolverWithAPI(api)

	for _, mech := range []string{"AWS_MSK_IAM", "aws-msk-iam", "IAM"} {
		brokers, err := r.BootstrapBrokers(context.Background(), testARN, mech)
		require.NoError(t, err)
		require.Equal(t, "iam:9098", brokers, "mechanism %q", mech)
	}
}

func TestBootstrapBrokersIAMPublicFallback(t *testing.T) {
	api := &fakeAPI{out: &kafka.GetBootstrapBrokersOutput{
		BootstrapBrokerStringPublicSaslIam: aws.String("public-iam:9198"),
	}}
	r := NewResolverWithAPI(api)

	brokers, err := r.BootstrapBrokers(context.Background(), testARN, "AWS_MSK_IAM")
	require.NoError(t, err)
	require.Equal(t, "public-iam:9198", brokers)
}

func TestBootstrapBrokersNoEndpoints(t *testing.T) {
	api := &fakeAPI{out: &kafka.GetBootstrapBrokersOutput{}}
	r := NewResolverWithAPI(api)

	_, err := r.BootstrapBrokers(context.Background(), testARN, "AWS_MSK_IAM")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no bootstrap brokers")
}

func TestBootstrapBrokersAPIError(t *testing.T) {
	apiErr := errors.New("AccessDeniedException")
	api := &fakeAPI{err: apiErr}
	r := NewResolverWithAPI(api)

	_, err := r.BootstrapBrokers(context.Background(), testARN, "")
	require.ErrorIs(t, err, apiErr)
}
