package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "generic", err: errors.New("something"), want: KindUnknown},
		{name: "sasl-auth-failed", err: kerr.SaslAuthenticationFailed, want: KindAuthorization},
		{name: "unsupported-sasl-mechanism", err: kerr.UnsupportedSaslMechanism, want: KindAuthorization},
		{name: "illegal-sasl-state", err: kerr.IllegalSaslState, want: KindAuthorization},
		{name: "topic-auth-failed", err: kerr.TopicAuthorizationFailed, want: KindAuthorization},
		{name: "cluster-auth-failed", err: kerr.ClusterAuthorizationFailed, want: KindAuthorization},
		{name: "group-auth-failed", err: kerr.GroupAuthorizationFailed, want: KindAuthorization},
		{name: "wrapped-sasl-auth", err: fmt.Errorf("connect: %w", kerr.SaslAuthenticationFailed), want: KindAuthorization},
		{name: "group-not-found", err: kerr.GroupIDNotFound, want: KindNotFound},
		{name: "unknown-topic", err: kerr.UnknownTopicOrPartition, want: KindNotFound},
		{name: "unknown-topic-id", err: kerr.UnknownTopicID, want: KindNotFound},
		{name: "wrapped-not-found", err: fmt.Errorf("delete: %w", kerr.GroupIDNotFound), want: KindNotFound},
		{name: "broker-not-available", err: kerr.BrokerNotAvailable, want: KindConnectivity},
		{name: "request-timed-out", err: kerr.RequestTimedOut, want: KindConnectivity},
		{name: "non-retriable-kerr", err: kerr.InvalidTopicException, want: KindUnknown},
		{name: "context-deadline", err: context.DeadlineExceeded, want: KindConnectivity},
		{name: "context-canceled", err: context.Canceled, want: KindConnectivity},
		{name: "net-closed", err: net.ErrClosed, want: KindConnectivity},
		{name: "io-eof", err: io.EOF, want: KindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classify(tc.err); got != tc.want {
				t.Fatalf("classify(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestClassifyFirstReadEOF(t *testing.T) {
	// Brokers that require SASL drop plaintext connections after the first
	// read; surface that as an authorization failure, not connectivity.
	eof := &kgo.ErrFirstReadEOF{}
	if got := classify(eof); got != KindAuthorization {
		t.Fatalf("classify(ErrFirstReadEOF) = %v, want authorization", got)
	}

	wrapped := fmt.Errorf("connection failed: %w", eof)
	if got := classify(wrapped); got != KindAuthorization {
		t.Fatalf("classify(wrapped ErrFirstReadEOF) = %v, want authorization", got)
	}
}

func TestClassifyErrorWrapsAndUnwraps(t *testing.T) {
	err := ClassifyError("delete consumer group", kerr.GroupIDNotFound)
	if err == nil {
		t.Fatalf("expected error")
	}

	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ce.Kind != KindNotFound {
		t.Fatalf("Kind = %v, want not_found", ce.Kind)
	}
	if ce.Op != "delete consumer group" {
		t.Fatalf("Op = %q", ce.Op)
	}
	if !errors.Is(err, kerr.GroupIDNotFound) {
		t.Fatalf("underlying error should be GroupIDNotFound")
	}
}

func TestClassifyErrorNil(t *testing.T) {
	if err := ClassifyError("anything", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ClassifyError("op", kerr.TopicAuthorizationFailed))
	if got := KindOf(wrapped); got != KindAuthorization {
		t.Fatalf("KindOf(wrapped *Error) = %v, want authorization", got)
	}

	// Unwrapped errors fall back to direct classification.
	if got := KindOf(kerr.GroupIDNotFound); got != KindNotFound {
		t.Fatalf("KindOf(GroupIDNotFound) = %v, want not_found", got)
	}
}

func TestErrorKindString(t *testing.T) {
	cases := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindConnectivity, "connectivity"},
		{KindAuthorization, "authorization"},
		{KindNotFound, "not_found"},
	}
	for _, tc := range cases {
		if got := tc.kind.String(); got != tc.want {
			t.Fatalf("String() = %q, want %q", got, tc.want)
		}
	}
}
