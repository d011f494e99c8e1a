package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// ErrorKind classifies a collaborator failure so callers can react
// differently to connectivity problems, missing permissions, and missing
// resources. Authorization failures are never reported as not-found.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConnectivity
	KindAuthorization
	KindNotFound
)

// String returns the kind name used in reports and logs.
func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error wraps a collaborator failure with its classification and the
// operation that produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ClassifyError wraps err as an *Error. A nil err returns nil.
func ClassifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classify(err), Op: op, Err: err}
}

// KindOf extracts the classification from an error chain.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return classify(err)
}

func classify(err error) ErrorKind {
	var ke *kerr.Error
	if errors.As(err, &ke) {
		switch ke {
		case kerr.SaslAuthenticationFailed,
			kerr.UnsupportedSaslMechanism,
			kerr.IllegalSaslState,
			kerr.TopicAuthorizationFailed,
			kerr.ClusterAuthorizationFailed,
			kerr.GroupAuthorizationFailed,
			kerr.TransactionalIDAuthorizationFailed:
			return KindAuthorization
		case kerr.GroupIDNotFound,
			kerr.UnknownTopicOrPartition,
			kerr.UnknownTopicID:
			return KindNotFound
		}
		if ke.Retriable {
			return KindConnectivity
		}
		return KindUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindConnectivity
	}
	if errors.Is(err, net.ErrClosed) {
		return KindConnectivity
	}

	var eof *kgo.ErrFirstReadEOF
	if errors.As(err, &eof) {
		return KindAuthorization
	}

	var ne *net.OpError
	if errors.As(err, &ne) {
		return KindConnectivity
	}

	return KindUnknown
}
