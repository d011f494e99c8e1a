package diagnose

import (
	"context"
	"fmt"

	"github.com/loveteshchandra/kafka-lens/internal/kafka"
)

// Deleter issues the actual deletion calls. Implemented by the kafka
// inspector; faked in tests.
type Deleter interface {
	DeleteGroup(ctx context.Context, group string) error
	DeleteTopic(ctx context.Context, topic string) error
}

// Outcome is the terminal state of one deletion request.
type Outcome string

const (
	OutcomeDeleted  Outcome = "DELETED"
	OutcomeRejected Outcome = "REJECTED_NO_CONFIRMATION"
	OutcomeFailed   Outcome = "FAILED"
)

// DeletionRequest asks for one resource to be deleted. Confirmed must be an
// explicit affirmative from the operator; it is never inferred.
type DeletionRequest struct {
	Kind      ResourceKind
	Name      string
	Confirmed bool
}

// DeletionResult reports what happened. FailureKind distinguishes
// not-found, authorization, and connectivity failures so callers can react
// differently to each.
type DeletionResult struct {
	Kind        ResourceKind    `json:"kind"`
	Name        string          `json:"name"`
	Outcome     Outcome         `json:"outcome"`
	FailureKind kafka.ErrorKind `json:"-"`
	Failure     string          `json:"failure,omitempty"`
	Err         error           `json:"-"`
}

// Delete runs the guarded deletion workflow: without confirmation the
// request is rejected and no call is issued; with confirmation exactly one
// deletion call goes to the collaborator. At most one irreversible call per
// invocation, zero without explicit confirmation.
func Delete(ctx context.Context, d Deleter, req DeletionRequest) DeletionResult {
	result := DeletionResult{Kind: req.Kind, Name: req.Name}

	if !req.Confirmed {
		result.Outcome = OutcomeRejected
		return result
	}

	var err error
	switch req.Kind {
	case KindConsumerGroup:
		err = d.DeleteGroup(ctx, req.Name)
	case KindTopic:
		err = d.DeleteTopic(ctx, req.Name)
	default:
		err = fmt.Errorf("unknown resource kind %q", req.Kind)
	}

	if err != nil {
		result.Outcome = OutcomeFailed
		result.FailureKind = kafka.KindOf(err)
		result.Failure = fmt.Sprintf("%s: %v", result.FailureKind, err)
		result.Err = err
		return result
	}

	result.Outcome = OutcomeDeleted
	return result
}
