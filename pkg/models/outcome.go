package models

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// FailureReason tags why a submission did not succeed
type FailureReason string

const (
	ReasonDropped         FailureReason = "dropped"
	ReasonInvalid         FailureReason = "invalid"
	ReasonUsurped         FailureReason = "usurped"
	ReasonTimedOut        FailureReason = "timed-out"
	ReasonCancelled       FailureReason = "cancelled"
	ReasonEventNotFound   FailureReason = "event-not-found"
	ReasonExtrinsicFailed FailureReason = "extrinsic-failed"
	ReasonSubmitError     FailureReason = "submit-error"
	ReasonStreamError     FailureReason = "stream-error"
	ReasonStreamClosed    FailureReason = "stream-closed"
)

// Outcome is the single terminal result of a submission
type Outcome struct {
	Label   string
	Success bool
	Block   common.Hash
	TxHash  common.Hash
	Events  []ChainEvent
	Reason  FailureReason
	Err     error
}

// Succeeded builds a success outcome
func Succeeded(label string, block, txHash common.Hash, events []ChainEvent) Outcome {
	return Outcome{Label: label, Success: true, Block: block, TxHash: txHash, Events: events}
}

// Failed builds a failure outcome
func Failed(label string, reason FailureReason, err error) Outcome {
	return Outcome{Label: label, Reason: reason, Err: err}
}

// Error returns nil on success, otherwise an error wrapping ErrSubmissionFailure
// and, where it applies, ErrTimedOut, ErrEventNotFound or context.Canceled.
func (o Outcome) Error() error {
	if o.Success {
		return nil
	}
	var cause error
	switch o.Reason {
	case ReasonTimedOut:
		cause = ErrTimedOut
	case ReasonEventNotFound:
		cause = ErrEventNotFound
	case ReasonCancelled:
		cause = context.Canceled
	}
	switch {
	case cause != nil && o.Err != nil:
		return fmt.Errorf("%s %w (%s): %w: %v", o.Label, ErrSubmissionFailure, o.Reason, cause, o.Err)
	case cause != nil:
		return fmt.Errorf("%s %w (%s): %w", o.Label, ErrSubmissionFailure, o.Reason, cause)
	case o.Err != nil:
		return fmt.Errorf("%s %w (%s): %v", o.Label, ErrSubmissionFailure, o.Reason, o.Err)
	default:
		return fmt.Errorf("%s %w (%s)", o.Label, ErrSubmissionFailure, o.Reason)
	}
}

// Event returns the first event with the given name
func (o Outcome) Event(name string) (ChainEvent, bool) {
	for _, e := range o.Events {
		if e.Name == name {
			return e, true
		}
	}
	return ChainEvent{}, false
}
