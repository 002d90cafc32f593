package models

import "errors"

// Error taxonomy shared by every scenario. Callers wrap these with %w so the
// command layer can classify failures with errors.Is.
var (
	// ErrConnection means the node transport could not be established
	ErrConnection = errors.New("connection error")
	// ErrCredential means a key file or phrase could not be turned into a signer
	ErrCredential = errors.New("credential error")
	// ErrInsufficientBalance means an account is below a required threshold
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrSubmissionFailure means a transaction reached a failed terminal state
	ErrSubmissionFailure = errors.New("submission failure")
	// ErrEventNotFound means a finalized transaction lacks an expected event
	ErrEventNotFound = errors.New("event not found")
	// ErrTimedOut means no terminal status was observed within the timeout
	ErrTimedOut = errors.New("timed out")
)
