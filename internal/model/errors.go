package model

import "fmt"

// ValidationError means the candidate's input cannot be submitted as-is.
// It is recoverable: the candidate corrects the input. It is never
// recorded as an integrity violation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// BoundsError is a cursor-control contract violation: a navigation index
// outside [0, count). Fatal to the operation, never to the session.
type BoundsError struct {
	Index int
	Count int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("question index %d out of range [0, %d)", e.Index, e.Count)
}

// TransportError wraps a network or external-service failure. Callers at
// the boundary convert it into a fallback or a pending-retry state; it is
// never surfaced raw to the candidate.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
