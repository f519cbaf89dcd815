package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNoScores is returned when the classifier answers with an empty score set.
	ErrNoScores = errors.New("classifier returned no scores")
	// ErrInvalidScore is returned for a score that is NaN or outside [0, 1].
	ErrInvalidScore = errors.New("classifier returned an invalid score")
)

// #region capability-error
// CapabilityError means the classifier could not produce scores. The run
// is aborted before the confidence gate, so it is never confused with low
// confidence.
type CapabilityError struct {
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("classification capability: %v", e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// #endregion capability-error

// #region clarification-error
// ClarificationError means the fallback node could not obtain an answer
// (input closed, attempts exhausted, or the context was cancelled).
type ClarificationError struct {
	Err error
}

func (e *ClarificationError) Error() string {
	return fmt.Sprintf("clarification: %v", e.Err)
}

func (e *ClarificationError) Unwrap() error { return e.Err }

// #endregion clarification-error

// IsCapabilityError reports whether err came from the classifier.
func IsCapabilityError(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}
