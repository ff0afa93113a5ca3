package claim

import (
	"errors"
	"fmt"
)

// InvalidTransitionError reports an attempted status change that is not an
// edge of the transition table, or an automated attempt to reject. It is a
// logic bug in the caller and is never silently ignored.
type InvalidTransitionError struct {
	From Status
	To   Status
	Why  string
}

func (e *InvalidTransitionError) Error() string {
	if e.Why != "" {
		return fmt.Sprintf("invalid transition %s -> %s: %s", e.From, e.To, e.Why)
	}
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// ClassifierUnavailableError wraps a rate-limit or outage failure from the
// classifier. The claim is left untouched in notified and can be retried.
type ClassifierUnavailableError struct {
	Err error
}

func (e *ClassifierUnavailableError) Error() string {
	return fmt.Sprintf("classifier unavailable: %v", e.Err)
}

func (e *ClassifierUnavailableError) Unwrap() error { return e.Err }

// ErrClaimNotFound is returned for operations on unknown claim IDs.
var ErrClaimNotFound = errors.New("claim not found")

// ErrFulfillmentNotFound is returned when a claim has no fulfillment record.
var ErrFulfillmentNotFound = errors.New("fulfillment not found")

// ErrTransitionConflict is returned by stores when a guarded transition
// update matched no row because the claim's status changed underneath it.
var ErrTransitionConflict = errors.New("claim status changed concurrently")
