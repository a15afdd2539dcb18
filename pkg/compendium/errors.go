package compendium

import "fmt"

// LookupError means the taxonomy service could not provide a species.
type LookupError struct {
	Key int64
	// Retryable is true for transient failures (timeouts, 5xx).
	Retryable bool
	Err       error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("cannot look up species %d: %v", e.Key, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}
