package engine

import "fmt"

// ValidationError rejects a call with missing or malformed required input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// StateError rejects an operation that is not legal in the decision's
// current lifecycle state. The decision is left unchanged.
type StateError struct {
	Op     string
	Status string
	Reason string
}

func (e StateError) Error() string {
	return fmt.Sprintf("%s not allowed in status %s: %s", e.Op, e.Status, e.Reason)
}
