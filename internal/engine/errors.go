package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/ergo/internal/validate"
)

// ErrorKind categorizes execution errors.
type ErrorKind string

const (
	// ErrRuntimePanic indicates a primitive panicked or failed in a way
	// that is neither a coercion nor a missing value.
	ErrRuntimePanic ErrorKind = "RuntimePanic"

	// ErrTypeCoercionFailed indicates a value did not have the type a
	// primitive read it as, or a primitive produced an undeclared type.
	ErrTypeCoercionFailed ErrorKind = "TypeCoercionFailed"

	// ErrMissingInput indicates an input, parameter or output that was
	// needed but never produced.
	ErrMissingInput ErrorKind = "MissingInput"

	// ErrActionFailed indicates an attempted action failed. Actions after
	// it in the same pass are not attempted.
	ErrActionFailed ErrorKind = "ActionFailed"
)

// DetailCause is the Details key naming what went wrong inside a
// RuntimePanic that was not a recovered panic.
const DetailCause = "cause"

// CauseMissingImplementation is the cause of a RuntimePanic raised for a
// catalog entry with no registered implementation.
const CauseMissingImplementation = "missing_implementation"

// ExecutionError is the single terminal error of a failed run.
//
// ExecutionError includes structured fields for diagnostics.
type ExecutionError struct {
	// Kind identifies the error category.
	Kind ErrorKind `json:"kind"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// NodeID is the runtime id of the offending node, if any.
	NodeID string `json:"node_id,omitempty"`

	// Details contains additional context.
	Details map[string]string `json:"details,omitempty"`

	// Err is the underlying primitive error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if e.NodeID != "" {
		fmt.Fprintf(&b, " (node=%s)", e.NodeID)
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Details[k])
		}
	}
	return b.String()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsExecutionError reports whether err is an ExecutionError of kind k.
// Uses errors.As to handle wrapped errors.
func IsExecutionError(err error, k ErrorKind) bool {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Kind == k
	}
	return false
}

// InvalidGraphError is returned when a graph fails validation. No node is
// evaluated.
type InvalidGraphError struct {
	Result validate.Result
}

func (e *InvalidGraphError) Error() string {
	n := len(e.Result.Errors)
	if n == 0 {
		return "invalid graph"
	}
	if n == 1 {
		return "invalid graph: " + e.Result.Errors[0].Error()
	}
	return fmt.Sprintf("invalid graph: %s (and %d more)", e.Result.Errors[0].Error(), n-1)
}

// IsInvalidGraph reports whether err is an InvalidGraphError.
func IsInvalidGraph(err error) bool {
	var ie *InvalidGraphError
	return errors.As(err, &ie)
}
