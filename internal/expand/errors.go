package expand

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/ergo/internal/ir"
)

// Error is a failed expansion. Expansion never returns a partial graph
// alongside an Error.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Cluster is the definition being expanded when the error occurred.
	Cluster ir.ClusterKey

	// NodeID is the offending node within Cluster, if any.
	NodeID string

	// Path is the chain of clusters from the root down to Cluster.
	Path []ir.ClusterKey
}

// ErrorCode categorizes expansion errors.
type ErrorCode string

const (
	// ErrCodeEmptyCluster indicates a definition with zero nodes.
	ErrCodeEmptyCluster ErrorCode = "EMPTY_CLUSTER"

	// ErrCodeMissingCluster indicates the loader has no such (id, version).
	ErrCodeMissingCluster ErrorCode = "MISSING_CLUSTER"

	// ErrCodeMissingPrimitive indicates an Impl node the catalog does not know.
	ErrCodeMissingPrimitive ErrorCode = "MISSING_PRIMITIVE"

	// ErrCodeSelfReference indicates a cluster that transitively instantiates itself.
	ErrCodeSelfReference ErrorCode = "SELF_REFERENCE_CYCLE"

	// ErrCodeUnresolvedBinding indicates an Exposed binding with no value in scope.
	ErrCodeUnresolvedBinding ErrorCode = "UNRESOLVED_BINDING"

	// ErrCodeUnresolvedEdge indicates an edge endpoint that names no node or port.
	ErrCodeUnresolvedEdge ErrorCode = "UNRESOLVED_EDGE"

	// ErrCodeUnresolvedOutput indicates an output port that maps to nothing concrete.
	ErrCodeUnresolvedOutput ErrorCode = "UNRESOLVED_OUTPUT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Cluster.ID != "" {
		fmt.Fprintf(&b, " (cluster=%s", e.Cluster)
		if e.NodeID != "" {
			fmt.Fprintf(&b, ", node=%s", e.NodeID)
		}
		b.WriteByte(')')
	}
	return b.String()
}

// HasCode reports whether err is an expansion Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsSelfReference returns true for cluster self-reference cycles.
func IsSelfReference(err error) bool { return HasCode(err, ErrCodeSelfReference) }

// IsMissingCluster returns true when a referenced cluster could not be loaded.
func IsMissingCluster(err error) bool { return HasCode(err, ErrCodeMissingCluster) }

// IsUnresolvedBinding returns true when an Exposed binding had no value.
func IsUnresolvedBinding(err error) bool { return HasCode(err, ErrCodeUnresolvedBinding) }
