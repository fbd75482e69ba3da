package pipeline

import (
	"errors"
	"fmt"

	"github.com/roach88/ergo/internal/compiler"
	"github.com/roach88/ergo/internal/ir"
)

// RejectedError reports a cluster that failed the definition-time or
// instantiation-time checks. Nothing of it was expanded or executed.
type RejectedError struct {
	Cluster ir.ClusterKey
	Errors  []compiler.ValidationError
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	msg := fmt.Sprintf("cluster %s rejected: %s", e.Cluster, e.Errors[0])
	if n := len(e.Errors) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return msg
}

// IsRejected reports whether err is a *RejectedError.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
