package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ergo/internal/compiler"
	"github.com/roach88/ergo/internal/validate"
)

// ValidationResult holds validation results for one cluster.
type ValidationResult struct {
	Cluster    string                     `json:"cluster"`
	Valid      bool                       `json:"valid"`
	Definition []compiler.ValidationError `json:"definition,omitempty"`
	Graph      *validate.Result           `json:"graph,omitempty"`
}

// failures counts the errors in r.
func (r ValidationResult) failures() int {
	n := len(r.Definition)
	if r.Graph != nil {
		n += len(r.Graph.Errors)
	}
	return n
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "validate <id> <version>",
		Short: "Validate a cluster definition and its expanded graph",
		Long: `Validate a published cluster.

Runs the definition-time checks (wiring matrix, boundary ports, inferred
signatures of children) and, when they pass, expands the cluster with the
given root parameters and validates the flat graph.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, params, cmd)
		},
	}
	addParamFlag(cmd, &params)

	return cmd
}

func runValidate(opts *RootOptions, args, rawParams []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	params, err := parseParams(formatter, rawParams)
	if err != nil {
		return err
	}
	sess, err := openSession(opts, cmd)
	if err != nil {
		return commandError(formatter, err)
	}
	defer sess.Close()

	key := clusterArgs(args)
	formatter.VerboseLog("Validating %s", key)

	defErrs, err := sess.pipeline.Check(cmd.Context(), key)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	result := ValidationResult{Cluster: key.String(), Definition: defErrs}
	if len(defErrs) == 0 {
		graph, err := sess.pipeline.Validate(key, params)
		if err != nil {
			return formatter.Fail(ExitFailure, err)
		}
		result.Graph = &graph
		result.Valid = graph.Success
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return formatter.Success(result, fmt.Sprintf("✓ %s valid\n", key))
}

// outputValidationErrors outputs every definition and graph error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error:  firstValidationError(result),
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", result.failures()))
	}

	// Text format
	fmt.Fprintf(formatter.Writer, "✗ %s: validation failed\n\n", result.Cluster)
	for _, e := range result.Definition {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", e.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	if result.Graph != nil {
		for _, e := range result.Graph.Errors {
			if e.Location != "" {
				fmt.Fprintf(formatter.Writer, "  %s at %s: %s\n", e.Kind, e.Location, e.Message)
				continue
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Kind, e.Message)
		}
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", result.failures()))
}

func firstValidationError(result ValidationResult) *CLIError {
	if len(result.Definition) > 0 {
		e := result.Definition[0]
		return &CLIError{Code: e.Code, Message: e.Message}
	}
	if result.Graph != nil && len(result.Graph.Errors) > 0 {
		e := result.Graph.Errors[0]
		return &CLIError{Code: string(e.Kind), Message: e.Message}
	}
	return nil
}
