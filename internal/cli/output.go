package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/ergo/internal/engine"
	"github.com/roach88/ergo/internal/expand"
	"github.com/roach88/ergo/internal/pipeline"
	"github.com/roach88/ergo/internal/signature"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation, run or scenario failure, breaking change under --check
	ExitCommandError = 2 // Command error (invalid paths, bad flags, unreadable clusters, etc.)
)

// CLI error codes for failures that carry no phase code of their own.
const (
	ErrCodeGeneric  = "E001" // Generic/unknown error
	ErrCodeNotFound = "E005" // Path not found
	ErrCodeUsage    = "E008" // Bad flag or argument value
	ErrCodeStore    = "E009" // Cache or run log could not be opened
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // phase code (MISSING_CLUSTER, InvalidWiring, ...) or E0xx
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. In text
// format, text is printed when it is non-empty, and data otherwise.
func (f *OutputFormatter) Success(data interface{}, text string) error {
	if f.Format == "json" {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	if text != "" {
		fmt.Fprint(f.Writer, text)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err in the configured format and returns an ExitError with
// code. Phase errors report their own code.
func (f *OutputFormatter) Fail(code int, err error) error {
	errCode, details := errorCode(err)
	_ = f.Error(errCode, err.Error(), details)
	return WrapExitError(code, errCode, err)
}

// errorCode returns the code and details a pipeline error reports.
func errorCode(err error) (string, interface{}) {
	var xe *expand.Error
	if errors.As(err, &xe) {
		return string(xe.Code), nil
	}
	var ie *signature.InferenceError
	if errors.As(err, &ie) {
		return string(ie.Code), nil
	}
	var re *pipeline.RejectedError
	if errors.As(err, &re) {
		return "InvalidDefinition", re.Errors
	}
	var ge *engine.InvalidGraphError
	if errors.As(err, &ge) {
		return "InvalidGraph", ge.Result
	}
	var ee *engine.ExecutionError
	if errors.As(err, &ee) {
		if len(ee.Details) == 0 {
			return string(ee.Kind), nil
		}
		return string(ee.Kind), ee.Details
	}
	return ErrCodeGeneric, nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
