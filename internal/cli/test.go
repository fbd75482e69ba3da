package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/ergo/internal/harness"
	"github.com/roach88/ergo/internal/library"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Golden string // golden file directory
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Codes  []string `json:"codes,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-path>...",
		Short: "Run conformance scenarios",
		Long: `Run YAML scenarios: one run of one cluster each, checked against its
expected outputs or error and its trace assertions.

Scenarios without a clusters field run against --clusters. With --golden,
each run's snapshot is also compared with <golden>/<name>.golden.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  ergo test ./scenarios
  ergo test ./scenarios --filter "strategy_*"
  ergo test ./scenarios --golden ./scenarios/golden --update
  ergo test ./scenarios --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden file directory")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Update && opts.Golden == "" {
		_ = formatter.Error(ErrCodeUsage, "--update requires --golden", nil)
		return NewExitError(ExitCommandError, "--update requires --golden")
	}
	if _, err := filepath.Match(opts.Filter, ""); err != nil {
		_ = formatter.Error(ErrCodeUsage, "invalid filter pattern: "+err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid filter pattern", err)
	}

	scenarios, err := harness.LoadScenarios(paths...)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeNotFound, err)
	}

	hopts := []harness.Option{harness.WithLogger(newLogger(opts.RootOptions, cmd))}
	if lib := defaultLibrary(opts.Clusters, formatter); lib != nil {
		hopts = append(hopts, harness.WithLibrary(lib))
	}
	h := harness.New(hopts...)

	result := TestResult{Scenarios: []ScenarioResult{}}
	for _, s := range scenarios {
		if opts.Filter != "" {
			if ok, _ := filepath.Match(opts.Filter, s.Name); !ok {
				continue
			}
		}
		sr := runScenario(h, s, opts, cmd)
		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd.OutOrStdout(), result)
	}
	return outputTestText(cmd.OutOrStdout(), result)
}

// defaultLibrary loads the --clusters directory when it exists.
func defaultLibrary(dir string, formatter *OutputFormatter) *library.Library {
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	lib, err := library.LoadDir(dir)
	if err != nil {
		formatter.VerboseLog("Clusters directory %s not loaded: %v", dir, err)
		return nil
	}
	return lib
}

// runScenario executes a single scenario and returns the result.
func runScenario(h *harness.Harness, s *harness.Scenario, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	text := opts.Format != "json"

	fail := func(errs ...string) ScenarioResult {
		if text {
			fmt.Fprintf(w, "✗ %s\n", s.Name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: s.Name, Pass: false, Errors: errs}
	}

	result, err := h.Run(cmd.Context(), s)
	if err != nil {
		return fail(fmt.Sprintf("execution failed: %v", err))
	}

	if opts.Golden != "" {
		path := filepath.Join(opts.Golden, s.Name+".golden")
		if opts.Update {
			if err := updateGoldenFile(path, result); err != nil {
				return fail(fmt.Sprintf("failed to update golden file: %v", err))
			}
			if text {
				fmt.Fprintf(w, "✓ %s (golden updated)\n", s.Name)
			}
			return ScenarioResult{Name: s.Name, Pass: result.Pass, Codes: result.Codes, Errors: result.Errors}
		}
		match, err := compareWithGolden(path, result)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// No golden file - expectations and assertions only
		case err != nil:
			return fail(fmt.Sprintf("golden comparison failed: %v", err))
		case !match:
			return fail("snapshot does not match golden file (run with --update to regenerate)")
		}
	}

	if !result.Pass {
		sr := fail(result.Errors...)
		sr.Codes = result.Codes
		return sr
	}
	if text {
		fmt.Fprintf(w, "✓ %s\n", s.Name)
	}
	return ScenarioResult{Name: s.Name, Pass: true, Codes: result.Codes}
}

// updateGoldenFile writes the snapshot of result to path.
func updateGoldenFile(path string, result *harness.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	data, err := harness.MarshalSnapshot(result)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the snapshot of result against path.
func compareWithGolden(path string, result *harness.Result) (bool, error) {
	golden, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	current, err := harness.MarshalSnapshot(result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return bytes.Equal(golden, current), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(w io.Writer, result TestResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(w io.Writer, result TestResult) error {
	if result.Total == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
