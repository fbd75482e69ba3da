package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ergo/internal/engine"
	"github.com/roach88/ergo/internal/pipeline"
	"github.com/roach88/ergo/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	Params  []string
	Context string // execution context YAML file
	DB      string // SQLite run log
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <id> <version>",
		Short: "Expand, validate and run a cluster once",
		Long: `Run a published cluster once.

The cluster is expanded with the given root parameters, validated, and
evaluated in topological order. Keyed sources read their values from the
execution context file:

  metadata:
    episode: e-42
  values:
    price: 5.5

With --db, the outcome of the run is appended to a SQLite run log.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, args, cmd)
		},
	}

	addParamFlag(cmd, &opts.Params)
	cmd.Flags().StringVar(&opts.Context, "context", "", "execution context YAML file")
	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite run log to record the run in")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	params, err := parseParams(formatter, opts.Params)
	if err != nil {
		return err
	}

	execCtx := engine.NewContext()
	if opts.Context != "" {
		formatter.VerboseLog("Loading context from %s", opts.Context)
		if execCtx, err = engine.LoadContext(opts.Context); err != nil {
			return formatter.Fail(ExitCommandError, err)
		}
	}

	var extra []pipeline.Option
	var runLog *store.Store
	if opts.DB != "" {
		if runLog, err = store.Open(opts.DB); err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStore, err)
		}
		extra = append(extra, pipeline.WithRunLog(runLog))
	}

	sess, err := openSession(rootOpts, cmd, extra...)
	if err != nil {
		if runLog != nil {
			_ = runLog.Close()
		}
		return commandError(formatter, err)
	}
	if runLog != nil {
		sess.addCloser(runLog)
	}
	defer sess.Close()

	key := clusterArgs(args)
	rep, err := sess.pipeline.Run(cmd.Context(), key, params, execCtx)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	formatter.VerboseLog("Evaluated %d node(s)", len(rep.Steps))

	return formatter.Success(rep, formatReport(rep))
}

// formatReport renders a report for text output: the trace, then outputs.
func formatReport(rep *engine.Report) string {
	var b strings.Builder
	b.WriteString("Trace:\n")
	for _, s := range rep.Steps {
		fmt.Fprintf(&b, "  [%d] %-4s %-24s", s.Seq, s.NodeID, s.Impl)
		for _, name := range s.Outputs.SortedNames() {
			fmt.Fprintf(&b, " %s=%v", name, s.Outputs[name])
		}
		b.WriteString("\n")
	}

	b.WriteString("\nOutputs:\n")
	if len(rep.Outputs) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, name := range rep.Outputs.SortedNames() {
		fmt.Fprintf(&b, "  %s = %v\n", name, rep.Outputs[name])
	}
	return b.String()
}
