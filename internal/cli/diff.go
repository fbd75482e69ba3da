package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ergo/internal/pipeline"
)

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "diff <id> <from-version> <to-version>",
		Short: "Compare the signatures of two cluster versions",
		Long: `Compare the inferred signatures of two versions of a cluster.

Any difference in the signature hash is a breaking change: ports, types,
cardinality, wireability, boundary kind and both flags all count. A
breaking change that leaves existing parent wiring intact is reported as
wiring-compatible. With --check, a breaking change exits with status 1.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(rootOpts, args, check, cmd)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "exit 1 when the change is breaking")

	return cmd
}

func runDiff(opts *RootOptions, args []string, check bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	sess, err := openSession(opts, cmd)
	if err != nil {
		return commandError(formatter, err)
	}
	defer sess.Close()

	d, err := sess.pipeline.Diff(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	if err := formatter.Success(d, formatDiff(d)); err != nil {
		return err
	}
	if check && d.Breaking {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s -> %s is a breaking change", d.ID, d.From, d.To))
	}
	return nil
}

func formatDiff(d *pipeline.Diff) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s -> %s\n", d.ID, d.From, d.To)
	fmt.Fprintf(&b, "  %s  %s\n", d.FromHash, d.From)
	fmt.Fprintf(&b, "  %s  %s\n", d.ToHash, d.To)
	switch {
	case !d.Breaking:
		b.WriteString("✓ unchanged\n")
	case d.Compatible:
		b.WriteString("✗ breaking change (existing wiring still resolves)\n")
	default:
		b.WriteString("✗ breaking change\n")
	}
	return b.String()
}
