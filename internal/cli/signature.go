package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/signature"
)

// SignatureResult is the output of the signature command.
type SignatureResult struct {
	Cluster   string       `json:"cluster"`
	Signature ir.Signature `json:"signature"`
	Hash      string       `json:"hash"`
}

// NewSignatureCommand creates the signature command.
func NewSignatureCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signature <id> <version>",
		Short: "Infer the boundary signature of a cluster",
		Long: `Infer a cluster's signature: its boundary kind, typed input and output
ports, and whether it has side effects or originates values.

Signatures are cached per cluster version; see --cache.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignature(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runSignature(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	sess, err := openSession(opts, cmd)
	if err != nil {
		return commandError(formatter, err)
	}
	defer sess.Close()

	key := clusterArgs(args)
	sig, err := sess.pipeline.Signature(cmd.Context(), key)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	result := SignatureResult{Cluster: key.String(), Signature: sig, Hash: signature.Hash(sig)}
	return formatter.Success(result, formatSignature(result))
}

func formatSignature(r SignatureResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", r.Cluster, r.Signature.Kind)
	fmt.Fprintf(&b, "  hash:             %s\n", r.Hash)
	fmt.Fprintf(&b, "  has_side_effects: %t\n", r.Signature.HasSideEffects)
	fmt.Fprintf(&b, "  is_origin:        %t\n", r.Signature.IsOrigin)
	writePorts(&b, "inputs", r.Signature.Inputs)
	writePorts(&b, "outputs", r.Signature.Outputs)
	return b.String()
}

func writePorts(b *strings.Builder, label string, ports []ir.PortSpec) {
	fmt.Fprintf(b, "  %s:\n", label)
	if len(ports) == 0 {
		b.WriteString("    (none)\n")
		return
	}
	for _, p := range ports {
		fmt.Fprintf(b, "    %s %s %s", p.Name, p.Type, p.Cardinality)
		if p.Wireable {
			b.WriteString(" wireable")
		}
		b.WriteString("\n")
	}
}
