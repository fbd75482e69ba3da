package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ergo/internal/ir"
)

// NewExpandCommand creates the expand command.
func NewExpandCommand(rootOpts *RootOptions) *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "expand <id> <version>",
		Short: "Expand a cluster into a flat primitive graph",
		Long: `Expand a published cluster with the given root parameters.

Prints the flat graph: one node per primitive with its runtime id,
implementation and authoring path, then every edge. Use --format json for
the graph's serialized form, which "ergo run" and the HTTP API accept.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(rootOpts, args, params, cmd)
		},
	}
	addParamFlag(cmd, &params)

	return cmd
}

func runExpand(opts *RootOptions, args, rawParams []string, cmd *cobra.Command) error {
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
	g, err := sess.pipeline.Expand(key, params)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	formatter.VerboseLog("Expanded %s into %d node(s), %d edge(s)", key, len(g.Nodes), len(g.Edges))

	return formatter.Success(g, formatGraph(key, g))
}

// formatGraph renders g for text output.
func formatGraph(key ir.ClusterKey, g *ir.ExpandedGraph) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d node(s), %d edge(s)\n\n", key, len(g.Nodes), len(g.Edges))

	b.WriteString("Nodes:\n")
	for _, id := range g.SortedNodeIDs() {
		n := g.Nodes[id]
		fmt.Fprintf(&b, "  %-4s %-24s %s\n", id, n.Implementation, authoringPath(n.AuthoringPath))
	}

	b.WriteString("\nEdges:\n")
	if len(g.Edges) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, e := range g.Edges {
		fmt.Fprintf(&b, "  %s -> %s\n", e.From, e.To)
	}

	if len(g.BoundaryOutputs) > 0 {
		b.WriteString("\nOutputs:\n")
		for _, o := range g.BoundaryOutputs {
			fmt.Fprintf(&b, "  %s = %s\n", o.Name, o.MapsTo)
		}
	}
	return b.String()
}

// authoringPath renders a path as cluster/node hops joined by " > ".
func authoringPath(path []ir.AuthoringStep) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = s.ClusterID + "/" + s.NodeID
	}
	return strings.Join(parts, " > ")
}
