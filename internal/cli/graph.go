package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pickflow/internal/interaction"
	"github.com/roach88/pickflow/internal/mode"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/workflow"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Dot bool
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph [kind]",
		Short: "Describe the topology of a workflow",
		Long: `Print the nodes and edges of a workflow graph: extraction, setup
stages, the parallel branches with their handlers, and cleanup.

Without a kind, every workflow kind is listed.

Examples:
  pickflow graph
  pickflow graph create_point
  pickflow graph replace_parent_3d --dot | dot -Tsvg > graph.svg
  pickflow graph place_object_2d --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := ""
			if len(args) == 1 {
				kind = args[0]
			}
			return runGraph(opts, kind, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Dot, "dot", false, "print Graphviz dot instead of text")

	return cmd
}

func runGraph(opts *GraphOptions, kind string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	graphs, err := interaction.BuildGraphs(scene.NewWorld())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build workflows", err)
	}

	if kind == "" {
		kinds := mode.Kinds()
		if formatter.JSON() {
			names := make([]string, len(kinds))
			for i, k := range kinds {
				names[i] = k.String()
			}
			return formatter.Success(names)
		}
		for _, k := range kinds {
			fmt.Fprintln(formatter.Writer, k.String())
		}
		return nil
	}

	k, err := mode.ParseKind(kind)
	if err != nil {
		_ = formatter.Error(ErrCodeUnknown, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown workflow kind", err)
	}
	topo, ok := graphs.Describe(k)
	if !ok {
		err := fmt.Errorf("%s runs no workflow", k)
		_ = formatter.Error(ErrCodeUnknown, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown workflow kind", err)
	}

	switch {
	case formatter.JSON():
		return formatter.Success(topo)
	case opts.Dot:
		_, err := fmt.Fprint(formatter.Writer, renderDot(topo))
		return err
	}
	_, err = fmt.Fprint(formatter.Writer, renderTopology(topo))
	return err
}

func renderTopology(t workflow.Topology) string {
	var b strings.Builder
	fmt.Fprintf(&b, "workflow %s\n\nnodes:\n", t.Name)
	for _, n := range t.Nodes {
		fmt.Fprintf(&b, "  %-28s %s\n", n.Name, n.Kind)
	}
	b.WriteString("\nedges:\n")
	for _, e := range t.Edges {
		fmt.Fprintf(&b, "  %s -> %s [%s]\n", e.From, e.To, e.Label)
	}
	return b.String()
}

var dotShapes = map[workflow.NodeKind]string{
	workflow.NodeEntry:      "circle",
	workflow.NodeContinuous: "box3d",
	workflow.NodeHandler:    "box",
	workflow.NodeTerminate:  "doublecircle",
	workflow.NodeDiscard:    "point",
	workflow.NodeBackout:    "octagon",
}

func renderDot(t workflow.Topology) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n  rankdir=LR;\n", t.Name)
	for _, n := range t.Nodes {
		shape, ok := dotShapes[n.Kind]
		if !ok {
			shape = "ellipse"
		}
		fmt.Fprintf(&b, "  %q [shape=%s];\n", n.Name, shape)
	}
	for _, e := range t.Edges {
		fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", e.From, e.To, e.Label)
	}
	b.WriteString("}\n")
	return b.String()
}
