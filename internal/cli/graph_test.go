package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pickflow/internal/workflow"
)

func TestGraphCommand_List(t *testing.T) {
	stdout, _, err := executeCommand(t, "graph")
	require.NoError(t, err)
	assert.Equal(t, "create_point\nreplace_point\nplace_object_2d\nreplace_parent_3d\ncreate_edges\ncreate_path\nreplace_side\n", stdout)

	stdout, _, err = executeCommand(t, "graph", "--format", "json")
	require.NoError(t, err)
	var kinds []string
	decodeData(t, stdout, &kinds)
	assert.Len(t, kinds, 7)
}

func TestGraphCommand_Text(t *testing.T) {
	stdout, _, err := executeCommand(t, "graph", "replace_parent_3d")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "workflow replace_parent_3d\n\nnodes:\n"))
	assert.Contains(t, stdout, "find_parent")
	assert.Contains(t, stdout, "replace_parent_3d_cleanup")
	assert.Contains(t, stdout, "\nedges:\n")
}

func TestGraphCommand_Backout(t *testing.T) {
	stdout, _, err := executeCommand(t, "graph", "create_edges")
	require.NoError(t, err)
	assert.Contains(t, stdout, "create_edges_backout")
	assert.Contains(t, stdout, "[unwind]")

	stdout, _, err = executeCommand(t, "graph", "create_path")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "backout")
}

func TestGraphCommand_Dot(t *testing.T) {
	stdout, _, err := executeCommand(t, "graph", "create_point", "--dot")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "digraph \"create_point\" {\n"))
	assert.Contains(t, stdout, "[shape=circle]")
	assert.True(t, strings.HasSuffix(stdout, "}\n"))
}

func TestGraphCommand_JSON(t *testing.T) {
	stdout, _, err := executeCommand(t, "graph", "place_object_2d", "--format", "json")
	require.NoError(t, err)

	var topo workflow.Topology
	decodeData(t, stdout, &topo)
	assert.Equal(t, "place_object_2d", topo.Name)
	require.NotEmpty(t, topo.Nodes)
	assert.Equal(t, workflow.NodeEntry, topo.Nodes[0].Kind)
	assert.NotEmpty(t, topo.Edges)
}

func TestGraphCommand_UnknownKind(t *testing.T) {
	for _, kind := range []string{"teleport", "inspect"} {
		t.Run(kind, func(t *testing.T) {
			stdout, _, err := executeCommand(t, "graph", kind)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stdout, "[E201]")
		})
	}
}

func TestRenderTopology(t *testing.T) {
	topo := workflow.Topology{
		Name:  "w",
		Nodes: []workflow.Node{{Name: "input", Kind: workflow.NodeEntry}},
		Edges: []workflow.Edge{{From: "input", To: "extract", Label: "start"}},
	}
	assert.Equal(t, "workflow w\n\nnodes:\n  input                        entry\n\nedges:\n  input -> extract [start]\n", renderTopology(topo))
}
