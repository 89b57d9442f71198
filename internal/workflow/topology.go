package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// NodeKind classifies the nodes of a described graph.
type NodeKind string

const (
	NodeEntry      NodeKind = "entry"
	NodeExtract    NodeKind = "extract"
	NodeSetup      NodeKind = "setup"
	NodeContinuous NodeKind = "continuous"
	NodeHandler    NodeKind = "handler"
	NodeTerminate  NodeKind = "terminate"
	NodeDiscard    NodeKind = "discard"
	NodeCleanup    NodeKind = "cleanup"
	NodeBackout    NodeKind = "backout"
)

// Node is one step of a described graph.
type Node struct {
	Name string   `json:"name"`
	Kind NodeKind `json:"kind"`
}

// Edge connects two nodes. Label names the outcome that follows it.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// Topology is the static shape of a workflow graph, as reported by
// "pickflow graph".
type Topology struct {
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

const (
	entryNode     = "input"
	extractNode   = "extract"
	terminateNode = "terminate"
	discardNode   = "discard"
)

func handlerNode(branch string) string { return branch + ".handle" }

// Describe returns the node and edge list of the graph.
func (g *Graph[T, S]) Describe() Topology {
	t := Topology{Name: g.name}
	node := func(name string, kind NodeKind) { t.Nodes = append(t.Nodes, Node{Name: name, Kind: kind}) }
	edge := func(from, to, label string) { t.Edges = append(t.Edges, Edge{From: from, To: to, Label: label}) }

	node(entryNode, NodeEntry)
	node(extractNode, NodeExtract)
	edge(entryNode, extractNode, "target")
	edge(extractNode, terminateNode, "err")

	prev := extractNode
	for _, st := range g.setup {
		node(st.name, NodeSetup)
		edge(prev, st.name, "ok")
		edge(st.name, terminateNode, "err")
		prev = st.name
	}

	for _, b := range g.branches {
		if !b.hasService {
			continue
		}
		node(b.name, NodeContinuous)
		edge(prev, b.name, "fork")
		switch {
		case b.watch:
			edge(b.name, discardNode, "unused")
		case b.hasHandler:
			h := handlerNode(b.name)
			node(h, NodeHandler)
			edge(b.name, h, "stream")
			edge(b.name, h, "respond")
			edge(h, b.name, "continue")
			edge(h, terminateNode, "done")
		}
	}

	if g.backout != nil {
		node(g.backout.name, NodeBackout)
		edge(prev, g.backout.name, "backout")
		edge(g.backout.name, g.backout.name, "unwind")
		edge(g.backout.name, terminateNode, "done")
	}

	node(terminateNode, NodeTerminate)
	node(discardNode, NodeDiscard)

	prev = terminateNode
	for _, st := range g.cleanup {
		node(st.name, NodeCleanup)
		edge(prev, st.name, "teardown")
		prev = st.name
	}
	return t
}

// Problem is one reason a graph was rejected.
type Problem struct {
	Node    string `json:"node,omitempty"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Node == "" {
		return p.Message
	}
	return p.Node + ": " + p.Message
}

// GraphError reports a graph that failed validation.
type GraphError struct {
	Graph    string
	Problems []Problem
}

func (e *GraphError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("workflow %q is invalid: %s", e.Graph, strings.Join(parts, "; "))
}

// validate collects every problem with the graph, not just the first.
func (g *Graph[T, S]) validate() []Problem {
	var problems []Problem
	add := func(node, format string, args ...any) {
		problems = append(problems, Problem{Node: node, Message: fmt.Sprintf(format, args...)})
	}

	if g.name == "" {
		add("", "workflow name is required")
	}
	if g.extract == nil {
		add(extractNode, "no extractor")
	}

	seen := map[string]bool{entryNode: true, extractNode: true, terminateNode: true, discardNode: true}
	claim := func(name string) {
		switch {
		case name == "":
			add("", "unnamed node")
		case seen[name]:
			add(name, "duplicate node name")
		}
		seen[name] = true
	}

	for _, st := range g.setup {
		claim(st.name)
		if st.run == nil {
			add(st.name, "setup stage has no function")
		}
	}

	canTerminate := false
	for _, b := range g.branches {
		claim(b.name)
		if !b.watch {
			claim(handlerNode(b.name))
		}
		if !b.hasService {
			add(b.name, "branch has no continuous service")
			continue
		}
		if b.hasHandler {
			canTerminate = true
		}
	}
	if len(g.branches) == 0 {
		add("", "no branches after setup")
	} else if !canTerminate {
		add("", "no branch can end the session")
	}

	for _, st := range g.cleanup {
		claim(st.name)
		if st.run == nil {
			add(st.name, "cleanup stage has no function")
		}
	}
	if len(g.cleanup) == 0 {
		add("", "no cleanup stage")
	}

	if g.backout != nil {
		claim(g.backout.name)
		if g.backout.run == nil {
			add(g.backout.name, "backout stage has no function")
		}
	}

	for _, name := range dangling(g.Describe()) {
		add(name, "output is not connected; use Watch to discard it")
	}
	return problems
}

// dangling returns the non-sink nodes reachable from the entry that cannot
// reach termination, discard or cleanup.
func dangling(t Topology) []string {
	forward := make(map[string][]string)
	reverse := make(map[string][]string)
	for _, e := range t.Edges {
		forward[e.From] = append(forward[e.From], e.To)
		reverse[e.To] = append(reverse[e.To], e.From)
	}

	reachable := walk([]string{entryNode}, forward)

	var sinks []string
	sink := make(map[string]bool)
	for _, n := range t.Nodes {
		switch n.Kind {
		case NodeTerminate, NodeDiscard, NodeCleanup:
			sinks = append(sinks, n.Name)
			sink[n.Name] = true
		}
	}
	finishes := walk(sinks, reverse)

	var out []string
	for name := range reachable {
		if !sink[name] && !finishes[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func walk(from []string, adj map[string][]string) map[string]bool {
	visited := make(map[string]bool)
	queue := append([]string(nil), from...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		queue = append(queue, adj[n]...)
	}
	return visited
}
