package graph

import (
	"fmt"

	"github.com/Gaeric/hikari-go/engine/frame"
	"github.com/Gaeric/hikari-go/engine/view"
)

// FrameContext is the per-frame input fanned out to every node: the view
// being rendered and the frame counter driving temporal reuse.
type FrameContext struct {
	View  view.View
	Frame frame.Frame
}

// Node is one pass in the render graph. Run encodes the node's GPU work for
// the frame; a node that is not ready (missing upstream resources) returns
// nil and skips itself rather than failing the frame.
type Node interface {
	// Name returns the unique node name edges reference.
	//
	// Returns:
	//   - string: the node name
	Name() string

	// Run encodes the node's work for the frame.
	//
	// Parameters:
	//   - ctx: the per-frame view and frame counter
	//
	// Returns:
	//   - error: an error only for unrecoverable encoding failures
	Run(ctx FrameContext) error
}

// graphImpl is the implementation of the Graph interface.
type graphImpl struct {
	nodes     map[string]Node
	insertion []string
	edges     map[string][]string
	order     []Node
	compiled  bool
}

// Graph is a static render pass DAG. Nodes and ordering edges are added once
// at pipeline registration, compiled into a fixed topological order, and
// executed in that order every frame for every view.
type Graph interface {
	// AddNode registers a node. Node names must be unique.
	//
	// Parameters:
	//   - n: the node to add
	//
	// Returns:
	//   - error: an error if the name is already taken or the graph is compiled
	AddNode(n Node) error

	// AddEdge adds a hard ordering constraint: from runs before to.
	//
	// Parameters:
	//   - from: the upstream node name
	//   - to: the downstream node name
	//
	// Returns:
	//   - error: an error if either node is unknown or the graph is compiled
	AddEdge(from, to string) error

	// Compile freezes the graph and computes the execution order. Introducing
	// a cycle is a construction-time error surfaced here.
	//
	// Returns:
	//   - error: an error if the graph contains a cycle
	Compile() error

	// Execute runs every node in the compiled order.
	//
	// Parameters:
	//   - ctx: the per-frame view and frame counter
	//
	// Returns:
	//   - error: the first node error, or an error if the graph is not compiled
	Execute(ctx FrameContext) error

	// Order returns the compiled node names in execution order.
	//
	// Returns:
	//   - []string: the node names, or nil before Compile
	Order() []string
}

var _ Graph = &graphImpl{}

// NewGraph creates an empty render graph.
//
// Returns:
//   - Graph: the graph
func NewGraph() Graph {
	return &graphImpl{
		nodes: make(map[string]Node),
		edges: make(map[string][]string),
	}
}

func (g *graphImpl) AddNode(n Node) error {
	if g.compiled {
		return fmt.Errorf("graph is compiled, cannot add node %q", n.Name())
	}
	if _, exists := g.nodes[n.Name()]; exists {
		return fmt.Errorf("duplicate node name %q", n.Name())
	}
	g.nodes[n.Name()] = n
	g.insertion = append(g.insertion, n.Name())
	return nil
}

func (g *graphImpl) AddEdge(from, to string) error {
	if g.compiled {
		return fmt.Errorf("graph is compiled, cannot add edge %q -> %q", from, to)
	}
	if _, ok := g.nodes[from]; !ok {
		return fmt.Errorf("unknown node %q in edge %q -> %q", from, from, to)
	}
	if _, ok := g.nodes[to]; !ok {
		return fmt.Errorf("unknown node %q in edge %q -> %q", to, from, to)
	}
	g.edges[from] = append(g.edges[from], to)
	return nil
}

func (g *graphImpl) Compile() error {
	if g.compiled {
		return nil
	}

	// Kahn's algorithm over insertion order so the result is deterministic.
	inDegree := make(map[string]int, len(g.nodes))
	for _, name := range g.insertion {
		inDegree[name] = 0
	}
	for _, targets := range g.edges {
		for _, to := range targets {
			inDegree[to]++
		}
	}

	var ready []string
	for _, name := range g.insertion {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]Node, 0, len(g.nodes))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, g.nodes[name])
		for _, to := range g.edges[name] {
			inDegree[to]--
			if inDegree[to] == 0 {
				ready = append(ready, to)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return fmt.Errorf("render graph contains a cycle (%d of %d nodes ordered)", len(order), len(g.nodes))
	}

	g.order = order
	g.compiled = true
	return nil
}

func (g *graphImpl) Execute(ctx FrameContext) error {
	if !g.compiled {
		return fmt.Errorf("render graph is not compiled")
	}
	for _, n := range g.order {
		if err := n.Run(ctx); err != nil {
			return fmt.Errorf("node %q: %w", n.Name(), err)
		}
	}
	return nil
}

func (g *graphImpl) Order() []string {
	if !g.compiled {
		return nil
	}
	names := make([]string, len(g.order))
	for i, n := range g.order {
		names[i] = n.Name()
	}
	return names
}
