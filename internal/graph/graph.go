package graph

import (
	"context"
	"errors"
	"fmt"
)

// End is the terminal pseudo-node.
const End = "__end__"

// maxSteps bounds a single invocation.
const maxSteps = 16

var (
	ErrNoEntry       = errors.New("graph has no entry node")
	ErrUnknownNode   = errors.New("unknown node")
	ErrDuplicateNode = errors.New("duplicate node")
	ErrStepLimit     = errors.New("graph exceeded step limit")
)

// #region types
// NodeFunc derives the next record from the current one.
type NodeFunc func(ctx context.Context, rec Record) (Record, error)

// RouterFunc picks a path key for a conditional edge.
type RouterFunc func(rec Record) string

type branch struct {
	route RouterFunc
	paths map[string]string
}

// Graph describes nodes and the edges between them. Build it with the Add*
// methods, then Compile.
type Graph struct {
	nodes    map[string]NodeFunc
	entry    string
	edges    map[string]string
	branches map[string]branch
}

// Compiled is a validated, runnable graph.
type Compiled struct {
	nodes    map[string]NodeFunc
	entry    string
	edges    map[string]string
	branches map[string]branch
}

// #endregion types

// #region builder
// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]NodeFunc),
		edges:    make(map[string]string),
		branches: make(map[string]branch),
	}
}

// AddNode registers fn under name.
func (g *Graph) AddNode(name string, fn NodeFunc) error {
	if name == "" || name == End {
		return fmt.Errorf("add node %q: reserved name", name)
	}
	if _, ok := g.nodes[name]; ok {
		return fmt.Errorf("add node %q: %w", name, ErrDuplicateNode)
	}
	g.nodes[name] = fn
	return nil
}

// SetEntry sets the first node to run.
func (g *Graph) SetEntry(name string) {
	g.entry = name
}

// AddEdge adds an unconditional edge. A node has either one plain edge or
// one set of conditional edges; the later call wins.
func (g *Graph) AddEdge(from, to string) {
	delete(g.branches, from)
	g.edges[from] = to
}

// AddConditionalEdges routes out of from by the key route returns.
func (g *Graph) AddConditionalEdges(from string, route RouterFunc, paths map[string]string) {
	delete(g.edges, from)
	cp := make(map[string]string, len(paths))
	for k, v := range paths {
		cp[k] = v
	}
	g.branches[from] = branch{route: route, paths: cp}
}

// Compile checks that the entry and every edge endpoint exist.
func (g *Graph) Compile() (*Compiled, error) {
	if g.entry == "" {
		return nil, ErrNoEntry
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("entry %q: %w", g.entry, ErrUnknownNode)
	}

	known := func(name string) bool {
		if name == End {
			return true
		}
		_, ok := g.nodes[name]
		return ok
	}

	for from, to := range g.edges {
		if !known(from) || from == End {
			return nil, fmt.Errorf("edge from %q: %w", from, ErrUnknownNode)
		}
		if !known(to) {
			return nil, fmt.Errorf("edge %q -> %q: %w", from, to, ErrUnknownNode)
		}
	}
	for from, b := range g.branches {
		if !known(from) || from == End {
			return nil, fmt.Errorf("conditional edge from %q: %w", from, ErrUnknownNode)
		}
		if b.route == nil {
			return nil, fmt.Errorf("conditional edge from %q: nil router", from)
		}
		for key, to := range b.paths {
			if !known(to) {
				return nil, fmt.Errorf("conditional edge %q[%s] -> %q: %w", from, key, to, ErrUnknownNode)
			}
		}
	}

	return &Compiled{
		nodes:    g.nodes,
		entry:    g.entry,
		edges:    g.edges,
		branches: g.branches,
	}, nil
}

// #endregion builder

// #region invoke
// Invoke runs from the entry node until End. Node errors are returned as
// the node produced them. The returned steps hold the record after each
// node, in execution order.
func (c *Compiled) Invoke(ctx context.Context, rec Record) (Record, []Step, error) {
	current := c.entry
	var steps []Step

	for i := 0; i < maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return rec, steps, err
		}

		next, err := c.nodes[current](ctx, rec)
		if err != nil {
			return rec, steps, err
		}
		rec = next

		step := Step{Node: current, Record: rec}
		target, route, err := c.next(current, rec)
		if err != nil {
			return rec, steps, err
		}
		step.Route = route
		steps = append(steps, step)

		if target == End {
			return rec, steps, nil
		}
		current = target
	}

	return rec, steps, ErrStepLimit
}

// next resolves the outgoing edge of node. A node with no edge ends the run.
func (c *Compiled) next(node string, rec Record) (string, string, error) {
	if b, ok := c.branches[node]; ok {
		key := b.route(rec)
		to, ok := b.paths[key]
		if !ok {
			return "", key, fmt.Errorf("node %q routed to unmapped key %q", node, key)
		}
		return to, key, nil
	}
	if to, ok := c.edges[node]; ok {
		return to, "", nil
	}
	return End, "", nil
}

// #endregion invoke
