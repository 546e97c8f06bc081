// Package dag provides the directed dependency graph between metric
// templates and the columns or metrics their formulas reference. It
// supports cycle detection with full path reporting, deterministic
// topological ordering, and transitive dependency closures.
package dag

import (
	"fmt"
	"sort"
)

// NodeKind distinguishes column nodes (always sources, never cyclic)
// from metric nodes.
type NodeKind int

const (
	KindColumn NodeKind = iota
	KindMetric
)

// Node is a vertex in the dependency graph, identified by the alias or
// metric id it represents.
type Node struct {
	ID   string
	Kind NodeKind
}

// Graph is a directed graph where an edge runs from a dependent to each
// dependency its formula references.
type Graph struct {
	nodes      map[string]*Node
	dependents map[string][]string // dependency -> dependents
	deps       map[string][]string // dependent -> dependencies
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:      make(map[string]*Node),
		dependents: make(map[string][]string),
		deps:       make(map[string][]string),
	}
}

// AddNode adds a node; adding an existing id again is a no-op.
func (g *Graph) AddNode(id string, kind NodeKind) {
	if _, exists := g.nodes[id]; exists {
		return
	}
	g.nodes[id] = &Node{ID: id, Kind: kind}
	g.dependents[id] = []string{}
	g.deps[id] = []string{}
}

// AddDependency records that dependent references dependency. Both nodes
// must already exist. Self-references are rejected here rather than left
// for cycle detection so the error can name the node directly.
func (g *Graph) AddDependency(dependent, dependency string) error {
	if _, exists := g.nodes[dependent]; !exists {
		return fmt.Errorf("unknown node %q", dependent)
	}
	if _, exists := g.nodes[dependency]; !exists {
		return fmt.Errorf("unknown node %q", dependency)
	}
	if dependent == dependency {
		return fmt.Errorf("metric %q references itself", dependent)
	}

	if !contains(g.deps[dependent], dependency) {
		g.deps[dependent] = append(g.deps[dependent], dependency)
	}
	if !contains(g.dependents[dependency], dependent) {
		g.dependents[dependency] = append(g.dependents[dependency], dependent)
	}
	return nil
}

// Node returns a node by id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Dependencies returns the direct dependencies of a node.
func (g *Graph) Dependencies(id string) []string {
	return g.deps[id]
}

// Dependents returns the nodes that directly reference id.
func (g *Graph) Dependents(id string) []string {
	return g.dependents[id]
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, ds := range g.deps {
		count += len(ds)
	}
	return count
}

// MetricIDs returns all metric node ids in ascending order.
func (g *Graph) MetricIDs() []string {
	var ids []string
	for id, n := range g.nodes {
		if n.Kind == KindMetric {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// FindCycle looks for a cycle among metric nodes using a three-color
// depth-first traversal (unvisited / in-progress / done). It returns the
// full cycle path, first node repeated at the end, so diagnostics can name
// every participant. Column nodes have no dependencies and cannot take
// part in a cycle.
func (g *Graph) FindCycle() ([]string, bool) {
	const (
		white = 0 // unvisited
		gray  = 1 // in-progress
		black = 2 // done
	)
	color := make(map[string]int, len(g.nodes))
	parent := make(map[string]string)

	var cycle []string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		for _, dep := range sorted(g.deps[id]) {
			switch color[dep] {
			case white:
				parent[dep] = id
				if dfs(dep) {
					return true
				}
			case gray:
				// Back-edge into an in-progress node: reconstruct the loop.
				cycle = []string{dep}
				for curr := id; curr != dep; curr = parent[curr] {
					cycle = append([]string{curr}, cycle...)
				}
				cycle = append([]string{dep}, cycle...)
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range g.MetricIDs() {
		if color[id] == white {
			if dfs(id) {
				return cycle, true
			}
		}
	}
	return nil, false
}

// TopologicalOrder returns metric ids ordered so every dependency
// precedes its dependents. Ties among simultaneously-ready nodes break by
// ascending id, making the order reproducible. Returns an error when the
// graph holds a cycle; callers are expected to have validated first, so
// hitting the error is a precondition violation.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if cycle, found := g.FindCycle(); found {
		return nil, fmt.Errorf("dependency cycle: %v", cycle)
	}

	visited := make(map[string]bool, len(g.nodes))
	var order []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range sorted(g.deps[id]) {
			visit(dep)
		}
		if g.nodes[id].Kind == KindMetric {
			order = append(order, id)
		}
	}

	for _, id := range g.MetricIDs() {
		visit(id)
	}
	return order, nil
}

// TransitiveDependencies returns every node reachable from id through
// dependency edges, sorted ascending. Used to scope evaluation to a
// metric's closure instead of the full graph.
func (g *Graph) TransitiveDependencies(id string) []string {
	reached := make(map[string]bool)

	var walk func(nodeID string)
	walk = func(nodeID string) {
		for _, dep := range g.deps[nodeID] {
			if !reached[dep] {
				reached[dep] = true
				walk(dep)
			}
		}
	}
	walk(id)

	result := make([]string, 0, len(reached))
	for nodeID := range reached {
		result = append(result, nodeID)
	}
	sort.Strings(result)
	return result
}

// TransitiveDependents returns every node that depends on id, directly or
// through other metrics, sorted ascending. Used for referential-integrity
// checks before deleting a template.
func (g *Graph) TransitiveDependents(id string) []string {
	reached := make(map[string]bool)

	var walk func(nodeID string)
	walk = func(nodeID string) {
		for _, dep := range g.dependents[nodeID] {
			if !reached[dep] {
				reached[dep] = true
				walk(dep)
			}
		}
	}
	walk(id)

	result := make([]string, 0, len(reached))
	for nodeID := range reached {
		result = append(result, nodeID)
	}
	sort.Strings(result)
	return result
}

// Levels groups metric ids by dependency depth: level 0 metrics depend
// only on columns, level N metrics depend on at least one level N-1
// metric. Used for graph display.
func (g *Graph) Levels() ([][]string, error) {
	if cycle, found := g.FindCycle(); found {
		return nil, fmt.Errorf("dependency cycle: %v", cycle)
	}

	assigned := make(map[string]int)
	var depth func(id string) int
	depth = func(id string) int {
		if d, ok := assigned[id]; ok {
			return d
		}
		max := -1
		for _, dep := range g.deps[id] {
			if g.nodes[dep].Kind != KindMetric {
				continue
			}
			if d := depth(dep); d > max {
				max = d
			}
		}
		assigned[id] = max + 1
		return max + 1
	}

	maxLevel := -1
	for _, id := range g.MetricIDs() {
		if d := depth(id); d > maxLevel {
			maxLevel = d
		}
	}
	if maxLevel < 0 {
		return nil, nil
	}

	levels := make([][]string, maxLevel+1)
	for id, d := range assigned {
		levels[d] = append(levels[d], id)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels, nil
}

func sorted(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
