// Package dag orders a batch of mappings by their data dependencies.
//
// Mapping A precedes mapping B when A's target table is read by B through a
// ref() source or a ref() join. Execution levels group mappings that can be
// generated and deployed together.
package dag

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/leapstack-labs/mapsql/pkg/core"
)

// Node is one mapping in the graph, keyed by its target schema.table.
type Node struct {
	ID   string
	Path string
	Spec *core.ModelSpec
}

// Graph is a directed graph of mappings.
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]string // upstream -> downstream
	parents map[string][]string // downstream -> upstream
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// NodeID returns the graph key of a relation: SCHEMA.TABLE, uppercased.
func NodeID(ref core.TableRef) string {
	return strings.ToUpper(ref.Qualified())
}

// Entry is a mapping to place in the graph.
type Entry struct {
	Path string
	Spec *core.ModelSpec
}

// Build creates the graph for a batch. Two mappings with the same target
// are an error.
func Build(entries []Entry) (*Graph, error) {
	g := NewGraph()
	for _, e := range entries {
		id := NodeID(e.Spec.Target)
		if existing, ok := g.nodes[id]; ok {
			return nil, fmt.Errorf("duplicate target %s in %s and %s", id, existing.Path, e.Path)
		}
		g.AddNode(&Node{ID: id, Path: e.Path, Spec: e.Spec})
	}

	byTable := g.tableIndex()
	for _, e := range entries {
		child := NodeID(e.Spec.Target)
		for _, upstream := range refInputs(e.Spec) {
			parent := g.resolve(upstream, byTable)
			if parent == "" || parent == child {
				continue
			}
			if err := g.AddEdge(parent, child); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// refInputs lists the relations a mapping reads through ref().
func refInputs(spec *core.ModelSpec) []string {
	var out []string
	if spec.SourceKind == core.SourceKindRef {
		out = append(out, spec.Source.Qualified())
	}
	for _, j := range spec.Joins {
		if j.Kind == core.SourceKindRef {
			out = append(out, j.TableName)
		}
	}
	return out
}

// tableIndex maps bare table names to node IDs when the name is unambiguous.
func (g *Graph) tableIndex() map[string]string {
	idx := make(map[string]string)
	ambiguous := make(map[string]bool)
	for id := range g.nodes {
		table := id[strings.LastIndex(id, ".")+1:]
		if _, seen := idx[table]; seen {
			ambiguous[table] = true
		}
		idx[table] = id
	}
	for t := range ambiguous {
		delete(idx, t)
	}
	return idx
}

func (g *Graph) resolve(name string, byTable map[string]string) string {
	key := strings.ToUpper(strings.TrimSpace(name))
	if _, ok := g.nodes[key]; ok {
		return key
	}
	if !strings.Contains(key, ".") {
		return byTable[key]
	}
	return ""
}

// AddNode adds or replaces a node.
func (g *Graph) AddNode(n *Node) {
	if _, exists := g.nodes[n.ID]; !exists {
		g.edges[n.ID] = nil
		g.parents[n.ID] = nil
	}
	g.nodes[n.ID] = n
}

// AddEdge records that child reads from parent.
func (g *Graph) AddEdge(parent, child string) error {
	if _, ok := g.nodes[parent]; !ok {
		return fmt.Errorf("parent node %q does not exist", parent)
	}
	if _, ok := g.nodes[child]; !ok {
		return fmt.Errorf("child node %q does not exist", child)
	}
	if parent == child {
		return fmt.Errorf("self-loop detected: %s", parent)
	}
	if !slices.Contains(g.edges[parent], child) {
		g.edges[parent] = append(g.edges[parent], child)
	}
	if !slices.Contains(g.parents[child], parent) {
		g.parents[child] = append(g.parents[child], parent)
	}
	return nil
}

// Node returns a node by ID.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Parents returns the direct upstream mappings of id.
func (g *Graph) Parents(id string) []string {
	return g.parents[id]
}

// Children returns the direct downstream mappings of id.
func (g *Graph) Children(id string) []string {
	return g.edges[id]
}

// IDs returns all node IDs, sorted.
func (g *Graph) IDs() []string {
	return slices.Sorted(maps.Keys(g.nodes))
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, children := range g.edges {
		n += len(children)
	}
	return n
}

// FindCycle returns a cycle path, or nil when the graph is acyclic.
func (g *Graph) FindCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	from := make(map[string]string)
	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true
		for _, child := range g.edges[id] {
			if !visited[child] {
				from[child] = id
				if dfs(child) {
					return true
				}
				continue
			}
			if onStack[child] {
				cycle = []string{child}
				for cur := id; cur != child; cur = from[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				cycle = append([]string{child}, cycle...)
				return true
			}
		}
		onStack[id] = false
		return false
	}

	for _, id := range g.IDs() {
		if !visited[id] && dfs(id) {
			return cycle
		}
	}
	return nil
}

// CycleError reports a dependency cycle between mappings.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

// Levels groups node IDs by execution level. Level 0 has no upstream
// mappings; every node sits one level below its deepest parent.
func (g *Graph) Levels() ([][]string, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}

	level := make(map[string]int, len(g.nodes))
	var depth func(id string) int
	depth = func(id string) int {
		if l, ok := level[id]; ok {
			return l
		}
		l := 0
		for _, p := range g.parents[id] {
			l = max(l, depth(p)+1)
		}
		level[id] = l
		return l
	}

	var levels [][]string
	for _, id := range g.IDs() {
		l := depth(id)
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], id)
	}
	for i := range levels {
		slices.Sort(levels[i])
	}
	return levels, nil
}

// Order returns all nodes, upstream before downstream.
func (g *Graph) Order() ([]*Node, error) {
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	out := make([]*Node, 0, len(g.nodes))
	for _, lvl := range levels {
		for _, id := range lvl {
			out = append(out, g.nodes[id])
		}
	}
	return out, nil
}

// Downstream returns the given nodes plus everything that reads from them,
// sorted.
func (g *Graph) Downstream(ids ...string) []string {
	seen := make(map[string]bool)
	var mark func(id string)
	mark = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, child := range g.edges[id] {
			mark(child)
		}
	}
	for _, id := range ids {
		if _, ok := g.nodes[id]; ok {
			mark(id)
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Upstream returns every node id transitively reads from, sorted.
func (g *Graph) Upstream(id string) []string {
	seen := make(map[string]bool)
	var mark func(n string)
	mark = func(n string) {
		for _, p := range g.parents[n] {
			if !seen[p] {
				seen[p] = true
				mark(p)
			}
		}
	}
	mark(id)
	return slices.Sorted(maps.Keys(seen))
}

// ByPath returns the node built from the mapping file at path.
func (g *Graph) ByPath(path string) (*Node, bool) {
	for _, n := range g.nodes {
		if n.Path == path {
			return n, true
		}
	}
	return nil, false
}
