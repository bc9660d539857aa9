package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xlab/treeprint"

	"github.com/vango-dev/vgraph/pkg/graph"
)

// Snapshot is a point-in-time description of a graph: its nodes, the
// dependency edges between them and the latest global value of each Static
// node.
type Snapshot struct {
	ID      uuid.UUID `json:"id"`
	TakenAt time.Time `json:"takenAt"`
	Clock   uint64    `json:"clock"`
	Nodes   []Node    `json:"nodes"`
	Edges   []Edge    `json:"edges"`
}

// Node describes one bound ID.
type Node struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Type     string   `json:"type"`
	Input    bool     `json:"input"`
	Provider string   `json:"provider,omitempty"`
	Params   []string `json:"params,omitempty"`

	// Value and Time are the latest global version. Instance nodes carry
	// only Contexts.
	Value    any    `json:"value,omitempty"`
	Time     uint64 `json:"time,omitempty"`
	HasValue bool   `json:"hasValue"`
	Contexts int    `json:"contexts"`
}

// Edge points from a node to one of its parameters.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Take captures g without computing anything: inner nodes report their
// memoized value, if any.
func Take(g *graph.Graph) *Snapshot {
	s := &Snapshot{
		ID:      uuid.New(),
		TakenAt: time.Now().UTC(),
		Clock:   g.Timestamp().Uint64(),
		Nodes:   []Node{},
		Edges:   []Edge{},
	}

	for _, id := range g.Nodes() {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		entry := Node{
			Name: id.Name(),
			Kind: id.Kind().String(),
			Type: id.Type().String(),
		}

		var (
			t   graph.Time
			v   any
			has bool
		)
		switch n := n.(type) {
		case *graph.InputNode:
			entry.Input = true
			entry.Contexts = n.Contexts()
			if id.Kind() == graph.Static {
				t, v, has = n.Latest(nil)
			}
		case *graph.InnerNode:
			entry.Provider = n.Provider().Name()
			entry.Contexts = n.Contexts()
			for _, p := range n.ParameterIDs() {
				entry.Params = append(entry.Params, p.Name())
				s.Edges = append(s.Edges, Edge{From: id.Name(), To: p.Name()})
			}
			if id.Kind() == graph.Static {
				t, v, has = n.LatestCacheValue(nil)
			}
		}
		if has {
			entry.Value = encodable(v)
			entry.Time = t.Uint64()
			entry.HasValue = true
		}
		s.Nodes = append(s.Nodes, entry)
	}
	return s
}

// encodable returns v, or its printed form when v has no JSON encoding.
func encodable(v any) any {
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}

// Node returns the entry called name.
func (s *Snapshot) Node(name string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// Roots returns the names of nodes no other node depends on, sorted.
func (s *Snapshot) Roots() []string {
	used := make(map[string]bool, len(s.Edges))
	for _, e := range s.Edges {
		used[e.To] = true
	}
	var roots []string
	for _, n := range s.Nodes {
		if !used[n.Name] {
			roots = append(roots, n.Name)
		}
	}
	sort.Strings(roots)
	return roots
}

// Tree renders the dependency tree below each of names, or below every
// root when names is empty.
func (s *Snapshot) Tree(names ...string) string {
	if len(names) == 0 {
		names = s.Roots()
	}

	params := make(map[string][]string, len(s.Nodes))
	for _, e := range s.Edges {
		params[e.From] = append(params[e.From], e.To)
	}

	tree := treeprint.NewWithRoot(fmt.Sprintf("t%d", s.Clock))
	for _, name := range names {
		s.addBranch(tree, params, name)
	}
	return tree.String()
}

func (s *Snapshot) addBranch(tree treeprint.Tree, params map[string][]string, name string) {
	label := name
	if n, ok := s.Node(name); ok {
		switch {
		case n.Input && n.HasValue:
			label = fmt.Sprintf("%s = %v", name, n.Value)
		case n.Input:
			label = name + " (input)"
		case n.HasValue:
			label = fmt.Sprintf("%s = %s(...) = %v", name, n.Provider, n.Value)
		default:
			label = fmt.Sprintf("%s = %s(...)", name, n.Provider)
		}
	}

	children := params[name]
	if len(children) == 0 {
		tree.AddNode(label)
		return
	}
	branch := tree.AddBranch(label)
	for _, child := range children {
		s.addBranch(branch, params, child)
	}
}
