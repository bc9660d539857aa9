package manifest

import (
	"github.com/hashicorp/hcl/v2"

	"github.com/vango-dev/vgraph/pkg/graph"
)

// fileRoot is decoded from every manifest file.
type fileRoot struct {
	Inputs []*inputBlock `hcl:"input,block"`
	Nodes  []*nodeBlock  `hcl:"node,block"`
}

type inputBlock struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type,optional"`
	Value       hcl.Expression `hcl:"value"`
	Description string         `hcl:"description,optional"`
	DeclRange   hcl.Range      `hcl:",def_range"`
}

type nodeBlock struct {
	Name        string         `hcl:"name,label"`
	Provider    hcl.Expression `hcl:"provider"`
	Params      hcl.Expression `hcl:"params,optional"`
	Type        hcl.Expression `hcl:"type,optional"`
	Description string         `hcl:"description,optional"`
	DeclRange   hcl.Range      `hcl:",def_range"`
}

// Declaration describes one manifest entry.
type Declaration struct {
	ID          *graph.ID
	Input       bool
	Provider    string
	Params      []string
	Description string
	Range       hcl.Range
}

// Manifest is the result of loading one or more manifest files.
type Manifest struct {
	// Table holds the declarations ready for Graph.Apply.
	Table graph.Table

	// Files lists the files the manifest was loaded from.
	Files []string

	decls []*Declaration
	ids   map[string]*Declaration
}

// ID returns the node declared under name.
func (m *Manifest) ID(name string) (*graph.ID, bool) {
	d, ok := m.ids[name]
	if !ok {
		return nil, false
	}
	return d.ID, true
}

// Declaration returns the declaration for name.
func (m *Manifest) Declaration(name string) (*Declaration, bool) {
	d, ok := m.ids[name]
	return d, ok
}

// Declarations returns every declaration in load order.
func (m *Manifest) Declarations() []*Declaration {
	return append([]*Declaration(nil), m.decls...)
}

// Names returns the declared names in load order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.decls))
	for i, d := range m.decls {
		names[i] = d.ID.Name()
	}
	return names
}
