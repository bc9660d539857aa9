package graph

import "errors"

// Registration declares an inner node.
type Registration struct {
	ID       *ID
	Provider *Provider
	Params   []*ID
}

// Input declares an input node and its seed value. A nil Context seeds the
// global context.
type Input struct {
	ID      *ID
	Value   any
	Context Context
}

// Table is an ordered set of declarations applied in one step.
type Table struct {
	Registrations []Registration
	Inputs        []Input
}

// Register appends an inner node declaration.
func (t *Table) Register(id *ID, provider *Provider, params ...*ID) *Table {
	t.Registrations = append(t.Registrations, Registration{ID: id, Provider: provider, Params: params})
	return t
}

// Input appends an input declaration seeded in the global context.
func (t *Table) Input(id *ID, value any) *Table {
	t.Inputs = append(t.Inputs, Input{ID: id, Value: value})
	return t
}

// Apply creates every input and registers every inner node of t. It keeps
// going after a failed declaration and returns all failures joined.
func (g *Graph) Apply(t *Table) error {
	var errs []error
	for _, in := range t.Inputs {
		if _, err := g.CreateProvider(in.ID, in.Value, in.Context); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range t.Registrations {
		if err := g.RegisterProvider(r.ID, r.Provider, r.Params...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
