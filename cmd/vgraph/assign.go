package main

import (
	"context"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	vgerrors "github.com/vango-dev/vgraph/internal/errors"
	"github.com/vango-dev/vgraph/pkg/check"
	"github.com/vango-dev/vgraph/pkg/graph"
	"github.com/vango-dev/vgraph/pkg/manifest"
)

// assignment is a parsed --set name=value flag.
type assignment struct {
	name  string
	value cty.Value
}

// parseAssignment splits name=value and evaluates value as an HCL literal.
func parseAssignment(s string) (assignment, error) {
	name, src, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return assignment{}, vgerrors.New("G041").WithSubject(s)
	}

	expr, diags := hclsyntax.ParseExpression([]byte(src), "--set "+name, hcl.InitialPos)
	if diags.HasErrors() {
		return assignment{}, vgerrors.New("G041").WithSubject(s).WithDetail(diags.Error())
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return assignment{}, vgerrors.New("G041").
			WithSubject(s).
			WithDetail(diags.Error()).
			WithSuggestion("Quote string values: " + name + "=\"...\"")
	}
	return assignment{name: name, value: val}, nil
}

// native converts a to a Go value for id, first converting to id's cty type
// when it has one.
func (a assignment) native(id *graph.ID) (any, error) {
	val := a.value
	if ty, ok := check.CtyType(id.Type()); ok && ty != cty.DynamicPseudoType {
		converted, err := convert.Convert(val, ty)
		if err != nil {
			return nil, vgerrors.New("G041").
				WithSubject(a.name).
				WithDetail("value does not conform to " + ty.FriendlyNameForConstraint() + ": " + err.Error())
		}
		val = converted
	}
	return check.FromCty(val)
}

// applyAssignments writes every --set value in one batch.
func applyAssignments(ctx context.Context, g *graph.Graph, m *manifest.Manifest, sets []string) error {
	type write struct {
		id *graph.ID
		v  any
	}
	writes := make([]write, 0, len(sets))
	for _, s := range sets {
		a, err := parseAssignment(s)
		if err != nil {
			return err
		}
		id, ok := m.ID(a.name)
		if !ok {
			return vgerrors.New("G041").WithSubject(a.name).WithDetail("no node named " + a.name + " is declared")
		}
		v, err := a.native(id)
		if err != nil {
			return err
		}
		writes = append(writes, write{id: id, v: v})
	}

	var firstErr error
	g.Batch(ctx, func() {
		for _, w := range writes {
			if _, err := g.Set(ctx, w.id, nil, w.v); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
