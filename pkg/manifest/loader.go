package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/ext/typeexpr"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vango-dev/vgraph/internal/ctxlog"
	vgerrors "github.com/vango-dev/vgraph/internal/errors"
	"github.com/vango-dev/vgraph/pkg/check"
	"github.com/vango-dev/vgraph/pkg/graph"
)

// Providers maps the provider names used in manifests to implementations.
type Providers map[string]*graph.Provider

// Loader reads manifest files.
type Loader struct {
	providers Providers
}

// NewLoader creates a loader resolving provider names against providers.
func NewLoader(providers Providers) *Loader {
	return &Loader{providers: providers}
}

type parsedFile struct {
	name string
	root fileRoot
}

// Load parses every .hcl file under paths (files or directories) as one
// manifest. Paths that do not exist are skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("discovered manifest files", "count", len(files))

	parser := hclparse.NewParser()
	parsed := make([]parsedFile, 0, len(files))
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, diagError(diags)
		}
		pf, err := decodeFile(file, f)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, pf)
	}

	return l.build(ctx, parsed)
}

// LoadBytes parses a single manifest held in memory. filename is used in
// diagnostics only.
func (l *Loader) LoadBytes(ctx context.Context, filename string, src []byte) (*Manifest, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(diags)
	}
	pf, err := decodeFile(filename, f)
	if err != nil {
		return nil, err
	}
	return l.build(ctx, []parsedFile{pf})
}

func decodeFile(name string, f *hcl.File) (parsedFile, error) {
	pf := parsedFile{name: name}
	if diags := gohcl.DecodeBody(f.Body, nil, &pf.root); diags.HasErrors() {
		return pf, diagError(diags)
	}
	return pf, nil
}

func (l *Loader) build(ctx context.Context, files []parsedFile) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)
	m := &Manifest{ids: make(map[string]*Declaration)}

	declare := func(d *Declaration) error {
		if prev, ok := m.ids[d.ID.Name()]; ok {
			return rangeError("G024", d.ID.Name(), d.Range).
				WithDetail(fmt.Sprintf("%q was already declared at %s", d.ID.Name(), prev.Range))
		}
		m.ids[d.ID.Name()] = d
		m.decls = append(m.decls, d)
		return nil
	}

	var nodes []*nodeBlock
	for _, f := range files {
		m.Files = append(m.Files, f.name)

		for _, in := range f.root.Inputs {
			ty, err := typeConstraint(in.Name, in.Type)
			if err != nil {
				return nil, err
			}
			value, err := inputValue(in, ty)
			if err != nil {
				return nil, err
			}
			d := &Declaration{
				ID:          graph.StaticID(in.Name, check.Cty(ty)),
				Input:       true,
				Description: in.Description,
				Range:       in.DeclRange,
			}
			if err := declare(d); err != nil {
				return nil, err
			}
			m.Table.Input(d.ID, value)
		}

		for _, n := range f.root.Nodes {
			ty, err := typeConstraint(n.Name, n.Type)
			if err != nil {
				return nil, err
			}
			provider, err := stringAttr(n.Name, n.Provider)
			if err != nil {
				return nil, err
			}
			if _, ok := l.providers[provider]; !ok {
				return nil, rangeError("G021", n.Name, n.Provider.Range()).
					WithDetail(fmt.Sprintf("provider %q is not registered", provider))
			}
			params, err := paramNames(n.Name, n.Params)
			if err != nil {
				return nil, err
			}
			d := &Declaration{
				ID:          graph.StaticID(n.Name, check.Cty(ty)),
				Provider:    provider,
				Params:      params,
				Description: n.Description,
				Range:       n.DeclRange,
			}
			if err := declare(d); err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
	}

	// Parameters resolve after every file is read so references may point
	// forward.
	for _, n := range nodes {
		d := m.ids[n.Name]
		params := make([]*graph.ID, len(d.Params))
		for i, name := range d.Params {
			p, ok := m.ids[name]
			if !ok {
				return nil, rangeError("G022", n.Name, n.Params.Range()).
					WithDetail(fmt.Sprintf("parameter %q is not declared", name))
			}
			params[i] = p.ID
		}
		m.Table.Register(d.ID, l.providers[d.Provider], params...)
	}

	logger.Debug("manifest loaded",
		"files", len(m.Files),
		"inputs", len(m.Table.Inputs),
		"nodes", len(m.Table.Registrations))
	return m, nil
}

// typeConstraint parses an optional type expression; a missing type is any.
func typeConstraint(name string, expr hcl.Expression) (cty.Type, error) {
	if isAbsent(expr) {
		return cty.DynamicPseudoType, nil
	}
	ty, diags := typeexpr.TypeConstraint(expr)
	if diags.HasErrors() {
		return cty.NilType, rangeError("G023", name, expr.Range()).WithDetail(diags.Error())
	}
	return ty, nil
}

func inputValue(in *inputBlock, ty cty.Type) (any, error) {
	val, diags := in.Value.Value(nil)
	if diags.HasErrors() {
		return nil, rangeError("G020", in.Name, in.Value.Range()).WithDetail(diags.Error())
	}
	if ty != cty.DynamicPseudoType {
		converted, err := convert.Convert(val, ty)
		if err != nil {
			return nil, rangeError("G020", in.Name, in.Value.Range()).
				WithDetail(fmt.Sprintf("value does not conform to %s: %s", ty.FriendlyNameForConstraint(), err))
		}
		val = converted
	}
	native, err := check.FromCty(val)
	if err != nil {
		return nil, rangeError("G020", in.Name, in.Value.Range()).WithDetail(err.Error())
	}
	return native, nil
}

func stringAttr(name string, expr hcl.Expression) (string, error) {
	if kw := hcl.ExprAsKeyword(expr); kw != "" {
		return kw, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() || val.IsNull() || val.Type() != cty.String {
		return "", rangeError("G020", name, expr.Range()).WithDetail("expected a provider name")
	}
	return val.AsString(), nil
}

// paramNames accepts a list of bare references or strings.
func paramNames(name string, expr hcl.Expression) ([]string, error) {
	if isAbsent(expr) {
		return nil, nil
	}
	items, diags := hcl.ExprList(expr)
	if diags.HasErrors() {
		return nil, rangeError("G020", name, expr.Range()).WithDetail(diags.Error())
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		if traversal, diags := hcl.AbsTraversalForExpr(item); !diags.HasErrors() && len(traversal) == 1 {
			names = append(names, traversal.RootName())
			continue
		}
		val, diags := item.Value(nil)
		if diags.HasErrors() || val.IsNull() || val.Type() != cty.String {
			return nil, rangeError("G020", name, item.Range()).
				WithDetail("parameters must be node names or strings")
		}
		names = append(names, val.AsString())
	}
	return names, nil
}

// isAbsent reports whether expr is the null placeholder gohcl assigns to a
// missing optional attribute.
func isAbsent(expr hcl.Expression) bool {
	if expr == nil {
		return true
	}
	if len(expr.Variables()) > 0 {
		return false
	}
	val, diags := expr.Value(nil)
	return !diags.HasErrors() && val.IsNull()
}

func rangeError(code, subject string, rng hcl.Range) *vgerrors.Error {
	e := vgerrors.New(code).WithSubject(subject)
	if rng.Filename != "" {
		e = e.WithLocation(rng.Filename, rng.Start.Line, rng.Start.Column)
	}
	return e
}

func diagError(diags hcl.Diagnostics) error {
	e := vgerrors.New("G020").WithDetail(diags.Error())
	for _, d := range diags {
		if d.Severity == hcl.DiagError && d.Subject != nil {
			return e.WithLocation(d.Subject.Filename, d.Subject.Start.Line, d.Subject.Start.Column).
				Wrap(d)
		}
	}
	return e.Wrap(diags)
}

// findHCLFiles walks paths and returns every .hcl file once.
func findHCLFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}

		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
