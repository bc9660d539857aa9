package graph

import (
	"errors"
	"fmt"

	vgerrors "github.com/vango-dev/vgraph/internal/errors"
)

// Sentinel errors. Errors returned by the graph are *vgerrors.Error values
// wrapping one of these, so callers test them with errors.Is.
var (
	ErrNotFound               = errors.New("cannot be found")
	ErrAlreadyRegistered      = errors.New("already registered")
	ErrReregistrationConflict = errors.New("reregistered node")
	ErrNotInputNode           = errors.New("not an instance of InputNode")
	ErrTypeMismatch           = errors.New("incorrect type")
	ErrCycle                  = errors.New("dependency cycle")
	ErrMissingContext         = errors.New("missing context")
)

func errNotFound(id *ID) error {
	return vgerrors.New("G001").WithSubject(id.Name()).Wrap(ErrNotFound)
}

func errNilID() error {
	return vgerrors.New("G001").WithSubject("<nil>").Wrap(ErrNotFound)
}

func errNoValue(id *ID, owner Context, t Time) error {
	return vgerrors.New("G001").
		WithSubject(id.Name()).
		WithDetail(fmt.Sprintf("input has no value at or before %s in context %d", t, contextKey(owner))).
		Wrap(ErrNotFound)
}

func errAlreadyRegistered(id *ID, detail string) error {
	return vgerrors.New("G002").WithSubject(id.Name()).WithDetail(detail).Wrap(ErrAlreadyRegistered)
}

func errProviderConflict(id *ID, had, got *Provider) error {
	return vgerrors.New("G003").
		WithSubject(id.Name()).
		WithDetail(fmt.Sprintf("provider %q replaced by %q", had.Name(), got.Name())).
		Wrap(fmt.Errorf("%w provider", ErrReregistrationConflict))
}

func errParameterConflict(id *ID, had, got []*ID) error {
	return vgerrors.New("G003").
		WithSubject(id.Name()).
		WithDetail(fmt.Sprintf("parameters %v replaced by %v", had, got)).
		Wrap(fmt.Errorf("%w parameter", ErrReregistrationConflict))
}

func errNotInputNode(id *ID) error {
	return vgerrors.New("G004").WithSubject(id.Name()).Wrap(ErrNotInputNode)
}

func errTypeMismatch(id *ID, v any) error {
	return vgerrors.New("G005").
		WithSubject(id.Name()).
		WithDetail(fmt.Sprintf("expected %s, got %T", id.Type(), v)).
		Wrap(ErrTypeMismatch)
}

func errCycle(id *ID, via *ID) error {
	return vgerrors.New("G006").
		WithSubject(id.Name()).
		WithDetail(fmt.Sprintf("parameter %s depends on %s", via.Name(), id.Name())).
		Wrap(ErrCycle)
}

func errMissingContext(id *ID) error {
	return vgerrors.New("G007").WithSubject(id.Name()).Wrap(ErrMissingContext)
}

func errProvider(id *ID, p *Provider, err error) error {
	return vgerrors.New("G008").
		WithSubject(id.Name()).
		WithDetail(fmt.Sprintf("provider %q returned an error", p.Name())).
		Wrap(err)
}
