package graph

import (
	"context"
	"fmt"
)

// ProviderFunc computes a node value from its resolved parameters, in
// parameter order. owner is the context the node is being read in (nil for
// Static nodes).
type ProviderFunc func(ctx context.Context, owner Context, args []any) (any, error)

// Provider is a named computation. Providers are compared by pointer, so the
// same *Provider must be passed to re-register a node idempotently.
type Provider struct {
	name  string
	arity int
	fn    ProviderFunc
}

// NewProvider wraps fn. The provider accepts any number of arguments.
func NewProvider(name string, fn ProviderFunc) *Provider {
	return &Provider{name: name, arity: -1, fn: fn}
}

// Name returns the diagnostic name.
func (p *Provider) Name() string { return p.name }

// Arity returns the number of arguments the provider expects, or -1 when it
// is variadic.
func (p *Provider) Arity() int { return p.arity }

// Call invokes the provider.
func (p *Provider) Call(ctx context.Context, owner Context, args []any) (any, error) {
	if p.arity >= 0 && len(args) != p.arity {
		return nil, fmt.Errorf("provider %s: expected %d arguments, got %d", p.name, p.arity, len(args))
	}
	return p.fn(ctx, owner, args)
}

// Func0 adapts a function without parameters.
func Func0[T any](name string, fn func(ctx context.Context) (T, error)) *Provider {
	return &Provider{name: name, arity: 0, fn: func(ctx context.Context, _ Context, _ []any) (any, error) {
		return fn(ctx)
	}}
}

// Func1 adapts a function of one parameter.
func Func1[A, T any](name string, fn func(ctx context.Context, a A) (T, error)) *Provider {
	return &Provider{name: name, arity: 1, fn: func(ctx context.Context, _ Context, args []any) (any, error) {
		a, err := argAt[A](name, args, 0)
		if err != nil {
			return nil, err
		}
		return fn(ctx, a)
	}}
}

// Func2 adapts a function of two parameters.
func Func2[A, B, T any](name string, fn func(ctx context.Context, a A, b B) (T, error)) *Provider {
	return &Provider{name: name, arity: 2, fn: func(ctx context.Context, _ Context, args []any) (any, error) {
		a, err := argAt[A](name, args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argAt[B](name, args, 1)
		if err != nil {
			return nil, err
		}
		return fn(ctx, a, b)
	}}
}

// Func3 adapts a function of three parameters.
func Func3[A, B, C, T any](name string, fn func(ctx context.Context, a A, b B, c C) (T, error)) *Provider {
	return &Provider{name: name, arity: 3, fn: func(ctx context.Context, _ Context, args []any) (any, error) {
		a, err := argAt[A](name, args, 0)
		if err != nil {
			return nil, err
		}
		b, err := argAt[B](name, args, 1)
		if err != nil {
			return nil, err
		}
		c, err := argAt[C](name, args, 2)
		if err != nil {
			return nil, err
		}
		return fn(ctx, a, b, c)
	}}
}

// FuncN adapts a function taking all parameters as a slice.
func FuncN[T any](name string, fn func(ctx context.Context, args []any) (T, error)) *Provider {
	return &Provider{name: name, arity: -1, fn: func(ctx context.Context, _ Context, args []any) (any, error) {
		return fn(ctx, args)
	}}
}

// argAt converts args[i] to A. A nil argument becomes the zero value.
func argAt[A any](provider string, args []any, i int) (A, error) {
	var zero A
	if args[i] == nil {
		return zero, nil
	}
	a, ok := args[i].(A)
	if !ok {
		return zero, fmt.Errorf("provider %s: argument %d: expected %T, got %T", provider, i, zero, args[i])
	}
	return a, nil
}
