package manifest

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/vango-dev/vgraph/pkg/graph"
)

// Builtins returns providers usable from manifests without Go code. Numeric
// providers keep int64 results while every argument is an integer and switch
// to float64 otherwise.
func Builtins() Providers {
	return Providers{
		"identity": graph.Func1("identity", func(_ context.Context, v any) (any, error) {
			return v, nil
		}),
		"sum":     numericFold("sum", 0, func(a, b float64) float64 { return a + b }),
		"product": numericFold("product", 1, func(a, b float64) float64 { return a * b }),
		"min":     numericFold("min", math.Inf(1), math.Min),
		"max":     numericFold("max", math.Inf(-1), math.Max),
		"concat": graph.FuncN("concat", func(_ context.Context, args []any) (string, error) {
			var b strings.Builder
			for _, a := range args {
				fmt.Fprint(&b, a)
			}
			return b.String(), nil
		}),
		"list": graph.FuncN("list", func(_ context.Context, args []any) ([]any, error) {
			return append([]any{}, args...), nil
		}),
		"not": graph.Func1("not", func(_ context.Context, v bool) (bool, error) {
			return !v, nil
		}),
		"all": graph.FuncN("all", func(_ context.Context, args []any) (bool, error) {
			for i, a := range args {
				b, ok := a.(bool)
				if !ok {
					return false, fmt.Errorf("argument %d: expected bool, got %T", i, a)
				}
				if !b {
					return false, nil
				}
			}
			return true, nil
		}),
	}
}

func numericFold(name string, seed float64, op func(a, b float64) float64) *graph.Provider {
	return graph.FuncN(name, func(_ context.Context, args []any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("%s: no arguments", name)
		}
		acc := seed
		integral := true
		for i, a := range args {
			f, isInt, err := toFloat(a)
			if err != nil {
				return nil, fmt.Errorf("%s: argument %d: %w", name, i, err)
			}
			integral = integral && isInt
			acc = op(acc, f)
		}
		if integral && acc == math.Trunc(acc) && math.Abs(acc) < 1<<53 {
			return int64(acc), nil
		}
		return acc, nil
	})
}

func toFloat(v any) (float64, bool, error) {
	switch n := v.(type) {
	case int:
		return float64(n), true, nil
	case int32:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case float32:
		return float64(n), false, nil
	case float64:
		return n, false, nil
	default:
		return 0, false, fmt.Errorf("expected a number, got %T", v)
	}
}
