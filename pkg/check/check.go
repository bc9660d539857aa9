// Package check provides runtime type descriptors for graph node values.
//
// Every graph node ID carries a Type; the graph validates each computed value
// with Check before caching or returning it.
package check

import (
	"fmt"
	"reflect"
)

// Type is a runtime predicate over values.
type Type interface {
	// Check reports whether v conforms to the type.
	Check(v any) bool

	// String returns a human-readable name for diagnostics.
	String() string
}

// Func builds a Type from a predicate.
func Func(name string, pred func(v any) bool) Type {
	return funcType{name: name, pred: pred}
}

type funcType struct {
	name string
	pred func(v any) bool
}

func (f funcType) Check(v any) bool { return f.pred(v) }
func (f funcType) String() string   { return f.name }

// Any accepts every value, including nil.
var Any Type = Func("any", func(any) bool { return true })

// Number accepts any Go integer or floating point value.
var Number Type = Func("number", func(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
})

// Int accepts any Go integer value.
var Int Type = Func("int", func(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
})

// String accepts string values.
var String Type = Of[string]()

// Bool accepts bool values.
var Bool Type = Of[bool]()

// Of accepts values whose dynamic type is assignable to T.
// For interface types T, a nil value is rejected.
func Of[T any]() Type {
	var zero T
	name := fmt.Sprintf("%T", zero)
	if rt := reflect.TypeOf((*T)(nil)).Elem(); rt.Kind() == reflect.Interface {
		name = rt.String()
	}
	return Func(name, func(v any) bool {
		_, ok := v.(T)
		return ok
	})
}

// Nullable accepts nil in addition to the values accepted by t.
func Nullable(t Type) Type {
	return Func(t.String()+"?", func(v any) bool {
		if isNil(v) {
			return true
		}
		return t.Check(v)
	})
}

// SliceOf accepts slices (of any element type) whose elements all satisfy t.
func SliceOf(t Type) Type {
	return Func("[]"+t.String(), func(v any) bool {
		if v == nil {
			return false
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if !t.Check(rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	})
}

// MapOf accepts string-keyed maps whose values all satisfy t.
func MapOf(t Type) Type {
	return Func("map[string]"+t.String(), func(v any) bool {
		if v == nil {
			return false
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
			return false
		}
		iter := rv.MapRange()
		for iter.Next() {
			if !t.Check(iter.Value().Interface()) {
				return false
			}
		}
		return true
	})
}

// OneOf accepts values accepted by any of the given types.
func OneOf(types ...Type) Type {
	name := "oneOf("
	for i, t := range types {
		if i > 0 {
			name += "|"
		}
		name += t.String()
	}
	name += ")"
	return Func(name, func(v any) bool {
		for _, t := range types {
			if t.Check(v) {
				return true
			}
		}
		return false
	})
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
