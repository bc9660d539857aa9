package graph

import "reflect"

// valuesEqual uses == when both values are comparable and
// reflect.DeepEqual otherwise.
func valuesEqual(a, b any) bool {
	if reflect.ValueOf(a).Comparable() && a == b {
		return true
	}
	return reflect.DeepEqual(a, b)
}
