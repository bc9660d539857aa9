package graph

import "strconv"

// Time is a logical timestamp. Every committed write advances the graph's
// clock by one.
type Time struct {
	v uint64
}

// Epoch is the zero time, before any write.
var Epoch = Time{}

// TimeOf returns the time with the given raw value.
func TimeOf(v uint64) Time {
	return Time{v: v}
}

// Increment returns the next time.
func (t Time) Increment() Time {
	return Time{v: t.v + 1}
}

// Uint64 returns the raw counter value.
func (t Time) Uint64() uint64 {
	return t.v
}

// Compare returns -1, 0 or +1 depending on whether t is before, equal to or
// after o.
func (t Time) Compare(o Time) int {
	switch {
	case t.v < o.v:
		return -1
	case t.v > o.v:
		return 1
	default:
		return 0
	}
}

func (t Time) Before(o Time) bool { return t.v < o.v }
func (t Time) After(o Time) bool  { return t.v > o.v }
func (t Time) Equal(o Time) bool  { return t.v == o.v }

func (t Time) String() string {
	return "t" + strconv.FormatUint(t.v, 10)
}

func maxTime(a, b Time) Time {
	if a.After(b) {
		return a
	}
	return b
}
