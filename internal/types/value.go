// Package types defines the scalar value representation (SIValue) and the
// entity identifiers shared by every layer of the query engine.
package types

import (
	"fmt"

	"github.com/spf13/cast"
)

// EntityID is the stable 64-bit identifier carried by every node and edge.
type EntityID uint64

// ValueKind tags the variant stored in an SIValue.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt64
	KindDouble
	KindBool
	KindString
	KindNode
	KindEdge
	KindArray
	KindDate
	KindTime
	KindLocalTime
	KindDateTime
	KindLocalDateTime
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt64:
		return "integer"
	case KindDouble:
		return "float"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	case KindNode:
		return "node"
	case KindEdge:
		return "edge"
	case KindArray:
		return "array"
	case KindDate, KindTime, KindLocalTime, KindDateTime, KindLocalDateTime:
		return "temporal"
	default:
		return "unknown"
	}
}

// Temporal is the (seconds, nanos, type) triple backing every temporal
// scalar, grounded on RedisGraph's temporal_value.c representation.
type Temporal struct {
	Seconds int64
	Nanos   int32
	Type    ValueKind
}

// SIValue is the tagged scalar union flowing through records, property
// maps, and expression evaluation. String values distinguish owned
// (heap, must be freed/cloned) from borrowed (points into a constant or
// the graph's storage) to avoid copying constant strings, per the
// teacher's ownership discipline generalized from node/edge entities to
// strings.
type SIValue struct {
	Kind     ValueKind
	I        int64
	F        float64
	B        bool
	S        string
	Owned    bool
	Node     EntityID
	Edge     EntityID
	Arr      []SIValue
	Temporal Temporal
}

func Null() SIValue                 { return SIValue{Kind: KindNull} }
func Int(v int64) SIValue           { return SIValue{Kind: KindInt64, I: v} }
func Double(v float64) SIValue      { return SIValue{Kind: KindDouble, F: v} }
func Bool(v bool) SIValue           { return SIValue{Kind: KindBool, B: v} }
func ConstString(v string) SIValue  { return SIValue{Kind: KindString, S: v, Owned: false} }
func OwnedString(v string) SIValue  { return SIValue{Kind: KindString, S: v, Owned: true} }
func NodeRef(id EntityID) SIValue   { return SIValue{Kind: KindNode, Node: id} }
func EdgeRef(id EntityID) SIValue   { return SIValue{Kind: KindEdge, Edge: id} }
func Array(vs []SIValue) SIValue    { return SIValue{Kind: KindArray, Arr: vs} }

func (v SIValue) IsNull() bool { return v.Kind == KindNull }

// Clone deep-copies an owned string or array payload; borrowed strings and
// scalar kinds are copied by value.
func (v SIValue) Clone() SIValue {
	c := v
	if v.Kind == KindString && v.Owned {
		b := make([]byte, len(v.S))
		copy(b, v.S)
		c.S = string(b)
	}
	if v.Kind == KindArray {
		c.Arr = make([]SIValue, len(v.Arr))
		for i, e := range v.Arr {
			c.Arr[i] = e.Clone()
		}
	}
	return c
}

func typeOrdinal(k ValueKind) int {
	switch k {
	case KindNull:
		return 100 // nulls sort last under SIValue_Order
	case KindBool:
		return 0
	case KindInt64, KindDouble:
		return 1 // numerics compare across kind by value
	case KindString:
		return 2
	case KindNode:
		return 3
	case KindEdge:
		return 4
	case KindArray:
		return 5
	case KindDate, KindTime, KindLocalTime, KindDateTime, KindLocalDateTime:
		return 6
	default:
		return 99
	}
}

// Order implements SIValue_Order: a total order, type ordinal first, then
// value within type; node/edge compare by ID; null sorts last.
func Order(a, b SIValue) int {
	oa, ob := typeOrdinal(a.Kind), typeOrdinal(b.Kind)
	if oa != ob {
		if oa < ob {
			return -1
		}
		return 1
	}

	switch a.Kind {
	case KindNull:
		return 0
	case KindBool:
		if a.B == b.B {
			return 0
		}
		if !a.B {
			return -1
		}
		return 1
	case KindInt64, KindDouble:
		av, bv := numeric(a), numeric(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case KindString:
		switch {
		case a.S < b.S:
			return -1
		case a.S > b.S:
			return 1
		default:
			return 0
		}
	case KindNode:
		return compareUint(uint64(a.Node), uint64(b.Node))
	case KindEdge:
		return compareUint(uint64(a.Edge), uint64(b.Edge))
	case KindArray:
		for i := 0; i < len(a.Arr) && i < len(b.Arr); i++ {
			if c := Order(a.Arr[i], b.Arr[i]); c != 0 {
				return c
			}
		}
		return compareUint(uint64(len(a.Arr)), uint64(len(b.Arr)))
	case KindDate, KindTime, KindLocalTime, KindDateTime, KindLocalDateTime:
		if a.Temporal.Seconds != b.Temporal.Seconds {
			if a.Temporal.Seconds < b.Temporal.Seconds {
				return -1
			}
			return 1
		}
		return compareUint(uint64(a.Temporal.Nanos), uint64(b.Temporal.Nanos))
	default:
		return 0
	}
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func numeric(v SIValue) float64 {
	if v.Kind == KindInt64 {
		return float64(v.I)
	}
	return v.F
}

// Compare implements SIValue_Compare: partial equality used by predicate
// evaluation. Returns 0 only when both values are of comparable type and
// equal; null never compares equal to anything, including another null.
func Compare(a, b SIValue) (int, bool) {
	if a.Kind == KindNull || b.Kind == KindNull {
		return -1, false
	}
	if typeOrdinal(a.Kind) != typeOrdinal(b.Kind) {
		return -1, false
	}
	return Order(a, b), true
}

// ToFloat coerces a numeric SIValue to float64 for arithmetic, using cast
// for the handful of cross-kind coercions (e.g. a string literal holding a
// numeral) Cypher tolerates in arithmetic contexts.
func ToFloat(v SIValue) (float64, error) {
	switch v.Kind {
	case KindInt64:
		return float64(v.I), nil
	case KindDouble:
		return v.F, nil
	case KindString:
		f, err := cast.ToFloat64E(v.S)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce string %q to a number", v.S)
		}
		return f, nil
	case KindBool:
		return cast.ToFloat64(v.B), nil
	default:
		return 0, fmt.Errorf("value of type %s is not numeric", v.Kind)
	}
}

// IsNumeric reports whether v holds an int64 or double.
func IsNumeric(v SIValue) bool { return v.Kind == KindInt64 || v.Kind == KindDouble }
