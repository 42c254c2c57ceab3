package value

import (
	"fmt"
	"math"
	"strconv"
)

// ---------------------------------------------------------------------------
// None
// ---------------------------------------------------------------------------

// None is the explicit-absence value. It is distinct from a key being
// absent in an Object: an Object may map a key to None.
var None Value = noneValue{}

type noneValue struct{}

func (noneValue) Kind() Kind             { return KindNone }
func (noneValue) Clone() Value           { return None }
func (n noneValue) Equal(o Value) bool   { return o != nil && o.Kind() == KindNone }
func (noneValue) String() string         { return "none" }
func (noneValue) isValue()               {}

// ---------------------------------------------------------------------------
// Bool
// ---------------------------------------------------------------------------

// Bool is a boolean scalar.
type Bool struct {
	b bool
}

// NewBool returns a Bool wrapping b.
func NewBool(b bool) *Bool { return &Bool{b: b} }

// Value returns the wrapped boolean.
func (b *Bool) Value() bool { return b.b }

func (b *Bool) Kind() Kind   { return KindBool }
func (b *Bool) Clone() Value { return b }
func (b *Bool) Equal(o Value) bool {
	ob, ok := o.(*Bool)
	return ok && ob.b == b.b
}
func (b *Bool) String() string { return strconv.FormatBool(b.b) }
func (b *Bool) isValue()       {}

// ---------------------------------------------------------------------------
// String
// ---------------------------------------------------------------------------

// String is a string scalar.
type String struct {
	s string
}

// NewString returns a String wrapping s.
func NewString(s string) *String { return &String{s: s} }

// Value returns the wrapped string.
func (s *String) Value() string { return s.s }

func (s *String) Kind() Kind   { return KindString }
func (s *String) Clone() Value { return s }
func (s *String) Equal(o Value) bool {
	os, ok := o.(*String)
	return ok && os.s == s.s
}
func (s *String) String() string { return strconv.Quote(s.s) }
func (s *String) isValue()       {}

// ---------------------------------------------------------------------------
// Number
// ---------------------------------------------------------------------------

// Number is a numeric scalar. The native Go value is stored as-is, so
// width and signedness survive a serialize/deserialize round trip; no
// widening to a common representation is performed.
type Number struct {
	n any
}

// NewNumber returns a Number wrapping n.
// Panics if n is not a Go integer, unsigned integer, or float.
func NewNumber(n any) *Number {
	switch n.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return &Number{n: n}
	default:
		panic(fmt.Sprintf("value: NewNumber called with non-numeric %T", n))
	}
}

// Native returns the wrapped numeric value with its original type.
func (n *Number) Native() any { return n.n }

// IsInt reports whether the wrapped value is an integer (signed or
// unsigned) rather than a float.
func (n *Number) IsInt() bool {
	switch n.n.(type) {
	case float32, float64:
		return false
	}
	return true
}

// Int64 returns the value as int64. The second result is false when
// the value is a float or an unsigned value above the int64 range.
func (n *Number) Int64() (int64, bool) {
	switch v := n.n.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return 0, false
}

// Uint64 returns the value as uint64. The second result is false when
// the value is a float or negative.
func (n *Number) Uint64() (uint64, bool) {
	switch v := n.n.(type) {
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int8:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int16:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int32:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case uint:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	}
	return 0, false
}

// Float64 returns the value widened to float64.
func (n *Number) Float64() float64 {
	switch v := n.n.(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	}
	if i, ok := n.Int64(); ok {
		return float64(i)
	}
	u, _ := n.Uint64()
	return float64(u)
}

func (n *Number) Kind() Kind   { return KindNumber }
func (n *Number) Clone() Value { return n }

// Equal compares numerically. Integers compare by value regardless of
// width or signedness; floats compare as float64. An integer and a
// float are never equal, even when numerically identical, so that
// equality agrees with how the value round-trips.
func (n *Number) Equal(o Value) bool {
	on, ok := o.(*Number)
	if !ok {
		return false
	}
	if n.IsInt() != on.IsInt() {
		return false
	}
	if !n.IsInt() {
		return n.Float64() == on.Float64()
	}
	if a, ok := n.Int64(); ok {
		b, ok2 := on.Int64()
		return ok2 && a == b
	}
	a, _ := n.Uint64()
	b, ok2 := on.Uint64()
	return ok2 && a == b
}

func (n *Number) String() string {
	switch v := n.n.(type) {
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	if i, ok := n.Int64(); ok {
		return strconv.FormatInt(i, 10)
	}
	u, _ := n.Uint64()
	return strconv.FormatUint(u, 10)
}

func (n *Number) isValue() {}
