package value

import "strings"

// Array is an ordered, index-addressable sequence of Values.
type Array struct {
	items []Value
}

// NewArray returns an Array of length n with every element set to
// None. n may be zero.
func NewArray(n int) *Array {
	a := &Array{items: make([]Value, n)}
	for i := range a.items {
		a.items[i] = None
	}
	return a
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.items) }

// Get returns the element at index i.
// Panics if i is out of range; use Len to bound access.
func (a *Array) Get(i int) Value { return a.items[i] }

// Set writes v at index i. An out-of-range index is a contract
// violation reported as IndexOutOfRangeError; the array is unchanged.
func (a *Array) Set(i int, v Value) error {
	if i < 0 || i >= len(a.items) {
		return &IndexOutOfRangeError{Index: i, Len: len(a.items)}
	}
	a.items[i] = v
	return nil
}

// Append grows the array by one element.
func (a *Array) Append(v Value) {
	a.items = append(a.items, v)
}

func (a *Array) Kind() Kind { return KindArray }

func (a *Array) Clone() Value {
	c := &Array{items: make([]Value, len(a.items))}
	for i, v := range a.items {
		c.items[i] = v.Clone()
	}
	return c
}

func (a *Array) Equal(other Value) bool {
	oa, ok := other.(*Array)
	if !ok || len(oa.items) != len(a.items) {
		return false
	}
	for i, v := range a.items {
		if !v.Equal(oa.items[i]) {
			return false
		}
	}
	return true
}

func (a *Array) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range a.items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

func (a *Array) isValue() {}
