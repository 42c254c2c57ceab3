package value

import (
	"math"
	"strings"
)

// Object is an ordered key/value container. Keys may be any Value, not
// just strings. Iteration follows insertion order; putting an existing
// key replaces its value in place without changing its position.
//
// Scalar keys are indexed for O(1) lookup; container keys fall back to
// a linear scan using structural equality.
type Object struct {
	entries []objectEntry
	index   map[scalarKey]int
}

type objectEntry struct {
	key Value
	val Value
}

// scalarKey is the comparable form of a scalar Value used for map
// lookup. Integer Numbers of any width normalize to the same key;
// floats normalize by float64 bits.
type scalarKey struct {
	kind  Kind
	str   string
	bits  uint64
	class uint8
}

const (
	classNone uint8 = iota
	classInt
	classNegInt
	classFloat
)

func scalarKeyOf(v Value) (scalarKey, bool) {
	switch k := v.(type) {
	case noneValue:
		return scalarKey{kind: KindNone}, true
	case *Bool:
		var bits uint64
		if k.b {
			bits = 1
		}
		return scalarKey{kind: KindBool, bits: bits}, true
	case *String:
		return scalarKey{kind: KindString, str: k.s}, true
	case *Number:
		if !k.IsInt() {
			return scalarKey{kind: KindNumber, bits: math.Float64bits(k.Float64()), class: classFloat}, true
		}
		if i, ok := k.Int64(); ok {
			if i < 0 {
				return scalarKey{kind: KindNumber, bits: uint64(-(i + 1)), class: classNegInt}, true
			}
			return scalarKey{kind: KindNumber, bits: uint64(i), class: classInt}, true
		}
		u, _ := k.Uint64()
		return scalarKey{kind: KindNumber, bits: u, class: classInt}, true
	}
	return scalarKey{}, false
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{index: make(map[scalarKey]int)}
}

// Len returns the number of entries.
func (o *Object) Len() int { return len(o.entries) }

// Put inserts or replaces the entry for key. A replaced entry keeps
// its original position.
func (o *Object) Put(key, val Value) {
	if i, ok := o.find(key); ok {
		o.entries[i].val = val
		return
	}
	o.entries = append(o.entries, objectEntry{key: key, val: val})
	if sk, ok := scalarKeyOf(key); ok {
		o.index[sk] = len(o.entries) - 1
	}
}

// PutString is Put with a string key.
func (o *Object) PutString(key string, val Value) {
	o.Put(NewString(key), val)
}

// Get returns the value for key and whether the key is present.
func (o *Object) Get(key Value) (Value, bool) {
	if i, ok := o.find(key); ok {
		return o.entries[i].val, true
	}
	return nil, false
}

// GetString is Get with a string key.
func (o *Object) GetString(key string) (Value, bool) {
	if i, ok := o.index[scalarKey{kind: KindString, str: key}]; ok {
		return o.entries[i].val, true
	}
	return nil, false
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []Value {
	keys := make([]Value, len(o.entries))
	for i, e := range o.entries {
		keys[i] = e.key
	}
	return keys
}

// At returns the i'th entry in insertion order.
// Panics if i is out of range.
func (o *Object) At(i int) (key, val Value) {
	e := o.entries[i]
	return e.key, e.val
}

func (o *Object) find(key Value) (int, bool) {
	if sk, ok := scalarKeyOf(key); ok {
		i, ok := o.index[sk]
		return i, ok
	}
	for i, e := range o.entries {
		if e.key.Equal(key) {
			return i, true
		}
	}
	return 0, false
}

func (o *Object) Kind() Kind { return KindObject }

func (o *Object) Clone() Value {
	c := NewObject()
	for _, e := range o.entries {
		c.Put(e.key.Clone(), e.val.Clone())
	}
	return c
}

// Equal reports whether both objects hold the same entries, ignoring
// insertion order.
func (o *Object) Equal(other Value) bool {
	oo, ok := other.(*Object)
	if !ok || oo.Len() != o.Len() {
		return false
	}
	for _, e := range o.entries {
		ov, ok := oo.Get(e.key)
		if !ok || !e.val.Equal(ov) {
			return false
		}
	}
	return true
}

func (o *Object) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, e := range o.entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(e.key.String())
		sb.WriteString(": ")
		sb.WriteString(e.val.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

func (o *Object) isValue() {}
