// Package value implements the generic value tree that native objects
// are serialized to and deserialized from. A tree is built from a closed
// set of variants: Object (ordered key/value container), Array (indexed
// container), String, Number, Bool, and None (explicit absence).
//
// Trees are acyclic by contract. A value must never directly or
// transitively contain itself; the package does not detect cycles, and
// traversal of a cyclic tree will not terminate. Callers own this
// invariant.
//
// Payloads are restricted: only primitives, pointers to primitives,
// strings, and nested Values may enter a tree. Anything else is a
// construction-time contract violation reported as TypeNotAllowedError.
package value

import (
	"fmt"
	"reflect"
)

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is the interface implemented by every tree variant.
//
// Scalar variants are immutable; Clone may return the receiver for
// them. Container variants are always deep-copied by Clone.
type Value interface {
	// Kind reports the variant.
	Kind() Kind
	// Clone returns a deep, independent copy. Container nodes in the
	// copy are never the same instances as in the original.
	Clone() Value
	// Equal reports deep structural equality. Object comparison is
	// content-based and independent of insertion order.
	Equal(other Value) bool
	// String returns a compact debug rendering, not a wire format.
	String() string

	isValue()
}

// TypeNotAllowedError reports a payload or field type outside the
// permitted set (primitives, pointer wrappers, strings, Values).
type TypeNotAllowedError struct {
	Type   reflect.Type
	Reason string
}

func (e *TypeNotAllowedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("type %s is not allowed: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("type %s is not allowed", e.Type)
}

// IndexOutOfRangeError reports an array mutation or access outside the
// array's current bounds.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("index %d out of range for array of length %d", e.Index, e.Len)
}

var valueType = reflect.TypeOf((*Value)(nil)).Elem()

// IsAllowedType reports whether t may appear as a payload in a tree:
// a primitive, a pointer to a primitive, a string, or a Value variant.
func IsAllowedType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t.Implements(valueType) {
		return true
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// AssertAllowedType returns a TypeNotAllowedError unless t is an
// allowed payload type.
func AssertAllowedType(t reflect.Type) error {
	if IsAllowedType(t) {
		return nil
	}
	return &TypeNotAllowedError{Type: t}
}
