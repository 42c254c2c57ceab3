// Package reflectutil supplies the low-level reflective operations the
// serialization engine is built on: field enumeration, primitive and
// wrapper classification, value conversion, field access, and
// constructor-less instantiation.
package reflectutil

import (
	"fmt"
	"reflect"

	"github.com/chazu/ripley/value"
)

// NotInstantiableError reports an attempt to bake or instantiate a
// type that cannot back a concrete object: an interface, or a
// non-struct kind.
type NotInstantiableError struct {
	Type   reflect.Type
	Reason string
}

func (e *NotInstantiableError) Error() string {
	return fmt.Sprintf("type %s is not instantiable: %s", e.Type, e.Reason)
}

// FieldAccessError reports a failed reflective field read or write.
type FieldAccessError struct {
	Struct reflect.Type
	Field  string
	Op     string // "read" or "write"
	Err    error
}

func (e *FieldAccessError) Error() string {
	if e.Struct == nil {
		return fmt.Sprintf("cannot %s field %s: %v", e.Op, e.Field, e.Err)
	}
	return fmt.Sprintf("cannot %s field %s.%s: %v", e.Op, e.Struct, e.Field, e.Err)
}

func (e *FieldAccessError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Type classification
// ---------------------------------------------------------------------------

// IsPrimitive reports whether t is a Go primitive kind: bool, any
// integer width, or any float width. Strings are classified
// separately by IsScalar.
func IsPrimitive(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// IsScalar reports whether t is a primitive or a string.
func IsScalar(t reflect.Type) bool {
	return IsPrimitive(t) || (t != nil && t.Kind() == reflect.String)
}

// IsWrapper reports whether t is a pointer to a scalar, the engine's
// equivalent of a boxed primitive. A nil wrapper maps to None.
func IsWrapper(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Pointer && IsScalar(t.Elem())
}

// WrapperOf returns the wrapper (pointer) type of a scalar type.
// Panics if t is not a scalar type.
func WrapperOf(t reflect.Type) reflect.Type {
	if !IsScalar(t) {
		panic(fmt.Sprintf("reflectutil: WrapperOf(%s) on non-scalar", t))
	}
	return reflect.PointerTo(t)
}

// PrimitiveOf returns the scalar type wrapped by a wrapper type.
// Panics if t is not a wrapper type.
func PrimitiveOf(t reflect.Type) reflect.Type {
	if !IsWrapper(t) {
		panic(fmt.Sprintf("reflectutil: PrimitiveOf(%s) on non-wrapper", t))
	}
	return t.Elem()
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Convert adapts v to the target type: numeric width changes
// (narrowing truncates, as a cast would), pointer wrapping and
// unwrapping, and assignment to interfaces. nil converts to the
// target's zero value. A conversion with no defined meaning (such as
// numeric to string) fails with TypeNotAllowedError.
func Convert(v any, target reflect.Type) (any, error) {
	if target == nil {
		return nil, &value.TypeNotAllowedError{Type: nil, Reason: "no conversion target"}
	}
	if v == nil {
		return reflect.Zero(target).Interface(), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(target) {
		return v, nil
	}
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return reflect.Zero(target).Interface(), nil
	}
	if target.Kind() == reflect.Pointer {
		inner, err := Convert(v, target.Elem())
		if err != nil {
			return nil, err
		}
		p := reflect.New(target.Elem())
		p.Elem().Set(reflect.ValueOf(inner))
		return p.Interface(), nil
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Zero(target).Interface(), nil
		}
		rv = rv.Elem()
	}
	if rv.Type().AssignableTo(target) {
		return rv.Interface(), nil
	}
	sk, tk := rv.Kind(), target.Kind()
	switch {
	case isNumericKind(sk) && isNumericKind(tk),
		sk == reflect.Bool && tk == reflect.Bool,
		sk == reflect.String && tk == reflect.String:
		return rv.Convert(target).Interface(), nil
	}
	if rv.Type().ConvertibleTo(target) && sk == tk {
		return rv.Convert(target).Interface(), nil
	}
	return nil, &value.TypeNotAllowedError{
		Type:   rv.Type(),
		Reason: fmt.Sprintf("cannot convert to %s", target),
	}
}

// ---------------------------------------------------------------------------
// Instantiation
// ---------------------------------------------------------------------------

// Instantiate creates a zero-valued instance of a struct type without
// running any constructor logic and returns a pointer to it. A pointer
// type instantiates its element. Interfaces and non-struct kinds fail
// with NotInstantiableError.
func Instantiate(t reflect.Type) (any, error) {
	if t == nil {
		return nil, &NotInstantiableError{Type: nil, Reason: "nil type"}
	}
	switch t.Kind() {
	case reflect.Interface:
		return nil, &NotInstantiableError{Type: t, Reason: "interface type has no concrete shape"}
	case reflect.Pointer:
		return Instantiate(t.Elem())
	case reflect.Struct:
		return reflect.New(t).Interface(), nil
	}
	return nil, &NotInstantiableError{Type: t, Reason: "not a struct type"}
}

// ---------------------------------------------------------------------------
// Container element access
// ---------------------------------------------------------------------------

// MakeSlice returns a new slice of type t with length n.
func MakeSlice(t reflect.Type, n int) any {
	return reflect.MakeSlice(t, n, n).Interface()
}

// MakeMap returns a new empty map of type t.
func MakeMap(t reflect.Type) any {
	return reflect.MakeMap(t).Interface()
}

// NewArray returns a pointer to a new zero-valued array of type t
// (a [N]T kind), so its elements can be written in place.
func NewArray(t reflect.Type) any {
	return reflect.New(t).Interface()
}

// SetElement writes v, converted to the element type, at index i of a
// slice, array pointer, or array.
func SetElement(container any, i int, v any) error {
	rv := reflect.ValueOf(container)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return &value.TypeNotAllowedError{Type: rv.Type(), Reason: "not an indexable container"}
	}
	if i < 0 || i >= rv.Len() {
		return &value.IndexOutOfRangeError{Index: i, Len: rv.Len()}
	}
	if !rv.Index(i).CanSet() {
		return &value.TypeNotAllowedError{Type: rv.Type(), Reason: "container is not addressable"}
	}
	conv, err := Convert(v, rv.Type().Elem())
	if err != nil {
		return err
	}
	if conv == nil {
		rv.Index(i).Set(reflect.Zero(rv.Type().Elem()))
		return nil
	}
	rv.Index(i).Set(reflect.ValueOf(conv))
	return nil
}

// SetEntry writes (key, v) into a map, converting both to the map's
// key and element types.
func SetEntry(m any, key, v any) error {
	rv := reflect.ValueOf(m)
	if rv.Kind() != reflect.Map {
		return &value.TypeNotAllowedError{Type: rv.Type(), Reason: "not a map"}
	}
	ck, err := Convert(key, rv.Type().Key())
	if err != nil {
		return err
	}
	cv, err := Convert(v, rv.Type().Elem())
	if err != nil {
		return err
	}
	kv := reflect.ValueOf(ck)
	if ck == nil {
		kv = reflect.Zero(rv.Type().Key())
	}
	if cv == nil {
		rv.SetMapIndex(kv, reflect.Zero(rv.Type().Elem()))
		return nil
	}
	rv.SetMapIndex(kv, reflect.ValueOf(cv))
	return nil
}
