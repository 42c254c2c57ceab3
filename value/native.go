package value

import (
	"fmt"
	"reflect"
	"sort"
)

// FromNative converts a tree of plain Go values (as produced by generic
// decoders: bool, numerics, string, []byte, []any, map[any]any,
// map[string]any, nil) into a Value tree. Named scalar types reduce to
// their underlying kind with width preserved. Map entries are inserted
// in sorted key order so the result is deterministic. Byte slices
// become String values.
func FromNative(v any) (Value, error) {
	switch n := v.(type) {
	case nil:
		return None, nil
	case Value:
		return n, nil
	case bool:
		return NewBool(n), nil
	case string:
		return NewString(n), nil
	case []byte:
		return NewString(string(n)), nil
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return NewNumber(n), nil
	case []any:
		a := NewArray(len(n))
		for i, e := range n {
			ev, err := FromNative(e)
			if err != nil {
				return nil, err
			}
			a.items[i] = ev
		}
		return a, nil
	case map[string]any:
		o := NewObject()
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ev, err := FromNative(n[k])
			if err != nil {
				return nil, err
			}
			o.PutString(k, ev)
		}
		return o, nil
	case map[any]any:
		o := NewObject()
		type kv struct {
			key Value
			val any
		}
		entries := make([]kv, 0, len(n))
		for k, e := range n {
			kv0, err := FromNative(k)
			if err != nil {
				return nil, err
			}
			entries = append(entries, kv{key: kv0, val: e})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].key.String() < entries[j].key.String()
		})
		for _, e := range entries {
			ev, err := FromNative(e.val)
			if err != nil {
				return nil, err
			}
			o.Put(e.key, ev)
		}
		return o, nil
	}
	// Named scalar types reduce to their kind, keeping width.
	rv := reflect.ValueOf(v)
	if t, ok := unnamedScalar[rv.Kind()]; ok {
		return FromNative(rv.Convert(t).Interface())
	}
	return nil, &TypeNotAllowedError{Type: reflect.TypeOf(v), Reason: "no generic value form"}
}

var unnamedScalar = map[reflect.Kind]reflect.Type{
	reflect.Bool:    reflect.TypeOf(false),
	reflect.String:  reflect.TypeOf(""),
	reflect.Int:     reflect.TypeOf(int(0)),
	reflect.Int8:    reflect.TypeOf(int8(0)),
	reflect.Int16:   reflect.TypeOf(int16(0)),
	reflect.Int32:   reflect.TypeOf(int32(0)),
	reflect.Int64:   reflect.TypeOf(int64(0)),
	reflect.Uint:    reflect.TypeOf(uint(0)),
	reflect.Uint8:   reflect.TypeOf(uint8(0)),
	reflect.Uint16:  reflect.TypeOf(uint16(0)),
	reflect.Uint32:  reflect.TypeOf(uint32(0)),
	reflect.Uint64:  reflect.TypeOf(uint64(0)),
	reflect.Float32: reflect.TypeOf(float32(0)),
	reflect.Float64: reflect.TypeOf(float64(0)),
}

// ToNative converts a Value tree into plain Go values: None to nil,
// scalars to their natives, Arrays to []any, and Objects to
// map[any]any. The inverse of FromNative up to map ordering. Object
// keys must be scalars; a container key cannot become a Go map key and
// is reported as TypeNotAllowedError.
func ToNative(v Value) (any, error) {
	switch n := v.(type) {
	case noneValue:
		return nil, nil
	case *Bool:
		return n.b, nil
	case *String:
		return n.s, nil
	case *Number:
		return n.n, nil
	case *Array:
		out := make([]any, len(n.items))
		for i, e := range n.items {
			ev, err := ToNative(e)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	case *Object:
		out := make(map[any]any, len(n.entries))
		for _, e := range n.entries {
			if e.key.Kind() == KindObject || e.key.Kind() == KindArray {
				return nil, &TypeNotAllowedError{Type: reflect.TypeOf(e.key), Reason: "container key has no native map form"}
			}
			kn, err := ToNative(e.key)
			if err != nil {
				return nil, err
			}
			vn, err := ToNative(e.val)
			if err != nil {
				return nil, err
			}
			out[kn] = vn
		}
		return out, nil
	}
	panic(fmt.Sprintf("value: ToNative on unknown variant %T", v))
}
