package reflectutil

import (
	"errors"
	"reflect"
)

// Field describes one serializable struct field, addressed by its
// reflect index path from the root struct.
type Field struct {
	Name  string            // Go field name
	Index []int             // index path, one step per nesting level
	Type  reflect.Type      // declared field type
	Tag   reflect.StructTag // raw struct tag
}

// Fields enumerates the serializable fields of a struct type in
// deterministic order: fields contributed by embedded structs come
// first (recursively, so the most deeply embedded type's fields lead),
// followed by the struct's own fields, each group in declaration
// order. Unexported fields and unexported embedded types are skipped.
// A field reachable through two embedding paths appears once; fields
// of the same name declared by different types in the chain are kept
// as distinct entries.
//
// Panics if t is not a struct type.
func Fields(t reflect.Type) []Field {
	if t.Kind() != reflect.Struct {
		panic("reflectutil: Fields on non-struct type " + t.String())
	}
	var out []Field
	collectFields(t, nil, &out, make(map[string]bool))
	return out
}

func collectFields(t reflect.Type, path []int, out *[]Field, seen map[string]bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous || sf.PkgPath != "" {
			continue
		}
		et := sf.Type
		if et.Kind() == reflect.Pointer {
			et = et.Elem()
		}
		if et.Kind() != reflect.Struct {
			continue
		}
		sub := make([]int, len(path)+1)
		copy(sub, path)
		sub[len(path)] = i
		collectFields(et, sub, out, seen)
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" {
			continue
		}
		if sf.Anonymous {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				continue
			}
		}
		id := t.String() + "." + sf.Name
		if seen[id] {
			continue
		}
		seen[id] = true
		idx := make([]int, len(path)+1)
		copy(idx, path)
		idx[len(path)] = i
		*out = append(*out, Field{
			Name:  sf.Name,
			Index: idx,
			Type:  sf.Type,
			Tag:   sf.Tag,
		})
	}
}

// ReadField reads a field from a struct or pointer to struct.
func ReadField(obj any, f *Field) (any, error) {
	if obj == nil {
		return nil, &FieldAccessError{Field: f.Name, Op: "read", Err: errors.New("nil object")}
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, &FieldAccessError{Struct: rv.Type(), Field: f.Name, Op: "read", Err: errors.New("nil object")}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, &FieldAccessError{Struct: rv.Type(), Field: f.Name, Op: "read", Err: errors.New("not a struct")}
	}
	root := rv.Type()
	for _, i := range f.Index {
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return nil, &FieldAccessError{Struct: root, Field: f.Name, Op: "read", Err: errors.New("nil embedded pointer")}
			}
			rv = rv.Elem()
		}
		rv = rv.Field(i)
	}
	return rv.Interface(), nil
}

// WriteField writes a field of the struct pointed to by obj,
// converting val to the field's declared type. Nil embedded pointers
// along the path are allocated.
func WriteField(obj any, f *Field, val any) error {
	rv := reflect.ValueOf(obj)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &FieldAccessError{Struct: reflect.TypeOf(obj), Field: f.Name, Op: "write", Err: errors.New("target is not a non-nil pointer")}
	}
	root := rv.Type()
	rv = rv.Elem()
	for _, i := range f.Index {
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				if !rv.CanSet() {
					return &FieldAccessError{Struct: root, Field: f.Name, Op: "write", Err: errors.New("nil embedded pointer is not settable")}
				}
				rv.Set(reflect.New(rv.Type().Elem()))
			}
			rv = rv.Elem()
		}
		rv = rv.Field(i)
	}
	if !rv.CanSet() {
		return &FieldAccessError{Struct: root, Field: f.Name, Op: "write", Err: errors.New("field is not settable")}
	}
	conv, err := Convert(val, rv.Type())
	if err != nil {
		return &FieldAccessError{Struct: root, Field: f.Name, Op: "write", Err: err}
	}
	if conv == nil {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}
	rv.Set(reflect.ValueOf(conv))
	return nil
}
