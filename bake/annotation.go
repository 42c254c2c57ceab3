package bake

import (
	"fmt"
	"reflect"
	"strings"
)

// TagName is the struct tag key read by the baker.
const TagName = "ripley"

// FieldAnnotation configures how one struct field serializes. The
// zero value leaves the field at its defaults (declared name, declared
// type, no transformer). Sources: the field's struct tag and a
// profile entry; tag attributes win per attribute.
type FieldAnnotation struct {
	Rename      string // serialized name override
	Skip        bool   // exclude the field entirely
	Transformer string // named transformer for the field
	As          string // explicit type keyword overriding the declared type
}

// TypeAnnotation configures a whole type: an ordered list of
// class-level transformer names, whether embedding types inherit
// them, and per-field annotations keyed by Go field name.
type TypeAnnotation struct {
	Transformers []string
	Inheritable  bool
	Fields       map[string]FieldAnnotation
}

// parseTag decodes a `ripley:"..."` struct tag. The first
// comma-separated segment renames the field (empty keeps the declared
// name); the remaining segments are `xform=NAME` and `as=KEYWORD`
// options. A bare "-" skips the field. Reports ok=false when the tag
// is absent.
func parseTag(tag reflect.StructTag) (FieldAnnotation, bool, error) {
	raw, ok := tag.Lookup(TagName)
	if !ok {
		return FieldAnnotation{}, false, nil
	}
	if raw == "-" {
		return FieldAnnotation{Skip: true}, true, nil
	}
	var a FieldAnnotation
	parts := strings.Split(raw, ",")
	a.Rename = parts[0]
	for _, opt := range parts[1:] {
		switch {
		case strings.HasPrefix(opt, "xform="):
			a.Transformer = strings.TrimPrefix(opt, "xform=")
		case strings.HasPrefix(opt, "as="):
			a.As = strings.TrimPrefix(opt, "as=")
		case opt == "":
		default:
			return FieldAnnotation{}, true, fmt.Errorf("unknown option %q in tag %q", opt, raw)
		}
	}
	return a, true, nil
}

// mergeField overlays a tag annotation on a profile annotation,
// attribute by attribute. A skip from either source is kept.
func mergeField(tag, prof FieldAnnotation) FieldAnnotation {
	out := prof
	if tag.Skip {
		out.Skip = true
	}
	if tag.Rename != "" {
		out.Rename = tag.Rename
	}
	if tag.Transformer != "" {
		out.Transformer = tag.Transformer
	}
	if tag.As != "" {
		out.As = tag.As
	}
	return out
}

// asTypes maps the `as=` keywords to their scalar types.
var asTypes = map[string]reflect.Type{
	"bool":    reflect.TypeOf(false),
	"string":  reflect.TypeOf(""),
	"int":     reflect.TypeOf(int(0)),
	"int8":    reflect.TypeOf(int8(0)),
	"int16":   reflect.TypeOf(int16(0)),
	"int32":   reflect.TypeOf(int32(0)),
	"int64":   reflect.TypeOf(int64(0)),
	"uint":    reflect.TypeOf(uint(0)),
	"uint8":   reflect.TypeOf(uint8(0)),
	"uint16":  reflect.TypeOf(uint16(0)),
	"uint32":  reflect.TypeOf(uint32(0)),
	"uint64":  reflect.TypeOf(uint64(0)),
	"float32": reflect.TypeOf(float32(0)),
	"float64": reflect.TypeOf(float64(0)),
	"byte":    reflect.TypeOf(byte(0)),
	"rune":    reflect.TypeOf(rune(0)),
}

// scalarClass groups scalar kinds into conversion classes. Widths
// convert freely within a class; crossing classes needs a transformer.
func scalarClass(t reflect.Type) int {
	switch t.Kind() {
	case reflect.Bool:
		return 1
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return 2
	case reflect.String:
		return 3
	}
	return 0
}

// resolveAs maps an `as=` keyword to its type and checks it against
// the declared field type. Without a transformer the override must
// stay within the declared scalar's conversion class; with one, the
// keyword is only the from-generic target hint and any scalar is
// accepted.
func resolveAs(keyword string, declared reflect.Type, hasXform bool) (reflect.Type, error) {
	t, ok := asTypes[keyword]
	if !ok {
		return nil, fmt.Errorf("unknown type keyword %q", keyword)
	}
	if hasXform {
		return t, nil
	}
	d := declared
	if d.Kind() == reflect.Pointer {
		d = d.Elem()
	}
	dc := scalarClass(d)
	if dc == 0 {
		return nil, fmt.Errorf("type keyword %q on non-scalar field type %s", keyword, declared)
	}
	if dc != scalarClass(t) {
		return nil, fmt.Errorf("type keyword %q does not convert from field type %s", keyword, declared)
	}
	return t, nil
}
