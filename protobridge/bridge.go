// Package protobridge converts generic value trees to and from
// protobuf dynamic messages, so serialized objects can cross process
// boundaries as proto payloads without generated bindings. Schemas
// are resolved at run time from .proto sources.
//
// Object keys bind to fields by name. Keys with no matching field are
// skipped, as are None entries; absent fields come back as missing
// keys, not None. Enum fields carry their value name as a string when
// the number is known to the schema.
package protobridge

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/chazu/ripley/value"
)

// ---------------------------------------------------------------------------
// Schema loading
// ---------------------------------------------------------------------------

// ParseSchema parses in-memory .proto sources keyed by import path and
// returns the descriptor of the root file.
func ParseSchema(files map[string]string, root string) (*desc.FileDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(files),
	}
	fds, err := parser.ParseFiles(root)
	if err != nil {
		return nil, fmt.Errorf("protobridge: parse %s: %w", root, err)
	}
	return fds[0], nil
}

// LoadSchema parses a .proto file from disk, resolving imports against
// the given paths.
func LoadSchema(filename string, importPaths ...string) (*desc.FileDescriptor, error) {
	parser := protoparse.Parser{ImportPaths: importPaths}
	fds, err := parser.ParseFiles(filename)
	if err != nil {
		return nil, fmt.Errorf("protobridge: parse %s: %w", filename, err)
	}
	return fds[0], nil
}

// ---------------------------------------------------------------------------
// Tree to message
// ---------------------------------------------------------------------------

// ToMessage builds a dynamic message described by md from an object
// tree.
func ToMessage(obj *value.Object, md *desc.MessageDescriptor) (*dynamic.Message, error) {
	msg := dynamic.NewMessage(md)
	for i := 0; i < obj.Len(); i++ {
		k, v := obj.At(i)
		ks, ok := k.(*value.String)
		if !ok {
			continue
		}
		field := md.FindFieldByName(ks.Value())
		if field == nil {
			continue
		}
		if v.Kind() == value.KindNone {
			continue
		}
		if field.IsMap() {
			if err := putMapField(msg, field, v); err != nil {
				return nil, fmt.Errorf("protobridge: field %s: %w", ks.Value(), err)
			}
			continue
		}
		fv, err := valueToField(v, field)
		if err != nil {
			return nil, fmt.Errorf("protobridge: field %s: %w", ks.Value(), err)
		}
		if err := msg.TrySetField(field, fv); err != nil {
			return nil, fmt.Errorf("protobridge: setting field %s: %w", ks.Value(), err)
		}
	}
	return msg, nil
}

// Marshal renders an object tree as a binary proto payload of message
// type md.
func Marshal(obj *value.Object, md *desc.MessageDescriptor) ([]byte, error) {
	msg, err := ToMessage(obj, md)
	if err != nil {
		return nil, err
	}
	return msg.Marshal()
}

func valueToField(v value.Value, field *desc.FieldDescriptor) (any, error) {
	if field.IsRepeated() {
		arr, ok := v.(*value.Array)
		if !ok {
			return nil, fmt.Errorf("expected array for repeated field, got %s", v.Kind())
		}
		out := make([]any, arr.Len())
		for i := 0; i < arr.Len(); i++ {
			ev, err := elementToField(arr.Get(i), field)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	}
	return elementToField(v, field)
}

// elementToField converts one tree value to a single proto field
// value, with repeatedness already peeled off by the caller.
func elementToField(v value.Value, field *desc.FieldDescriptor) (any, error) {
	switch field.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_INT32,
		descriptorpb.FieldDescriptorProto_TYPE_SINT32,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		if n, ok := v.(*value.Number); ok {
			if i, ok := n.Int64(); ok {
				return int32(i), nil
			}
		}
	case descriptorpb.FieldDescriptorProto_TYPE_INT64,
		descriptorpb.FieldDescriptorProto_TYPE_SINT64,
		descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		if n, ok := v.(*value.Number); ok {
			if i, ok := n.Int64(); ok {
				return i, nil
			}
		}
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		if n, ok := v.(*value.Number); ok {
			if u, ok := n.Uint64(); ok {
				return uint32(u), nil
			}
		}
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64,
		descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		if n, ok := v.(*value.Number); ok {
			if u, ok := n.Uint64(); ok {
				return u, nil
			}
		}
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		if n, ok := v.(*value.Number); ok {
			return float32(n.Float64()), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		if n, ok := v.(*value.Number); ok {
			return n.Float64(), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		if b, ok := v.(*value.Bool); ok {
			return b.Value(), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		if s, ok := v.(*value.String); ok {
			return s.Value(), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		if s, ok := v.(*value.String); ok {
			return []byte(s.Value()), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		if o, ok := v.(*value.Object); ok {
			return ToMessage(o, field.GetMessageType())
		}
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		switch n := v.(type) {
		case *value.Number:
			if i, ok := n.Int64(); ok {
				return int32(i), nil
			}
		case *value.String:
			if ev := field.GetEnumType().FindValueByName(n.Value()); ev != nil {
				return ev.GetNumber(), nil
			}
			return nil, fmt.Errorf("unknown enum value %q", n.Value())
		}
	}
	return nil, fmt.Errorf("cannot convert %s value to proto type %v", v.Kind(), field.GetType())
}

func putMapField(msg *dynamic.Message, field *desc.FieldDescriptor, v value.Value) error {
	obj, ok := v.(*value.Object)
	if !ok {
		return fmt.Errorf("expected object for map field, got %s", v.Kind())
	}
	keyField := field.GetMapKeyType()
	valField := field.GetMapValueType()
	for i := 0; i < obj.Len(); i++ {
		k, e := obj.At(i)
		kc, err := elementToField(k, keyField)
		if err != nil {
			return fmt.Errorf("map key %s: %w", k, err)
		}
		vc, err := elementToField(e, valField)
		if err != nil {
			return fmt.Errorf("map value for key %s: %w", k, err)
		}
		if err := msg.TryPutMapField(field, kc, vc); err != nil {
			return fmt.Errorf("putting map entry %s: %w", k, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Message to tree
// ---------------------------------------------------------------------------

// FromMessage converts a dynamic message into an object tree. Fields
// appear in schema declaration order; unset fields are omitted.
func FromMessage(msg *dynamic.Message) (*value.Object, error) {
	obj := value.NewObject()
	for _, field := range msg.GetKnownFields() {
		if !msg.HasField(field) {
			continue
		}
		fv := msg.GetField(field)
		gv, err := fieldToValue(fv, field)
		if err != nil {
			return nil, fmt.Errorf("protobridge: field %s: %w", field.GetName(), err)
		}
		obj.PutString(field.GetName(), gv)
	}
	return obj, nil
}

// Unmarshal parses a binary proto payload of message type md into an
// object tree.
func Unmarshal(data []byte, md *desc.MessageDescriptor) (*value.Object, error) {
	msg := dynamic.NewMessage(md)
	if err := msg.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("protobridge: unmarshal %s: %w", md.GetFullyQualifiedName(), err)
	}
	return FromMessage(msg)
}

func fieldToValue(fv any, field *desc.FieldDescriptor) (value.Value, error) {
	if field.IsMap() {
		m, ok := fv.(map[any]any)
		if !ok {
			return nil, fmt.Errorf("expected map, got %T", fv)
		}
		return mapToValue(m, field)
	}
	if field.IsRepeated() {
		slice := reflect.ValueOf(fv)
		if slice.Kind() != reflect.Slice {
			return nil, fmt.Errorf("expected slice, got %T", fv)
		}
		arr := value.NewArray(slice.Len())
		for i := 0; i < slice.Len(); i++ {
			ev, err := elementToValue(slice.Index(i).Interface(), field)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			arr.Set(i, ev)
		}
		return arr, nil
	}
	return elementToValue(fv, field)
}

func elementToValue(fv any, field *desc.FieldDescriptor) (value.Value, error) {
	switch field.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		msg, ok := fv.(*dynamic.Message)
		if !ok {
			return nil, fmt.Errorf("expected message, got %T", fv)
		}
		return FromMessage(msg)
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		num, ok := fv.(int32)
		if !ok {
			return nil, fmt.Errorf("expected enum number, got %T", fv)
		}
		if ev := field.GetEnumType().FindValueByNumber(num); ev != nil {
			return value.NewString(ev.GetName()), nil
		}
		return value.NewNumber(num), nil
	}
	// Scalar natives, including []byte, go through the value model's
	// own conversion.
	return value.FromNative(fv)
}

// mapToValue converts a proto map field to an object, entries sorted
// by key for determinism since Go map order is random.
func mapToValue(m map[any]any, field *desc.FieldDescriptor) (value.Value, error) {
	valField := field.GetMapValueType()
	type entry struct {
		key value.Value
		val value.Value
	}
	entries := make([]entry, 0, len(m))
	for mk, mv := range m {
		kv, err := value.FromNative(mk)
		if err != nil {
			return nil, fmt.Errorf("map key: %w", err)
		}
		vv, err := elementToValue(mv, valField)
		if err != nil {
			return nil, fmt.Errorf("map value for key %s: %w", kv, err)
		}
		entries = append(entries, entry{key: kv, val: vv})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].key.String() < entries[j].key.String()
	})
	obj := value.NewObject()
	for _, e := range entries {
		obj.Put(e.key, e.val)
	}
	return obj, nil
}
