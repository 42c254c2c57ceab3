package bake

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/chazu/ripley/reflectutil"
	"github.com/chazu/ripley/value"
	"github.com/chazu/ripley/vm"
)

// ---------------------------------------------------------------------------
// Struct programs: compiled once per type at bake time
// ---------------------------------------------------------------------------

// emitSerialize compiles the serialize program for a baked type: one
// field read plus wrap step per property, populating a single result
// Object under constant keys.
func emitSerialize(bt *BakedType) *vm.Program {
	pb := vm.NewProgramBuilder(bt.typ, vm.Serialize)
	pb.Emit(vm.OpCreateObject)
	for i := range bt.props {
		p := &bt.props[i]
		pb.EmitField(vm.OpPushField, p.Field)
		switch {
		case p.Xform != nil:
			pb.EmitXform(vm.OpTransform, p.Xform)
		case reflectutil.IsScalar(p.Field.Type):
			// Plain scalars wrap directly; pointer fields go
			// through Call so nil maps to None.
			op := scalarCreateOp(p.Type)
			if p.Type != p.Field.Type {
				pb.EmitType(op, p.Type)
			} else {
				pb.Emit(op)
			}
		default:
			pb.Emit(vm.OpCall)
		}
		pb.EmitKey(vm.OpModifyObjectConstKey, p.Name)
	}
	return pb.Build()
}

// emitDeserialize compiles the deserialize program: the exact dual of
// emitSerialize, navigating the input Object and writing fields back.
func emitDeserialize(bt *BakedType) *vm.Program {
	pb := vm.NewProgramBuilder(bt.typ, vm.Deserialize)
	for i := range bt.props {
		p := &bt.props[i]
		pb.EmitKey(vm.OpAccessObjectConstKey, p.Name)
		switch {
		case p.Xform != nil:
			pb.EmitUntransform(p.Xform, p.Type)
		case reflectutil.IsScalar(p.Field.Type):
			pb.Emit(scalarExtractOp(p.Type))
		default:
			pb.EmitType(vm.OpRestore, p.Field.Type)
		}
		pb.EmitField(vm.OpPopField, p.Field)
	}
	return pb.Build()
}

// scalarCreateOp selects the Create opcode for a scalar type. The
// caller guarantees t is scalar; every non-bool non-string scalar
// kind is numeric.
func scalarCreateOp(t reflect.Type) vm.Opcode {
	switch t.Kind() {
	case reflect.Bool:
		return vm.OpCreateBool
	case reflect.String:
		return vm.OpCreateString
	default:
		return vm.OpCreateNumber
	}
}

// scalarExtractOp selects the Extract opcode for a scalar type.
func scalarExtractOp(t reflect.Type) vm.Opcode {
	switch t.Kind() {
	case reflect.Bool:
		return vm.OpExtractBool
	case reflect.String:
		return vm.OpExtractString
	default:
		return vm.OpExtractNumber
	}
}

// ---------------------------------------------------------------------------
// Instance programs: containers compiled per value at resolution time
// ---------------------------------------------------------------------------

// emitSliceSerialize compiles a program for one slice value. Length
// is instance data, so slice programs cannot be cached per type;
// element indices travel through the scratch stack.
func emitSliceSerialize(rv reflect.Value) *vm.Program {
	pb := vm.NewProgramBuilder(rv.Type(), vm.Serialize)
	pb.EmitIndex(vm.OpCreateArray, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		pb.EmitConst(vm.OpPushConst, i)
		emitElementSerialize(pb, rv.Index(i))
		pb.Emit(vm.OpModifyArray)
	}
	return pb.Build()
}

// emitArraySerialize compiles a program for one fixed-size array
// value, addressing elements with constant indices.
func emitArraySerialize(rv reflect.Value) *vm.Program {
	pb := vm.NewProgramBuilder(rv.Type(), vm.Serialize)
	pb.EmitIndex(vm.OpCreateArray, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		emitElementSerialize(pb, rv.Index(i))
		pb.EmitIndex(vm.OpModifyArrayConstIndex, i)
	}
	return pb.Build()
}

// emitMapSerialize compiles a program for one map value. Keys are
// emitted in sorted order so equal maps produce equal trees.
func emitMapSerialize(rv reflect.Value) (*vm.Program, error) {
	if err := checkMapKeyType(rv.Type()); err != nil {
		return nil, err
	}
	keys := rv.MapKeys()
	sortKeys(keys)
	pb := vm.NewProgramBuilder(rv.Type(), vm.Serialize)
	pb.Emit(vm.OpCreateObject)
	for _, k := range keys {
		pb.EmitConst(vm.OpPushConst, k.Interface())
		pb.Emit(scalarCreateOp(k.Type()))
		emitElementSerialize(pb, rv.MapIndex(k))
		pb.Emit(vm.OpModifyObject)
	}
	return pb.Build(), nil
}

// emitElementSerialize appends the instructions that leave one
// element's generic value on the result stack. The element itself is
// baked into the program as a constant.
func emitElementSerialize(pb *vm.ProgramBuilder, ev reflect.Value) {
	pb.EmitConst(vm.OpPushConst, ev.Interface())
	if reflectutil.IsScalar(ev.Type()) {
		pb.Emit(scalarCreateOp(ev.Type()))
		return
	}
	pb.Emit(vm.OpCall)
}

// emitSliceDeserialize compiles a program that fills a slice of
// length n from an input array, indices through the scratch stack.
func emitSliceDeserialize(t reflect.Type, n int) *vm.Program {
	et := t.Elem()
	pb := vm.NewProgramBuilder(t, vm.Deserialize)
	for i := 0; i < n; i++ {
		pb.EmitConst(vm.OpPushConst, i)
		pb.Emit(vm.OpAccessArray)
		emitElementDeserialize(pb, et)
		pb.EmitIndex(vm.OpPopElement, i)
	}
	return pb.Build()
}

// emitArrayDeserialize compiles a program that fills a fixed-size
// array from an input array of length n. Input longer than the
// target fails at the out-of-range element; shorter leaves zeros.
func emitArrayDeserialize(t reflect.Type, n int) *vm.Program {
	et := t.Elem()
	pb := vm.NewProgramBuilder(t, vm.Deserialize)
	for i := 0; i < n; i++ {
		pb.EmitIndex(vm.OpAccessArrayConstIndex, i)
		emitElementDeserialize(pb, et)
		pb.EmitIndex(vm.OpPopElement, i)
	}
	return pb.Build()
}

// emitMapDeserialize compiles a program that fills a map from an
// input object. Entry keys are baked in as constants and rebuilt
// on the result stack to navigate the input; values are extracted
// at run time.
func emitMapDeserialize(t reflect.Type, in *value.Object) (*vm.Program, error) {
	if err := checkMapKeyType(t); err != nil {
		return nil, err
	}
	et := t.Elem()
	pb := vm.NewProgramBuilder(t, vm.Deserialize)
	for i := 0; i < in.Len(); i++ {
		kv, _ := in.At(i)
		var op vm.Opcode
		switch kv.Kind() {
		case value.KindBool:
			op = vm.OpCreateBool
		case value.KindNumber:
			op = vm.OpCreateNumber
		case value.KindString:
			op = vm.OpCreateString
		default:
			return nil, &value.TypeNotAllowedError{Type: reflect.TypeOf(kv), Reason: fmt.Sprintf("%s key has no native map form", kv.Kind())}
		}
		kn, err := value.ToNative(kv)
		if err != nil {
			return nil, err
		}
		pb.EmitConst(vm.OpPushConst, kn)
		pb.Emit(op)
		pb.Emit(vm.OpAccessObject)
		pb.EmitConst(vm.OpPushConst, kn)
		emitElementDeserialize(pb, et)
		pb.Emit(vm.OpPopEntry)
	}
	return pb.Build(), nil
}

// emitElementDeserialize appends the step that moves one element from
// the result stack to the scratch stack as a native.
func emitElementDeserialize(pb *vm.ProgramBuilder, et reflect.Type) {
	if reflectutil.IsScalar(et) {
		pb.Emit(scalarExtractOp(et))
		return
	}
	pb.EmitType(vm.OpRestore, et)
}

// checkMapKeyType enforces scalar map keys. A container or interface
// key has no defined object-key form on the wire, in either
// direction.
func checkMapKeyType(t reflect.Type) error {
	if scalarClass(t.Key()) == 0 {
		return &value.TypeNotAllowedError{Type: t.Key(), Reason: "map key kind must be scalar"}
	}
	return nil
}

// sortKeys orders map keys by value within their kind. Keys of one
// map share a kind, so no cross-kind ordering is needed.
func sortKeys(keys []reflect.Value) {
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
}

func keyLess(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Bool:
		return !a.Bool() && b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() < b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return a.Uint() < b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() < b.Float()
	default:
		return a.String() < b.String()
	}
}
