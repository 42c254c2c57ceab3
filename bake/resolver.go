package bake

import (
	"fmt"
	"reflect"

	"github.com/chazu/ripley/reflectutil"
	"github.com/chazu/ripley/transform"
	"github.com/chazu/ripley/value"
	"github.com/chazu/ripley/vm"
)

var valueInterface = reflect.TypeOf((*value.Value)(nil)).Elem()

// ---------------------------------------------------------------------------
// Machine resolution
// ---------------------------------------------------------------------------

// ForValue resolves the serialize-direction handling of one native
// value: an immediate generic value where no traversal is needed, or
// a program plus the object it runs against. Implements vm.Resolver.
func (b *Baker) ForValue(v any) (vm.Resolution, error) {
	if v == nil {
		return vm.Resolution{Value: value.None}, nil
	}
	if gv, ok := v.(value.Value); ok {
		return vm.Resolution{Value: gv.Clone()}, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return vm.Resolution{Value: value.None}, nil
		}
		rv = rv.Elem()
	}
	t := rv.Type()
	switch {
	case t.Kind() == reflect.Struct:
		bt, err := b.Bake(t)
		if err != nil {
			return vm.Resolution{}, err
		}
		if len(bt.chain) > 0 {
			gv, err := applyChain(bt.chain, v)
			if err != nil {
				return vm.Resolution{}, err
			}
			return vm.Resolution{Value: gv}, nil
		}
		return vm.Resolution{Program: bt.ser, Object: v}, nil

	case reflectutil.IsScalar(t):
		gv, err := value.FromNative(rv.Interface())
		if err != nil {
			return vm.Resolution{}, err
		}
		return vm.Resolution{Value: gv}, nil

	case t.Kind() == reflect.Slice:
		if rv.IsNil() {
			return vm.Resolution{Value: value.None}, nil
		}
		return vm.Resolution{Program: emitSliceSerialize(rv), Object: rv.Interface()}, nil

	case t.Kind() == reflect.Array:
		return vm.Resolution{Program: emitArraySerialize(rv), Object: rv.Interface()}, nil

	case t.Kind() == reflect.Map:
		if rv.IsNil() {
			return vm.Resolution{Value: value.None}, nil
		}
		p, err := emitMapSerialize(rv)
		if err != nil {
			return vm.Resolution{}, err
		}
		return vm.Resolution{Program: p, Object: rv.Interface()}, nil
	}
	return vm.Resolution{}, &value.TypeNotAllowedError{Type: t, Reason: "no serialized form"}
}

// ForTarget resolves the deserialize-direction handling of one input
// value against a target type: an immediate native, or a program plus
// the fresh instance it fills. Implements vm.Resolver.
func (b *Baker) ForTarget(target reflect.Type, in value.Value) (vm.Resolution, error) {
	if target == nil {
		return vm.Resolution{}, &value.TypeNotAllowedError{Reason: "no deserialize target"}
	}
	if in == nil || in.Kind() == value.KindNone {
		return vm.Resolution{Native: nil}, nil
	}
	if target.Implements(valueInterface) {
		return vm.Resolution{Native: in.Clone()}, nil
	}
	t := target
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t.Kind() == reflect.Struct:
		bt, err := b.Bake(t)
		if err != nil {
			return vm.Resolution{}, err
		}
		if len(bt.chain) > 0 {
			n, err := unchain(bt.chain, in, target)
			if err != nil {
				return vm.Resolution{}, err
			}
			return vm.Resolution{Native: n}, nil
		}
		obj, ok := in.(*value.Object)
		if !ok {
			return vm.Resolution{}, &value.TypeNotAllowedError{Type: t, Reason: fmt.Sprintf("expected object value, got %s", in.Kind())}
		}
		inst, err := reflectutil.Instantiate(t)
		if err != nil {
			return vm.Resolution{}, err
		}
		return vm.Resolution{Program: bt.deser, Object: inst, Input: obj}, nil

	case reflectutil.IsScalar(t):
		n, err := value.ToNative(in)
		if err != nil {
			return vm.Resolution{}, err
		}
		conv, err := reflectutil.Convert(n, target)
		if err != nil {
			return vm.Resolution{}, err
		}
		return vm.Resolution{Native: conv}, nil

	case t.Kind() == reflect.Slice:
		arr, ok := in.(*value.Array)
		if !ok {
			return vm.Resolution{}, &value.TypeNotAllowedError{Type: t, Reason: fmt.Sprintf("expected array value, got %s", in.Kind())}
		}
		inst := reflectutil.MakeSlice(t, arr.Len())
		if arr.Len() == 0 {
			return vm.Resolution{Native: inst}, nil
		}
		return vm.Resolution{Program: emitSliceDeserialize(t, arr.Len()), Object: inst, Input: arr}, nil

	case t.Kind() == reflect.Array:
		arr, ok := in.(*value.Array)
		if !ok {
			return vm.Resolution{}, &value.TypeNotAllowedError{Type: t, Reason: fmt.Sprintf("expected array value, got %s", in.Kind())}
		}
		inst := reflectutil.NewArray(t)
		if arr.Len() == 0 {
			return vm.Resolution{Native: inst}, nil
		}
		return vm.Resolution{Program: emitArrayDeserialize(t, arr.Len()), Object: inst, Input: arr}, nil

	case t.Kind() == reflect.Map:
		obj, ok := in.(*value.Object)
		if !ok {
			return vm.Resolution{}, &value.TypeNotAllowedError{Type: t, Reason: fmt.Sprintf("expected object value, got %s", in.Kind())}
		}
		inst := reflectutil.MakeMap(t)
		if obj.Len() == 0 {
			return vm.Resolution{Native: inst}, nil
		}
		p, err := emitMapDeserialize(t, obj)
		if err != nil {
			return vm.Resolution{}, err
		}
		return vm.Resolution{Program: p, Object: inst, Input: obj}, nil

	case t.Kind() == reflect.Interface:
		if t.NumMethod() == 0 {
			n, err := value.ToNative(in)
			if err != nil {
				return vm.Resolution{}, err
			}
			return vm.Resolution{Native: n}, nil
		}
		return vm.Resolution{}, &reflectutil.NotInstantiableError{Type: t, Reason: "interface type has no concrete shape"}
	}
	return vm.Resolution{}, &value.TypeNotAllowedError{Type: t, Reason: "no deserialized form"}
}

// applyChain folds a class-level transformer chain over a native,
// each link receiving the previous link's generic output.
func applyChain(chain []transform.Transformer, v any) (value.Value, error) {
	cur := v
	for _, x := range chain {
		gv, err := x.ToGeneric(cur)
		if err != nil {
			return nil, err
		}
		if gv == nil {
			gv = value.None
		}
		cur = gv
	}
	if out, ok := cur.(value.Value); ok {
		return out, nil
	}
	return value.FromNative(cur)
}

// unchain reverses a class-level transformer chain over a generic
// value, coercing intermediate natives back to generic form between
// links, and converts the final native to the target type.
func unchain(chain []transform.Transformer, in value.Value, target reflect.Type) (any, error) {
	var cur any
	gv := in
	for i := len(chain) - 1; i >= 0; i-- {
		n, err := chain[i].FromGeneric(gv, target)
		if err != nil {
			return nil, err
		}
		cur = n
		if i > 0 {
			gv, err = value.FromNative(n)
			if err != nil {
				return nil, err
			}
		}
	}
	return reflectutil.Convert(cur, target)
}
