package vm

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/ripley/reflectutil"
	"github.com/chazu/ripley/value"
)

// stubResolver resolves scalars immediately and looks up registered
// programs by type, standing in for the real type compiler.
type stubResolver struct {
	serialize   map[reflect.Type]*Program
	deserialize map[reflect.Type]*Program
}

func (r *stubResolver) ForValue(v any) (Resolution, error) {
	if v == nil {
		return Resolution{Value: value.None}, nil
	}
	if p, ok := r.serialize[reflect.TypeOf(v)]; ok {
		return Resolution{Program: p, Object: v}, nil
	}
	gv, err := value.FromNative(v)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Value: gv}, nil
}

func (r *stubResolver) ForTarget(target reflect.Type, in value.Value) (Resolution, error) {
	if in == nil || in.Kind() == value.KindNone {
		return Resolution{}, nil
	}
	if p, ok := r.deserialize[target]; ok {
		obj, err := reflectutil.Instantiate(target)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Program: p, Object: obj, Input: in}, nil
	}
	n, err := value.ToNative(in)
	if err != nil {
		return Resolution{}, err
	}
	conv, err := reflectutil.Convert(n, target)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Native: conv}, nil
}

type point struct {
	X int
	Y int
}

type innerRec struct {
	N int
}

type outerRec struct {
	Inner innerRec
}

func pointPrograms() (*Program, *Program) {
	fs := reflectutil.Fields(reflect.TypeOf(point{}))
	ser := &Program{
		Type:      reflect.TypeOf(point{}),
		Direction: Serialize,
		Code: []Instruction{
			{Op: OpCreateObject},
			{Op: OpPushField, Field: &fs[0]},
			{Op: OpCreateNumber},
			{Op: OpModifyObjectConstKey, Key: "X"},
			{Op: OpPushField, Field: &fs[1]},
			{Op: OpCreateNumber},
			{Op: OpModifyObjectConstKey, Key: "Y"},
		},
	}
	deser := &Program{
		Type:      reflect.TypeOf(point{}),
		Direction: Deserialize,
		Code: []Instruction{
			{Op: OpAccessObjectConstKey, Key: "X"},
			{Op: OpExtractNumber},
			{Op: OpPopField, Field: &fs[0]},
			{Op: OpAccessObjectConstKey, Key: "Y"},
			{Op: OpExtractNumber},
			{Op: OpPopField, Field: &fs[1]},
		},
	}
	return ser, deser
}

func TestSerializeStruct(t *testing.T) {
	ser, _ := pointPrograms()
	m := NewMachine(&stubResolver{
		serialize: map[reflect.Type]*Program{reflect.TypeOf(point{}): ser},
	})

	got, err := m.Serialize(point{X: 3, Y: 4})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	obj, ok := got.(*value.Object)
	if !ok {
		t.Fatalf("Serialize returned %T", got)
	}
	x, _ := obj.GetString("X")
	y, _ := obj.GetString("Y")
	if !x.Equal(value.NewNumber(3)) || !y.Equal(value.NewNumber(4)) {
		t.Errorf("serialized point = %s", obj)
	}
	if kv, _ := obj.At(0); kv.(*value.String).Value() != "X" {
		t.Error("field order not preserved in object")
	}
}

func TestDeserializeStruct(t *testing.T) {
	_, deser := pointPrograms()
	m := NewMachine(&stubResolver{
		deserialize: map[reflect.Type]*Program{reflect.TypeOf(point{}): deser},
	})

	in := value.NewObject()
	in.PutString("X", value.NewNumber(3))
	in.PutString("Y", value.NewNumber(4))

	got, err := m.Deserialize(in, reflect.TypeOf(point{}))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	p, ok := got.(*point)
	if !ok {
		t.Fatalf("Deserialize returned %T", got)
	}
	if p.X != 3 || p.Y != 4 {
		t.Errorf("deserialized point = %+v", p)
	}
}

func TestDeserializeMissingKey(t *testing.T) {
	_, deser := pointPrograms()
	m := NewMachine(&stubResolver{
		deserialize: map[reflect.Type]*Program{reflect.TypeOf(point{}): deser},
	})

	in := value.NewObject()
	in.PutString("X", value.NewNumber(3))

	got, err := m.Deserialize(in, reflect.TypeOf(point{}))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	p := got.(*point)
	if p.X != 3 || p.Y != 0 {
		t.Errorf("missing key should leave zero value, got %+v", p)
	}
}

func TestSerializeNestedCall(t *testing.T) {
	innerFs := reflectutil.Fields(reflect.TypeOf(innerRec{}))
	outerFs := reflectutil.Fields(reflect.TypeOf(outerRec{}))

	serInner := &Program{
		Type:      reflect.TypeOf(innerRec{}),
		Direction: Serialize,
		Code: []Instruction{
			{Op: OpCreateObject},
			{Op: OpPushField, Field: &innerFs[0]},
			{Op: OpCreateNumber},
			{Op: OpModifyObjectConstKey, Key: "N"},
		},
	}
	serOuter := &Program{
		Type:      reflect.TypeOf(outerRec{}),
		Direction: Serialize,
		Code: []Instruction{
			{Op: OpCreateObject},
			{Op: OpPushField, Field: &outerFs[0]},
			{Op: OpCall},
			{Op: OpModifyObjectConstKey, Key: "Inner"},
		},
	}
	m := NewMachine(&stubResolver{
		serialize: map[reflect.Type]*Program{
			reflect.TypeOf(innerRec{}): serInner,
			reflect.TypeOf(outerRec{}): serOuter,
		},
	})

	got, err := m.Serialize(outerRec{Inner: innerRec{N: 7}})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	obj := got.(*value.Object)
	iv, ok := obj.GetString("Inner")
	if !ok {
		t.Fatalf("no Inner entry in %s", obj)
	}
	n, _ := iv.(*value.Object).GetString("N")
	if !n.Equal(value.NewNumber(7)) {
		t.Errorf("nested value = %s", iv)
	}
}

func TestDeserializeNestedRestore(t *testing.T) {
	innerFs := reflectutil.Fields(reflect.TypeOf(innerRec{}))
	outerFs := reflectutil.Fields(reflect.TypeOf(outerRec{}))

	deserInner := &Program{
		Type:      reflect.TypeOf(innerRec{}),
		Direction: Deserialize,
		Code: []Instruction{
			{Op: OpAccessObjectConstKey, Key: "N"},
			{Op: OpExtractNumber},
			{Op: OpPopField, Field: &innerFs[0]},
		},
	}
	deserOuter := &Program{
		Type:      reflect.TypeOf(outerRec{}),
		Direction: Deserialize,
		Code: []Instruction{
			{Op: OpAccessObjectConstKey, Key: "Inner"},
			{Op: OpRestore, Type: reflect.TypeOf(innerRec{})},
			{Op: OpPopField, Field: &outerFs[0]},
		},
	}
	m := NewMachine(&stubResolver{
		deserialize: map[reflect.Type]*Program{
			reflect.TypeOf(innerRec{}): deserInner,
			reflect.TypeOf(outerRec{}): deserOuter,
		},
	})

	in := value.NewObject()
	innerObj := value.NewObject()
	innerObj.PutString("N", value.NewNumber(7))
	in.PutString("Inner", innerObj)

	got, err := m.Deserialize(in, reflect.TypeOf(outerRec{}))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	o := got.(*outerRec)
	if o.Inner.N != 7 {
		t.Errorf("nested restore = %+v", o)
	}
}

func TestCallImmediateScalar(t *testing.T) {
	type wrap struct{ V int }
	fs := reflectutil.Fields(reflect.TypeOf(wrap{}))
	ser := &Program{
		Type:      reflect.TypeOf(wrap{}),
		Direction: Serialize,
		Code: []Instruction{
			{Op: OpCreateObject},
			{Op: OpPushField, Field: &fs[0]},
			{Op: OpCall},
			{Op: OpModifyObjectConstKey, Key: "V"},
		},
	}
	m := NewMachine(&stubResolver{
		serialize: map[reflect.Type]*Program{reflect.TypeOf(wrap{}): ser},
	})

	got, err := m.Serialize(wrap{V: 9})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	v, _ := got.(*value.Object).GetString("V")
	if !v.Equal(value.NewNumber(9)) {
		t.Errorf("immediate scalar = %s", v)
	}
}

func TestSerializeArrayProgram(t *testing.T) {
	prog := &Program{
		Type:      reflect.TypeOf([]string{}),
		Direction: Serialize,
		Code: []Instruction{
			{Op: OpCreateArray, Index: 2},
			{Op: OpPushConst, Const: 0},
			{Op: OpPushConst, Const: "a"},
			{Op: OpCreateString},
			{Op: OpModifyArray},
			{Op: OpPushConst, Const: 1},
			{Op: OpPushConst, Const: "b"},
			{Op: OpCreateString},
			{Op: OpModifyArray},
		},
	}
	m := NewMachine(&stubResolver{
		serialize: map[reflect.Type]*Program{reflect.TypeOf([]string{}): prog},
	})

	got, err := m.Serialize([]string{"a", "b"})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := value.NewArray(2)
	want.Set(0, value.NewString("a"))
	want.Set(1, value.NewString("b"))
	if !got.Equal(want) {
		t.Errorf("array = %s, want %s", got, want)
	}
}

type suffixXform struct{}

func (suffixXform) ToGeneric(v any) (value.Value, error) {
	return value.NewString(v.(string) + "!"), nil
}

func (suffixXform) FromGeneric(v value.Value, target reflect.Type) (any, error) {
	return strings.TrimSuffix(v.(*value.String).Value(), "!"), nil
}

func TestTransformRoundTrip(t *testing.T) {
	type note struct{ S string }
	fs := reflectutil.Fields(reflect.TypeOf(note{}))
	ser := &Program{
		Type:      reflect.TypeOf(note{}),
		Direction: Serialize,
		Code: []Instruction{
			{Op: OpCreateObject},
			{Op: OpPushField, Field: &fs[0]},
			{Op: OpTransform, Xform: suffixXform{}},
			{Op: OpModifyObjectConstKey, Key: "S"},
		},
	}
	deser := &Program{
		Type:      reflect.TypeOf(note{}),
		Direction: Deserialize,
		Code: []Instruction{
			{Op: OpAccessObjectConstKey, Key: "S"},
			{Op: OpUntransform, Xform: suffixXform{}, Type: reflect.TypeOf("")},
			{Op: OpPopField, Field: &fs[0]},
		},
	}
	m := NewMachine(&stubResolver{
		serialize:   map[reflect.Type]*Program{reflect.TypeOf(note{}): ser},
		deserialize: map[reflect.Type]*Program{reflect.TypeOf(note{}): deser},
	})

	gv, err := m.Serialize(note{S: "hey"})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	s, _ := gv.(*value.Object).GetString("S")
	if s.(*value.String).Value() != "hey!" {
		t.Errorf("transformed = %s", s)
	}

	back, err := m.Deserialize(gv, reflect.TypeOf(note{}))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if back.(*note).S != "hey" {
		t.Errorf("untransformed = %+v", back)
	}
}

func TestMalformedUnderflow(t *testing.T) {
	prog := &Program{
		Type:      reflect.TypeOf(point{}),
		Direction: Serialize,
		Code:      []Instruction{{Op: OpCreateNumber}},
	}
	m := NewMachine(&stubResolver{
		serialize: map[reflect.Type]*Program{reflect.TypeOf(point{}): prog},
	})

	_, err := m.Serialize(point{})
	var mpe *MalformedProgramError
	if !errors.As(err, &mpe) {
		t.Fatalf("err = %v, want MalformedProgramError", err)
	}
	if mpe.Op != OpCreateNumber {
		t.Errorf("error op = %s", mpe.Op)
	}
}

func TestMalformedTerminalShape(t *testing.T) {
	prog := &Program{
		Type:      reflect.TypeOf(point{}),
		Direction: Serialize,
		Code:      []Instruction{{Op: OpCreateObject}, {Op: OpCreateObject}},
	}
	m := NewMachine(&stubResolver{
		serialize: map[reflect.Type]*Program{reflect.TypeOf(point{}): prog},
	})

	_, err := m.Serialize(point{})
	var mpe *MalformedProgramError
	if !errors.As(err, &mpe) {
		t.Fatalf("err = %v, want MalformedProgramError", err)
	}
	if !strings.Contains(mpe.Detail, "terminal") {
		t.Errorf("detail = %q", mpe.Detail)
	}
}

func TestMalformedWrongContainer(t *testing.T) {
	prog := &Program{
		Type:      reflect.TypeOf(point{}),
		Direction: Serialize,
		Code: []Instruction{
			{Op: OpPushConst, Const: 1},
			{Op: OpCreateNumber},
			{Op: OpPushConst, Const: 2},
			{Op: OpCreateNumber},
			{Op: OpModifyObjectConstKey, Key: "k"},
		},
	}
	m := NewMachine(&stubResolver{
		serialize: map[reflect.Type]*Program{reflect.TypeOf(point{}): prog},
	})

	_, err := m.Serialize(point{})
	var mpe *MalformedProgramError
	if !errors.As(err, &mpe) {
		t.Fatalf("err = %v, want MalformedProgramError", err)
	}
	if mpe.Op != OpModifyObjectConstKey {
		t.Errorf("error op = %s", mpe.Op)
	}
}

func TestMalformedUnknownOpcode(t *testing.T) {
	prog := &Program{
		Type:      reflect.TypeOf(point{}),
		Direction: Serialize,
		Code:      []Instruction{{Op: Opcode(0xEE)}},
	}
	m := NewMachine(&stubResolver{
		serialize: map[reflect.Type]*Program{reflect.TypeOf(point{}): prog},
	})

	_, err := m.Serialize(point{})
	var mpe *MalformedProgramError
	if !errors.As(err, &mpe) {
		t.Fatalf("err = %v, want MalformedProgramError", err)
	}
}

func TestAccessArrayBounds(t *testing.T) {
	prog := &Program{
		Type:      reflect.TypeOf(point{}),
		Direction: Deserialize,
		Code:      []Instruction{{Op: OpAccessArrayConstIndex, Index: 5}},
	}
	m := NewMachine(&stubResolver{
		deserialize: map[reflect.Type]*Program{reflect.TypeOf(point{}): prog},
	})

	in := value.NewArray(2)
	_, err := m.Deserialize(in, reflect.TypeOf(point{}))
	var oob *value.IndexOutOfRangeError
	if !errors.As(err, &oob) {
		t.Fatalf("err = %v, want IndexOutOfRangeError", err)
	}
	if oob.Index != 5 || oob.Len != 2 {
		t.Errorf("bounds error = %+v", oob)
	}
}

// loopResolver always resolves to the same program, so every OpCall
// spawns another frame.
type loopResolver struct {
	prog *Program
}

func (r *loopResolver) ForValue(v any) (Resolution, error) {
	return Resolution{Program: r.prog, Object: v}, nil
}

func (r *loopResolver) ForTarget(target reflect.Type, in value.Value) (Resolution, error) {
	return Resolution{}, errors.New("not used")
}

func TestDepthExceeded(t *testing.T) {
	prog := &Program{
		Type:      reflect.TypeOf(0),
		Direction: Serialize,
		Code: []Instruction{
			{Op: OpPushConst, Const: 1},
			{Op: OpCall},
		},
	}
	m := NewMachine(&loopResolver{prog: prog}, WithMaxDepth(8))

	_, err := m.Serialize(1)
	var dee *DepthExceededError
	if !errors.As(err, &dee) {
		t.Fatalf("err = %v, want DepthExceededError", err)
	}
	if dee.Depth != 8 {
		t.Errorf("depth = %d, want 8", dee.Depth)
	}
}

// nilObjectResolver hands out a frame with no object behind it.
type nilObjectResolver struct {
	prog *Program
}

func (r *nilObjectResolver) ForValue(v any) (Resolution, error) {
	return Resolution{Program: r.prog}, nil
}

func (r *nilObjectResolver) ForTarget(target reflect.Type, in value.Value) (Resolution, error) {
	return Resolution{}, errors.New("not used")
}

func TestFieldAccessErrorPropagates(t *testing.T) {
	fs := reflectutil.Fields(reflect.TypeOf(point{}))
	prog := &Program{
		Type:      reflect.TypeOf(point{}),
		Direction: Serialize,
		Code: []Instruction{
			{Op: OpCreateObject},
			{Op: OpPushField, Field: &fs[0]},
		},
	}
	m := NewMachine(&nilObjectResolver{prog: prog})

	_, err := m.Serialize(point{X: 1})
	var fae *reflectutil.FieldAccessError
	if !errors.As(err, &fae) {
		t.Fatalf("err = %v, want FieldAccessError", err)
	}
}

func TestSerializeImmediateRoot(t *testing.T) {
	m := NewMachine(&stubResolver{})
	got, err := m.Serialize(42)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !got.Equal(value.NewNumber(42)) {
		t.Errorf("immediate root = %s", got)
	}

	got, err = m.Serialize(nil)
	if err != nil || got.Kind() != value.KindNone {
		t.Errorf("Serialize(nil) = %v, %v", got, err)
	}
}

func TestConcurrentSerialize(t *testing.T) {
	ser, _ := pointPrograms()
	m := NewMachine(&stubResolver{
		serialize: map[reflect.Type]*Program{reflect.TypeOf(point{}): ser},
	})

	done := make(chan error, 16)
	for i := 0; i < 16; i++ {
		go func(n int) {
			v, err := m.Serialize(point{X: n, Y: -n})
			if err == nil {
				x, _ := v.(*value.Object).GetString("X")
				if !x.Equal(value.NewNumber(n)) {
					err = errors.New("wrong X")
				}
			}
			done <- err
		}(i)
	}
	for i := 0; i < 16; i++ {
		if err := <-done; err != nil {
			t.Fatal(err)
		}
	}
}

func TestDisassemble(t *testing.T) {
	ser, _ := pointPrograms()
	out := ser.Disassemble()

	if !strings.HasPrefix(out, "; === vm.point / serialize ===") {
		t.Errorf("header = %q", strings.SplitN(out, "\n", 2)[0])
	}
	for _, want := range []string{"CREATE_OBJECT", "PUSH_FIELD", "CREATE_NUMBER", `MODIFY_OBJECT_K  "X"`} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
	lines := strings.Count(out, "\n")
	if lines != len(ser.Code)+2 {
		t.Errorf("disassembly has %d lines, want %d", lines, len(ser.Code)+2)
	}
}

func TestDirectionString(t *testing.T) {
	if Serialize.String() != "serialize" || Deserialize.String() != "deserialize" {
		t.Error("direction names wrong")
	}
	if Direction(9).String() != "unknown" {
		t.Error("unknown direction name wrong")
	}
}
