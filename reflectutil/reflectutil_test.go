package reflectutil

import (
	"errors"
	"reflect"
	"testing"

	"github.com/chazu/ripley/value"
)

type testBase struct {
	A int
	B string
}

type testDerived struct {
	testBase
	C float64
}

type testShadow struct {
	testBase
	B string // shadows testBase.B
}

type testDeep struct {
	testDerived
	D bool
}

type testPtrEmbed struct {
	*testBase
	Own int
}

type testHidden struct {
	Exported   int
	unexported int
	Skipped    chan int
}

func fieldNames(fs []Field) []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

func TestFieldsOrder(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want []string
	}{
		{"base", reflect.TypeOf(testBase{}), []string{"A", "B"}},
		{"derived", reflect.TypeOf(testDerived{}), []string{"A", "B", "C"}},
		{"deep", reflect.TypeOf(testDeep{}), []string{"A", "B", "C", "D"}},
		{"ptr embed", reflect.TypeOf(testPtrEmbed{}), []string{"A", "B", "Own"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldNames(Fields(tt.typ))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Fields(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestFieldsShadowingKept(t *testing.T) {
	fs := Fields(reflect.TypeOf(testShadow{}))
	got := fieldNames(fs)
	want := []string{"A", "B", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Fields = %v, want %v", got, want)
	}
	// The two B entries address different fields.
	if reflect.DeepEqual(fs[1].Index, fs[2].Index) {
		t.Errorf("shadowed fields share index path %v", fs[1].Index)
	}
}

func TestFieldsSkipsUnexported(t *testing.T) {
	got := fieldNames(Fields(reflect.TypeOf(testHidden{})))
	want := []string{"Exported", "Skipped"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fields = %v, want %v", got, want)
	}
}

func TestReadWriteField(t *testing.T) {
	fs := Fields(reflect.TypeOf(testDerived{}))
	d := testDerived{testBase: testBase{A: 7, B: "x"}, C: 1.5}

	v, err := ReadField(d, &fs[0])
	if err != nil || v != 7 {
		t.Errorf("ReadField(A) = %v, %v", v, err)
	}
	v, err = ReadField(&d, &fs[2])
	if err != nil || v != 1.5 {
		t.Errorf("ReadField(C) = %v, %v", v, err)
	}

	if err := WriteField(&d, &fs[1], "updated"); err != nil {
		t.Fatalf("WriteField(B): %v", err)
	}
	if d.B != "updated" {
		t.Errorf("B = %q after write", d.B)
	}

	// Width conversion on write.
	if err := WriteField(&d, &fs[0], int64(40)); err != nil {
		t.Fatalf("WriteField(A, int64): %v", err)
	}
	if d.A != 40 {
		t.Errorf("A = %d, want 40", d.A)
	}

	// Writing a non-pointer target fails.
	err = WriteField(d, &fs[0], 1)
	var fae *FieldAccessError
	if !errors.As(err, &fae) {
		t.Errorf("WriteField(non-pointer) = %v, want FieldAccessError", err)
	}
}

func TestNilEmbeddedPointer(t *testing.T) {
	fs := Fields(reflect.TypeOf(testPtrEmbed{}))

	// Reading through a nil embedded pointer fails.
	var fae *FieldAccessError
	_, err := ReadField(testPtrEmbed{}, &fs[0])
	if !errors.As(err, &fae) {
		t.Fatalf("ReadField through nil embed = %v, want FieldAccessError", err)
	}

	// Writing allocates the embedded pointer.
	p := &testPtrEmbed{}
	if err := WriteField(p, &fs[0], 9); err != nil {
		t.Fatalf("WriteField through nil embed: %v", err)
	}
	if p.testBase == nil || p.testBase.A != 9 {
		t.Errorf("embedded pointer not allocated and written: %+v", p)
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		in     any
		target any // a zero value of the target type
		want   any
	}{
		{int64(300), int8(0), int8(44)}, // narrowing truncates
		{int(3), int64(0), int64(3)},
		{uint8(7), float64(0), float64(7)},
		{float64(2.9), int(0), int(2)},
		{"s", "", "s"},
		{true, false, true},
		{nil, 0, 0},
		{nil, "", ""},
	}
	for _, tt := range tests {
		got, err := Convert(tt.in, reflect.TypeOf(tt.target))
		if err != nil {
			t.Errorf("Convert(%v, %T): %v", tt.in, tt.target, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Convert(%v, %T) = %v (%T), want %v", tt.in, tt.target, got, got, tt.want)
		}
	}
}

func TestConvertPointers(t *testing.T) {
	// Wrap: int -> *int
	got, err := Convert(5, reflect.TypeOf((*int)(nil)))
	if err != nil {
		t.Fatalf("Convert to *int: %v", err)
	}
	if p, ok := got.(*int); !ok || *p != 5 {
		t.Errorf("Convert(5, *int) = %v", got)
	}

	// Unwrap: *int -> int64
	n := 9
	got, err = Convert(&n, reflect.TypeOf(int64(0)))
	if err != nil || got != int64(9) {
		t.Errorf("Convert(*int, int64) = %v, %v", got, err)
	}

	// Nil pointer -> nil pointer of another width
	var np *int
	got, err = Convert(np, reflect.TypeOf((*int32)(nil)))
	if err != nil {
		t.Fatalf("Convert(nil *int, *int32): %v", err)
	}
	if p := got.(*int32); p != nil {
		t.Errorf("nil pointer converted to non-nil %v", p)
	}
}

func TestConvertRejectsCrossKind(t *testing.T) {
	var tna *value.TypeNotAllowedError
	_, err := Convert(42, reflect.TypeOf(""))
	if !errors.As(err, &tna) {
		t.Errorf("Convert(int, string) = %v, want TypeNotAllowedError", err)
	}
	_, err = Convert("x", reflect.TypeOf(0))
	if !errors.As(err, &tna) {
		t.Errorf("Convert(string, int) = %v, want TypeNotAllowedError", err)
	}
}

func TestInstantiate(t *testing.T) {
	got, err := Instantiate(reflect.TypeOf(testBase{}))
	if err != nil {
		t.Fatalf("Instantiate(struct): %v", err)
	}
	b, ok := got.(*testBase)
	if !ok {
		t.Fatalf("Instantiate returned %T, want *testBase", got)
	}
	if b.A != 0 || b.B != "" {
		t.Errorf("instance not zero-valued: %+v", b)
	}

	// Pointer types instantiate their element.
	got, err = Instantiate(reflect.TypeOf((*testBase)(nil)))
	if err != nil {
		t.Fatalf("Instantiate(*struct): %v", err)
	}
	if _, ok := got.(*testBase); !ok {
		t.Errorf("Instantiate(*struct) returned %T", got)
	}

	var nie *NotInstantiableError
	type anyIface interface{ M() }
	_, err = Instantiate(reflect.TypeOf((*anyIface)(nil)).Elem())
	if !errors.As(err, &nie) {
		t.Errorf("Instantiate(interface) = %v, want NotInstantiableError", err)
	}
	_, err = Instantiate(reflect.TypeOf(func() {}))
	if !errors.As(err, &nie) {
		t.Errorf("Instantiate(func) = %v, want NotInstantiableError", err)
	}
}

func TestSetElementAndEntry(t *testing.T) {
	s := MakeSlice(reflect.TypeOf([]int32{}), 3)
	if err := SetElement(s, 1, int64(5)); err != nil {
		t.Fatalf("SetElement: %v", err)
	}
	if got := s.([]int32)[1]; got != 5 {
		t.Errorf("slice[1] = %d, want 5", got)
	}

	var oob *value.IndexOutOfRangeError
	if err := SetElement(s, 8, 1); !errors.As(err, &oob) {
		t.Errorf("SetElement(8) = %v, want IndexOutOfRangeError", err)
	}

	arr := NewArray(reflect.TypeOf([2]string{}))
	if err := SetElement(arr, 0, "a"); err != nil {
		t.Fatalf("SetElement(array): %v", err)
	}
	if got := arr.(*[2]string)[0]; got != "a" {
		t.Errorf("array[0] = %q", got)
	}

	m := MakeMap(reflect.TypeOf(map[string]int{}))
	if err := SetEntry(m, "k", int64(3)); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	if got := m.(map[string]int)["k"]; got != 3 {
		t.Errorf(`map["k"] = %d, want 3`, got)
	}
}

func TestClassification(t *testing.T) {
	if !IsPrimitive(reflect.TypeOf(0)) || IsPrimitive(reflect.TypeOf("")) {
		t.Error("IsPrimitive misclassifies")
	}
	if !IsScalar(reflect.TypeOf("")) || IsScalar(reflect.TypeOf([]int{})) {
		t.Error("IsScalar misclassifies")
	}
	if !IsWrapper(reflect.TypeOf((*int)(nil))) || IsWrapper(reflect.TypeOf((*[]int)(nil))) {
		t.Error("IsWrapper misclassifies")
	}
	it := reflect.TypeOf(0)
	if WrapperOf(it) != reflect.TypeOf((*int)(nil)) {
		t.Error("WrapperOf(int) wrong")
	}
	if PrimitiveOf(reflect.TypeOf((*int)(nil))) != it {
		t.Error("PrimitiveOf(*int) wrong")
	}
}
