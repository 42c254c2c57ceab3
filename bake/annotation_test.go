package bake

import (
	"reflect"
	"testing"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		name string
		tag  reflect.StructTag
		want FieldAnnotation
		ok   bool
	}{
		{"absent", `json:"x"`, FieldAnnotation{}, false},
		{"skip", `ripley:"-"`, FieldAnnotation{Skip: true}, true},
		{"rename", `ripley:"wire_name"`, FieldAnnotation{Rename: "wire_name"}, true},
		{"xform only", `ripley:",xform=upper"`, FieldAnnotation{Transformer: "upper"}, true},
		{"as only", `ripley:",as=int64"`, FieldAnnotation{As: "int64"}, true},
		{"all", `ripley:"n,xform=t,as=string"`, FieldAnnotation{Rename: "n", Transformer: "t", As: "string"}, true},
		{"trailing comma", `ripley:"n,"`, FieldAnnotation{Rename: "n"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := parseTag(tt.tag)
			if err != nil {
				t.Fatalf("parseTag(%q) error: %v", tt.tag, err)
			}
			if ok != tt.ok {
				t.Fatalf("parseTag(%q) ok = %v, want %v", tt.tag, ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("parseTag(%q) = %+v, want %+v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestParseTagUnknownOption(t *testing.T) {
	_, _, err := parseTag(`ripley:"n,omitempty"`)
	if err == nil {
		t.Fatal("expected error for unknown tag option")
	}
}

func TestMergeField(t *testing.T) {
	prof := FieldAnnotation{Rename: "from_profile", Transformer: "p", As: "int32"}
	tag := FieldAnnotation{Rename: "from_tag"}

	got := mergeField(tag, prof)
	if got.Rename != "from_tag" {
		t.Errorf("Rename = %q, want tag override", got.Rename)
	}
	if got.Transformer != "p" || got.As != "int32" {
		t.Errorf("profile attributes lost: %+v", got)
	}

	got = mergeField(FieldAnnotation{}, prof)
	if got != prof {
		t.Errorf("empty tag changed profile annotation: %+v", got)
	}

	got = mergeField(FieldAnnotation{Rename: "n"}, FieldAnnotation{Skip: true})
	if !got.Skip {
		t.Error("tag without skip cleared profile skip")
	}
}

func TestResolveAs(t *testing.T) {
	intT := reflect.TypeOf(int(0))
	strT := reflect.TypeOf("")
	ptrT := reflect.TypeOf((*int)(nil))

	tests := []struct {
		name     string
		keyword  string
		declared reflect.Type
		hasXform bool
		want     reflect.Type
		wantErr  bool
	}{
		{"widen int", "int64", intT, false, reflect.TypeOf(int64(0)), false},
		{"narrow int", "int8", intT, false, reflect.TypeOf(int8(0)), false},
		{"string to string", "string", strT, false, strT, false},
		{"through wrapper", "int32", ptrT, false, reflect.TypeOf(int32(0)), false},
		{"cross class", "string", intT, false, nil, true},
		{"unknown keyword", "banana", intT, false, nil, true},
		{"non-scalar declared", "int", reflect.TypeOf(struct{}{}), false, nil, true},
		{"xform skips check", "string", intT, true, strT, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveAs(tt.keyword, tt.declared, tt.hasXform)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolveAs(%q, %s) succeeded, want error", tt.keyword, tt.declared)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveAs(%q, %s) error: %v", tt.keyword, tt.declared, err)
			}
			if got != tt.want {
				t.Errorf("resolveAs(%q, %s) = %s, want %s", tt.keyword, tt.declared, got, tt.want)
			}
		})
	}
}

func TestTypeKey(t *testing.T) {
	type local struct{}
	key := TypeKey(reflect.TypeOf(local{}))
	want := "github.com/chazu/ripley/bake.local"
	if key != want {
		t.Errorf("TypeKey = %q, want %q", key, want)
	}
	if got := TypeKey(reflect.TypeOf(&local{})); got != want {
		t.Errorf("TypeKey through pointer = %q, want %q", got, want)
	}
}
