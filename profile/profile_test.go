package profile

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/chazu/ripley/bake"
)

const sampleProfile = `
[[type]]
name = "github.com/chazu/ripley/profile.legacyRecord"
transformers = ["time.rfc3339"]
inheritable = true

  [[type.field]]
  name = "ID"
  rename = "id"

  [[type.field]]
  name = "Internal"
  skip = true

  [[type.field]]
  name = "Raw"
  transformer = "bytes.base64"
  as = "string"
`

type legacyRecord struct {
	ID       int
	Internal string
	Count    int32
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte(sampleProfile))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(p.Types) != 1 {
		t.Fatalf("types = %d, want 1", len(p.Types))
	}
	tp := p.Types[0]
	if tp.Name != "github.com/chazu/ripley/profile.legacyRecord" {
		t.Errorf("type name = %q", tp.Name)
	}
	if !tp.Inheritable || len(tp.Transformers) != 1 {
		t.Errorf("type entry = %+v", tp)
	}
	if len(tp.Fields) != 3 {
		t.Fatalf("fields = %d, want 3", len(tp.Fields))
	}
	if tp.Fields[0].Rename != "id" || !tp.Fields[1].Skip || tp.Fields[2].As != "string" {
		t.Errorf("field entries = %+v", tp.Fields)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"missing type name", "[[type]]\ninheritable = true\n"},
		{"duplicate type", "[[type]]\nname = \"a.B\"\n\n[[type]]\nname = \"a.B\"\n"},
		{"missing field name", "[[type]]\nname = \"a.B\"\n\n  [[type.field]]\n  rename = \"x\"\n"},
		{"duplicate field", "[[type]]\nname = \"a.B\"\n\n  [[type.field]]\n  name = \"F\"\n\n  [[type.field]]\n  name = \"F\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.toml)); err == nil {
				t.Errorf("parse accepted invalid profile:\n%s", tt.toml)
			}
		})
	}
}

func TestApply(t *testing.T) {
	p, err := Parse([]byte(`
[[type]]
name = "github.com/chazu/ripley/profile.legacyRecord"

  [[type.field]]
  name = "ID"
  rename = "id"

  [[type.field]]
  name = "Internal"
  skip = true
`))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	b := bake.NewBaker()
	p.Apply(b)

	bt, err := b.Bake(reflect.TypeOf(legacyRecord{}))
	if err != nil {
		t.Fatalf("bake error: %v", err)
	}
	var names []string
	for _, prop := range bt.Properties() {
		names = append(names, prop.Name)
	}
	want := []string{"id", "Count"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("property names = %v, want %v", names, want)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	p, err := Parse([]byte(sampleProfile))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		t.Fatalf("encode error: %v", err)
	}
	back, err := Parse(buf.Bytes())
	if err != nil {
		t.Fatalf("reparse error: %v", err)
	}
	if !reflect.DeepEqual(p, back) {
		t.Errorf("round trip changed profile:\n%+v\n%+v", p, back)
	}
}

func TestScaffold(t *testing.T) {
	p, err := Scaffold("net/url", map[string]bool{"URL": true})
	if err != nil {
		t.Fatalf("scaffold error: %v", err)
	}
	if len(p.Types) != 1 {
		t.Fatalf("types = %d, want 1", len(p.Types))
	}
	tp := p.Types[0]
	if tp.Name != "net/url.URL" {
		t.Errorf("type name = %q, want net/url.URL", tp.Name)
	}
	var hasHost bool
	for _, f := range tp.Fields {
		if f.Name == "Host" {
			hasHost = true
		}
		if f.Rename != "" || f.Skip || f.Transformer != "" || f.As != "" {
			t.Errorf("scaffold field %s carries overrides: %+v", f.Name, f)
		}
	}
	if !hasHost {
		t.Error("scaffolded URL profile is missing the Host field")
	}
}

func TestScaffoldUnknownPackage(t *testing.T) {
	if _, err := Scaffold("github.com/chazu/ripley/no/such/package", nil); err == nil {
		t.Error("expected error for unknown import path")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.toml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "cannot read") {
		t.Errorf("error = %v, want read failure context", err)
	}
}
