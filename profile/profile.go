// Package profile handles TOML serialization profiles: per-type
// configuration (renames, skips, transformers, explicit types) for
// types whose source cannot carry struct tags. A profile binds the
// same attributes a `ripley` tag does; where both are present the tag
// wins, attribute by attribute.
package profile

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/chazu/ripley/bake"
)

// Profile represents one parsed profile file.
type Profile struct {
	Types []TypeProfile `toml:"type"`

	// Path is the file the profile was loaded from (set at load time).
	Path string `toml:"-"`
}

// TypeProfile configures one type, addressed by its full name as
// bake.TypeKey renders it ("pkg/path.TypeName").
type TypeProfile struct {
	Name         string         `toml:"name"`
	Transformers []string       `toml:"transformers"`
	Inheritable  bool           `toml:"inheritable"`
	Fields       []FieldProfile `toml:"field"`
}

// FieldProfile configures one field, addressed by Go field name.
type FieldProfile struct {
	Name        string `toml:"name"`
	Rename      string `toml:"rename"`
	Skip        bool   `toml:"skip"`
	Transformer string `toml:"transformer"`
	As          string `toml:"as"`
}

// Load parses and validates a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Parse parses and validates profile TOML text.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the profile's structure: every type and field needs
// a name, and names must be unique. Transformer names and type
// keywords are resolved later, at bake time.
func (p *Profile) Validate() error {
	seenTypes := make(map[string]bool)
	for i, tp := range p.Types {
		if tp.Name == "" {
			return fmt.Errorf("type entry %d has no name", i)
		}
		if seenTypes[tp.Name] {
			return fmt.Errorf("duplicate type entry %q", tp.Name)
		}
		seenTypes[tp.Name] = true

		seenFields := make(map[string]bool)
		for j, fp := range tp.Fields {
			if fp.Name == "" {
				return fmt.Errorf("type %q: field entry %d has no name", tp.Name, j)
			}
			if seenFields[fp.Name] {
				return fmt.Errorf("type %q: duplicate field entry %q", tp.Name, fp.Name)
			}
			seenFields[fp.Name] = true
		}
	}
	return nil
}

// Apply binds every type entry to the baker as an annotation.
func (p *Profile) Apply(b *bake.Baker) {
	for _, tp := range p.Types {
		b.Annotate(tp.Name, tp.annotation())
	}
}

// Encode writes the profile as TOML.
func (p *Profile) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(p)
}

func (tp *TypeProfile) annotation() bake.TypeAnnotation {
	a := bake.TypeAnnotation{
		Transformers: tp.Transformers,
		Inheritable:  tp.Inheritable,
	}
	if len(tp.Fields) > 0 {
		a.Fields = make(map[string]bake.FieldAnnotation, len(tp.Fields))
		for _, fp := range tp.Fields {
			a.Fields[fp.Name] = bake.FieldAnnotation{
				Rename:      fp.Rename,
				Skip:        fp.Skip,
				Transformer: fp.Transformer,
				As:          fp.As,
			}
		}
	}
	return a
}
