// Package ripley serializes native Go objects into a generic value
// tree and reconstructs them from it. Types are baked once into
// instruction programs; a stack machine replays the programs for
// every value, so the reflection cost is paid per type, not per
// object.
//
// The generic form is the value package's tagged tree (Object, Array,
// String, Number, Bool, None). What a type serializes to is shaped by
// `ripley` struct tags, loaded profiles, and registered transformers;
// see the bake, profile, and transform packages.
package ripley

import (
	"reflect"

	"github.com/chazu/ripley/bake"
	"github.com/chazu/ripley/profile"
	"github.com/chazu/ripley/reflectutil"
	"github.com/chazu/ripley/transform"
	"github.com/chazu/ripley/value"
	"github.com/chazu/ripley/vm"
)

// Packer is the engine's front end: a baker that compiles types and a
// machine that executes the compiled programs. Safe for concurrent
// use. The zero value is not usable; construct with New.
type Packer struct {
	baker   *bake.Baker
	machine *vm.Machine
}

type config struct {
	baker    *bake.Baker
	registry *transform.Registry
	profiles []*profile.Profile
	maxDepth int
}

// Option configures a Packer.
type Option func(*config)

// WithBaker shares an existing baker and its descriptor cache.
// Takes precedence over WithRegistry.
func WithBaker(b *bake.Baker) Option {
	return func(c *config) { c.baker = b }
}

// WithRegistry resolves transformer names and type bindings against r
// instead of the default registry.
func WithRegistry(r *transform.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithProfile applies a loaded serialization profile. Repeatable;
// later profiles win on key collisions.
func WithProfile(p *profile.Profile) Option {
	return func(c *config) { c.profiles = append(c.profiles, p) }
}

// WithMaxDepth bounds the machine's frame stack. Zero disables the
// bound.
func WithMaxDepth(n int) Option {
	return func(c *config) { c.maxDepth = n }
}

// New constructs a Packer.
func New(opts ...Option) *Packer {
	cfg := config{maxDepth: vm.DefaultMaxDepth}
	for _, opt := range opts {
		opt(&cfg)
	}
	baker := cfg.baker
	if baker == nil {
		if cfg.registry != nil {
			baker = bake.NewBaker(bake.WithRegistry(cfg.registry))
		} else {
			baker = bake.Default
		}
	}
	for _, p := range cfg.profiles {
		p.Apply(baker)
	}
	return &Packer{
		baker:   baker,
		machine: vm.NewMachine(baker, vm.WithMaxDepth(cfg.maxDepth)),
	}
}

// Serialize converts a native object into its generic form.
func (p *Packer) Serialize(v any) (value.Value, error) {
	return p.machine.Serialize(v)
}

// Deserialize reconstructs a native object from its generic form into
// out, which must be a non-nil pointer.
func (p *Packer) Deserialize(in value.Value, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &value.TypeNotAllowedError{Type: reflect.TypeOf(out), Reason: "deserialize target must be a non-nil pointer"}
	}
	target := rv.Type().Elem()
	n, err := p.machine.Deserialize(in, target)
	if err != nil {
		return err
	}
	conv, err := reflectutil.Convert(n, target)
	if err != nil {
		return err
	}
	if conv == nil {
		rv.Elem().Set(reflect.Zero(target))
		return nil
	}
	rv.Elem().Set(reflect.ValueOf(conv))
	return nil
}

// Bake compiles and caches a struct type's descriptor without
// serializing anything, for callers that want the cost up front.
func (p *Packer) Bake(t reflect.Type) (*bake.BakedType, error) {
	return p.baker.Bake(t)
}

// Default is the packer behind the package-level functions. It shares
// the process-wide baker, so types baked through it stay cached for
// the life of the process.
var Default = New()

// Serialize converts a native object using the default packer.
func Serialize(v any) (value.Value, error) {
	return Default.Serialize(v)
}

// Deserialize reconstructs a native object using the default packer.
func Deserialize(in value.Value, out any) error {
	return Default.Deserialize(in, out)
}

// Bake compiles a type's descriptor using the default packer.
func Bake(t reflect.Type) (*bake.BakedType, error) {
	return Default.Bake(t)
}
