package bake

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/chazu/ripley/reflectutil"
	"github.com/chazu/ripley/transform"
	"github.com/chazu/ripley/vm"
)

// ---------------------------------------------------------------------------
// Descriptors
// ---------------------------------------------------------------------------

// Property describes one serialized field of a baked type.
type Property struct {
	Field *reflectutil.Field    // access path into the struct
	Name  string                // serialized name
	Type  reflect.Type          // effective type (explicit override or declared)
	Xform transform.Transformer // field-level transformer, nil for none
}

// BakedType is the compiled descriptor of one struct type: its
// class-level transformer chain, its ordered properties, and the two
// instruction programs emitted from them. Descriptors are immutable
// once baked and shared by every invocation.
type BakedType struct {
	typ    reflect.Type
	chain  []transform.Transformer
	fields []reflectutil.Field
	props  []Property
	ser    *vm.Program
	deser  *vm.Program
}

// Type returns the struct type the descriptor was baked for.
func (bt *BakedType) Type() reflect.Type { return bt.typ }

// Properties returns the ordered property list.
func (bt *BakedType) Properties() []Property { return bt.props }

// Transformers returns the class-level transformer chain, the type's
// own transformers first, then inherited ones.
func (bt *BakedType) Transformers() []transform.Transformer { return bt.chain }

// SerializeProgram returns the cached serialize-direction program.
func (bt *BakedType) SerializeProgram() *vm.Program { return bt.ser }

// DeserializeProgram returns the cached deserialize-direction program.
func (bt *BakedType) DeserializeProgram() *vm.Program { return bt.deser }

// ---------------------------------------------------------------------------
// Baker: descriptor registry
// ---------------------------------------------------------------------------

// Baker bakes struct types into descriptors and caches them for the
// life of the process. It's thread-safe for concurrent access.
type Baker struct {
	mu    sync.RWMutex
	cache map[reflect.Type]*BakedType

	annoMu      sync.RWMutex
	annotations map[string]TypeAnnotation

	registry *transform.Registry
	bakes    int64
}

// Option configures a Baker.
type Option func(*Baker)

// WithRegistry sets the transformer registry the baker resolves
// names and type bindings against.
func WithRegistry(r *transform.Registry) Option {
	return func(b *Baker) { b.registry = r }
}

// NewBaker creates an empty baker resolving against the default
// transformer registry unless overridden.
func NewBaker(opts ...Option) *Baker {
	b := &Baker{
		cache:       make(map[reflect.Type]*BakedType),
		annotations: make(map[string]TypeAnnotation),
		registry:    transform.DefaultRegistry,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Default is the process-wide baker used by the package-level ripley
// functions.
var Default = NewBaker()

// TypeKey returns the annotation key for a type: package path and
// type name joined with a dot ("time.Time",
// "github.com/chazu/ripley/bake.T").
func TypeKey(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}

// Annotate binds a type annotation under its TypeKey, replacing any
// previous one whole. Baked descriptors are not recomputed, so
// annotations must be in place before a type's first use.
func (b *Baker) Annotate(key string, a TypeAnnotation) {
	b.annoMu.Lock()
	b.annotations[key] = a
	b.annoMu.Unlock()
}

func (b *Baker) annotationFor(t reflect.Type) TypeAnnotation {
	b.annoMu.RLock()
	a := b.annotations[TypeKey(t)]
	b.annoMu.RUnlock()
	return a
}

// Bakes reports how many descriptors this baker has computed. Racing
// goroutines baking the same type count once.
func (b *Baker) Bakes() int64 {
	return atomic.LoadInt64(&b.bakes)
}

// Bake returns the descriptor for a struct or pointer-to-struct type,
// computing and caching it on first use. Interfaces and non-struct
// kinds fail with NotInstantiableError.
func (b *Baker) Bake(t reflect.Type) (*BakedType, error) {
	if t == nil {
		return nil, &reflectutil.NotInstantiableError{Type: nil, Reason: "nil type"}
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Interface:
		return nil, &reflectutil.NotInstantiableError{Type: t, Reason: "interface type has no concrete shape"}
	case reflect.Struct:
	default:
		return nil, &reflectutil.NotInstantiableError{Type: t, Reason: "not a struct type"}
	}

	b.mu.RLock()
	bt, ok := b.cache[t]
	b.mu.RUnlock()
	if ok {
		return bt, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if bt, ok := b.cache[t]; ok {
		return bt, nil
	}
	bt, err := b.compute(t)
	if err != nil {
		return nil, err
	}
	b.cache[t] = bt
	return bt, nil
}

// compute builds a descriptor. Runs under the write lock; it must not
// bake other types (nested shapes resolve lazily at run time through
// Call and Restore).
func (b *Baker) compute(t reflect.Type) (*BakedType, error) {
	atomic.AddInt64(&b.bakes, 1)
	anno := b.annotationFor(t)
	chain, err := b.classChain(t, anno)
	if err != nil {
		return nil, err
	}
	bt := &BakedType{typ: t, chain: chain, fields: reflectutil.Fields(t)}
	for i := range bt.fields {
		f := &bt.fields[i]
		tagA, _, err := parseTag(f.Tag)
		if err != nil {
			return nil, fmt.Errorf("bake %s: field %s: %w", t, f.Name, err)
		}
		a := mergeField(tagA, anno.Fields[f.Name])
		if a.Skip {
			continue
		}
		p := Property{Field: f, Name: f.Name, Type: f.Type}
		if a.Rename != "" {
			p.Name = a.Rename
		}
		if a.Transformer != "" {
			x, ok := b.registry.Lookup(a.Transformer)
			if !ok {
				return nil, fmt.Errorf("bake %s: field %s: unknown transformer %q", t, f.Name, a.Transformer)
			}
			p.Xform = x
		} else {
			p.Xform = b.typeTransformer(f.Type)
		}
		if a.As != "" {
			at, err := resolveAs(a.As, f.Type, p.Xform != nil)
			if err != nil {
				return nil, fmt.Errorf("bake %s: field %s: %w", t, f.Name, err)
			}
			p.Type = at
		}
		bt.props = append(bt.props, p)
	}
	bt.ser = emitSerialize(bt)
	bt.deser = emitDeserialize(bt)
	return bt, nil
}

// typeTransformer returns the registry's binding for a field type,
// looking through one level of pointer so *time.Time fields pick up
// the time.Time binding.
func (b *Baker) typeTransformer(t reflect.Type) transform.Transformer {
	if x, _, ok := b.registry.ForType(t); ok {
		return x
	}
	if t.Kind() == reflect.Pointer {
		if x, _, ok := b.registry.ForType(t.Elem()); ok {
			return x
		}
	}
	return nil
}

// classChain resolves the ordered class-level transformer list: the
// type's own annotation and registry binding first, then inheritable
// contributions from embedded structs, nearest first.
func (b *Baker) classChain(t reflect.Type, anno TypeAnnotation) ([]transform.Transformer, error) {
	var chain []transform.Transformer
	for _, name := range anno.Transformers {
		x, ok := b.registry.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("bake %s: unknown transformer %q", t, name)
		}
		chain = append(chain, x)
	}
	if x, _, ok := b.registry.ForType(t); ok {
		chain = append(chain, x)
	}
	if err := b.appendInherited(t, &chain); err != nil {
		return nil, err
	}
	return chain, nil
}

// appendInherited walks embedded structs in declaration order and
// appends transformers whose bindings are marked inheritable.
func (b *Baker) appendInherited(t reflect.Type, chain *[]transform.Transformer) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.Anonymous || sf.PkgPath != "" {
			continue
		}
		et := sf.Type
		if et.Kind() == reflect.Pointer {
			et = et.Elem()
		}
		if et.Kind() != reflect.Struct {
			continue
		}
		ea := b.annotationFor(et)
		if ea.Inheritable {
			for _, name := range ea.Transformers {
				x, ok := b.registry.Lookup(name)
				if !ok {
					return fmt.Errorf("bake %s: embedded %s: unknown transformer %q", t, et, name)
				}
				*chain = append(*chain, x)
			}
		}
		if x, inheritable, ok := b.registry.ForType(et); ok && inheritable {
			*chain = append(*chain, x)
		}
		if err := b.appendInherited(et, chain); err != nil {
			return err
		}
	}
	return nil
}
