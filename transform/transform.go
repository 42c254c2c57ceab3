// Package transform provides pluggable rewriting of native values on
// their way into and out of the generic value model. A Transformer
// pairs the two directions; a Registry binds transformers to names
// (referenced from struct tags and profiles) and to native types
// (applied to every occurrence of the type).
package transform

import (
	"reflect"
	"sync"

	"github.com/chazu/ripley/value"
)

// Transformer rewrites a native value crossing the generic boundary.
// ToGeneric runs during serialization, FromGeneric during
// deserialization. The two directions should invert each other for a
// value to survive a round trip, but nothing enforces it.
type Transformer interface {
	// ToGeneric converts a native value into its generic form.
	ToGeneric(v any) (value.Value, error)

	// FromGeneric converts a generic value back into a native value
	// suitable for the target type. Implementations may return a
	// value of a different but convertible type; the engine converts
	// before assignment.
	FromGeneric(v value.Value, target reflect.Type) (any, error)
}

type typeBinding struct {
	xform       Transformer
	inheritable bool
}

// Registry maps transformer names and native types to Transformer
// implementations. The zero value is not usable; construct with
// NewRegistry. A nil *Registry behaves as an empty one for lookups.
// Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	named  map[string]Transformer
	byType map[reflect.Type]typeBinding
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		named:  make(map[string]Transformer),
		byType: make(map[reflect.Type]typeBinding),
	}
}

// Register binds name to t, replacing any previous binding.
func (r *Registry) Register(name string, t Transformer) {
	r.mu.Lock()
	r.named[name] = t
	r.mu.Unlock()
}

// RegisterType binds t to every serialized occurrence of typ. An
// inheritable binding also applies to struct types that embed typ.
func (r *Registry) RegisterType(typ reflect.Type, t Transformer, inheritable bool) {
	r.mu.Lock()
	r.byType[typ] = typeBinding{xform: t, inheritable: inheritable}
	r.mu.Unlock()
}

// Lookup returns the transformer registered under name.
func (r *Registry) Lookup(name string) (Transformer, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	t, ok := r.named[name]
	r.mu.RUnlock()
	return t, ok
}

// ForType returns the transformer bound to exactly typ, along with
// whether the binding extends to embedding types.
func (r *Registry) ForType(typ reflect.Type) (t Transformer, inheritable, ok bool) {
	if r == nil {
		return nil, false, false
	}
	r.mu.RLock()
	b, ok := r.byType[typ]
	r.mu.RUnlock()
	return b.xform, b.inheritable, ok
}

// Names returns the registered transformer names in unspecified order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.named))
	for name := range r.named {
		names = append(names, name)
	}
	return names
}

// DefaultRegistry is the registry used by packers that are not given
// their own. The builtin transformers register here at init time.
var DefaultRegistry = NewRegistry()

// Register binds name to t in the default registry.
func Register(name string, t Transformer) { DefaultRegistry.Register(name, t) }

// RegisterType binds t to typ in the default registry.
func RegisterType(typ reflect.Type, t Transformer, inheritable bool) {
	DefaultRegistry.RegisterType(typ, t, inheritable)
}

// Lookup returns the transformer registered under name in the default
// registry.
func Lookup(name string) (Transformer, bool) { return DefaultRegistry.Lookup(name) }
