// Package bake compiles native Go struct types into the descriptors
// and instruction programs the machine executes. Baking is the
// expensive half of the engine: it walks a type's fields once,
// resolves annotations and transformers, and emits one serialize and
// one deserialize program, so that per-value work never touches a
// struct tag or a transformer registry again.
//
// # Descriptors
//
// A BakedType pairs a struct type with its ordered Property list: one
// entry per serializable field carrying the field's access path, its
// serialized name, its effective type, and an optional transformer.
// Fields contributed by embedded structs come first, so a wrapping
// type's own fields overwrite inherited names in the produced tree.
// Class-level transformer chains replace field traversal entirely for
// the types that carry them.
//
// # Annotations
//
// A field is configured by its `ripley` struct tag, by a profile
// entry, or both; tag attributes win per attribute. Class-level
// configuration comes from TypeAnnotation values (bound through
// Baker.Annotate, normally by a loaded profile) and from type
// registrations on the transformer registry.
//
// # Caching
//
// A Baker memoizes descriptors per type for the life of the process
// with no eviction: exactly one computation happens per type no
// matter how many goroutines race, and every caller converges on the
// same descriptor. Container shapes (slices, arrays, maps) depend on
// instance data and are compiled per value instead, on demand, when
// the machine resolves them.
package bake
