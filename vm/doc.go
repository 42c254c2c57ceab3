// Package vm provides the stack-based virtual machine that drives both
// directions of the serialization engine. Types are compiled once into
// instruction programs; the machine then replays a program against a
// native object (serialization) or a generic value tree
// (deserialization) without touching reflection metadata again.
//
// # Execution model
//
// A machine invocation owns three stacks:
//
//   - Frame stack: one frame per object being processed. A frame binds
//     a program to the native object it reads or writes and, when
//     deserializing, to the generic value it navigates. The machine
//     always executes the instruction at the top frame's counter;
//     pushing a frame suspends the caller until the callee's program
//     runs out.
//
//   - Scratch stack: native Go values in flight. Field reads land
//     here before being wrapped; extracted generic payloads land here
//     before being written back into fields, elements, and entries.
//
//   - Result stack: generic values in flight. Serialization builds
//     containers here; deserialization navigates input trees here.
//
// The two directions share one instruction vocabulary. A serialize
// frame nets exactly one value onto the result stack; a deserialize
// frame leaves its reconstructed native on the scratch stack. The
// machine verifies the terminal stack shape and reports any deviation
// as a MalformedProgramError rather than guessing.
//
// # Dispatch
//
// Instructions that depend on runtime shape (OpCall when serializing,
// OpRestore when deserializing) defer to a Resolver, which owns type
// compilation and caching. A resolution either carries a finished
// immediate value or a program plus the object to run it against; the
// machine pushes a frame for the latter. Nesting depth is bounded
// (default 4096) so a cyclic object graph fails with
// DepthExceededError instead of running forever.
package vm
