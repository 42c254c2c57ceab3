package vm

import (
	"reflect"

	"github.com/chazu/ripley/reflectutil"
	"github.com/chazu/ripley/transform"
	"github.com/chazu/ripley/value"
)

// Direction distinguishes the two halves of the instruction
// vocabulary a program is written in.
type Direction uint8

const (
	Serialize Direction = iota
	Deserialize
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case Serialize:
		return "serialize"
	case Deserialize:
		return "deserialize"
	default:
		return "unknown"
	}
}

// Instruction is one decoded machine instruction. Operand fields are
// populated according to the opcode's OperandKind; the rest are zero.
type Instruction struct {
	Op    Opcode
	Key   string                // object key literal
	Index int                   // array index or length literal
	Const any                   // native constant
	Field *reflectutil.Field    // struct field descriptor
	Xform transform.Transformer // transformer to apply
	Type  reflect.Type          // target native type
}

// Program is a compiled instruction sequence for one native type in
// one direction. Programs are immutable once built and safe to share
// between machine invocations.
type Program struct {
	Type      reflect.Type // native type the program was compiled for
	Direction Direction
	Code      []Instruction
}

// Frame binds a program to the data it runs against. When
// serializing, Object is the native being read. When deserializing,
// Object is the instance being written and Input is the generic value
// being navigated.
type Frame struct {
	Object  any
	Input   value.Value
	Program *Program
	IP      int
}

// Resolution is a Resolver's answer for one value or target. Program
// nil means the resolution is immediate: Value carries the serialized
// form, Native the deserialized one. Otherwise the machine pushes a
// frame running Program against Object (navigating Input when
// deserializing).
type Resolution struct {
	Program *Program
	Object  any
	Input   value.Value
	Value   value.Value
	Native  any
}

// Resolver supplies programs for shapes the machine discovers at
// runtime. OpCall resolves through ForValue with the native popped
// from the scratch stack; OpRestore resolves through ForTarget with
// the instruction's target type and the generic value popped from the
// result stack. Implementations own compilation and caching and must
// be safe for concurrent use.
type Resolver interface {
	ForValue(v any) (Resolution, error)
	ForTarget(target reflect.Type, in value.Value) (Resolution, error)
}
