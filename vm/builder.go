package vm

import (
	"reflect"

	"github.com/chazu/ripley/reflectutil"
	"github.com/chazu/ripley/transform"
)

// ---------------------------------------------------------------------------
// ProgramBuilder: Helper for constructing programs
// ---------------------------------------------------------------------------

// ProgramBuilder helps construct instruction sequences.
type ProgramBuilder struct {
	typ  reflect.Type
	dir  Direction
	code []Instruction
}

// NewProgramBuilder creates a builder for a program compiled for t in
// the given direction.
func NewProgramBuilder(t reflect.Type, dir Direction) *ProgramBuilder {
	return &ProgramBuilder{
		typ:  t,
		dir:  dir,
		code: make([]Instruction, 0, 16),
	}
}

// Len returns the current instruction count.
func (b *ProgramBuilder) Len() int {
	return len(b.code)
}

// Emit appends an instruction with no operand.
func (b *ProgramBuilder) Emit(op Opcode) {
	b.code = append(b.code, Instruction{Op: op})
}

// EmitKey appends an instruction with a string key operand.
func (b *ProgramBuilder) EmitKey(op Opcode, key string) {
	b.code = append(b.code, Instruction{Op: op, Key: key})
}

// EmitIndex appends an instruction with an index or length operand.
func (b *ProgramBuilder) EmitIndex(op Opcode, i int) {
	b.code = append(b.code, Instruction{Op: op, Index: i})
}

// EmitConst appends an instruction with a native constant operand.
func (b *ProgramBuilder) EmitConst(op Opcode, c any) {
	b.code = append(b.code, Instruction{Op: op, Const: c})
}

// EmitField appends an instruction with a field descriptor operand.
func (b *ProgramBuilder) EmitField(op Opcode, f *reflectutil.Field) {
	b.code = append(b.code, Instruction{Op: op, Field: f})
}

// EmitXform appends an instruction with a transformer operand.
func (b *ProgramBuilder) EmitXform(op Opcode, x transform.Transformer) {
	b.code = append(b.code, Instruction{Op: op, Xform: x})
}

// EmitType appends an instruction with a target type operand.
func (b *ProgramBuilder) EmitType(op Opcode, t reflect.Type) {
	b.code = append(b.code, Instruction{Op: op, Type: t})
}

// EmitUntransform appends an Untransform instruction, which carries
// both a transformer and its from-generic target type.
func (b *ProgramBuilder) EmitUntransform(x transform.Transformer, t reflect.Type) {
	b.code = append(b.code, Instruction{Op: OpUntransform, Xform: x, Type: t})
}

// Build returns the finished program. The builder must not be reused
// afterwards.
func (b *ProgramBuilder) Build() *Program {
	return &Program{Type: b.typ, Direction: b.dir, Code: b.code}
}
