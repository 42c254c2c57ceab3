package vm

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Disassemble returns a human-readable instruction listing for the
// program, one instruction per line with its operand rendered
// according to the opcode's OperandKind.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("; === %s / %s ===\n", typeName(p.Type), p.Direction))
	sb.WriteString(fmt.Sprintf("; %d instructions\n", len(p.Code)))

	for i := range p.Code {
		in := &p.Code[i]
		var operand string
		switch GetOpcodeInfo(in.Op).Operand {
		case OperandKey:
			operand = strconv.Quote(in.Key)
		case OperandIndex:
			operand = strconv.Itoa(in.Index)
		case OperandConst:
			operand = fmt.Sprintf("%#v", in.Const)
		case OperandField:
			if in.Field != nil {
				operand = in.Field.Name
			} else {
				operand = "<nil field>"
			}
		case OperandXform:
			operand = fmt.Sprintf("%T", in.Xform)
		case OperandType:
			if in.Type != nil {
				operand = typeName(in.Type)
			}
		case OperandXformType:
			operand = fmt.Sprintf("%T -> %s", in.Xform, typeName(in.Type))
		}
		line := fmt.Sprintf("%04d  %-16s %s", i, in.Op, operand)
		sb.WriteString(strings.TrimRight(line, " "))
		sb.WriteString("\n")
	}

	return sb.String()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
