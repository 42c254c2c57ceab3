package vm

import "fmt"

// Opcode identifies a machine instruction.
// Opcodes are organized into ranges by category: serialization uses
// 0x00-0x3F, deserialization 0x40-0x7F.
type Opcode byte

const (
	// OpInvalid is deliberately unassigned so that a zero Instruction
	// is not executable. The machine faults on it instead of treating
	// zeroed memory as code.
	OpInvalid Opcode = 0x00

	// ========================================================================
	// Construction (0x01-0x0F) - serialize: build generic values
	// ========================================================================

	OpCreateObject Opcode = 0x01 // Push empty object onto result stack
	OpCreateArray  Opcode = 0x02 // Push array of length <Index>, elements None
	OpCreateNone   Opcode = 0x03 // Push None onto result stack
	OpCreateBool   Opcode = 0x04 // Pop native from scratch, push Bool onto result; converts through <Type> if set
	OpCreateNumber Opcode = 0x05 // Pop native from scratch, push Number onto result; converts through <Type> if set
	OpCreateString Opcode = 0x06 // Pop native from scratch, push String onto result; converts through <Type> if set

	// ========================================================================
	// Population (0x10-0x1F) - serialize: fill containers under construction
	// ========================================================================

	OpModifyObject          Opcode = 0x10 // Pop value then key from result, put into object at top
	OpModifyObjectConstKey  Opcode = 0x11 // Pop value from result, put under key <Key>
	OpModifyArray           Opcode = 0x12 // Pop index from scratch, value from result, set in array at top
	OpModifyArrayConstIndex Opcode = 0x13 // Pop value from result, set at index <Index>

	// ========================================================================
	// Data movement (0x20-0x2F) - serialize: load natives onto scratch
	// ========================================================================

	OpPushConst Opcode = 0x20 // Push constant <Const> onto scratch
	OpPushField Opcode = 0x21 // Read field <Field> of frame object, push onto scratch

	// ========================================================================
	// Dispatch (0x30-0x3F) - serialize: dynamic shapes
	// ========================================================================

	OpTransform Opcode = 0x30 // Pop native from scratch, apply <Xform>, push result
	OpCall      Opcode = 0x31 // Pop native from scratch, resolve by runtime type, push its generic form

	// ========================================================================
	// Navigation (0x40-0x4F) - deserialize: walk the input tree
	// ========================================================================

	OpAccessObject          Opcode = 0x40 // Pop key from result, push input object entry (None if absent)
	OpAccessObjectConstKey  Opcode = 0x41 // Push input object entry under key <Key> (None if absent)
	OpAccessArray           Opcode = 0x42 // Pop index from scratch, push input array element
	OpAccessArrayConstIndex Opcode = 0x43 // Push input array element at index <Index>

	// ========================================================================
	// Extraction (0x50-0x5F) - deserialize: unwrap scalars
	// ========================================================================

	OpExtractBool   Opcode = 0x50 // Pop Bool from result, push native bool onto scratch
	OpExtractNumber Opcode = 0x51 // Pop Number from result, push native numeric onto scratch
	OpExtractString Opcode = 0x52 // Pop String from result, push native string onto scratch

	// ========================================================================
	// Binding (0x60-0x6F) - deserialize: write natives into the instance
	// ========================================================================

	OpPopField   Opcode = 0x60 // Pop native from scratch, write field <Field> of frame object
	OpPopElement Opcode = 0x61 // Pop native from scratch, set element <Index> of frame object
	OpPopEntry   Opcode = 0x62 // Pop value then key from scratch, set entry of frame object

	// ========================================================================
	// Reconstruction (0x70-0x7F) - deserialize: dynamic shapes
	// ========================================================================

	OpUntransform Opcode = 0x70 // Pop value from result, apply <Xform> toward <Type>, push native
	OpRestore     Opcode = 0x71 // Pop value from result, rebuild native of <Type>, push onto scratch
)

// OperandKind describes which Instruction fields an opcode reads:
// OperandKey reads Key, OperandIndex reads Index, OperandConst reads
// Const, OperandField reads Field, OperandXform reads Xform,
// OperandType reads Type, and OperandXformType reads both Xform and
// Type.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandKey
	OperandIndex
	OperandConst
	OperandField
	OperandXform
	OperandType
	OperandXformType
)

// OpcodeInfo provides metadata about each opcode for validation,
// testing, and disassembly. Pop and push counts are net effects:
// OpCall and OpRestore count the value their spawned frame eventually
// delivers. Peeked values (the container a Modify writes into) are
// not counted.
type OpcodeInfo struct {
	Name        string      // Human-readable name
	ScratchPop  int         // Values popped from the scratch stack
	ScratchPush int         // Values pushed onto the scratch stack
	ResultPop   int         // Values popped from the result stack
	ResultPush  int         // Values pushed onto the result stack
	Operand     OperandKind // Instruction fields the opcode reads
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpInvalid: {"INVALID", 0, 0, 0, 0, OperandNone},

	// Construction
	OpCreateObject: {"CREATE_OBJECT", 0, 0, 0, 1, OperandNone},
	OpCreateArray:  {"CREATE_ARRAY", 0, 0, 0, 1, OperandIndex},
	OpCreateNone:   {"CREATE_NONE", 0, 0, 0, 1, OperandNone},
	OpCreateBool:   {"CREATE_BOOL", 1, 0, 0, 1, OperandType},
	OpCreateNumber: {"CREATE_NUMBER", 1, 0, 0, 1, OperandType},
	OpCreateString: {"CREATE_STRING", 1, 0, 0, 1, OperandType},

	// Population
	OpModifyObject:          {"MODIFY_OBJECT", 0, 0, 2, 0, OperandNone},
	OpModifyObjectConstKey:  {"MODIFY_OBJECT_K", 0, 0, 1, 0, OperandKey},
	OpModifyArray:           {"MODIFY_ARRAY", 1, 0, 1, 0, OperandNone},
	OpModifyArrayConstIndex: {"MODIFY_ARRAY_I", 0, 0, 1, 0, OperandIndex},

	// Data movement
	OpPushConst: {"PUSH_CONST", 0, 1, 0, 0, OperandConst},
	OpPushField: {"PUSH_FIELD", 0, 1, 0, 0, OperandField},

	// Dispatch
	OpTransform: {"TRANSFORM", 1, 0, 0, 1, OperandXform},
	OpCall:      {"CALL", 1, 0, 0, 1, OperandNone},

	// Navigation
	OpAccessObject:          {"ACCESS_OBJECT", 0, 0, 1, 1, OperandNone},
	OpAccessObjectConstKey:  {"ACCESS_OBJECT_K", 0, 0, 0, 1, OperandKey},
	OpAccessArray:           {"ACCESS_ARRAY", 1, 0, 0, 1, OperandNone},
	OpAccessArrayConstIndex: {"ACCESS_ARRAY_I", 0, 0, 0, 1, OperandIndex},

	// Extraction
	OpExtractBool:   {"EXTRACT_BOOL", 0, 1, 1, 0, OperandNone},
	OpExtractNumber: {"EXTRACT_NUMBER", 0, 1, 1, 0, OperandNone},
	OpExtractString: {"EXTRACT_STRING", 0, 1, 1, 0, OperandNone},

	// Binding
	OpPopField:   {"POP_FIELD", 1, 0, 0, 0, OperandField},
	OpPopElement: {"POP_ELEMENT", 1, 0, 0, 0, OperandIndex},
	OpPopEntry:   {"POP_ENTRY", 2, 0, 0, 0, OperandNone},

	// Reconstruction
	OpUntransform: {"UNTRANSFORM", 0, 1, 1, 0, OperandXformType},
	OpRestore:     {"RESTORE", 0, 1, 1, 0, OperandType},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsSerialize returns true if this opcode belongs to the serialization
// half of the vocabulary.
func (op Opcode) IsSerialize() bool {
	return op >= OpCreateObject && op <= OpCall
}

// IsDeserialize returns true if this opcode belongs to the
// deserialization half of the vocabulary.
func (op Opcode) IsDeserialize() bool {
	return op >= OpAccessObject && op <= OpRestore
}

// IsDispatch returns true if this opcode resolves shapes at runtime
// through the machine's Resolver.
func (op Opcode) IsDispatch() bool {
	return op == OpCall || op == OpRestore
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
