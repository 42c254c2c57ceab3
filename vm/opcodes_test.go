package vm

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	// Ensure every defined opcode has metadata
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", op)
		}
	}
}

func TestOpcodeCount(t *testing.T) {
	if got, want := OpcodeCount(), len(AllOpcodes()); got != want {
		t.Errorf("OpcodeCount() = %d, AllOpcodes() has %d", got, want)
	}
	if count := OpcodeCount(); count < 24 {
		t.Errorf("Expected the full vocabulary, got %d opcodes", count)
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpInvalid, "INVALID"},
		{OpCreateObject, "CREATE_OBJECT"},
		{OpCreateArray, "CREATE_ARRAY"},
		{OpCreateNumber, "CREATE_NUMBER"},
		{OpModifyObject, "MODIFY_OBJECT"},
		{OpModifyObjectConstKey, "MODIFY_OBJECT_K"},
		{OpPushConst, "PUSH_CONST"},
		{OpPushField, "PUSH_FIELD"},
		{OpTransform, "TRANSFORM"},
		{OpCall, "CALL"},
		{OpAccessObjectConstKey, "ACCESS_OBJECT_K"},
		{OpExtractNumber, "EXTRACT_NUMBER"},
		{OpPopField, "POP_FIELD"},
		{OpPopEntry, "POP_ENTRY"},
		{OpUntransform, "UNTRANSFORM"},
		{OpRestore, "RESTORE"},
	}

	for _, tt := range tests {
		got := tt.op.String()
		if got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE) // Not defined
	got := op.String()
	if !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("Unknown opcode should return UNKNOWN, got %q", got)
	}
}

func TestOpcodeRanges(t *testing.T) {
	for _, op := range AllOpcodes() {
		if op == OpInvalid {
			if op.IsSerialize() || op.IsDeserialize() {
				t.Errorf("%s assigned to a direction", op)
			}
			continue
		}
		if op.IsSerialize() == op.IsDeserialize() {
			t.Errorf("%s must belong to exactly one direction", op)
		}
	}
	if !OpCall.IsDispatch() || !OpRestore.IsDispatch() {
		t.Error("dispatch opcodes misclassified")
	}
	if OpPushField.IsDispatch() {
		t.Error("PUSH_FIELD is not a dispatch opcode")
	}
}

func TestOperandKinds(t *testing.T) {
	tests := []struct {
		op   Opcode
		want OperandKind
	}{
		{OpCreateObject, OperandNone},
		{OpCreateArray, OperandIndex},
		{OpCreateNumber, OperandType},
		{OpModifyObjectConstKey, OperandKey},
		{OpPushConst, OperandConst},
		{OpPushField, OperandField},
		{OpTransform, OperandXform},
		{OpPopElement, OperandIndex},
		{OpUntransform, OperandXformType},
		{OpRestore, OperandType},
	}
	for _, tt := range tests {
		if got := GetOpcodeInfo(tt.op).Operand; got != tt.want {
			t.Errorf("%s operand kind = %d, want %d", tt.op, got, tt.want)
		}
	}
}
