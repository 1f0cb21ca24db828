package bytecode

import (
	"errors"
	"testing"
)

func TestDecodeOpcode(t *testing.T) {
	for b := 0; b < 256; b++ {
		op, err := DecodeOpcode(byte(b))
		if b < int(opcodeCount) {
			if err != nil {
				t.Errorf("DecodeOpcode(%d) error: %v", b, err)
			}
			if byte(op) != byte(b) {
				t.Errorf("DecodeOpcode(%d) = %d", b, op)
			}
			continue
		}
		if !errors.Is(err, ErrUnknownOpcode) {
			t.Errorf("DecodeOpcode(%d) error = %v, want ErrUnknownOpcode", b, err)
		}
	}
}

func TestOpcodeInfoComplete(t *testing.T) {
	for op := Opcode(0); op < opcodeCount; op++ {
		info := op.Info()
		if info.Name == "" {
			t.Errorf("opcode %d has no info entry", op)
		}
	}
	if name := Opcode(0xFE).String(); name != "OP_UNKNOWN(0xFE)" {
		t.Errorf("unknown opcode name = %q", name)
	}
}

func TestInstructionEncodeDecode(t *testing.T) {
	tests := []struct {
		in   Instruction
		want []byte
	}{
		{Instruction{Op: OpConstant, Operand: 7}, []byte{byte(OpConstant), 7}},
		{Instruction{Op: OpAdd}, []byte{byte(OpAdd)}},
		{Instruction{Op: OpReturn, Operand: 9}, []byte{byte(OpReturn)}},
	}
	for _, tc := range tests {
		got := tc.in.Encode(nil)
		if string(got) != string(tc.want) {
			t.Errorf("Encode(%v) = %v, want %v", tc.in, got, tc.want)
			continue
		}
		dec, n, err := DecodeInstruction(got, 0)
		if err != nil {
			t.Fatalf("DecodeInstruction(%v): %v", got, err)
		}
		if n != len(tc.want) {
			t.Errorf("length = %d, want %d", n, len(tc.want))
		}
		if dec.Op != tc.in.Op {
			t.Errorf("op = %s, want %s", dec.Op, tc.in.Op)
		}
	}
}

func TestDecodeInstructionErrors(t *testing.T) {
	if _, _, err := DecodeInstruction([]byte{byte(OpConstant)}, 0); !errors.Is(err, ErrTruncated) {
		t.Errorf("truncated operand: err = %v, want ErrTruncated", err)
	}
	if _, _, err := DecodeInstruction([]byte{0xEE}, 0); !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("unknown opcode: err = %v, want ErrUnknownOpcode", err)
	}
	if _, _, err := DecodeInstruction([]byte{byte(OpAdd)}, 1); !errors.Is(err, ErrTruncated) {
		t.Errorf("past end: err = %v, want ErrTruncated", err)
	}
}
