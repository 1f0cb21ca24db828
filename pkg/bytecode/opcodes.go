package bytecode

import (
	"errors"
	"fmt"
)

// Opcode represents a bytecode instruction.
type Opcode byte

const (
	OpConstant Opcode = iota // Push constant from pool: OpConstant <index:u8>
	OpAdd                    // Pop two, push sum
	OpSubtract               // Pop two, push difference (a - b where b is TOS)
	OpMultiply               // Pop two, push product
	OpDivide                 // Pop two, push quotient
	OpNegate                 // Negate top of stack
	OpReturn                 // Pop and return top of stack

	opcodeCount
)

// ErrUnknownOpcode is returned when a byte does not name an opcode.
var ErrUnknownOpcode = errors.New("unknown opcode")

// ErrTruncated is returned when an instruction's operand runs past the end of
// the code section.
var ErrTruncated = errors.New("truncated instruction")

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack
	StackPush  int    // How many values pushed to stack
	OperandLen int    // Number of operand bytes following the opcode
}

var opcodeInfoTable = [opcodeCount]OpcodeInfo{
	OpConstant: {"OP_CONSTANT", 0, 1, 1},
	OpAdd:      {"OP_ADD", 2, 1, 0},
	OpSubtract: {"OP_SUBTRACT", 2, 1, 0},
	OpMultiply: {"OP_MULTIPLY", 2, 1, 0},
	OpDivide:   {"OP_DIVIDE", 2, 1, 0},
	OpNegate:   {"OP_NEGATE", 1, 1, 0},
	OpReturn:   {"OP_RETURN", 1, 0, 0},
}

// Valid reports whether op names a known instruction.
func (op Opcode) Valid() bool {
	return op < opcodeCount
}

// Info returns the metadata for op. Unknown opcodes get a synthetic name and
// zero stack effect.
func (op Opcode) Info() OpcodeInfo {
	if !op.Valid() {
		return OpcodeInfo{Name: fmt.Sprintf("OP_UNKNOWN(0x%02X)", byte(op))}
	}
	return opcodeInfoTable[op]
}

func (op Opcode) String() string {
	return op.Info().Name
}

// DecodeOpcode converts a raw code byte to an Opcode.
func DecodeOpcode(b byte) (Opcode, error) {
	op := Opcode(b)
	if !op.Valid() {
		return 0, fmt.Errorf("%w 0x%02X", ErrUnknownOpcode, b)
	}
	return op, nil
}

// Instruction is the decoded, in-memory form of one instruction.
type Instruction struct {
	Op      Opcode
	Operand byte // only meaningful when Op.Info().OperandLen == 1
}

// Len returns the encoded size in bytes.
func (in Instruction) Len() int {
	return 1 + in.Op.Info().OperandLen
}

// Encode appends the byte form of in to dst.
func (in Instruction) Encode(dst []byte) []byte {
	dst = append(dst, byte(in.Op))
	if in.Op.Info().OperandLen == 1 {
		dst = append(dst, in.Operand)
	}
	return dst
}

// DecodeInstruction decodes the instruction starting at offset in code.
// It returns the instruction and its encoded length.
func DecodeInstruction(code []byte, offset int) (Instruction, int, error) {
	if offset < 0 || offset >= len(code) {
		return Instruction{}, 0, fmt.Errorf("%w at offset %d", ErrTruncated, offset)
	}
	op, err := DecodeOpcode(code[offset])
	if err != nil {
		return Instruction{}, 0, fmt.Errorf("offset %d: %w", offset, err)
	}
	in := Instruction{Op: op}
	switch op.Info().OperandLen {
	case 0:
	case 1:
		if offset+1 >= len(code) {
			return Instruction{}, 0, fmt.Errorf("%w: %s at offset %d", ErrTruncated, op, offset)
		}
		in.Operand = code[offset+1]
	}
	return in, in.Len(), nil
}
