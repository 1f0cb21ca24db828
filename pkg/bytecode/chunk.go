package bytecode

import (
	"fmt"

	"github.com/chazu/lox/pkg/value"
)

// Chunk represents compiled bytecode for one compilation unit.
// Code and Lines always have the same length: Lines[i] is the source line of
// the token that caused Code[i] to be emitted.
type Chunk struct {
	Code      []byte
	Constants value.Pool
	Lines     []int
}

// NewChunk creates a new empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:  make([]byte, 0, 64),
		Lines: make([]int, 0, 64),
	}
}

// Write appends a single byte tagged with its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// WriteInstruction appends the encoded instruction, tagging every byte with line.
func (c *Chunk) WriteInstruction(in Instruction, line int) {
	c.WriteOp(in.Op, line)
	if in.Op.Info().OperandLen == 1 {
		c.Write(in.Operand, line)
	}
}

// AddConstant appends v to the constant pool and returns its index. The
// caller is responsible for checking the index fits an operand byte.
func (c *Chunk) AddConstant(v value.Value) int {
	return c.Constants.Add(v)
}

// Constant returns the pool entry referenced by an OpConstant operand.
func (c *Chunk) Constant(index byte) (value.Value, bool) {
	return c.Constants.At(int(index))
}

// Len returns the length of the code section.
func (c *Chunk) Len() int {
	return len(c.Code)
}

// LineAt returns the source line for the byte at offset, or 0 if out of range.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}

// Validate checks the structural invariants of the chunk: the line table is
// parallel to the code, every instruction decodes, and every constant operand
// refers to an existing pool slot.
func (c *Chunk) Validate() error {
	if len(c.Lines) != len(c.Code) {
		return fmt.Errorf("line table has %d entries for %d code bytes", len(c.Lines), len(c.Code))
	}
	for offset := 0; offset < len(c.Code); {
		in, n, err := DecodeInstruction(c.Code, offset)
		if err != nil {
			return err
		}
		if in.Op == OpConstant {
			if _, ok := c.Constant(in.Operand); !ok {
				return fmt.Errorf("offset %d: constant index %d out of range (pool has %d)",
					offset, in.Operand, c.Constants.Len())
			}
		}
		offset += n
	}
	return nil
}
