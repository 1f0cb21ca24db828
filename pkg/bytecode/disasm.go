package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a listing of the whole chunk under a "== name ==" header.
func (c *Chunk) Disassemble(name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		line, n := c.DisassembleInstruction(offset)
		sb.WriteString(line)
		sb.WriteByte('\n')
		offset += n
	}
	return sb.String()
}

// DisassembleInstruction formats the instruction at offset and returns it
// together with the number of bytes it occupies. Undecodable bytes are shown
// and skipped one at a time so a corrupt chunk can still be inspected.
func (c *Chunk) DisassembleInstruction(offset int) (string, int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04d ", offset)
	if offset > 0 && c.LineAt(offset) == c.LineAt(offset-1) {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(&sb, "%4d ", c.LineAt(offset))
	}

	in, n, err := DecodeInstruction(c.Code, offset)
	if err != nil {
		fmt.Fprintf(&sb, "<%v>", err)
		return sb.String(), 1
	}

	switch in.Op {
	case OpConstant:
		constant := "<bad constant>"
		if v, ok := c.Constant(in.Operand); ok {
			constant = "'" + v.String() + "'"
		}
		fmt.Fprintf(&sb, "%-16s %4d %s", in.Op, in.Operand, constant)
	case OpAdd, OpSubtract, OpMultiply, OpDivide, OpNegate, OpReturn:
		sb.WriteString(in.Op.String())
	}
	return sb.String(), n
}
