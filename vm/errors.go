package vm

import (
	"errors"
	"fmt"
)

var (
	// ErrStackOverflow is returned when a push would exceed StackMax.
	ErrStackOverflow = errors.New("stack overflow")

	// ErrStackUnderflow is returned when an instruction pops an empty stack.
	// Compiled chunks never do this; it indicates corrupt bytecode.
	ErrStackUnderflow = errors.New("stack underflow")

	// ErrCorruptBytecode is returned for unknown opcodes, truncated operands,
	// constant indexes outside the pool, and code that ends without a return.
	ErrCorruptBytecode = errors.New("corrupt bytecode")

	// ErrOperandType is returned when an arithmetic operand is not a number.
	ErrOperandType = errors.New("operands must be numbers")
)

// RuntimeError is a fault raised while executing a chunk.
type RuntimeError struct {
	Err    error
	Offset int // byte offset of the faulting instruction
	Line   int // source line of the faulting instruction, 0 if unknown
	Detail string
}

func (e *RuntimeError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return fmt.Sprintf("%s\n[line %d] in script", msg, e.Line)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}
