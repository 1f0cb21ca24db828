// Package vm executes compiled chunks on a fixed-capacity operand stack.
package vm

import (
	"fmt"
	"io"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/pkg/bytecode"
	"github.com/chazu/lox/pkg/value"
)

// StackMax is the capacity of the operand stack.
const StackMax = 256

// VM executes bytecode chunks. A VM is not safe for concurrent use, but it may
// be reused for any number of sequential runs.
type VM struct {
	chunk    *bytecode.Chunk
	ip       int // offset of the next byte to read
	stack    [StackMax]value.Value
	stackTop int // index of the next free slot

	// Trace, when non-nil, receives the stack contents and the disassembled
	// instruction before every dispatch.
	Trace io.Writer
}

// NewVM creates a new VM instance.
func NewVM() *VM {
	return &VM{}
}

// Interpret compiles source and runs it. A compile failure is returned as
// compiler.Errors without executing anything.
func (vm *VM) Interpret(source string) (value.Value, error) {
	chunk, err := compiler.Compile(source)
	if err != nil {
		return value.Nil, err
	}
	return vm.Run(chunk)
}

// Run executes chunk from its first instruction and returns the value popped
// by OpReturn. Failures are returned as *RuntimeError.
func (vm *VM) Run(chunk *bytecode.Chunk) (value.Value, error) {
	vm.chunk = chunk
	vm.ip = 0
	vm.resetStack()
	return vm.run()
}

// Stack returns a copy of the live portion of the operand stack, bottom first.
func (vm *VM) Stack() []value.Value {
	out := make([]value.Value, vm.stackTop)
	copy(out, vm.stack[:vm.stackTop])
	return out
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
}

// run is the main execution loop.
func (vm *VM) run() (value.Value, error) {
	for {
		start := vm.ip
		if vm.Trace != nil {
			vm.traceInstruction(start)
		}

		in, n, err := bytecode.DecodeInstruction(vm.chunk.Code, vm.ip)
		if err != nil {
			return value.Nil, vm.fault(start, ErrCorruptBytecode, err.Error())
		}
		vm.ip += n

		switch in.Op {
		case bytecode.OpConstant:
			v, ok := vm.chunk.Constant(in.Operand)
			if !ok {
				return value.Nil, vm.fault(start, ErrCorruptBytecode,
					fmt.Sprintf("constant index %d out of range", in.Operand))
			}
			if err := vm.push(v); err != nil {
				return value.Nil, vm.fault(start, err, "")
			}

		case bytecode.OpAdd, bytecode.OpSubtract, bytecode.OpMultiply, bytecode.OpDivide:
			if err := vm.binaryOp(in.Op); err != nil {
				return value.Nil, vm.fault(start, err, "")
			}

		case bytecode.OpNegate:
			v, err := vm.pop()
			if err != nil {
				return value.Nil, vm.fault(start, err, "")
			}
			neg, err := negate(v)
			if err != nil {
				return value.Nil, vm.fault(start, err, "")
			}
			if err := vm.push(neg); err != nil {
				return value.Nil, vm.fault(start, err, "")
			}

		case bytecode.OpReturn:
			v, err := vm.pop()
			if err != nil {
				return value.Nil, vm.fault(start, err, "")
			}
			return v, nil

		default:
			return value.Nil, vm.fault(start, ErrCorruptBytecode,
				fmt.Sprintf("unhandled opcode %s", in.Op))
		}
	}
}

func (vm *VM) push(v value.Value) error {
	if vm.stackTop >= StackMax {
		return ErrStackOverflow
	}
	vm.stack[vm.stackTop] = v
	vm.stackTop++
	return nil
}

func (vm *VM) pop() (value.Value, error) {
	if vm.stackTop == 0 {
		return value.Nil, ErrStackUnderflow
	}
	vm.stackTop--
	return vm.stack[vm.stackTop], nil
}

// binaryOp pops the right operand, then the left, and pushes left OP right.
func (vm *VM) binaryOp(op bytecode.Opcode) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	result, err := arithmetic(op, a, b)
	if err != nil {
		return err
	}
	return vm.push(result)
}

func arithmetic(op bytecode.Opcode, a, b value.Value) (value.Value, error) {
	x, err := number(a)
	if err != nil {
		return value.Nil, err
	}
	y, err := number(b)
	if err != nil {
		return value.Nil, err
	}
	switch op {
	case bytecode.OpAdd:
		return value.Number(x + y), nil
	case bytecode.OpSubtract:
		return value.Number(x - y), nil
	case bytecode.OpMultiply:
		return value.Number(x * y), nil
	case bytecode.OpDivide:
		return value.Number(x / y), nil
	}
	return value.Nil, fmt.Errorf("%w: %s is not arithmetic", ErrCorruptBytecode, op)
}

func negate(v value.Value) (value.Value, error) {
	n, err := number(v)
	if err != nil {
		return value.Nil, err
	}
	return value.Number(-n), nil
}

// number extracts a float operand, rejecting every non-number kind.
func number(v value.Value) (float64, error) {
	switch v.Kind() {
	case value.KindNumber:
		return v.AsNumber(), nil
	case value.KindNil, value.KindBool, value.KindObject:
		return 0, ErrOperandType
	default:
		return 0, fmt.Errorf("%w: unknown value kind %s", ErrCorruptBytecode, v.Kind())
	}
}

// fault builds a RuntimeError for the instruction at offset and clears the
// stack so the VM is ready for the next run.
func (vm *VM) fault(offset int, err error, detail string) error {
	line := vm.chunk.LineAt(offset)
	vm.resetStack()
	return &RuntimeError{Err: err, Offset: offset, Line: line, Detail: detail}
}
