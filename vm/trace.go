package vm

import (
	"fmt"
	"strings"
)

// traceInstruction writes the current stack followed by the instruction about
// to execute. It only reads VM state.
func (vm *VM) traceInstruction(offset int) {
	var sb strings.Builder
	sb.WriteString("          ")
	for _, v := range vm.stack[:vm.stackTop] {
		fmt.Fprintf(&sb, "[ %s ]", v)
	}
	sb.WriteByte('\n')
	if offset < vm.chunk.Len() {
		line, _ := vm.chunk.DisassembleInstruction(offset)
		sb.WriteString(line)
	} else {
		fmt.Fprintf(&sb, "%04d <end of code>", offset)
	}
	sb.WriteByte('\n')
	fmt.Fprint(vm.Trace, sb.String())
}
