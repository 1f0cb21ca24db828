// Package bytecode defines the compiled form of a lox program: a Chunk holding
// an instruction byte stream, its constant pool and a per-byte line table.
//
// The instruction encoding is compact: every instruction is a one-byte opcode
// optionally followed by a one-byte operand. Opcode bytes are decoded through
// DecodeOpcode, which rejects unknown values instead of trusting the stream.
//
// # Components
//
//   - Opcodes: the closed instruction set executed by the VM
//
//   - Chunk: code, constants and lines, appended to in lockstep while compiling
//
//   - Disassembler: a human-readable listing used by trace mode and -disasm
//
//   - Wire format: CBOR encoding of chunks for .loxc files and the chunk store
package bytecode
