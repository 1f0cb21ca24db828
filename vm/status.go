package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/lox/compiler"
)

// Status is the outcome of interpreting a program.
type Status int

const (
	StatusOK Status = iota
	StatusCompileError
	StatusRuntimeError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCompileError:
		return "compile error"
	case StatusRuntimeError:
		return "runtime error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Process exit codes, following the BSD sysexits convention.
const (
	ExitOK           = 0
	ExitUsage        = 64
	ExitCompileError = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

// ExitCode maps a status to the process exit code a shell should use.
func (s Status) ExitCode() int {
	switch s {
	case StatusOK:
		return ExitOK
	case StatusCompileError:
		return ExitCompileError
	case StatusRuntimeError:
		return ExitRuntimeError
	default:
		return ExitRuntimeError
	}
}

// StatusOf classifies an error returned by Interpret or Run.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var cerr compiler.Errors
	if errors.As(err, &cerr) {
		return StatusCompileError
	}
	return StatusRuntimeError
}
