package server

import (
	"context"
	"errors"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/pkg/bytecode"
	"github.com/chazu/lox/pkg/value"
	"github.com/chazu/lox/vm"
)

// CompileFunc turns source into a chunk. The default is compiler.Compile; the
// CLI substitutes a store.Cache when chunk caching is enabled.
type CompileFunc func(ctx context.Context, source string) (*bytecode.Chunk, error)

func defaultCompile(_ context.Context, source string) (*bytecode.Chunk, error) {
	return compiler.Compile(source)
}

// Outcome is the result of compiling and optionally running one program.
type Outcome struct {
	Status      vm.Status
	Value       value.Value
	Diagnostics []compiler.Diagnostic
	Runtime     *vm.RuntimeError
	CodeSize    int
	Ran         bool // false for syntax checks
}

// newOutcome classifies err (as returned by compile or Run) into an Outcome.
func newOutcome(v value.Value, err error) Outcome {
	o := Outcome{Status: vm.StatusOf(err), Value: v}
	var cerr compiler.Errors
	var rerr *vm.RuntimeError
	switch {
	case errors.As(err, &cerr):
		o.Diagnostics = cerr
	case errors.As(err, &rerr):
		o.Runtime = rerr
	case err != nil:
		o.Runtime = &vm.RuntimeError{Err: err}
	}
	return o
}

// evaluate compiles source and runs it on v. It must be called on the worker
// goroutine.
func evaluate(ctx context.Context, v *vm.VM, compile CompileFunc, source string) Outcome {
	chunk, err := compile(ctx, source)
	if err != nil {
		return newOutcome(value.Nil, err)
	}
	result, err := v.Run(chunk)
	o := newOutcome(result, err)
	o.CodeSize = chunk.Len()
	o.Ran = true
	return o
}

// check compiles source without running it.
func check(ctx context.Context, compile CompileFunc, source string) Outcome {
	chunk, err := compile(ctx, source)
	o := newOutcome(value.Nil, err)
	if chunk != nil {
		o.CodeSize = chunk.Len()
	}
	return o
}

// toStruct renders an outcome as the response message shared by every
// transport.
func (o Outcome) toStruct(requestID string) (*structpb.Struct, error) {
	fields := map[string]any{
		"request_id": requestID,
		"success":    o.Status == vm.StatusOK,
		"status":     o.Status.String(),
		"code_size":  o.CodeSize,
	}
	if o.Ran && o.Status == vm.StatusOK {
		fields["result"] = o.Value.String()
		fields["kind"] = o.Value.Kind().String()
	}
	if len(o.Diagnostics) > 0 {
		diags := make([]any, len(o.Diagnostics))
		for i, d := range o.Diagnostics {
			diags[i] = map[string]any{
				"line":    d.Line,
				"where":   d.Where,
				"message": d.Message,
				"text":    d.Error(),
			}
		}
		fields["diagnostics"] = diags
	}
	if o.Runtime != nil {
		fields["error"] = o.Runtime.Error()
		fields["line"] = o.Runtime.Line
	}
	return structpb.NewStruct(fields)
}
