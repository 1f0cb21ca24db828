package server

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/lox/pkg/bytecode"
	"github.com/chazu/lox/vm"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

func bg() context.Context {
	return context.Background()
}

func sourceReq(src string) *connect.Request[wrapperspb.StringValue] {
	return connect.NewRequest(wrapperspb.String(src))
}

// newTestEvalService creates an EvalService with its own VM and worker.
func newTestEvalService(t *testing.T, compile CompileFunc) *EvalService {
	t.Helper()
	w := NewVMWorker(vm.NewVM())
	t.Cleanup(w.Stop)
	return NewEvalService(w, compile)
}

// underflowChunk compiles to a chunk that returns from an empty stack, the
// simplest program that faults at runtime.
func underflowChunk(context.Context, string) (*bytecode.Chunk, error) {
	c := bytecode.NewChunk()
	c.WriteOp(bytecode.OpReturn, 7)
	return c, nil
}

func str(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func boolean(s *structpb.Struct, name string) bool {
	return s.GetFields()[name].GetBoolValue()
}

func num(s *structpb.Struct, name string) float64 {
	return s.GetFields()[name].GetNumberValue()
}
