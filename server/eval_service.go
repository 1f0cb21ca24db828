package server

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/lox/vm"
)

// Procedure paths, shared by the Connect mux and the native gRPC service.
const (
	EvalServiceName           = "lox.v1.EvalService"
	EvaluateProcedure         = "/" + EvalServiceName + "/Evaluate"
	CheckSyntaxProcedure      = "/" + EvalServiceName + "/CheckSyntax"
	evalServiceDescriptorFile = "lox/v1/eval.proto"
)

// EvalService compiles and runs Lox expressions on behalf of remote clients.
// Requests carry the source as a google.protobuf.StringValue; responses are a
// google.protobuf.Struct (see Outcome.toStruct).
type EvalService struct {
	worker  *VMWorker
	compile CompileFunc
}

// NewEvalService creates an EvalService.
func NewEvalService(worker *VMWorker, compile CompileFunc) *EvalService {
	if compile == nil {
		compile = defaultCompile
	}
	return &EvalService{worker: worker, compile: compile}
}

// Evaluate compiles and executes an expression.
func (s *EvalService) Evaluate(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	res, err := s.evaluate(ctx, req.Msg.GetValue())
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(res), nil
}

// CheckSyntax validates source code without executing it.
func (s *EvalService) CheckSyntax(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	res, err := s.checkSyntax(ctx, req.Msg.GetValue())
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(res), nil
}

func (s *EvalService) evaluate(ctx context.Context, source string) (*structpb.Struct, error) {
	if strings.TrimSpace(source) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("source is required"))
	}

	id := uuid.NewString()
	log.Debugf("request %s: evaluate %q", id, source)

	result, err := s.worker.Do(ctx, func(v *vm.VM) any {
		return evaluate(ctx, v, s.compile, source)
	})
	if err != nil {
		log.Errorf("request %s: %s", id, err)
		return nil, connect.NewError(workerErrorCode(err), err)
	}

	outcome := result.(Outcome)
	log.Infof("request %s: %s", id, outcome.Status)
	return s.respond(id, outcome)
}

func (s *EvalService) checkSyntax(ctx context.Context, source string) (*structpb.Struct, error) {
	if strings.TrimSpace(source) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("source is required"))
	}

	id := uuid.NewString()
	log.Debugf("request %s: check syntax", id)

	// Compilation does not touch the VM, so it can run on the caller's goroutine.
	outcome := check(ctx, s.compile, source)
	log.Infof("request %s: %s", id, outcome.Status)
	return s.respond(id, outcome)
}

// workerErrorCode classifies a VMWorker.Do failure.
func workerErrorCode(err error) connect.Code {
	switch {
	case errors.Is(err, ErrWorkerStopped):
		return connect.CodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	default:
		return connect.CodeInternal
	}
}

func (s *EvalService) respond(id string, o Outcome) (*structpb.Struct, error) {
	msg, err := o.toStruct(id)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return msg, nil
}
