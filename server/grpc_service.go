package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"connectrpc.com/connect"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/builder"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// evalServer is the handler type of the native gRPC service.
type evalServer interface {
	evaluate(ctx context.Context, source string) (*structpb.Struct, error)
	checkSyntax(ctx context.Context, source string) (*structpb.Struct, error)
}

// evalServiceDesc describes EvalService to a native grpc.Server. There is no
// generated code: both methods use well-known message types.
var evalServiceDesc = grpc.ServiceDesc{
	ServiceName: EvalServiceName,
	HandlerType: (*evalServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: unaryHandler(EvaluateProcedure, evalServer.evaluate)},
		{MethodName: "CheckSyntax", Handler: unaryHandler(CheckSyntaxProcedure, evalServer.checkSyntax)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: evalServiceDescriptorFile,
}

func unaryHandler(
	fullMethod string,
	call func(evalServer, context.Context, string) (*structpb.Struct, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(wrapperspb.StringValue)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			res, err := call(srv.(evalServer), ctx, req.(*wrapperspb.StringValue).GetValue())
			return res, grpcError(err)
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, handler)
	}
}

// grpcError converts a Connect error into a gRPC status. Connect codes share
// gRPC's numbering.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	var cerr *connect.Error
	if errors.As(err, &cerr) {
		return status.Error(codes.Code(cerr.Code()), cerr.Message())
	}
	return status.Error(codes.Unknown, err.Error())
}

var (
	descriptorOnce sync.Once
	descriptorFile *desc.FileDescriptor
	descriptorErr  error
)

// EvalServiceDescriptor builds the file descriptor for lox/v1/eval.proto and
// registers it in the global registry so gRPC reflection can serve it.
func EvalServiceDescriptor() (*desc.FileDescriptor, error) {
	descriptorOnce.Do(func() {
		descriptorFile, descriptorErr = buildDescriptor()
		if descriptorErr != nil {
			return
		}
		if err := protoregistry.GlobalFiles.RegisterFile(descriptorFile.UnwrapFile()); err != nil {
			descriptorErr = fmt.Errorf("registering %s: %w", evalServiceDescriptorFile, err)
		}
	})
	return descriptorFile, descriptorErr
}

func buildDescriptor() (*desc.FileDescriptor, error) {
	stringValue, err := desc.LoadMessageDescriptor("google.protobuf.StringValue")
	if err != nil {
		return nil, fmt.Errorf("loading StringValue descriptor: %w", err)
	}
	structMsg, err := desc.LoadMessageDescriptor("google.protobuf.Struct")
	if err != nil {
		return nil, fmt.Errorf("loading Struct descriptor: %w", err)
	}

	in := builder.RpcTypeImportedMessage(stringValue, false)
	out := builder.RpcTypeImportedMessage(structMsg, false)

	svc := builder.NewService("EvalService").
		AddMethod(builder.NewMethod("Evaluate", in, out)).
		AddMethod(builder.NewMethod("CheckSyntax", in, out))

	fd, err := builder.NewFile(evalServiceDescriptorFile).
		SetPackageName("lox.v1").
		AddService(svc).
		Build()
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", evalServiceDescriptorFile, err)
	}
	return fd, nil
}
