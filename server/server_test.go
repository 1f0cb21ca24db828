package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/jhump/protoreflect/grpcreflect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/lox/vm"
)

func newTestServer(t *testing.T, opts ...ServerOption) *LoxServer {
	t.Helper()
	s, err := New(vm.NewVM(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

// ---------------------------------------------------------------------------
// Connect over HTTP
// ---------------------------------------------------------------------------

func TestConnect_EvaluateJSON(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	client := connect.NewClient[wrapperspb.StringValue, structpb.Struct](
		ts.Client(), ts.URL+EvaluateProcedure, connect.WithProtoJSON(),
	)
	resp, err := client.CallUnary(bg(), connect.NewRequest(wrapperspb.String("(5 - 1) / 2")))
	if err != nil {
		t.Fatalf("CallUnary: %v", err)
	}
	if got := str(resp.Msg, "result"); got != "2" {
		t.Errorf("result = %q, want 2", got)
	}
}

func TestConnect_RawHTTP(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+CheckSyntaxProcedure, "application/json", strings.NewReader(`"1 +"`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestConnect_InvalidArgument(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	client := connect.NewClient[wrapperspb.StringValue, structpb.Struct](ts.Client(), ts.URL+EvaluateProcedure)
	_, err := client.CallUnary(bg(), connect.NewRequest(wrapperspb.String("")))
	if connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", connect.CodeOf(err))
	}
}

// ---------------------------------------------------------------------------
// Native gRPC over an in-memory listener
// ---------------------------------------------------------------------------

func dialBufconn(t *testing.T, s *LoxServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go s.ServeGRPC(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestGRPC_Evaluate(t *testing.T) {
	conn := dialBufconn(t, newTestServer(t))

	out := new(structpb.Struct)
	if err := conn.Invoke(bg(), EvaluateProcedure, wrapperspb.String("-2 * -3"), out); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := str(out, "result"); got != "6" {
		t.Errorf("result = %q, want 6", got)
	}
}

func TestGRPC_StatusCodes(t *testing.T) {
	conn := dialBufconn(t, newTestServer(t))

	err := conn.Invoke(bg(), CheckSyntaxProcedure, wrapperspb.String(""), new(structpb.Struct))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestGRPC_Reflection(t *testing.T) {
	conn := dialBufconn(t, newTestServer(t))

	ctx, cancel := context.WithCancel(bg())
	defer cancel()
	client := grpcreflect.NewClientV1Alpha(ctx, rpb.NewServerReflectionClient(conn))
	defer client.Reset()

	services, err := client.ListServices()
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	if !slices.Contains(services, EvalServiceName) {
		t.Fatalf("services = %v, want %s listed", services, EvalServiceName)
	}

	svc, err := client.ResolveService(EvalServiceName)
	if err != nil {
		t.Fatalf("ResolveService: %v", err)
	}
	m := svc.FindMethodByName("Evaluate")
	if m == nil {
		t.Fatal("Evaluate method missing from descriptor")
	}
	if got := m.GetInputType().GetFullyQualifiedName(); got != "google.protobuf.StringValue" {
		t.Errorf("input type = %s", got)
	}
	if got := m.GetOutputType().GetFullyQualifiedName(); got != "google.protobuf.Struct" {
		t.Errorf("output type = %s", got)
	}
}

func TestEvalServiceDescriptor_Idempotent(t *testing.T) {
	a, err := EvalServiceDescriptor()
	if err != nil {
		t.Fatal(err)
	}
	b, err := EvalServiceDescriptor()
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("descriptor should be built once")
	}
	if a.FindService(EvalServiceName) == nil {
		t.Errorf("descriptor lacks %s", EvalServiceName)
	}
}
