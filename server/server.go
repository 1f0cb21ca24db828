// Package server exposes the Lox VM over Connect (HTTP/JSON and gRPC on one
// port), a native gRPC listener with reflection, and the Language Server
// Protocol.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/chazu/lox/vm"
)

var log = commonlog.GetLogger("lox.server")

// LoxServer wraps a VM behind the evaluation service.
type LoxServer struct {
	worker *VMWorker
	eval   *EvalService
	mux    *http.ServeMux
	grpc   *grpc.Server
	http   *http.Server
}

// ServerOption configures a LoxServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	compile CompileFunc
}

// WithCompileFunc sets the function used to compile request sources, for
// example a chunk cache. Defaults to compiler.Compile.
func WithCompileFunc(fn CompileFunc) ServerOption {
	return func(c *serverConfig) { c.compile = fn }
}

// New creates a LoxServer wrapping the given VM.
func New(v *vm.VM, opts ...ServerOption) (*LoxServer, error) {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if _, err := EvalServiceDescriptor(); err != nil {
		return nil, err
	}

	worker := NewVMWorker(v)
	s := &LoxServer{
		worker: worker,
		eval:   NewEvalService(worker, cfg.compile),
		mux:    http.NewServeMux(),
		grpc:   grpc.NewServer(),
	}

	s.mux.Handle(EvaluateProcedure, connect.NewUnaryHandler(EvaluateProcedure, s.eval.Evaluate))
	s.mux.Handle(CheckSyntaxProcedure, connect.NewUnaryHandler(CheckSyntaxProcedure, s.eval.CheckSyntax))

	s.grpc.RegisterService(&evalServiceDesc, s.eval)
	reflection.Register(s.grpc)

	return s, nil
}

// Handler returns the Connect mux.
func (s *LoxServer) Handler() http.Handler {
	return s.mux
}

// GRPCServer returns the native gRPC server.
func (s *LoxServer) GRPCServer() *grpc.Server {
	return s.grpc
}

// ListenAndServe serves Connect on addr. Unencrypted HTTP/2 is enabled so
// gRPC clients can use the same port as HTTP/JSON clients.
func (s *LoxServer) ListenAndServe(addr string) error {
	protocols := new(http.Protocols)
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		Protocols:         protocols,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Noticef("Lox server listening on %s", addr)
	log.Noticef("  Connect (HTTP/JSON): http://%s%s", addr, EvaluateProcedure)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ServeGRPC serves the native gRPC endpoint on lis until Stop is called.
func (s *LoxServer) ServeGRPC(lis net.Listener) error {
	log.Noticef("gRPC listening on %s", lis.Addr())
	return s.grpc.Serve(lis)
}

// Stop shuts down both listeners and the VM worker.
func (s *LoxServer) Stop() {
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			log.Warningf("http shutdown: %s", err)
		}
	}
	s.grpc.GracefulStop()
	s.worker.Stop()
}
