package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/chazu/lox/pkg/bytecode"
	"github.com/chazu/lox/pkg/value"
	"github.com/chazu/lox/server"
	"github.com/chazu/lox/vm"
)

// ChunkExt marks files holding a CBOR-encoded compiled chunk.
const ChunkExt = ".loxc"

func runFile(path string, opts *options, stdout, stderr io.Writer) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Could not open file \"%s\".\n", path)
		return vm.ExitIOError
	}

	var chunk *bytecode.Chunk
	if filepath.Ext(path) == ChunkExt {
		chunk, err = bytecode.UnmarshalChunk(data)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s: %v\n", path, err)
			return vm.ExitCompileError
		}
	} else {
		chunk, err = opts.compile(context.Background(), string(data))
		if err != nil {
			fmt.Fprintln(stderr, err)
			return vm.StatusOf(err).ExitCode()
		}
	}

	if opts.output != "" {
		return writeChunk(chunk, opts.output, stderr)
	}

	_, err = execute(vm.NewVM(), chunk, filepath.Base(path), opts, stdout, stderr)
	return vm.StatusOf(err).ExitCode()
}

// execute runs chunk on v, printing the disassembly and trace when enabled,
// then the result value or the runtime error.
func execute(v *vm.VM, chunk *bytecode.Chunk, name string, opts *options, stdout, stderr io.Writer) (value.Value, error) {
	if opts.disasm {
		fmt.Fprint(stdout, chunk.Disassemble(name))
	}
	if opts.trace {
		v.Trace = stdout
		defer func() { v.Trace = nil }()
	}

	result, err := v.Run(chunk)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return result, err
	}
	fmt.Fprintln(stdout, result)
	return result, nil
}

func writeChunk(chunk *bytecode.Chunk, path string, stderr io.Writer) int {
	data, err := bytecode.MarshalChunk(chunk)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return vm.ExitCompileError
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return vm.ExitIOError
	}
	log.Infof("wrote %d bytes to %s", len(data), path)
	return vm.ExitOK
}

func runServer(opts *options, stderr io.Writer) int {
	srv, err := server.New(vm.NewVM(), server.WithCompileFunc(opts.compile))
	if err != nil {
		fmt.Fprintf(stderr, "Server error: %v\n", err)
		return vm.ExitRuntimeError
	}
	defer srv.Stop()

	if addr := opts.config.Server.GRPCAddr; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return vm.ExitIOError
		}
		go func() {
			if err := srv.ServeGRPC(lis); err != nil {
				log.Errorf("gRPC server: %s", err)
			}
		}()
	}

	if err := srv.ListenAndServe(opts.config.Server.Addr); err != nil {
		fmt.Fprintf(stderr, "Server error: %v\n", err)
		return vm.ExitIOError
	}
	return vm.ExitOK
}

func runLSP(opts *options, stderr io.Writer) int {
	ls := server.NewLSP(vm.NewVM(), server.WithCompileFunc(opts.compile))
	if err := ls.Run(); err != nil && !errors.Is(err, io.EOF) {
		fmt.Fprintf(stderr, "LSP error: %v\n", err)
		return vm.ExitIOError
	}
	return vm.ExitOK
}
