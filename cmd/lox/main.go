// Lox CLI - compiles and runs Lox expressions, serves them over RPC and LSP
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/manifest"
	"github.com/chazu/lox/pkg/bytecode"
	"github.com/chazu/lox/server"
	"github.com/chazu/lox/store"
	"github.com/chazu/lox/vm"
)

var log = commonlog.GetLogger("lox.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options are the resolved settings after merging lox.toml with flags.
type options struct {
	trace   bool
	disasm  bool
	output  string
	serve   bool
	lsp     bool
	config  *manifest.Manifest
	compile server.CompileFunc
}

// run is main without the process exit, so tests can drive it.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("lox", flag.ContinueOnError)
	fs.SetOutput(stderr)

	verbose := fs.Bool("v", false, "Verbose logging")
	trace := fs.Bool("trace", false, "Print the stack and each instruction while executing")
	disasm := fs.Bool("disasm", false, "Print the compiled chunk before executing")
	output := fs.String("o", "", "Write the compiled chunk to `file` instead of running it")
	serve := fs.Bool("serve", false, "Start the evaluation server (Connect HTTP/JSON + gRPC)")
	lsp := fs.Bool("lsp", false, "Start the language server on stdio")
	configPath := fs.String("config", "", "Read configuration from `file` instead of searching for lox.toml")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lox [options] [file]\n\n")
		fmt.Fprintf(stderr, "Runs a Lox source file, a compiled .loxc chunk, or an interactive REPL.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  lox                       # Start REPL\n")
		fmt.Fprintf(stderr, "  lox calc.lox              # Compile and run\n")
		fmt.Fprintf(stderr, "  lox -disasm -trace x.lox  # Show bytecode and execution\n")
		fmt.Fprintf(stderr, "  lox -o calc.loxc calc.lox # Compile only\n")
		fmt.Fprintf(stderr, "  lox calc.loxc             # Run a compiled chunk\n")
		fmt.Fprintf(stderr, "  lox -serve                # Serve on [server] addr from lox.toml\n")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return vm.ExitOK
		}
		return vm.ExitUsage
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return vm.ExitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return vm.ExitUsage
	}

	verbosity := cfg.Log.Verbosity
	if *verbose && verbosity < 4 {
		verbosity = 4
	}
	commonlog.Configure(verbosity, cfg.LogPath())

	opts := &options{
		trace:  *trace || cfg.Run.Trace,
		disasm: *disasm || cfg.Run.Disassemble,
		output: *output,
		serve:  *serve,
		lsp:    *lsp,
		config: cfg,
	}

	compile, closeCache, err := openCompiler(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return vm.ExitIOError
	}
	defer closeCache()
	opts.compile = compile

	switch {
	case opts.lsp:
		return runLSP(opts, stderr)
	case opts.serve:
		return runServer(opts, stderr)
	case fs.NArg() == 1:
		return runFile(fs.Arg(0), opts, stdout, stderr)
	case opts.output != "":
		fmt.Fprintf(stderr, "Error: -o requires a source file\n")
		return vm.ExitUsage
	default:
		return runREPL(opts, stdin, stdout, stderr)
	}
}

// loadConfig reads the explicit config file, or searches upward from the
// working directory. Absence of a file yields the defaults.
func loadConfig(path string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

// openCompiler returns the compile function for this run, backed by the
// chunk cache when [cache] enabled is set.
func openCompiler(cfg *manifest.Manifest) (server.CompileFunc, func(), error) {
	plain := func(_ context.Context, source string) (*bytecode.Chunk, error) {
		return compiler.Compile(source)
	}
	if !cfg.Cache.Enabled {
		return plain, func() {}, nil
	}

	db, err := store.OpenPersistence(cfg.CachePath())
	if err != nil {
		return nil, nil, fmt.Errorf("opening chunk cache: %w", err)
	}
	log.Debugf("chunk cache at %s", cfg.CachePath())
	cache := store.NewCache(compiler.Compile, db)
	closeFn := func() {
		if err := db.Close(); err != nil {
			log.Warningf("closing chunk cache: %s", err)
		}
	}
	return cache.Compile, closeFn, nil
}
