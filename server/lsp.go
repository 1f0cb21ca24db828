package server

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/vm"
)

const lspName = "lox-lsp"

// lspEvalTimeout bounds how long a handler waits for the VM worker.
const lspEvalTimeout = 5 * time.Second

var lspLog = commonlog.GetLogger("lox.lsp")

// LspServer publishes compile diagnostics and evaluation results to editors.
type LspServer struct {
	worker  *VMWorker
	compile CompileFunc

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server wrapping the given VM.
func NewLSP(v *vm.VM, opts ...ServerOption) *LspServer {
	cfg := &serverConfig{compile: defaultCompile}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &LspServer{
		worker:  NewVMWorker(v),
		compile: cfg.compile,
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover: s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	lspLog.Info("Lox LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[string(params.TextDocument.URI)]
	s.mu.Unlock()

	if !ok || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	outcome, err := s.evaluate(text)
	if err != nil {
		return nil, nil
	}
	return hoverFor(outcome), nil
}

func (s *LspServer) evaluate(text string) (Outcome, error) {
	ctx, cancel := context.WithTimeout(context.Background(), lspEvalTimeout)
	defer cancel()

	result, err := s.worker.Do(ctx, func(v *vm.VM) any {
		return evaluate(ctx, v, s.compile, text)
	})
	if err != nil {
		lspLog.Errorf("evaluate: %s", err)
		return Outcome{}, err
	}
	return result.(Outcome), nil
}

// hoverFor renders the result of evaluating a whole document.
func hoverFor(o Outcome) *protocol.Hover {
	var b strings.Builder
	switch o.Status {
	case vm.StatusOK:
		fmt.Fprintf(&b, "**%s** `%s`", o.Value.Kind(), o.Value)
	case vm.StatusRuntimeError:
		fmt.Fprintf(&b, "**runtime error** (line %d)\n\n%s", o.Runtime.Line, firstLine(o.Runtime.Error()))
	default:
		fmt.Fprintf(&b, "**compile error**\n\n%s", compiler.Errors(o.Diagnostics).Error())
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	outcome, err := s.evaluate(text)
	if err != nil {
		return
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnosticsFor(text, outcome),
	})
}

// diagnosticsFor converts compile errors (severity Error) and a runtime fault
// (severity Warning) into LSP diagnostics spanning the offending line.
func diagnosticsFor(text string, o Outcome) []protocol.Diagnostic {
	source := lspName
	diagnostics := []protocol.Diagnostic{}

	for _, d := range o.Diagnostics {
		severity := protocol.DiagnosticSeverityError
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lineRange(text, d.Line),
			Severity: &severity,
			Source:   &source,
			Message:  diagnosticMessage(d),
		})
	}

	if o.Runtime != nil {
		severity := protocol.DiagnosticSeverityWarning
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    lineRange(text, o.Runtime.Line),
			Severity: &severity,
			Source:   &source,
			Message:  firstLine(o.Runtime.Error()),
		})
	}

	return diagnostics
}

// --- Text helpers ---

func diagnosticMessage(d compiler.Diagnostic) string {
	if d.Where == "" {
		return d.Message
	}
	return fmt.Sprintf("Error%s: %s", d.Where, d.Message)
}

// lineRange covers the whole of the 1-based source line. Lines outside the
// document clamp to the last line.
func lineRange(text string, line int) protocol.Range {
	lines := strings.Split(text, "\n")
	idx := line - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(lines) {
		idx = len(lines) - 1
	}
	end := utf16Len(strings.TrimRight(lines[idx], "\r"))
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(idx), Character: 0},
		End:   protocol.Position{Line: protocol.UInteger(idx), Character: protocol.UInteger(end)},
	}
}

// utf16Len counts UTF-16 code units, the unit of LSP character offsets.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func boolPtr(b bool) *bool {
	return &b
}
