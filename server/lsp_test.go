package server

import (
	"context"
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/chazu/lox/vm"
)

func evalOutcome(t *testing.T, src string, compile CompileFunc) Outcome {
	t.Helper()
	if compile == nil {
		compile = defaultCompile
	}
	return evaluate(context.Background(), vm.NewVM(), compile, src)
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnosticsFor_Clean(t *testing.T) {
	src := "1 + 2"
	diags := diagnosticsFor(src, evalOutcome(t, src, nil))
	if diags == nil || len(diags) != 0 {
		t.Errorf("diagnostics = %v, want empty non-nil slice", diags)
	}
}

func TestDiagnosticsFor_CompileErrorRange(t *testing.T) {
	src := "1 +\n  (2 *"
	diags := diagnosticsFor(src, evalOutcome(t, src, nil))
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
	d := diags[0]
	if *d.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("severity = %v, want error", *d.Severity)
	}
	want := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 0},
		End:   protocol.Position{Line: 1, Character: 6},
	}
	if d.Range != want {
		t.Errorf("range = %+v, want %+v", d.Range, want)
	}
	if d.Message != "Error at end: Expect expression." {
		t.Errorf("message = %q", d.Message)
	}
}

func TestDiagnosticsFor_LexicalError(t *testing.T) {
	src := "1 + $"
	diags := diagnosticsFor(src, evalOutcome(t, src, nil))
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic")
	}
	if diags[0].Message != "Unexpected character '$'." {
		t.Errorf("message = %q", diags[0].Message)
	}
}

func TestDiagnosticsFor_RuntimeWarning(t *testing.T) {
	src := "a\nb\nc\nd\ne\nf\ng"
	diags := diagnosticsFor(src, evalOutcome(t, src, underflowChunk))
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(diags))
	}
	if *diags[0].Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("severity = %v, want warning", *diags[0].Severity)
	}
	if diags[0].Range.Start.Line != 6 {
		t.Errorf("line = %d, want 6", diags[0].Range.Start.Line)
	}
	if strings.Contains(diags[0].Message, "\n") {
		t.Errorf("message should be a single line: %q", diags[0].Message)
	}
}

func TestLineRange_Clamps(t *testing.T) {
	text := "one\r\ntwo"
	if r := lineRange(text, 0); r.Start.Line != 0 {
		t.Errorf("line 0 should clamp to first line, got %d", r.Start.Line)
	}
	r := lineRange(text, 1)
	if r.End.Character != 3 {
		t.Errorf("CR should be excluded, end = %d", r.End.Character)
	}
	if r := lineRange(text, 99); r.Start.Line != 1 {
		t.Errorf("line 99 should clamp to last line, got %d", r.Start.Line)
	}
}

func TestLineRange_UTF16(t *testing.T) {
	tests := []struct {
		line string
		want protocol.UInteger
	}{
		{"1 + 2", 5},
		{"1 + é", 5},           // 2 UTF-8 bytes, 1 code unit
		{"1 + €", 5},           // 3 UTF-8 bytes, 1 code unit
		{"1 + \U0001F600", 6}, // 4 UTF-8 bytes, surrogate pair
	}
	for _, tt := range tests {
		if got := lineRange(tt.line, 1).End.Character; got != tt.want {
			t.Errorf("lineRange(%q) end = %d, want %d", tt.line, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Hover
// ---------------------------------------------------------------------------

func TestHoverFor(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		compile CompileFunc
		want    string
	}{
		{"value", "(1 + 2) * 3", nil, "**number** `9`"},
		{"compile error", "(1", nil, "[line 1] Error at end: Expect ')' after expression."},
		{"runtime error", "x", underflowChunk, "**runtime error** (line 7)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := hoverFor(evalOutcome(t, tt.src, tt.compile))
			content := h.Contents.(protocol.MarkupContent)
			if content.Kind != protocol.MarkupKindMarkdown {
				t.Errorf("kind = %v, want markdown", content.Kind)
			}
			if !strings.Contains(content.Value, tt.want) {
				t.Errorf("hover = %q, want it to contain %q", content.Value, tt.want)
			}
		})
	}
}

func TestLspServer_Evaluate(t *testing.T) {
	s := NewLSP(vm.NewVM())
	defer s.worker.Stop()

	o, err := s.evaluate("8 / 2")
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != vm.StatusOK || o.Value.AsNumber() != 4 {
		t.Errorf("evaluate = %v %v, want ok 4", o.Status, o.Value)
	}
}
