package compiler

import (
	"testing"
)

func TestSessionFirstErrorWins(t *testing.T) {
	s := &session{}
	if s.err() != nil {
		t.Fatal("fresh session should have no error")
	}

	s.errorAt(Token{Type: TokenNumber, Lexeme: "12", Line: 3}, "first")
	s.errorAt(Token{Type: TokenPlus, Lexeme: "+", Line: 4}, "second")

	if !s.hadError || !s.panicMode {
		t.Fatalf("hadError=%v panicMode=%v, want both true", s.hadError, s.panicMode)
	}
	if len(s.diagnostics) != 1 {
		t.Fatalf("diagnostics = %v, want one", s.diagnostics)
	}
	if got := s.diagnostics[0].Error(); got != "[line 3] Error at '12': first" {
		t.Errorf("diagnostic = %q", got)
	}
}

func TestSessionSynchronizeReenablesReporting(t *testing.T) {
	s := &session{}
	s.errorAt(Token{Type: TokenEOF, Line: 1}, "one")
	s.synchronize()
	if s.panicMode {
		t.Fatal("synchronize should clear panic mode")
	}
	if !s.hadError {
		t.Fatal("hadError must stay set after synchronize")
	}
	s.errorAt(Token{Type: TokenError, Lexeme: "Unexpected character '#'.", Line: 2}, "Unexpected character '#'.")

	errs, ok := s.err().(Errors)
	if !ok || len(errs) != 2 {
		t.Fatalf("err() = %v, want two diagnostics", s.err())
	}
	if errs[0].Where != " at end" {
		t.Errorf("EOF where = %q", errs[0].Where)
	}
	if errs[1].Where != "" {
		t.Errorf("lexical error where = %q, want empty", errs[1].Where)
	}
	want := "[line 1] Error at end: one\n[line 2] Error: Unexpected character '#'."
	if errs.Error() != want {
		t.Errorf("Error() = %q, want %q", errs.Error(), want)
	}
}
