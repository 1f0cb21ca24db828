package compiler

import (
	"fmt"
	"strings"
)

// Diagnostic is one compile-time error.
type Diagnostic struct {
	Line    int
	Where   string // " at end", " at '<lexeme>'", or empty for lexical errors
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("[line %d] Error%s: %s", d.Line, d.Where, d.Message)
}

// Errors is the list of diagnostics produced by a failed compilation.
type Errors []Diagnostic

func (e Errors) Error() string {
	lines := make([]string, len(e))
	for i, d := range e {
		lines[i] = d.Error()
	}
	return strings.Join(lines, "\n")
}

// session tracks error state for one compilation. hadError is sticky; while
// panicking, further reports are dropped until synchronize is called.
type session struct {
	diagnostics []Diagnostic
	hadError    bool
	panicMode   bool
}

// errorAt records a diagnostic located at tok unless the session is already
// panicking.
func (s *session) errorAt(tok Token, msg string) {
	if s.panicMode {
		return
	}
	s.panicMode = true
	s.hadError = true

	var where string
	switch tok.Type {
	case TokenEOF:
		where = " at end"
	case TokenError:
		// The lexeme is the message itself.
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	s.diagnostics = append(s.diagnostics, Diagnostic{Line: tok.Line, Where: where, Message: msg})
}

// synchronize leaves panic mode so the next independent error is reported.
func (s *session) synchronize() {
	s.panicMode = false
}

// err returns the accumulated diagnostics, or nil if there were none.
func (s *session) err() error {
	if !s.hadError {
		return nil
	}
	return Errors(s.diagnostics)
}
