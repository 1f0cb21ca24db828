package compiler

import (
	"fmt"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: on-demand tokenizer
// ---------------------------------------------------------------------------

// Lexer converts source text into tokens one Scan at a time. Lexical errors
// are returned as TokenError tokens rather than reported out of band.
type Lexer struct {
	input   string
	start   int // start of the token being scanned
	current int // next unread byte
	line    int // current line (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// Scan returns the next token. Once the input is exhausted every call returns
// a TokenEOF token.
func (l *Lexer) Scan() Token {
	l.skipWhitespaceAndComments()
	l.start = l.current

	if l.atEnd() {
		return l.make(TokenEOF)
	}

	c := l.advance()
	switch {
	case isAlpha(c):
		return l.scanIdentifier()
	case isDigit(c):
		return l.scanNumber()
	}

	switch c {
	case '(':
		return l.make(TokenLeftParen)
	case ')':
		return l.make(TokenRightParen)
	case '{':
		return l.make(TokenLeftBrace)
	case '}':
		return l.make(TokenRightBrace)
	case ';':
		return l.make(TokenSemicolon)
	case ',':
		return l.make(TokenComma)
	case '.':
		return l.make(TokenDot)
	case '-':
		return l.make(TokenMinus)
	case '+':
		return l.make(TokenPlus)
	case '/':
		return l.make(TokenSlash)
	case '*':
		return l.make(TokenStar)
	case '!':
		return l.makeEither('=', TokenBangEqual, TokenBang)
	case '=':
		return l.makeEither('=', TokenEqualEqual, TokenEqual)
	case '<':
		return l.makeEither('=', TokenLessEqual, TokenLess)
	case '>':
		return l.makeEither('=', TokenGreaterEqual, TokenGreater)
	case '"':
		return l.scanString()
	}

	// Report the whole rune, not just its first byte.
	r, size := utf8.DecodeRuneInString(l.input[l.start:])
	l.current = l.start + size
	return l.errorToken(fmt.Sprintf("Unexpected character '%c'.", r))
}

func (l *Lexer) atEnd() bool {
	return l.current >= len(l.input)
}

func (l *Lexer) advance() byte {
	c := l.input[l.current]
	l.current++
	return c
}

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.input[l.current]
}

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.input) {
		return 0
	}
	return l.input[l.current+1]
}

// match consumes the next byte if it equals expected.
func (l *Lexer) match(expected byte) bool {
	if l.atEnd() || l.input[l.current] != expected {
		return false
	}
	l.current++
	return true
}

func (l *Lexer) make(t TokenType) Token {
	return Token{Type: t, Lexeme: l.input[l.start:l.current], Line: l.line}
}

func (l *Lexer) makeEither(next byte, ifMatch, otherwise TokenType) Token {
	if l.match(next) {
		return l.make(ifMatch)
	}
	return l.make(otherwise)
}

func (l *Lexer) errorToken(msg string) Token {
	return Token{Type: TokenError, Lexeme: msg, Line: l.line}
}

// skipWhitespaceAndComments skips blanks, newlines and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.current++
		case '\n':
			l.line++
			l.current++
		case '/':
			if l.peekNext() != '/' {
				return
			}
			for !l.atEnd() && l.peek() != '\n' {
				l.current++
			}
		default:
			return
		}
	}
}

// scanString scans a double-quoted literal. Newlines inside the literal count
// toward the line number; the token is reported on the closing line.
func (l *Lexer) scanString() Token {
	for !l.atEnd() && l.peek() != '"' {
		if l.peek() == '\n' {
			l.line++
		}
		l.current++
	}
	if l.atEnd() {
		return l.errorToken("Unterminated string.")
	}
	l.current++ // closing quote
	return l.make(TokenString)
}

// scanNumber scans digits with an optional fractional part. A trailing '.' not
// followed by a digit is left for the next token.
func (l *Lexer) scanNumber() Token {
	for isDigit(l.peek()) {
		l.current++
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.current++ // the '.'
		for isDigit(l.peek()) {
			l.current++
		}
	}
	return l.make(TokenNumber)
}

func (l *Lexer) scanIdentifier() Token {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.current++
	}
	return l.make(LookupIdentifier(l.input[l.start:l.current]))
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
