// Package compiler turns lox source text into bytecode in a single pass.
//
// There is no syntax tree: a Pratt parser pulls tokens from the Lexer on
// demand and each parse action emits its instructions straight into a
// bytecode.Chunk. Errors are collected rather than returned eagerly, so one
// compilation can surface several independent problems.
package compiler

import (
	"errors"
	"strconv"

	"github.com/chazu/lox/pkg/bytecode"
	"github.com/chazu/lox/pkg/value"
)

// Compiler holds the state of one compilation.
type Compiler struct {
	lexer    *Lexer
	previous Token
	current  Token
	chunk    *bytecode.Chunk
	session  *session
}

// Compile compiles source into a chunk. The chunk is returned even when
// compilation fails, but it must not be executed in that case; the error is
// then of type Errors.
func Compile(source string) (*bytecode.Chunk, error) {
	c := &Compiler{
		lexer:   NewLexer(source),
		chunk:   bytecode.NewChunk(),
		session: &session{},
	}

	c.advance()
	c.expression()
	if c.session.panicMode {
		c.synchronize()
	}
	c.consume(TokenEOF, "Expect end of expression.")
	c.emitOp(bytecode.OpReturn, c.previous.Line)

	return c.chunk, c.session.err()
}

// ---------------------------------------------------------------------------
// Token plumbing
// ---------------------------------------------------------------------------

// advance moves to the next non-error token, reporting every error token it
// skips over.
func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lexer.Scan()
		if c.current.Type != TokenError {
			return
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(t TokenType) bool {
	return c.current.Type == t
}

// consume advances past the current token if it has type t, otherwise it
// records msg against the current token.
func (c *Compiler) consume(t TokenType, msg string) {
	if c.check(t) {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

// synchronize discards tokens up to the next recovery point and leaves panic
// mode. Expressions have no statement boundary yet, so the only recovery
// point is the end of input.
func (c *Compiler) synchronize() {
	for !c.check(TokenEOF) {
		c.advance()
	}
	c.session.synchronize()
}

func (c *Compiler) errorAtCurrent(msg string) {
	c.session.errorAt(c.current, msg)
}

func (c *Compiler) errorAtPrevious(msg string) {
	c.session.errorAt(c.previous, msg)
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

func (c *Compiler) emitOp(op bytecode.Opcode, line int) {
	c.chunk.WriteOp(op, line)
}

func (c *Compiler) emitConstant(v value.Value, line int) {
	c.chunk.WriteInstruction(bytecode.Instruction{
		Op:      bytecode.OpConstant,
		Operand: c.makeConstant(v),
	}, line)
}

// makeConstant adds v to the pool. When the pool is full it records an error
// and returns index 0 so compilation can carry on.
func (c *Compiler) makeConstant(v value.Value) byte {
	if c.chunk.Constants.Len() >= value.MaxConstants {
		c.errorAtPrevious("Too many constants in one chunk.")
		return 0
	}
	return byte(c.chunk.AddConstant(v))
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

// parsePrecedence parses an expression whose operators bind at least as
// tightly as prec.
func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := ruleFor(c.previous.Type).prefix
	if prefix == nil {
		c.errorAtPrevious("Expect expression.")
		return
	}
	prefix(c)

	for prec <= ruleFor(c.current.Type).precedence {
		c.advance()
		ruleFor(c.previous.Type).infix(c)
	}
}

func (c *Compiler) number() {
	tok := c.previous
	// Out-of-range literals saturate to ±Inf or 0 like any float parse.
	n, err := strconv.ParseFloat(tok.Lexeme, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		c.errorAtPrevious("Invalid number literal.")
		return
	}
	c.emitConstant(value.Number(n), tok.Line)
}

func (c *Compiler) grouping() {
	c.expression()
	c.consume(TokenRightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary() {
	op := c.previous
	c.parsePrecedence(PrecUnary)

	switch op.Type {
	case TokenMinus:
		c.emitOp(bytecode.OpNegate, op.Line)
	}
}

func (c *Compiler) binary() {
	op := c.previous
	c.parsePrecedence(ruleFor(op.Type).precedence.next())

	switch op.Type {
	case TokenPlus:
		c.emitOp(bytecode.OpAdd, op.Line)
	case TokenMinus:
		c.emitOp(bytecode.OpSubtract, op.Line)
	case TokenStar:
		c.emitOp(bytecode.OpMultiply, op.Line)
	case TokenSlash:
		c.emitOp(bytecode.OpDivide, op.Line)
	}
}
