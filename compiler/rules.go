package compiler

import "fmt"

// Precedence orders operator binding strength from loosest to tightest.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

// next returns the next tighter level; PrecPrimary is its own successor.
func (p Precedence) next() Precedence {
	if p >= PrecPrimary {
		return PrecPrimary
	}
	return p + 1
}

type parseFn func(*Compiler)

// parseRule says how a token behaves at the start of an expression (prefix),
// after a complete left operand (infix), and how tightly it binds as infix.
type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// ruleFor returns the parse rule for t. Every token type has a case; adding
// a token type without a rule panics on first use and fails TestRuleForIsTotal.
func ruleFor(t TokenType) parseRule {
	switch t {
	case TokenLeftParen:
		return parseRule{(*Compiler).grouping, nil, PrecNone}
	case TokenMinus:
		return parseRule{(*Compiler).unary, (*Compiler).binary, PrecTerm}
	case TokenPlus:
		return parseRule{nil, (*Compiler).binary, PrecTerm}
	case TokenSlash, TokenStar:
		return parseRule{nil, (*Compiler).binary, PrecFactor}
	case TokenNumber:
		return parseRule{(*Compiler).number, nil, PrecNone}

	case TokenRightParen, TokenLeftBrace, TokenRightBrace, TokenComma, TokenDot,
		TokenSemicolon:
		return parseRule{}
	case TokenBang, TokenBangEqual, TokenEqual, TokenEqualEqual,
		TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual:
		return parseRule{}
	case TokenIdentifier, TokenString:
		return parseRule{}
	case TokenAnd, TokenClass, TokenElse, TokenFalse, TokenFor, TokenFun, TokenIf,
		TokenNil, TokenOr, TokenPrint, TokenReturn, TokenSuper, TokenThis, TokenTrue,
		TokenVar, TokenWhile:
		return parseRule{}
	case TokenError, TokenEOF:
		return parseRule{}
	}
	panic(fmt.Sprintf("compiler: no parse rule for %s", t))
}
