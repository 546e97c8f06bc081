// Package formula parses and evaluates the arithmetic expression language
// used by metric definitions. Expressions combine numeric literals, a fixed
// set of builtin functions and constants, and free identifiers that resolve
// to column aliases or other metrics.
package formula

import (
	"fmt"
	"strings"
	"unicode"
)

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenIdent
	TokenOperator
	TokenLeftParen
	TokenRightParen
	TokenComma
)

// Token is a single lexical token with its byte position in the input.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// SyntaxError describes a lexing or parsing failure with its position.
type SyntaxError struct {
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid formula at position %d: %s", e.Pos, e.Message)
}

type lexer struct {
	input []rune
	pos   int
}

func newLexer(input string) *lexer {
	return &lexer{input: []rune(input)}
}

// tokenize scans the whole input. Whitespace separates tokens and is
// otherwise insignificant.
func (l *lexer) tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (Token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(l.input[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]

	switch {
	case isDigit(ch) || (ch == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])):
		return l.scanNumber()
	case isIdentStart(ch):
		return l.scanIdent()
	}

	switch ch {
	case '+', '-', '*', '/', '^':
		l.pos++
		return Token{Type: TokenOperator, Value: string(ch), Pos: start}, nil
	case '(':
		l.pos++
		return Token{Type: TokenLeftParen, Value: "(", Pos: start}, nil
	case ')':
		l.pos++
		return Token{Type: TokenRightParen, Value: ")", Pos: start}, nil
	case ',':
		l.pos++
		return Token{Type: TokenComma, Value: ",", Pos: start}, nil
	}

	return Token{}, &SyntaxError{Pos: start, Message: fmt.Sprintf("unexpected character %q", string(ch))}
}

func (l *lexer) scanNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		l.pos++
		if l.pos >= len(l.input) || !isDigit(l.input[l.pos]) {
			return Token{}, &SyntaxError{Pos: start, Message: "malformed number"}
		}
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
	}
	// Scientific notation: 1e9, 2.5E-3
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(l.input) && (l.input[l.pos] == '+' || l.input[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
				l.pos++
			}
		} else {
			// Not an exponent after all; the e belongs to an identifier.
			l.pos = save
		}
	}
	return Token{Type: TokenNumber, Value: string(l.input[start:l.pos]), Pos: start}, nil
}

func (l *lexer) scanIdent() (Token, error) {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}
	return Token{Type: TokenIdent, Value: string(l.input[start:l.pos]), Pos: start}, nil
}

func isDigit(ch rune) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// IsBlank reports whether the expression contains no tokens at all.
func IsBlank(src string) bool {
	return strings.TrimSpace(src) == ""
}
