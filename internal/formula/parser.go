package formula

import (
	"fmt"
	"sort"
	"strconv"
)

// Node is a node in the parsed expression tree.
type Node interface {
	node()
}

// NumberNode is a numeric literal.
type NumberNode struct {
	Value float64
}

// IdentNode is a free variable or a constant reference.
type IdentNode struct {
	Name string
}

// UnaryNode is a prefix +/- applied to an operand.
type UnaryNode struct {
	Op      string
	Operand Node
}

// BinaryNode is an infix operation.
type BinaryNode struct {
	Op    string
	Left  Node
	Right Node
}

// CallNode is a builtin function application.
type CallNode struct {
	Name string
	Args []Node
}

func (*NumberNode) node() {}
func (*IdentNode) node()  {}
func (*UnaryNode) node()  {}
func (*BinaryNode) node() {}
func (*CallNode) node()   {}

// binding powers for infix operators; ^ binds tightest and is
// right-associative.
var precedence = map[string]int{
	"+": 1,
	"-": 1,
	"*": 2,
	"/": 2,
	"^": 3,
}

type parser struct {
	tokens []Token
	pos    int
}

// Parse parses an expression into its tree. A blank expression returns
// (nil, nil): no tree, no error.
func Parse(src string) (Node, error) {
	if IsBlank(src) {
		return nil, nil
	}
	tokens, err := newLexer(src).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf("unexpected %q", tok.Value)}
	}
	return node, nil
}

func (p *parser) peek() Token { return p.tokens[p.pos] }

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

// parseExpr implements precedence climbing over the infix operators.
func (p *parser) parseExpr(minPrec int) (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Type != TokenOperator {
			return left, nil
		}
		prec := precedence[tok.Value]
		if prec < minPrec {
			return left, nil
		}
		p.advance()

		// Right-associative exponentiation keeps the same precedence on
		// the right; everything else climbs.
		nextMin := prec + 1
		if tok.Value == "^" {
			nextMin = prec
		}
		right, err := p.parseExpr(nextMin)
		if err != nil {
			return nil, err
		}
		left = &BinaryNode{Op: tok.Value, Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	tok := p.peek()
	if tok.Type == TokenOperator && (tok.Value == "+" || tok.Value == "-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: tok.Value, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.advance()
	switch tok.Type {
	case TokenNumber:
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf("malformed number %q", tok.Value)}
		}
		return &NumberNode{Value: v}, nil

	case TokenIdent:
		if p.peek().Type == TokenLeftParen {
			return p.parseCall(tok)
		}
		return &IdentNode{Name: tok.Value}, nil

	case TokenLeftParen:
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if closing := p.advance(); closing.Type != TokenRightParen {
			return nil, &SyntaxError{Pos: closing.Pos, Message: "missing closing parenthesis"}
		}
		return inner, nil

	case TokenEOF:
		return nil, &SyntaxError{Pos: tok.Pos, Message: "unexpected end of expression"}
	}

	return nil, &SyntaxError{Pos: tok.Pos, Message: fmt.Sprintf("unexpected %q", tok.Value)}
}

func (p *parser) parseCall(name Token) (Node, error) {
	fn, ok := builtins[name.Value]
	if !ok {
		return nil, &SyntaxError{Pos: name.Pos, Message: fmt.Sprintf("unknown function %q", name.Value)}
	}

	p.advance() // consume (
	var args []Node
	if p.peek().Type != TokenRightParen {
		for {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if closing := p.advance(); closing.Type != TokenRightParen {
		return nil, &SyntaxError{Pos: closing.Pos, Message: fmt.Sprintf("missing closing parenthesis in call to %s", name.Value)}
	}

	if fn.arity >= 0 && len(args) != fn.arity {
		return nil, &SyntaxError{Pos: name.Pos, Message: fmt.Sprintf("%s expects %d argument(s), got %d", name.Value, fn.arity, len(args))}
	}
	if fn.arity < 0 && len(args) == 0 {
		return nil, &SyntaxError{Pos: name.Pos, Message: fmt.Sprintf("%s expects at least one argument", name.Value)}
	}

	return &CallNode{Name: name.Value, Args: args}, nil
}

// ExtractVariables parses the formula and returns its free identifiers,
// deduplicated and sorted. Builtin functions and constants are excluded.
// A blank formula yields an empty set. Unparsable input returns the parse
// error so callers can surface it as a distinct validation failure instead
// of conflating "no dependencies" with "broken formula".
func ExtractVariables(src string) ([]string, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	collectVars(root, seen)

	vars := make([]string, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars, nil
}

func collectVars(n Node, seen map[string]struct{}) {
	switch node := n.(type) {
	case *IdentNode:
		if !IsBuiltin(node.Name) {
			seen[node.Name] = struct{}{}
		}
	case *UnaryNode:
		collectVars(node.Operand, seen)
	case *BinaryNode:
		collectVars(node.Left, seen)
		collectVars(node.Right, seen)
	case *CallNode:
		for _, arg := range node.Args {
			collectVars(arg, seen)
		}
	}
}
