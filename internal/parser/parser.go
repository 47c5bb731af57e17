package parser

import (
	"strconv"

	"github.com/lhaig/tern/internal/ast"
	"github.com/lhaig/tern/internal/diagnostic"
	"github.com/lhaig/tern/internal/lexer"
)

// Parser holds the parser state
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// New creates a parser over a token slice produced by the lexer
func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses a complete token stream
func Parse(tokens []lexer.Token) (ast.Expr, error) {
	return New(tokens).Parse()
}

// ParseString tokenizes and parses source in one step
func ParseString(source, file string) (ast.Expr, error) {
	tokens, err := lexer.Tokenize(source, file)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

// Parse parses the top-level sequence. A lone expression without a separator
// is returned as the root; anything else is wrapped in a Block.
func (p *Parser) Parse() (ast.Expr, error) {
	if len(p.tokens) == 0 || p.check(lexer.End) {
		return nil, p.errorf(p.current(), "empty input")
	}

	start := p.current().Loc
	exprs, separated, err := p.parseSequence(endOfInput)
	if err != nil {
		return nil, err
	}
	if len(exprs) == 1 && !separated {
		return exprs[0], nil
	}
	return ast.NewBlock(start, exprs), nil
}

// current returns the current token
func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.endToken()
	}
	return p.tokens[p.pos]
}

// endToken synthesizes an End token for slices that lack one
func (p *Parser) endToken() lexer.Token {
	var loc diagnostic.Location
	if n := len(p.tokens); n > 0 {
		loc = p.tokens[n-1].Loc
	}
	return lexer.Token{Kind: lexer.End, Loc: loc}
}

// previous returns the most recently consumed token
func (p *Parser) previous() lexer.Token {
	if p.pos == 0 || p.pos > len(p.tokens) {
		return lexer.Token{}
	}
	return p.tokens[p.pos-1]
}

// advance moves to the next token and returns the consumed token
func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// check returns true if the current token is of the given kind
func (p *Parser) check(kind lexer.Kind) bool {
	return p.current().Kind == kind
}

// checkText returns true if the current token is a non-literal token with
// the given text
func (p *Parser) checkText(text string) bool {
	tok := p.current()
	if text == endOfInput {
		return tok.Kind == lexer.End
	}
	switch tok.Kind {
	case lexer.Operator, lexer.Punctuation, lexer.Keyword:
		return tok.Text == text
	default:
		return false
	}
}

// match consumes the current token if its text matches
func (p *Parser) match(text string) bool {
	if p.checkText(text) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token whose text is one of accepted, otherwise reports
// the accepted texts
func (p *Parser) expect(accepted ...string) (lexer.Token, error) {
	for _, text := range accepted {
		if p.checkText(text) {
			return p.advance(), nil
		}
	}
	return lexer.Token{}, p.unexpected(p.current(), accepted...)
}

// expectIdentifier consumes an identifier token
func (p *Parser) expectIdentifier(what string) (lexer.Token, error) {
	tok := p.current()
	if tok.Kind != lexer.Identifier {
		return lexer.Token{}, p.errorf(tok, "unexpected %s, expected %s", tok.Describe(), what)
	}
	return p.advance(), nil
}

// parseSequence parses separator-delimited elements up to closing, which is
// "}" for a block or endOfInput for the top level. The closing token is not
// consumed. A separator directly before closing appends a Unit node. The
// separator may be left out after an element ending in "}".
func (p *Parser) parseSequence(closing string) ([]ast.Expr, bool, error) {
	var exprs []ast.Expr
	separated := false

	for !p.checkText(closing) {
		expr, err := p.parseElement()
		if err != nil {
			return nil, false, err
		}
		exprs = append(exprs, expr)

		if p.checkText(";") {
			sep := p.advance()
			separated = true
			if p.checkText(closing) {
				exprs = append(exprs, ast.NewUnit(sep.Loc))
			}
			continue
		}
		if p.checkText(closing) {
			break
		}
		if prev := p.previous(); prev.Kind == lexer.Punctuation && prev.Text == "}" {
			continue
		}
		return nil, false, p.unexpected(p.current(), ";", closing)
	}
	return exprs, separated, nil
}

// parseElement parses one element of a sequence, where var and fun are
// allowed in addition to expressions
func (p *Parser) parseElement() (ast.Expr, error) {
	switch {
	case p.checkText("var"):
		return p.parseVariableDef()
	case p.checkText("fun"):
		return p.parseFunctionDefinition()
	default:
		return p.parseExpression()
	}
}

// parseBlock parses: { e1; e2; ... }
func (p *Parser) parseBlock() (*ast.Block, error) {
	open, err := p.expect("{")
	if err != nil {
		return nil, err
	}
	exprs, _, err := p.parseSequence("}")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return ast.NewBlock(open.Loc, exprs), nil
}

// parseVariableDef parses: var name [: Type] = expr
func (p *Parser) parseVariableDef() (ast.Expr, error) {
	tok, err := p.expect("var")
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier("variable name")
	if err != nil {
		return nil, err
	}

	declared := ""
	if p.match(":") {
		typeTok, err := p.expectIdentifier("type name")
		if err != nil {
			return nil, err
		}
		declared = typeTok.Text
		if _, err := p.expect("="); err != nil {
			return nil, err
		}
	} else if _, err := p.expect(":", "="); err != nil {
		return nil, err
	}

	init, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewVariableDef(tok.Loc, name.Text, declared, init), nil
}

// parseFunctionDefinition parses: fun name(p: T, ...) [: R] { ... }
func (p *Parser) parseFunctionDefinition() (ast.Expr, error) {
	tok, err := p.expect("fun")
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier("function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	var params []ast.Param
	if !p.match(")") {
		for {
			param, err := p.parseParam()
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			sep, err := p.expect(")", ",")
			if err != nil {
				return nil, err
			}
			if sep.Text == ")" {
				break
			}
		}
	}

	returnType := "Unit"
	if p.match(":") {
		typeTok, err := p.expectIdentifier("return type")
		if err != nil {
			return nil, err
		}
		returnType = typeTok.Text
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.NewFunctionDefinition(tok.Loc, name.Text, params, returnType, body), nil
}

func (p *Parser) parseParam() (ast.Param, error) {
	name, err := p.expectIdentifier("parameter name")
	if err != nil {
		return ast.Param{}, err
	}
	if _, err := p.expect(":"); err != nil {
		return ast.Param{}, err
	}
	typeTok, err := p.expectIdentifier("parameter type")
	if err != nil {
		return ast.Param{}, err
	}
	return ast.Param{Name: name.Text, DeclaredType: typeTok.Text, Loc: name.Loc}, nil
}

// Expression parsing - precedence climbing

// Precedence levels (lowest to highest):
// 1. =            (right-associative)
// 2. or           (left-associative)
// 3. and          (left-associative)
// 4. == !=        (left-associative)
// 5. < > <= >=    (left-associative)
// 6. + -          (left-associative)
// 7. * / %        (left-associative)
// 8. unary (- not)

const (
	precNone       = 0
	precAssign     = 1
	precOr         = 2
	precAnd        = 3
	precEquality   = 4
	precComparison = 5
	precAdditive   = 6
	precMulti      = 7
)

func tokenPrecedence(tok lexer.Token) int {
	if tok.Kind != lexer.Operator {
		return precNone
	}
	switch tok.Text {
	case "=":
		return precAssign
	case "or":
		return precOr
	case "and":
		return precAnd
	case "==", "!=":
		return precEquality
	case "<", ">", "<=", ">=":
		return precComparison
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMulti
	default:
		return precNone
	}
}

func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parsePrecedence(precAssign)
}

func (p *Parser) parsePrecedence(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		prec := tokenPrecedence(p.current())
		if prec == precNone || prec < minPrec {
			break
		}

		op := p.advance()

		nextPrec := prec + 1
		if op.Text == "=" {
			// Right-associative
			nextPrec = prec
			if _, ok := left.(*ast.Identifier); !ok {
				return nil, p.errorf(op, "left side of \"=\" must be a variable name, found %s", ast.Print(left))
			}
		}

		right, err := p.parsePrecedence(nextPrec)
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryOp(op.Loc, op.Text, left, right)
	}

	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.checkText("-") || p.checkText("not") {
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryOp(op.Loc, op.Text, operand), nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.current()

	switch tok.Kind {
	case lexer.IntLiteral:
		p.advance()
		value, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, p.errorf(tok, "integer literal %s does not fit in 64 bits", tok.Text)
		}
		return ast.NewIntLiteral(tok.Loc, value), nil
	case lexer.BoolLiteral:
		p.advance()
		return ast.NewBoolLiteral(tok.Loc, tok.Text == "true"), nil
	case lexer.Identifier:
		p.advance()
		if p.checkText("(") {
			return p.parseCall(tok)
		}
		return ast.NewIdentifier(tok.Loc, tok.Text), nil
	case lexer.StringLiteral:
		return nil, p.errorf(tok, "string literals are not supported")
	case lexer.End:
		return nil, p.errorf(tok, "unexpected end of input, expected an expression")
	}

	switch {
	case p.checkText("("):
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return expr, nil
	case p.checkText("{"):
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return block, nil
	case p.checkText("if"):
		return p.parseConditional()
	case p.checkText("while"):
		return p.parseWhile()
	case p.checkText("var"):
		return nil, p.errorf(tok, "variable definitions are only allowed directly inside a block or at top level")
	case p.checkText("fun"):
		return nil, p.errorf(tok, "function definitions are not expressions")
	default:
		return nil, p.errorf(tok, "unexpected %s, expected an expression", tok.Describe())
	}
}

// parseCall parses the argument list after name
func (p *Parser) parseCall(name lexer.Token) (ast.Expr, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	var args []ast.Expr
	if !p.match(")") {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			sep, err := p.expect(")", ",")
			if err != nil {
				return nil, err
			}
			if sep.Text == ")" {
				break
			}
		}
	}
	return ast.NewFunctionCall(name.Loc, name.Text, args), nil
}

// parseConditional parses: if C then T [else E]
func (p *Parser) parseConditional() (ast.Expr, error) {
	tok := p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("then"); err != nil {
		return nil, err
	}
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	var els ast.Expr
	if p.match("else") {
		els, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	return ast.NewConditionalOp(tok.Loc, cond, then, els), nil
}

// parseWhile parses: while C do B
func (p *Parser) parseWhile() (ast.Expr, error) {
	tok := p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("do"); err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.NewWhileOp(tok.Loc, cond, body), nil
}
