package lexer

import (
	"fmt"

	"github.com/lhaig/tern/internal/diagnostic"
)

// Kind represents the class of a token
type Kind int

const (
	End Kind = iota
	IntLiteral
	BoolLiteral
	Identifier
	Operator
	Punctuation
	Keyword
	StringLiteral
)

// Token represents a lexical token
type Token struct {
	Text string
	Kind Kind
	Loc  diagnostic.Location
}

// String returns a string representation of the token kind
func (k Kind) String() string {
	switch k {
	case End:
		return "end of input"
	case IntLiteral:
		return "integer literal"
	case BoolLiteral:
		return "boolean literal"
	case Identifier:
		return "identifier"
	case Operator:
		return "operator"
	case Punctuation:
		return "punctuation"
	case Keyword:
		return "keyword"
	case StringLiteral:
		return "string literal"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Describe renders the token for error messages
func (t Token) Describe() string {
	if t.Kind == End {
		return "end of input"
	}
	return fmt.Sprintf("%q", t.Text)
}

// keywords maps reserved words to their token kinds
var keywords = map[string]Kind{
	"if":    Keyword,
	"then":  Keyword,
	"else":  Keyword,
	"while": Keyword,
	"do":    Keyword,
	"var":   Keyword,
	"fun":   Keyword,
	"true":  BoolLiteral,
	"false": BoolLiteral,
	"and":   Operator,
	"or":    Operator,
	"not":   Operator,
}

// LookupIdent classifies a word as a keyword, word operator, boolean
// literal or plain identifier
func LookupIdent(ident string) Kind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return Identifier
}
