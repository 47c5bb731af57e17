package parser

import (
	"fmt"
	"strings"

	"github.com/lhaig/tern/internal/diagnostic"
	"github.com/lhaig/tern/internal/lexer"
)

// ParseError reports malformed token input. Parsing stops at the first one.
type ParseError struct {
	Loc     diagnostic.Location
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Message)
}

// Location returns the position of the offending token
func (e *ParseError) Location() diagnostic.Location { return e.Loc }

// endOfInput stands for the End token in an expectation list
const endOfInput = ""

func (p *Parser) errorf(tok lexer.Token, format string, args ...any) error {
	return &ParseError{Loc: tok.Loc, Message: fmt.Sprintf(format, args...)}
}

// unexpected reports tok together with the token texts that would have been
// accepted in its place
func (p *Parser) unexpected(tok lexer.Token, accepted ...string) error {
	if len(accepted) == 0 {
		return p.errorf(tok, "unexpected %s", tok.Describe())
	}
	if len(accepted) == 1 {
		return p.errorf(tok, "unexpected %s, expected %s", tok.Describe(), quoteExpected(accepted[0]))
	}
	quoted := make([]string, len(accepted))
	for i, text := range accepted {
		quoted[i] = quoteExpected(text)
	}
	return p.errorf(tok, "unexpected %s, expected one of: %s", tok.Describe(), strings.Join(quoted, ", "))
}

func quoteExpected(text string) string {
	if text == endOfInput {
		return "end of input"
	}
	return fmt.Sprintf("%q", text)
}
