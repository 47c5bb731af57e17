package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhaig/tern/internal/diagnostic"
)

func TestTokenKinds(t *testing.T) {
	tokens, err := Tokenize(`var x: Int = 12 + y; if not true then {f(x, 3)} else 4 >= 2 != false`, "t.tn")
	require.NoError(t, err)

	expected := []struct {
		text string
		kind Kind
	}{
		{"var", Keyword}, {"x", Identifier}, {":", Punctuation}, {"Int", Identifier},
		{"=", Operator}, {"12", IntLiteral}, {"+", Operator}, {"y", Identifier},
		{";", Punctuation}, {"if", Keyword}, {"not", Operator}, {"true", BoolLiteral},
		{"then", Keyword}, {"{", Punctuation}, {"f", Identifier}, {"(", Punctuation},
		{"x", Identifier}, {",", Punctuation}, {"3", IntLiteral}, {")", Punctuation},
		{"}", Punctuation}, {"else", Keyword}, {"4", IntLiteral}, {">=", Operator},
		{"2", IntLiteral}, {"!=", Operator}, {"false", BoolLiteral}, {"", End},
	}

	require.Len(t, tokens, len(expected))
	for i, exp := range expected {
		assert.Equal(t, exp.text, tokens[i].Text, "token %d", i)
		assert.Equal(t, exp.kind, tokens[i].Kind, "token %d (%q)", i, tokens[i].Text)
	}
}

func TestTwoCharOperators(t *testing.T) {
	tokens, err := Tokenize("== != <= >= < > = and or", "")
	require.NoError(t, err)
	var texts []string
	for _, tok := range tokens[:len(tokens)-1] {
		assert.Equal(t, Operator, tok.Kind)
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{"==", "!=", "<=", ">=", "<", ">", "=", "and", "or"}, texts)
}

func TestLocations(t *testing.T) {
	source := "x\n  + 12\n# comment\n// another\nwhile"
	tokens, err := Tokenize(source, "loc.tn")
	require.NoError(t, err)
	require.Len(t, tokens, 5)

	assert.Equal(t, diagnostic.Location{File: "loc.tn", Line: 1, Column: 1}, tokens[0].Loc)
	assert.Equal(t, diagnostic.Location{File: "loc.tn", Line: 2, Column: 3}, tokens[1].Loc)
	assert.Equal(t, diagnostic.Location{File: "loc.tn", Line: 2, Column: 5}, tokens[2].Loc)
	assert.Equal(t, diagnostic.Location{File: "loc.tn", Line: 5, Column: 1}, tokens[3].Loc)
	assert.Equal(t, End, tokens[4].Kind)
}

func TestBlockComment(t *testing.T) {
	tokens, err := Tokenize("1 /* two\n lines */ 2", "")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "2", tokens[1].Text)
	assert.Equal(t, 2, tokens[1].Loc.Line)
}

func TestEmptyInputYieldsEnd(t *testing.T) {
	tokens, err := Tokenize("   \n\t ", "")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, End, tokens[0].Kind)
}

func TestStringLiteral(t *testing.T) {
	tokens, err := Tokenize(`"a \"quoted\" word"`, "")
	require.NoError(t, err)
	assert.Equal(t, StringLiteral, tokens[0].Kind)
	assert.Equal(t, `"a \"quoted\" word"`, tokens[0].Text)
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		msg    string
		column int
	}{
		{"bang", "1 ! 2", "unexpected character '!'", 3},
		{"dollar", "a $", "unexpected character '$'", 3},
		{"unterminated string", `x "abc`, "unterminated string literal", 3},
		{"unterminated comment", "1 /* never closed", "unterminated block comment", 3},
		{"bad number", "12ab", `invalid number literal "12a"`, 1},
		{"non-letter symbol", "é + €", "unexpected character '€'", 5},
		{"invalid utf-8", "x \xff", "invalid UTF-8 byte 0xff", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.source, "bad.tn")
			require.Error(t, err)
			var lexErr *LexError
			require.ErrorAs(t, err, &lexErr)
			assert.Contains(t, lexErr.Message, tt.msg)
			assert.Equal(t, tt.column, lexErr.Location().Column)
		})
	}
}

func TestLookupIdent(t *testing.T) {
	assert.Equal(t, Keyword, LookupIdent("while"))
	assert.Equal(t, BoolLiteral, LookupIdent("false"))
	assert.Equal(t, Operator, LookupIdent("not"))
	assert.Equal(t, Identifier, LookupIdent("whilst"))
}

func TestUnicodeIdentifiers(t *testing.T) {
	tokens, err := Tokenize("var café = 1; naïve_x2 + café", "u.tn")
	require.NoError(t, err)
	require.Len(t, tokens, 9)

	assert.Equal(t, Identifier, tokens[1].Kind)
	assert.Equal(t, "café", tokens[1].Text)
	assert.Equal(t, "naïve_x2", tokens[5].Text)
	assert.Equal(t, Identifier, tokens[5].Kind)

	// columns count characters, not bytes
	assert.Equal(t, 5, tokens[1].Loc.Column)
	assert.Equal(t, 10, tokens[2].Loc.Column)
	assert.Equal(t, 24, tokens[6].Loc.Column)
	assert.Equal(t, 26, tokens[7].Loc.Column)
}

func TestIdentifiersAreNormalized(t *testing.T) {
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	require.NotEqual(t, composed, decomposed)

	tokens, err := Tokenize(composed+" "+decomposed, "n.tn")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, Identifier, tokens[1].Kind)
	assert.Equal(t, tokens[0].Text, tokens[1].Text)
	assert.Equal(t, composed, tokens[1].Text)
}
