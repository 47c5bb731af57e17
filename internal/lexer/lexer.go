package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/lhaig/tern/internal/diagnostic"
)

// LexError reports a character sequence that starts no valid token
type LexError struct {
	Loc     diagnostic.Location
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Message)
}

// Location returns where the invalid input starts
func (e *LexError) Location() diagnostic.Location { return e.Loc }

// Lexer scans source code and produces tokens
type Lexer struct {
	file         string
	input        string
	position     int  // byte offset of the current char
	readPosition int  // byte offset after the current char
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number, counted in characters
}

// New creates a new Lexer instance. The input is NFC normalized so that an
// identifier spelled with precomposed or combining characters is one name.
func New(input, file string) *Lexer {
	l := &Lexer{
		file:   file,
		input:  norm.NFC.String(input),
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// readChar decodes the next character and advances the position. Invalid
// UTF-8 reads as utf8.RuneError one byte at a time.
func (l *Lexer) readChar() {
	size := 1
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch, size = utf8.DecodeRuneInString(l.input[l.readPosition:])
	}
	l.position = l.readPosition
	l.readPosition += size
	l.column++
}

// peekChar returns the next character without advancing the position
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) atEOF() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) loc() diagnostic.Location {
	return diagnostic.Location{File: l.file, Line: l.line, Column: l.column}
}

// skipWhitespace skips whitespace and comments
func (l *Lexer) skipWhitespace() error {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '\n':
			l.line++
			l.column = 0
			l.readChar()
		case l.ch == '#' || (l.ch == '/' && l.peekChar() == '/'):
			l.skipSingleLineComment()
		case l.ch == '/' && l.peekChar() == '*':
			start := l.loc()
			l.readChar() // consume '/'
			l.readChar() // consume '*'
			if !l.skipMultiLineComment() {
				return &LexError{Loc: start, Message: "unterminated block comment"}
			}
		default:
			return nil
		}
	}
}

// skipSingleLineComment skips a # or // comment
func (l *Lexer) skipSingleLineComment() {
	for l.ch != '\n' && !l.atEOF() {
		l.readChar()
	}
}

// skipMultiLineComment skips a /* */ comment and reports whether it was closed
func (l *Lexer) skipMultiLineComment() bool {
	for !l.atEOF() {
		if l.ch == '\n' {
			l.line++
			l.column = 0
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar() // consume '*'
			l.readChar() // consume '/'
			return true
		}
		l.readChar()
	}
	return false
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || unicode.Is(unicode.Mn, l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readNumber reads an integer literal
func (l *Lexer) readNumber() string {
	position := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readString reads a string literal including its quotes
func (l *Lexer) readString() (string, bool) {
	position := l.position
	for {
		l.readChar()
		if l.atEOF() || l.ch == '\n' {
			return "", false
		}
		if l.ch == '\\' {
			l.readChar()
			continue
		}
		if l.ch == '"' {
			break
		}
	}
	l.readChar() // consume closing quote
	return l.input[position:l.position], true
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() (Token, error) {
	if err := l.skipWhitespace(); err != nil {
		return Token{}, err
	}

	loc := l.loc()
	if l.atEOF() {
		return Token{Kind: End, Loc: loc}, nil
	}

	switch l.ch {
	case '=', '!', '<', '>':
		ch := l.ch
		if l.peekChar() == '=' {
			l.readChar()
			l.readChar()
			return Token{Text: string(ch) + "=", Kind: Operator, Loc: loc}, nil
		}
		if ch == '!' {
			return Token{}, &LexError{Loc: loc, Message: `unexpected character '!' (did you mean "not" or "!="?)`}
		}
		l.readChar()
		return Token{Text: string(ch), Kind: Operator, Loc: loc}, nil
	case '+', '-', '*', '/', '%':
		ch := l.ch
		l.readChar()
		return Token{Text: string(ch), Kind: Operator, Loc: loc}, nil
	case '(', ')', '{', '}', ',', ';', ':':
		ch := l.ch
		l.readChar()
		return Token{Text: string(ch), Kind: Punctuation, Loc: loc}, nil
	case '"':
		str, ok := l.readString()
		if !ok {
			return Token{}, &LexError{Loc: loc, Message: "unterminated string literal"}
		}
		return Token{Text: str, Kind: StringLiteral, Loc: loc}, nil
	}

	if isLetter(l.ch) {
		ident := l.readIdentifier()
		return Token{Text: ident, Kind: LookupIdent(ident), Loc: loc}, nil
	}
	if isDigit(l.ch) {
		literal := l.readNumber()
		if isLetter(l.ch) {
			return Token{}, &LexError{Loc: loc, Message: fmt.Sprintf("invalid number literal %q", literal+string(l.ch))}
		}
		return Token{Text: literal, Kind: IntLiteral, Loc: loc}, nil
	}
	if l.ch == utf8.RuneError {
		return Token{}, &LexError{Loc: loc, Message: fmt.Sprintf("invalid UTF-8 byte 0x%02x", l.input[l.position])}
	}
	return Token{}, &LexError{Loc: loc, Message: fmt.Sprintf("unexpected character %q", l.ch)}
}

// Tokenize returns all tokens from the input, ending with an End token
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == End {
			return tokens, nil
		}
	}
}

// Tokenize scans a whole source file
func Tokenize(source, file string) ([]Token, error) {
	return New(source, file).Tokenize()
}

// Helper functions

// isLetter accepts ASCII letters, '_' and any Unicode letter
func isLetter(ch rune) bool {
	if ch < utf8.RuneSelf {
		return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
	}
	return ch != utf8.RuneError && unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
