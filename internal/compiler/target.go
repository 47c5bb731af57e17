package compiler

import (
	"fmt"
	"strings"

	"github.com/lhaig/tern/internal/ast"
	"github.com/lhaig/tern/internal/lexer"
)

// Targets lists the intermediate forms EmitToTarget can render
var Targets = []string{"tokens", "ast", "typed-ast", "ir", "asm"}

// GetFileExtension returns the file extension for the given target
func GetFileExtension(target string) string {
	switch target {
	case "tokens":
		return ".tokens"
	case "ast", "typed-ast":
		return ".ast"
	case "ir":
		return ".ir"
	case "asm":
		return ".s"
	default:
		return ""
	}
}

// EmitToTarget compiles source as far as target needs and renders that
// stage's output as text
func EmitToTarget(source, file, target string) (string, error) {
	switch target {
	case "tokens", "ast", "typed-ast":
		res := Check(source, file)
		if target == "tokens" && res.Tokens != nil {
			return formatTokens(res.Tokens), nil
		}
		if target == "ast" && res.AST != nil {
			return ast.Print(res.AST) + "\n", nil
		}
		if res.HasErrors() {
			return "", res.Err
		}
		return ast.PrintTyped(res.AST) + "\n", nil

	case "ir", "asm":
		res := Compile(source, file)
		if res.HasErrors() {
			return "", res.Err
		}
		if target == "ir" {
			return res.IR.String(), nil
		}
		return res.Assembly, nil

	default:
		return "", fmt.Errorf("unknown target %q (expected one of: %s)", target, strings.Join(Targets, ", "))
	}
}

// formatTokens renders one token per line as "line:col kind text"
func formatTokens(tokens []lexer.Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		fmt.Fprintf(&sb, "%d:%d\t%s\t%s\n", tok.Loc.Line, tok.Loc.Column, tok.Kind, tok.Text)
	}
	return sb.String()
}
