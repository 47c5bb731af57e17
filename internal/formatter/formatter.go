// Package formatter renders a parsed program as canonical source code.
// Comments are not part of the AST and are dropped.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lhaig/tern/internal/ast"
	"github.com/lhaig/tern/internal/types"
)

// Format returns canonical source for root. Parsing the result yields a tree
// that prints the same as root.
func Format(root ast.Expr) string {
	f := &formatter{}
	if block, ok := root.(*ast.Block); ok && len(block.Exprs) > 1 {
		f.formatSequence(block.Exprs)
	} else {
		f.emit(f.indentStr())
		f.formatExpr(root, precNone)
		f.emit("\n")
	}
	return f.sb.String()
}

type formatter struct {
	sb     strings.Builder
	indent int
}

// --- helpers ---

func (f *formatter) emit(s string) {
	f.sb.WriteString(s)
}

func (f *formatter) emitf(format string, args ...any) {
	f.sb.WriteString(fmt.Sprintf(format, args...))
}

func (f *formatter) incIndent() { f.indent++ }
func (f *formatter) decIndent() { f.indent-- }

func (f *formatter) indentStr() string {
	return strings.Repeat("    ", f.indent)
}

// --- sequences ---

// formatSequence writes one element per line. A trailing Unit element is
// expressed by the separator after the element before it.
func (f *formatter) formatSequence(exprs []ast.Expr) {
	for i, e := range exprs {
		if _, ok := e.(*ast.Unit); ok && i == len(exprs)-1 {
			break
		}
		f.emit(f.indentStr())
		f.formatExpr(e, precNone)
		if i < len(exprs)-1 && needsSeparator(e, exprs[i+1]) {
			f.emit(";")
		}
		f.emit("\n")
		if _, ok := e.(*ast.FunctionDefinition); ok && i < len(exprs)-1 {
			f.emit("\n")
		}
	}
}

// needsSeparator reports whether e must be followed by ";". Function
// definitions end in "}" and may stand alone unless a Unit follows.
func needsSeparator(e, next ast.Expr) bool {
	if _, ok := next.(*ast.Unit); ok {
		return true
	}
	_, isDef := e.(*ast.FunctionDefinition)
	return !isDef
}

func (f *formatter) formatBlock(b *ast.Block) {
	if len(b.Exprs) == 0 {
		f.emit("{}")
		return
	}
	f.emit("{\n")
	f.incIndent()
	f.formatSequence(b.Exprs)
	f.decIndent()
	f.emit(f.indentStr() + "}")
}

// --- expressions ---

// formatExpr writes e, wrapping it in parentheses when it binds looser than
// the surrounding operator
func (f *formatter) formatExpr(e ast.Expr, parentPrec int) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		f.emit(strconv.FormatInt(n.Value, 10))

	case *ast.BoolLiteral:
		f.emit(strconv.FormatBool(n.Value))

	case *ast.Identifier:
		f.emit(n.Name)

	case *ast.Unit:

	case *ast.UnaryOp:
		if n.Op == "not" {
			f.emit("not ")
		} else {
			f.emit("-")
			if startsWithMinus(n.Operand) {
				f.emit(" ")
			}
		}
		f.formatExpr(n.Operand, precUnary)

	case *ast.BinaryOp:
		prec := precedence(n.Op)
		if prec < parentPrec {
			f.emit("(")
			defer f.emit(")")
		}
		if n.Op == "=" {
			// right-associative
			f.formatExpr(n.Left, prec+1)
			f.emitf(" %s ", n.Op)
			f.formatExpr(n.Right, prec)
			return
		}
		f.formatExpr(n.Left, prec)
		f.emitf(" %s ", n.Op)
		f.formatExpr(n.Right, prec+1)

	case *ast.Block:
		f.formatBlock(n)

	case *ast.ConditionalOp:
		if parentPrec > precNone {
			f.emit("(")
			defer f.emit(")")
		}
		f.emit("if ")
		f.formatExpr(n.Cond, precNone)
		f.emit(" then ")
		if n.Else != nil && isOpen(n.Then) {
			// keep the else from binding to the inner expression
			f.emit("(")
			f.formatExpr(n.Then, precNone)
			f.emit(")")
		} else {
			f.formatExpr(n.Then, precNone)
		}
		if n.Else != nil {
			f.emit(" else ")
			f.formatExpr(n.Else, precNone)
		}

	case *ast.WhileOp:
		if parentPrec > precNone {
			f.emit("(")
			defer f.emit(")")
		}
		f.emit("while ")
		f.formatExpr(n.Cond, precNone)
		f.emit(" do ")
		f.formatExpr(n.Body, precNone)

	case *ast.VariableDef:
		f.emit("var " + n.Name)
		if n.DeclaredType != "" {
			f.emit(": " + n.DeclaredType)
		}
		f.emit(" = ")
		f.formatExpr(n.Init, precNone)

	case *ast.FunctionCall:
		f.emit(n.Name + "(")
		for i, arg := range n.Args {
			if i > 0 {
				f.emit(", ")
			}
			f.formatExpr(arg, precNone)
		}
		f.emit(")")

	case *ast.FunctionDefinition:
		f.formatFunctionDefinition(n)
	}
}

func (f *formatter) formatFunctionDefinition(fn *ast.FunctionDefinition) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name + ": " + p.DeclaredType
	}
	f.emitf("fun %s(%s)", fn.Name, strings.Join(params, ", "))
	if fn.ReturnType != "" && fn.ReturnType != types.Unit.String() {
		f.emit(": " + fn.ReturnType)
	}
	f.emit(" ")
	if fn.Body == nil {
		f.emit("{}")
		return
	}
	f.formatBlock(fn.Body)
}

// isOpen reports whether e ends in an expression that would absorb a
// following "else"
func isOpen(e ast.Expr) bool {
	switch e.(type) {
	case *ast.ConditionalOp, *ast.WhileOp:
		return true
	}
	return false
}

func startsWithMinus(e ast.Expr) bool {
	u, ok := e.(*ast.UnaryOp)
	return ok && u.Op == "-"
}

// --- operator precedence ---

// Precedence levels (higher binds tighter):
//
//	1: =
//	2: or
//	3: and
//	4: == !=
//	5: < > <= >=
//	6: + -
//	7: * / %
//	8: unary - not
const (
	precNone = iota
	precAssign
	precOr
	precAnd
	precEquality
	precComparison
	precAdditive
	precMultiplicative
	precUnary
)

func precedence(op string) int {
	switch op {
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
		return precMultiplicative
	default:
		return precNone
	}
}
