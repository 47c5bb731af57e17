package ast

import (
	"strconv"
	"strings"
)

// Print returns an s-expression rendering of the tree, e.g.
// (+ (- (+ 1 225) 10) 8)
func Print(e Expr) string {
	var sb strings.Builder
	printNode(&sb, e, false)
	return sb.String()
}

// PrintTyped is like Print but suffixes every node with its type, e.g.
// (+:Int 1:Int 2:Int)
func PrintTyped(e Expr) string {
	var sb strings.Builder
	printNode(&sb, e, true)
	return sb.String()
}

func printNode(sb *strings.Builder, e Expr, typed bool) {
	if e == nil {
		sb.WriteString("nil")
		return
	}

	suffix := ""
	if typed {
		suffix = ":" + e.Type().String()
	}

	switch n := e.(type) {
	case *IntLiteral:
		sb.WriteString(strconv.FormatInt(n.Value, 10) + suffix)

	case *BoolLiteral:
		sb.WriteString(strconv.FormatBool(n.Value) + suffix)

	case *Identifier:
		sb.WriteString(n.Name + suffix)

	case *Unit:
		sb.WriteString("unit" + suffix)

	case *UnaryOp:
		open(sb, n.Op+suffix)
		child(sb, n.Operand, typed)
		sb.WriteString(")")

	case *BinaryOp:
		open(sb, n.Op+suffix)
		child(sb, n.Left, typed)
		child(sb, n.Right, typed)
		sb.WriteString(")")

	case *Block:
		open(sb, "block"+suffix)
		for _, x := range n.Exprs {
			child(sb, x, typed)
		}
		sb.WriteString(")")

	case *ConditionalOp:
		open(sb, "if"+suffix)
		child(sb, n.Cond, typed)
		child(sb, n.Then, typed)
		if n.Else != nil {
			child(sb, n.Else, typed)
		}
		sb.WriteString(")")

	case *WhileOp:
		open(sb, "while"+suffix)
		child(sb, n.Cond, typed)
		child(sb, n.Body, typed)
		sb.WriteString(")")

	case *VariableDef:
		open(sb, "var"+suffix)
		sb.WriteString(" " + n.Name)
		if n.DeclaredType != "" {
			sb.WriteString(" " + n.DeclaredType)
		}
		child(sb, n.Init, typed)
		sb.WriteString(")")

	case *FunctionCall:
		open(sb, "call"+suffix)
		sb.WriteString(" " + n.Name)
		for _, arg := range n.Args {
			child(sb, arg, typed)
		}
		sb.WriteString(")")

	case *FunctionDefinition:
		open(sb, "fun"+suffix)
		sb.WriteString(" " + n.Name + " (")
		for i, p := range n.Params {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("(" + p.Name + " " + p.DeclaredType + ")")
		}
		sb.WriteString(") " + n.ReturnType)
		child(sb, n.Body, typed)
		sb.WriteString(")")
	}
}

func open(sb *strings.Builder, head string) {
	sb.WriteString("(" + head)
}

func child(sb *strings.Builder, e Expr, typed bool) {
	sb.WriteString(" ")
	printNode(sb, e, typed)
}
