package linter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lhaig/tern/internal/ast"
	"github.com/lhaig/tern/internal/diagnostic"
	"github.com/lhaig/tern/internal/scope"
)

// Linter performs style and best-practice checks on a parsed program.
// It reports warnings (never errors) using the diagnostic system.
type Linter struct {
	diag     *diagnostic.Diagnostics
	env      *scope.Env[*binding]
	bindings []*binding
}

// binding tracks whether a variable or parameter is ever read
type binding struct {
	kind  string // "variable" or "parameter"
	name  string
	owner string // enclosing function, empty at top level
	loc   diagnostic.Location
	used  bool
}

// Lint runs all lint rules on root and returns the warnings. root does not
// need to be type checked.
func Lint(root ast.Expr) *diagnostic.Diagnostics {
	l := &Linter{
		diag: diagnostic.New(),
		env:  scope.New[*binding](nil),
	}
	l.walk(root, "")
	l.checkUnused()
	return l.diag
}

// walk visits e in evaluation order, tracking scopes the same way the type
// checker does
func (l *Linter) walk(e ast.Expr, fn string) {
	switch n := e.(type) {
	case *ast.Identifier:
		if b, err := l.env.Lookup(n.Name); err == nil {
			b.used = true
		}

	case *ast.UnaryOp:
		l.walk(n.Operand, fn)

	case *ast.BinaryOp:
		// Assigning to a name is a write, not a read
		if _, ok := n.Left.(*ast.Identifier); !ok || n.Op != "=" {
			l.walk(n.Left, fn)
		}
		l.walk(n.Right, fn)

	case *ast.Block:
		saved := l.env
		l.env = l.env.Child()
		for _, inner := range n.Exprs {
			l.walk(inner, fn)
		}
		l.env = saved

	case *ast.ConditionalOp:
		l.checkConstantCondition("if", n.Cond)
		l.walk(n.Cond, fn)
		l.walk(n.Then, fn)
		if n.Else != nil {
			l.walk(n.Else, fn)
		}

	case *ast.WhileOp:
		l.checkConstantCondition("while", n.Cond)
		l.walk(n.Cond, fn)
		l.walk(n.Body, fn)

	case *ast.VariableDef:
		l.walk(n.Init, fn)
		l.checkVariableNaming(n.Name, n.Loc())
		l.declare(&binding{kind: "variable", name: n.Name, owner: fn, loc: n.Loc()})

	case *ast.FunctionCall:
		for _, arg := range n.Args {
			l.walk(arg, fn)
		}

	case *ast.FunctionDefinition:
		l.lintFunction(n)
	}
}

// lintFunction checks a definition. Its body sees only its parameters, so it
// is walked in a fresh scope.
func (l *Linter) lintFunction(fn *ast.FunctionDefinition) {
	l.checkFunctionNaming(fn.Name, fn.Loc())
	l.checkEmptyFunctionBody(fn)

	saved := l.env
	l.env = scope.New[*binding](nil)
	for _, p := range fn.Params {
		l.declare(&binding{kind: "parameter", name: p.Name, owner: fn.Name, loc: p.Loc})
	}
	if fn.Body != nil {
		l.walk(fn.Body, fn.Name)
	}
	l.env = saved
}

func (l *Linter) declare(b *binding) {
	if l.env.Owner(b.name) != nil && !l.env.Declared(b.name) {
		l.diag.Warningf(b.loc, "%s '%s' shadows an outer binding", b.kind, b.name)
	}
	if err := l.env.Define(b.name, b); err != nil {
		// Redefinition is a type error, reported by the checker
		return
	}
	l.bindings = append(l.bindings, b)
}

// --- Lint rules ---

// checkUnused warns about variables and parameters that are never read.
// Names starting with an underscore are exempt.
func (l *Linter) checkUnused() {
	for _, b := range l.bindings {
		if b.used || b.name[0] == '_' {
			continue
		}
		if b.kind == "parameter" {
			l.diag.Warningf(b.loc, "parameter '%s' in '%s' is never used", b.name, b.owner)
			continue
		}
		l.diag.Warningf(b.loc, "variable '%s' is declared but never used", b.name)
	}
}

// checkEmptyFunctionBody warns if a function body has no expressions.
func (l *Linter) checkEmptyFunctionBody(fn *ast.FunctionDefinition) {
	if fn.Body == nil || len(fn.Body.Exprs) == 0 {
		l.diag.Warningf(fn.Loc(), "function '%s' has an empty body", fn.Name)
	}
}

// checkConstantCondition warns about if/while conditions that are literals.
func (l *Linter) checkConstantCondition(kind string, cond ast.Expr) {
	if lit, ok := cond.(*ast.BoolLiteral); ok {
		l.diag.Warningf(cond.Loc(), "%s condition is always %t", kind, lit.Value)
	}
}

// checkFunctionNaming warns if a function name is not snake_case.
func (l *Linter) checkFunctionNaming(name string, loc diagnostic.Location) {
	if !isSnakeCase(name) {
		l.diag.WarningWithHint(loc,
			fmt.Sprintf("function '%s' should use snake_case naming", name),
			fmt.Sprintf("rename it to '%s'", toSnakeCase(name)))
	}
}

// checkVariableNaming warns if a variable name is not snake_case.
func (l *Linter) checkVariableNaming(name string, loc diagnostic.Location) {
	if !isSnakeCase(name) {
		l.diag.WarningWithHint(loc,
			fmt.Sprintf("variable '%s' should use snake_case naming", name),
			fmt.Sprintf("rename it to '%s'", toSnakeCase(name)))
	}
}

// --- Naming convention helpers ---

// isSnakeCase returns true if the name follows snake_case conventions:
// lowercase letters, digits, and underscores only, not starting with a digit.
func isSnakeCase(name string) bool {
	if len(name) == 0 {
		return false
	}
	for i, r := range name {
		if i == 0 && unicode.IsDigit(r) {
			return false
		}
		if !unicode.IsLower(r) && r != '_' && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// toSnakeCase suggests a snake_case spelling, splitting before an upper case
// letter that follows a lower case letter or digit.
func toSnakeCase(name string) string {
	var b strings.Builder
	prev := rune(0)
	for _, r := range name {
		if unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return b.String()
}
