// Package checker assigns a type to every expression node and rejects
// ill-typed programs.
package checker

import (
	"fmt"

	"github.com/lhaig/tern/internal/ast"
	"github.com/lhaig/tern/internal/diagnostic"
	"github.com/lhaig/tern/internal/scope"
	"github.com/lhaig/tern/internal/types"
)

// MaxParams is the number of arguments that fit in SysV argument registers
const MaxParams = 6

// reserved function names collide with symbols of the generated program
var reserved = map[string]bool{
	"main":   true,
	"_start": true,
}

// TypeError reports an ill-typed expression
type TypeError struct {
	Loc     diagnostic.Location
	Message string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Message)
}

// Location returns the position of the offending expression
func (e *TypeError) Location() diagnostic.Location { return e.Loc }

// Checker performs semantic analysis on the AST
type Checker struct {
	global   *scope.Env[types.Type]
	env      *scope.Env[types.Type]
	topLevel map[*ast.FunctionDefinition]bool
}

// New creates a checker whose global scope holds the runtime builtins
func New() *Checker {
	global := scope.New[types.Type](nil)
	for name, sig := range types.Builtins() {
		// A fresh map has no duplicates.
		_ = global.Define(name, sig)
	}
	return &Checker{
		global:   global,
		env:      global,
		topLevel: make(map[*ast.FunctionDefinition]bool),
	}
}

// Check type-checks root and returns its type
func Check(root ast.Expr) (types.Type, error) {
	return New().Check(root)
}

// Check binds the top-level function definitions, then walks the tree once,
// recording the type of every node.
func (c *Checker) Check(root ast.Expr) (types.Type, error) {
	if err := c.registerFunctions(root); err != nil {
		return nil, err
	}
	return c.check(root)
}

// registerFunctions binds every top-level definition in the global scope so
// that functions can call each other regardless of order
func (c *Checker) registerFunctions(root ast.Expr) error {
	var defs []*ast.FunctionDefinition
	switch n := root.(type) {
	case *ast.FunctionDefinition:
		defs = append(defs, n)
	case *ast.Block:
		for _, e := range n.Exprs {
			if fn, ok := e.(*ast.FunctionDefinition); ok {
				defs = append(defs, fn)
			}
		}
	}

	for _, fn := range defs {
		c.topLevel[fn] = true
		sig, err := c.signature(fn)
		if err != nil {
			return err
		}
		if err := c.global.Define(fn.Name, sig); err != nil {
			return c.errorf(fn, "function %q is already defined", fn.Name)
		}
	}
	return nil
}

// signature resolves the declared parameter and return types of fn
func (c *Checker) signature(fn *ast.FunctionDefinition) (*types.Fun, error) {
	if reserved[fn.Name] {
		return nil, c.errorf(fn, "function name %q is reserved", fn.Name)
	}
	if len(fn.Params) > MaxParams {
		return nil, c.errorf(fn, "function %q has %d parameters, at most %d are supported", fn.Name, len(fn.Params), MaxParams)
	}

	sig := &types.Fun{}
	seen := make(map[string]bool)
	for _, p := range fn.Params {
		if seen[p.Name] {
			return nil, &TypeError{Loc: p.Loc, Message: fmt.Sprintf("parameter %q is declared twice", p.Name)}
		}
		seen[p.Name] = true

		typ, ok := types.Lookup(p.DeclaredType)
		if !ok {
			return nil, &TypeError{Loc: p.Loc, Message: fmt.Sprintf("unknown type %q", p.DeclaredType)}
		}
		if types.Equal(typ, types.Unit) {
			return nil, &TypeError{Loc: p.Loc, Message: fmt.Sprintf("parameter %q cannot have type Unit", p.Name)}
		}
		sig.Params = append(sig.Params, typ)
	}

	ret, ok := types.Lookup(fn.ReturnType)
	if !ok {
		return nil, c.errorf(fn, "unknown return type %q", fn.ReturnType)
	}
	sig.Return = ret
	return sig, nil
}

func (c *Checker) errorf(e ast.Expr, format string, args ...any) error {
	return &TypeError{Loc: e.Loc(), Message: fmt.Sprintf(format, args...)}
}

// check computes and stores the type of e
func (c *Checker) check(e ast.Expr) (types.Type, error) {
	t, err := ast.Accept[types.Type](e, c)
	if err != nil {
		return nil, err
	}
	e.SetType(t)
	return t, nil
}

// withScope runs f in a nested scope of parent
func (c *Checker) withScope(parent *scope.Env[types.Type], f func() (types.Type, error)) (types.Type, error) {
	saved := c.env
	c.env = parent.Child()
	defer func() { c.env = saved }()
	return f()
}

func (c *Checker) VisitIntLiteral(*ast.IntLiteral) (types.Type, error) {
	return types.Int, nil
}

func (c *Checker) VisitBoolLiteral(*ast.BoolLiteral) (types.Type, error) {
	return types.Bool, nil
}

func (c *Checker) VisitUnit(*ast.Unit) (types.Type, error) {
	return types.Unit, nil
}

func (c *Checker) VisitIdentifier(n *ast.Identifier) (types.Type, error) {
	t, err := c.env.Lookup(n.Name)
	if err != nil {
		return nil, c.errorf(n, "undefined variable %q", n.Name)
	}
	if _, isFun := t.(*types.Fun); isFun {
		return nil, c.errorf(n, "function %q can only be called", n.Name)
	}
	return t, nil
}

func (c *Checker) VisitUnaryOp(n *ast.UnaryOp) (types.Type, error) {
	operand, err := c.check(n.Operand)
	if err != nil {
		return nil, err
	}

	var want types.Type
	switch n.Op {
	case "-":
		want = types.Int
	case "not":
		want = types.Bool
	default:
		return nil, c.errorf(n, "unknown unary operator %q", n.Op)
	}
	if !types.Equal(operand, want) {
		return nil, c.errorf(n, "operator %q expects %s, found %s", n.Op, want, operand)
	}
	return want, nil
}

func (c *Checker) VisitBinaryOp(n *ast.BinaryOp) (types.Type, error) {
	if n.Op == "=" {
		return c.checkAssignment(n)
	}

	left, err := c.check(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.check(n.Right)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case "+", "-", "*", "/", "%":
		return c.expectOperands(n, types.Int, left, right, types.Int)
	case "<", "<=", ">", ">=":
		return c.expectOperands(n, types.Int, left, right, types.Bool)
	case "and", "or":
		return c.expectOperands(n, types.Bool, left, right, types.Bool)
	case "==", "!=":
		if types.Equal(left, right) && (types.Equal(left, types.Int) || types.Equal(left, types.Bool)) {
			return types.Bool, nil
		}
		return nil, c.errorf(n, "operator %q expects two Int or two Bool operands, found %s and %s", n.Op, left, right)
	default:
		return nil, c.errorf(n, "unknown binary operator %q", n.Op)
	}
}

// expectOperands requires both operands to have type want
func (c *Checker) expectOperands(n *ast.BinaryOp, want, left, right, result types.Type) (types.Type, error) {
	if !types.Equal(left, want) || !types.Equal(right, want) {
		return nil, c.errorf(n, "operator %q expects %s and %s, found %s and %s", n.Op, want, want, left, right)
	}
	return result, nil
}

func (c *Checker) checkAssignment(n *ast.BinaryOp) (types.Type, error) {
	target, ok := n.Left.(*ast.Identifier)
	if !ok {
		return nil, c.errorf(n, "left side of \"=\" must be a variable name")
	}
	want, err := c.env.Lookup(target.Name)
	if err != nil {
		return nil, c.errorf(target, "assignment to undefined variable %q", target.Name)
	}
	if _, isFun := want.(*types.Fun); isFun {
		return nil, c.errorf(target, "cannot assign to function %q", target.Name)
	}
	target.SetType(want)

	value, err := c.check(n.Right)
	if err != nil {
		return nil, err
	}
	if !types.Equal(value, want) {
		return nil, c.errorf(n, "cannot assign %s to variable %q of type %s", value, target.Name, want)
	}
	return want, nil
}

func (c *Checker) VisitBlock(n *ast.Block) (types.Type, error) {
	return c.withScope(c.env, func() (types.Type, error) {
		var last types.Type = types.Unit
		for _, e := range n.Exprs {
			t, err := c.check(e)
			if err != nil {
				return nil, err
			}
			last = t
		}
		return last, nil
	})
}

func (c *Checker) VisitConditionalOp(n *ast.ConditionalOp) (types.Type, error) {
	if err := c.expectCondition(n.Cond, "if"); err != nil {
		return nil, err
	}
	then, err := c.check(n.Then)
	if err != nil {
		return nil, err
	}
	if n.Else == nil {
		return types.Unit, nil
	}
	els, err := c.check(n.Else)
	if err != nil {
		return nil, err
	}
	if !types.Equal(then, els) {
		return nil, c.errorf(n, "if branches have different types: then is %s, else is %s", then, els)
	}
	return then, nil
}

func (c *Checker) VisitWhileOp(n *ast.WhileOp) (types.Type, error) {
	if err := c.expectCondition(n.Cond, "while"); err != nil {
		return nil, err
	}
	if _, err := c.check(n.Body); err != nil {
		return nil, err
	}
	return types.Unit, nil
}

func (c *Checker) expectCondition(cond ast.Expr, keyword string) error {
	t, err := c.check(cond)
	if err != nil {
		return err
	}
	if !types.Equal(t, types.Bool) {
		return c.errorf(cond, "%s condition must be Bool, found %s", keyword, t)
	}
	return nil
}

func (c *Checker) VisitVariableDef(n *ast.VariableDef) (types.Type, error) {
	value, err := c.check(n.Init)
	if err != nil {
		return nil, err
	}

	if n.DeclaredType != "" {
		declared, ok := types.Lookup(n.DeclaredType)
		if !ok {
			return nil, c.errorf(n, "unknown type %q", n.DeclaredType)
		}
		if !types.Equal(declared, value) {
			return nil, c.errorf(n, "variable %q is declared as %s but initialized with %s", n.Name, declared, value)
		}
	}

	if err := c.env.Define(n.Name, value); err != nil {
		return nil, c.errorf(n, "variable %q is already defined in this scope", n.Name)
	}
	return types.Unit, nil
}

func (c *Checker) VisitFunctionCall(n *ast.FunctionCall) (types.Type, error) {
	callee, err := c.env.Lookup(n.Name)
	if err != nil {
		return nil, c.errorf(n, "undefined function %q", n.Name)
	}
	sig, ok := callee.(*types.Fun)
	if !ok {
		return nil, c.errorf(n, "%q is not a function, it has type %s", n.Name, callee)
	}
	if len(n.Args) != len(sig.Params) {
		return nil, c.errorf(n, "function %q expects %d arguments, found %d", n.Name, len(sig.Params), len(n.Args))
	}

	for i, arg := range n.Args {
		t, err := c.check(arg)
		if err != nil {
			return nil, err
		}
		if !types.Equal(t, sig.Params[i]) {
			return nil, c.errorf(arg, "argument %d of %q expects %s, found %s", i+1, n.Name, sig.Params[i], t)
		}
	}
	return sig.Return, nil
}

func (c *Checker) VisitFunctionDefinition(n *ast.FunctionDefinition) (types.Type, error) {
	if !c.topLevel[n] {
		return nil, c.errorf(n, "function %q must be defined at top level", n.Name)
	}
	bound, err := c.global.Lookup(n.Name)
	if err != nil {
		return nil, c.errorf(n, "function %q was not registered", n.Name)
	}
	sig := bound.(*types.Fun)

	body, err := c.withScope(c.global, func() (types.Type, error) {
		for i, p := range n.Params {
			if err := c.env.Define(p.Name, sig.Params[i]); err != nil {
				return nil, &TypeError{Loc: p.Loc, Message: fmt.Sprintf("parameter %q is declared twice", p.Name)}
			}
		}
		return c.check(n.Body)
	})
	if err != nil {
		return nil, err
	}

	if !types.Equal(body, sig.Return) {
		return nil, c.errorf(n, "function %q returns %s but its body has type %s", n.Name, sig.Return, body)
	}
	return types.Unit, nil
}
