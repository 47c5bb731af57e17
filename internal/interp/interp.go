// Package interp evaluates type-checked programs directly over the AST. Its
// observable behavior matches the compiled executable, which makes it the
// reference the native build is tested against.
package interp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/lhaig/tern/internal/ast"
	"github.com/lhaig/tern/internal/scope"
	"github.com/lhaig/tern/internal/types"
)

// MaxCallDepth bounds recursion so that runaway programs fail with a
// RuntimeError instead of exhausting the Go stack
const MaxCallDepth = 10000

// Interpreter evaluates one program. It must not be shared between
// goroutines.
type Interpreter struct {
	in      *bufio.Reader
	out     io.Writer
	globals *scope.Env[Value]
	env     *scope.Env[Value]
	depth   int
}

// New creates an interpreter reading read_int input from stdin and writing
// print output to stdout
func New(stdin io.Reader, stdout io.Writer) *Interpreter {
	ip := &Interpreter{
		in:      bufio.NewReader(stdin),
		out:     stdout,
		globals: scope.New[Value](nil),
	}
	for name, fn := range builtins {
		ip.globals.Define(name, Value{Tag: TagFun, Fun: &Function{Name: name, Builtin: fn}})
	}
	ip.env = ip.globals
	return ip
}

// Run evaluates root and returns its value. Top-level function definitions
// are bound before evaluation starts, so they may call each other in any
// order.
func (ip *Interpreter) Run(root ast.Expr) (Value, error) {
	for _, def := range topLevelFunctions(root) {
		fn := Value{Tag: TagFun, Fun: &Function{Name: def.Name, Def: def}}
		if err := ip.globals.Define(def.Name, fn); err != nil {
			return unit, ip.errorf(def, "function %q is already defined", def.Name)
		}
	}
	return ip.eval(root)
}

// RunProgram evaluates root like the compiled executable: an Int or Bool
// result is printed when evaluation finishes.
func (ip *Interpreter) RunProgram(root ast.Expr) error {
	v, err := ip.Run(root)
	if err != nil {
		return err
	}
	switch {
	case types.Equal(root.Type(), types.Int), types.Equal(root.Type(), types.Bool):
		return ip.print(v)
	}
	return nil
}

func topLevelFunctions(root ast.Expr) []*ast.FunctionDefinition {
	switch n := root.(type) {
	case *ast.FunctionDefinition:
		return []*ast.FunctionDefinition{n}
	case *ast.Block:
		var defs []*ast.FunctionDefinition
		for _, e := range n.Exprs {
			if def, ok := e.(*ast.FunctionDefinition); ok {
				defs = append(defs, def)
			}
		}
		return defs
	}
	return nil
}

func (ip *Interpreter) errorf(e ast.Expr, format string, args ...any) error {
	return &RuntimeError{Loc: e.Loc(), Message: fmt.Sprintf(format, args...)}
}

func (ip *Interpreter) eval(e ast.Expr) (Value, error) {
	return ast.Accept[Value](e, ip)
}

func (ip *Interpreter) print(v Value) error {
	_, err := fmt.Fprintln(ip.out, v.String())
	return err
}

func (ip *Interpreter) VisitIntLiteral(n *ast.IntLiteral) (Value, error) {
	return IntValue(n.Value), nil
}

func (ip *Interpreter) VisitBoolLiteral(n *ast.BoolLiteral) (Value, error) {
	return BoolValue(n.Value), nil
}

func (ip *Interpreter) VisitUnit(*ast.Unit) (Value, error) {
	return unit, nil
}

func (ip *Interpreter) VisitIdentifier(n *ast.Identifier) (Value, error) {
	v, err := ip.env.Lookup(n.Name)
	if err != nil {
		return unit, ip.errorf(n, "undefined variable %q", n.Name)
	}
	return v, nil
}

func (ip *Interpreter) VisitUnaryOp(n *ast.UnaryOp) (Value, error) {
	v, err := ip.eval(n.Operand)
	if err != nil {
		return unit, err
	}
	switch n.Op {
	case "-":
		return IntValue(-v.Int), nil
	case "not":
		return BoolValue(!v.Bool), nil
	}
	return unit, ip.errorf(n, "unknown unary operator %q", n.Op)
}

func (ip *Interpreter) VisitBinaryOp(n *ast.BinaryOp) (Value, error) {
	switch n.Op {
	case "=":
		return ip.assign(n)
	case "and", "or":
		return ip.shortCircuit(n)
	}

	left, err := ip.eval(n.Left)
	if err != nil {
		return unit, err
	}
	right, err := ip.eval(n.Right)
	if err != nil {
		return unit, err
	}

	a, b := left.Int, right.Int
	switch n.Op {
	case "+":
		return IntValue(a + b), nil
	case "-":
		return IntValue(a - b), nil
	case "*":
		return IntValue(a * b), nil
	case "/", "%":
		if b == 0 {
			return unit, ip.errorf(n, "division by zero")
		}
		// idivq traps on this quotient in compiled programs
		if a == math.MinInt64 && b == -1 {
			return unit, ip.errorf(n, "integer overflow in division")
		}
		if n.Op == "/" {
			return IntValue(a / b), nil
		}
		return IntValue(a % b), nil
	case "<":
		return BoolValue(a < b), nil
	case "<=":
		return BoolValue(a <= b), nil
	case ">":
		return BoolValue(a > b), nil
	case ">=":
		return BoolValue(a >= b), nil
	case "==":
		return BoolValue(left == right), nil
	case "!=":
		return BoolValue(left != right), nil
	}
	return unit, ip.errorf(n, "unknown operator %q", n.Op)
}

func (ip *Interpreter) assign(n *ast.BinaryOp) (Value, error) {
	target, ok := n.Left.(*ast.Identifier)
	if !ok {
		return unit, ip.errorf(n, "left side of \"=\" must be a variable name")
	}
	v, err := ip.eval(n.Right)
	if err != nil {
		return unit, err
	}
	if err := ip.env.Assign(target.Name, v); err != nil {
		return unit, ip.errorf(target, "assignment to undefined variable %q", target.Name)
	}
	return v, nil
}

// shortCircuit evaluates the right operand only when the left one does not
// decide the result
func (ip *Interpreter) shortCircuit(n *ast.BinaryOp) (Value, error) {
	left, err := ip.eval(n.Left)
	if err != nil {
		return unit, err
	}
	if n.Op == "and" && !left.Bool {
		return BoolValue(false), nil
	}
	if n.Op == "or" && left.Bool {
		return BoolValue(true), nil
	}
	right, err := ip.eval(n.Right)
	if err != nil {
		return unit, err
	}
	return BoolValue(right.Bool), nil
}

func (ip *Interpreter) VisitBlock(n *ast.Block) (Value, error) {
	saved := ip.env
	ip.env = ip.env.Child()
	defer func() { ip.env = saved }()

	last := unit
	for _, e := range n.Exprs {
		v, err := ip.eval(e)
		if err != nil {
			return unit, err
		}
		last = v
	}
	if types.Equal(n.Type(), types.Unit) {
		return unit, nil
	}
	return last, nil
}

func (ip *Interpreter) VisitConditionalOp(n *ast.ConditionalOp) (Value, error) {
	cond, err := ip.eval(n.Cond)
	if err != nil {
		return unit, err
	}
	if cond.Bool {
		v, err := ip.eval(n.Then)
		if err != nil || n.Else == nil {
			return unit, err
		}
		return v, nil
	}
	if n.Else == nil {
		return unit, nil
	}
	return ip.eval(n.Else)
}

func (ip *Interpreter) VisitWhileOp(n *ast.WhileOp) (Value, error) {
	for {
		cond, err := ip.eval(n.Cond)
		if err != nil {
			return unit, err
		}
		if !cond.Bool {
			return unit, nil
		}
		if _, err := ip.eval(n.Body); err != nil {
			return unit, err
		}
	}
}

func (ip *Interpreter) VisitVariableDef(n *ast.VariableDef) (Value, error) {
	v, err := ip.eval(n.Init)
	if err != nil {
		return unit, err
	}
	if err := ip.env.Define(n.Name, v); err != nil {
		return unit, ip.errorf(n, "variable %q is already defined in this scope", n.Name)
	}
	return unit, nil
}

func (ip *Interpreter) VisitFunctionCall(n *ast.FunctionCall) (Value, error) {
	callee, err := ip.env.Lookup(n.Name)
	if err != nil || callee.Tag != TagFun {
		return unit, ip.errorf(n, "%q is not a function", n.Name)
	}

	args := make([]Value, 0, len(n.Args))
	for _, arg := range n.Args {
		v, err := ip.eval(arg)
		if err != nil {
			return unit, err
		}
		args = append(args, v)
	}

	fn := callee.Fun
	if fn.Builtin != nil {
		v, err := fn.Builtin(ip, args)
		if err != nil {
			return unit, ip.errorf(n, "%s: %v", fn.Name, err)
		}
		return v, nil
	}
	return ip.call(n, fn.Def, args)
}

// call runs a user function body in a scope below the globals, so the body
// sees other functions and its parameters but none of the caller's variables
func (ip *Interpreter) call(site ast.Expr, def *ast.FunctionDefinition, args []Value) (Value, error) {
	if len(args) != len(def.Params) {
		return unit, ip.errorf(site, "function %q expects %d arguments, found %d", def.Name, len(def.Params), len(args))
	}
	if ip.depth >= MaxCallDepth {
		return unit, ip.errorf(site, "maximum call depth of %d exceeded", MaxCallDepth)
	}

	saved := ip.env
	ip.env = ip.globals.Child()
	ip.depth++
	defer func() {
		ip.env = saved
		ip.depth--
	}()

	for i, p := range def.Params {
		if err := ip.env.Define(p.Name, args[i]); err != nil {
			return unit, ip.errorf(def, "duplicate parameter %q", p.Name)
		}
	}
	v, err := ip.eval(def.Body)
	if err != nil {
		return unit, err
	}
	if def.ReturnType == "" || def.ReturnType == types.Unit.String() {
		return unit, nil
	}
	return v, nil
}

// VisitFunctionDefinition binds nothing: definitions are bound by Run
// before evaluation starts
func (ip *Interpreter) VisitFunctionDefinition(*ast.FunctionDefinition) (Value, error) {
	return unit, nil
}

var builtins = map[string]func(ip *Interpreter, args []Value) (Value, error){
	"print_int": func(ip *Interpreter, args []Value) (Value, error) {
		return unit, ip.print(args[0])
	},
	"print_bool": func(ip *Interpreter, args []Value) (Value, error) {
		return unit, ip.print(args[0])
	},
	"read_int": func(ip *Interpreter, _ []Value) (Value, error) {
		n, err := ip.readInt()
		if err != nil {
			return unit, err
		}
		return IntValue(n), nil
	},
}

// readInt reads one line of input. End of input reads as 0.
func (ip *Interpreter) readInt() (int64, error) {
	line, err := ip.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", line)
	}
	return n, nil
}
