package ir

import (
	"fmt"
	"strconv"

	"github.com/lhaig/tern/internal/ast"
	"github.com/lhaig/tern/internal/diagnostic"
	"github.com/lhaig/tern/internal/scope"
	"github.com/lhaig/tern/internal/types"
)

// lowerer transforms a type-checked AST into IR functions. The var and label
// counters belong to one Generate call.
type lowerer struct {
	prog      *Program
	fn        *Function
	env       *scope.Env[*Var]
	slots     map[int]bool // vars bound to names, as opposed to temporaries
	nextVar   int
	nextLabel int
}

// Generate lowers root, whose types must already be set by the checker.
// The top-level expressions become main; when the root has type Int or Bool
// main ends by printing it.
func Generate(root ast.Expr) (*Program, error) {
	l := &lowerer{prog: &Program{}, slots: make(map[int]bool)}

	l.beginFunction("main", types.Unit, root.Loc())
	l.env = scope.New[*Var](nil)

	result, err := l.lower(root)
	if err != nil {
		return nil, err
	}

	loc := root.Loc()
	switch {
	case types.Equal(root.Type(), types.Int):
		l.emit(&Call{Position: Position{loc}, Fun: "print_int", Args: []*Var{result}, Dest: l.newVar(types.Unit)})
	case types.Equal(root.Type(), types.Bool):
		l.emit(&Call{Position: Position{loc}, Fun: "print_bool", Args: []*Var{result}, Dest: l.newVar(types.Unit)})
	}
	return l.prog, nil
}

// beginFunction appends a new function to the program and makes it current
func (l *lowerer) beginFunction(name string, ret types.Type, loc diagnostic.Location) *Function {
	fn := &Function{Name: name, ReturnType: ret}
	l.prog.Functions = append(l.prog.Functions, fn)
	l.fn = fn
	l.emit(&Label{Position: Position{loc}, Name: "start"})
	return fn
}

func (l *lowerer) emit(instr Instruction) {
	l.fn.Instructions = append(l.fn.Instructions, instr)
}

func (l *lowerer) newVar(t types.Type) *Var {
	l.nextVar++
	return &Var{ID: l.nextVar, Name: varName(t, l.nextVar), Type: t}
}

func (l *lowerer) newLabel(kind string) string {
	l.nextLabel++
	return kind + strconv.Itoa(l.nextLabel)
}

func (l *lowerer) errorf(e ast.Expr, format string, args ...any) error {
	return &Error{Loc: e.Loc(), Message: fmt.Sprintf(format, args...)}
}

// lower emits the instructions for e and returns the var holding its value,
// or nil when e has type Unit
func (l *lowerer) lower(e ast.Expr) (*Var, error) {
	return ast.Accept[*Var](e, l)
}

func (l *lowerer) VisitIntLiteral(n *ast.IntLiteral) (*Var, error) {
	dest := l.newVar(types.Int)
	l.emit(&LoadIntConst{Position: Position{n.Loc()}, Value: n.Value, Dest: dest})
	return dest, nil
}

func (l *lowerer) VisitBoolLiteral(n *ast.BoolLiteral) (*Var, error) {
	dest := l.newVar(types.Bool)
	l.emit(&LoadBoolConst{Position: Position{n.Loc()}, Value: n.Value, Dest: dest})
	return dest, nil
}

func (l *lowerer) VisitUnit(*ast.Unit) (*Var, error) {
	return nil, nil
}

func (l *lowerer) VisitIdentifier(n *ast.Identifier) (*Var, error) {
	v, err := l.env.Lookup(n.Name)
	if err != nil {
		return nil, l.errorf(n, "no variable bound to %q", n.Name)
	}
	return v, nil
}

func (l *lowerer) VisitUnaryOp(n *ast.UnaryOp) (*Var, error) {
	operand, err := l.lower(n.Operand)
	if err != nil {
		return nil, err
	}
	dest := l.newVar(n.Type())
	l.emit(&Call{Position: Position{n.Loc()}, Fun: "unary_" + n.Op, Args: []*Var{operand}, Dest: dest})
	return dest, nil
}

func (l *lowerer) VisitBinaryOp(n *ast.BinaryOp) (*Var, error) {
	switch n.Op {
	case "=":
		return l.lowerAssignment(n)
	case "and":
		return l.lowerShortCircuit(n, "and")
	case "or":
		return l.lowerShortCircuit(n, "or")
	}

	left, err := l.lowerOperand(n.Left, n.Right)
	if err != nil {
		return nil, err
	}
	right, err := l.lower(n.Right)
	if err != nil {
		return nil, err
	}
	dest := l.newVar(n.Type())
	l.emit(&Call{Position: Position{n.Loc()}, Fun: n.Op, Args: []*Var{left, right}, Dest: dest})
	return dest, nil
}

// lowerOperand lowers an operand that is evaluated before the operands in
// later. When e yields a variable's own slot and a later operand assigns to
// a variable, the value is first copied into a fresh var so that e keeps the
// value it had when it was evaluated.
func (l *lowerer) lowerOperand(e ast.Expr, later ...ast.Expr) (*Var, error) {
	v, err := l.lower(e)
	if err != nil {
		return nil, err
	}
	if v == nil || !l.slots[v.ID] {
		return v, nil
	}
	for _, next := range later {
		if containsAssignment(next) {
			snapshot := l.newVar(v.Type)
			l.emit(&Copy{Position: Position{e.Loc()}, Src: v, Dest: snapshot})
			return snapshot, nil
		}
	}
	return v, nil
}

// containsAssignment reports whether evaluating e may assign to a variable
func containsAssignment(e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(n ast.Expr) bool {
		if bin, ok := n.(*ast.BinaryOp); ok && bin.Op == "=" {
			found = true
		}
		return !found
	})
	return found
}

// lowerAssignment copies the value into the var bound in the scope that
// owns the target name
func (l *lowerer) lowerAssignment(n *ast.BinaryOp) (*Var, error) {
	target, ok := n.Left.(*ast.Identifier)
	if !ok {
		return nil, l.errorf(n, "assignment target is not an identifier")
	}
	value, err := l.lower(n.Right)
	if err != nil {
		return nil, err
	}

	owner := l.env.Owner(target.Name)
	if owner == nil {
		return nil, l.errorf(target, "no variable bound to %q", target.Name)
	}
	dest, err := owner.Lookup(target.Name)
	if err != nil {
		return nil, l.errorf(target, "no variable bound to %q", target.Name)
	}
	if dest != nil {
		l.emit(&Copy{Position: Position{n.Loc()}, Src: value, Dest: dest})
	}
	return value, nil
}

// lowerShortCircuit evaluates the right operand only when it decides the
// result:
//
//	and: CondJump(left, and_rhs, and_skip); skip loads false
//	or:  CondJump(left, or_skip, or_rhs);   skip loads true
func (l *lowerer) lowerShortCircuit(n *ast.BinaryOp, op string) (*Var, error) {
	left, err := l.lower(n.Left)
	if err != nil {
		return nil, err
	}

	loc := Position{n.Loc()}
	rhs := l.newLabel(op + "_rhs")
	skip := l.newLabel(op + "_skip")
	end := l.newLabel(op + "_end")
	result := l.newVar(types.Bool)

	if op == "and" {
		l.emit(&CondJump{Position: loc, Cond: left, Then: rhs, Else: skip})
	} else {
		l.emit(&CondJump{Position: loc, Cond: left, Then: skip, Else: rhs})
	}

	l.emit(&Label{Position: loc, Name: rhs})
	right, err := l.lower(n.Right)
	if err != nil {
		return nil, err
	}
	l.emit(&Copy{Position: loc, Src: right, Dest: result})
	l.emit(&Jump{Position: loc, Label: end})

	l.emit(&Label{Position: loc, Name: skip})
	l.emit(&LoadBoolConst{Position: loc, Value: op == "or", Dest: result})
	l.emit(&Jump{Position: loc, Label: end})

	l.emit(&Label{Position: loc, Name: end})
	return result, nil
}

func (l *lowerer) VisitBlock(n *ast.Block) (*Var, error) {
	saved := l.env
	l.env = l.env.Child()
	defer func() { l.env = saved }()

	var last *Var
	for _, e := range n.Exprs {
		v, err := l.lower(e)
		if err != nil {
			return nil, err
		}
		last = v
	}
	if types.Equal(n.Type(), types.Unit) {
		return nil, nil
	}
	return last, nil
}

func (l *lowerer) VisitConditionalOp(n *ast.ConditionalOp) (*Var, error) {
	cond, err := l.lower(n.Cond)
	if err != nil {
		return nil, err
	}
	loc := Position{n.Loc()}

	if n.Else == nil {
		then := l.newLabel("then")
		end := l.newLabel("if_end")
		l.emit(&CondJump{Position: loc, Cond: cond, Then: then, Else: end})
		l.emit(&Label{Position: loc, Name: then})
		if _, err := l.lower(n.Then); err != nil {
			return nil, err
		}
		l.emit(&Label{Position: loc, Name: end})
		return nil, nil
	}

	then := l.newLabel("then")
	els := l.newLabel("else")
	end := l.newLabel("if_end")

	var result *Var
	if !types.Equal(n.Type(), types.Unit) {
		result = l.newVar(n.Type())
	}

	l.emit(&CondJump{Position: loc, Cond: cond, Then: then, Else: els})

	l.emit(&Label{Position: loc, Name: then})
	thenVar, err := l.lower(n.Then)
	if err != nil {
		return nil, err
	}
	if result != nil {
		l.emit(&Copy{Position: loc, Src: thenVar, Dest: result})
	}
	l.emit(&Jump{Position: loc, Label: end})

	l.emit(&Label{Position: loc, Name: els})
	elseVar, err := l.lower(n.Else)
	if err != nil {
		return nil, err
	}
	if result != nil {
		l.emit(&Copy{Position: loc, Src: elseVar, Dest: result})
	}

	l.emit(&Label{Position: loc, Name: end})
	return result, nil
}

func (l *lowerer) VisitWhileOp(n *ast.WhileOp) (*Var, error) {
	loc := Position{n.Loc()}
	start := l.newLabel("while_start")
	body := l.newLabel("while_body")
	end := l.newLabel("while_end")

	l.emit(&Label{Position: loc, Name: start})
	cond, err := l.lower(n.Cond)
	if err != nil {
		return nil, err
	}
	l.emit(&CondJump{Position: loc, Cond: cond, Then: body, Else: end})

	l.emit(&Label{Position: loc, Name: body})
	if _, err := l.lower(n.Body); err != nil {
		return nil, err
	}
	l.emit(&Jump{Position: loc, Label: start})

	l.emit(&Label{Position: loc, Name: end})
	return nil, nil
}

// VisitVariableDef copies the initializer into a var of its own, so that
// later assignments to the new name leave the initializer's var untouched
func (l *lowerer) VisitVariableDef(n *ast.VariableDef) (*Var, error) {
	value, err := l.lower(n.Init)
	if err != nil {
		return nil, err
	}

	var slot *Var
	if value != nil {
		slot = l.newVar(n.Init.Type())
		l.slots[slot.ID] = true
		l.emit(&Copy{Position: Position{n.Loc()}, Src: value, Dest: slot})
	}
	if err := l.env.Define(n.Name, slot); err != nil {
		return nil, l.errorf(n, "%v", err)
	}
	return nil, nil
}

func (l *lowerer) VisitFunctionCall(n *ast.FunctionCall) (*Var, error) {
	args := make([]*Var, 0, len(n.Args))
	for i, arg := range n.Args {
		v, err := l.lowerOperand(arg, n.Args[i+1:]...)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}

	dest := l.newVar(n.Type())
	l.emit(&Call{Position: Position{n.Loc()}, Fun: n.Name, Args: args, Dest: dest})
	if types.Equal(n.Type(), types.Unit) {
		return nil, nil
	}
	return dest, nil
}

// VisitFunctionDefinition lowers the definition into a function of its own
// and emits nothing into the enclosing one
func (l *lowerer) VisitFunctionDefinition(n *ast.FunctionDefinition) (*Var, error) {
	ret, ok := types.Lookup(n.ReturnType)
	if !ok {
		return nil, l.errorf(n, "unknown return type %q", n.ReturnType)
	}

	savedFn, savedEnv := l.fn, l.env
	defer func() { l.fn, l.env = savedFn, savedEnv }()

	fn := l.beginFunction(n.Name, ret, n.Loc())
	l.env = scope.New[*Var](nil)
	for _, p := range n.Params {
		typ, ok := types.Lookup(p.DeclaredType)
		if !ok {
			return nil, &Error{Loc: p.Loc, Message: fmt.Sprintf("unknown parameter type %q", p.DeclaredType)}
		}
		v := l.newVar(typ)
		l.slots[v.ID] = true
		fn.Params = append(fn.Params, v)
		if err := l.env.Define(p.Name, v); err != nil {
			return nil, &Error{Loc: p.Loc, Message: err.Error()}
		}
	}

	body, err := l.lower(n.Body)
	if err != nil {
		return nil, err
	}
	if types.Equal(ret, types.Unit) {
		body = nil
	}
	l.emit(&Return{Position: Position{n.Body.Loc()}, Value: body})
	return nil, nil
}
