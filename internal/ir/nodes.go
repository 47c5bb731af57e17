// Package ir defines the three-address intermediate representation and the
// generator that lowers a type-checked AST into it.
package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lhaig/tern/internal/diagnostic"
	"github.com/lhaig/tern/internal/types"
)

// Program is the lowered form of a compilation unit. Functions[0] is main,
// followed by user functions in definition order.
type Program struct {
	Functions []*Function
}

// Function is a flat instruction list starting with Label(start)
type Function struct {
	Name         string
	Params       []*Var
	ReturnType   types.Type
	Instructions []Instruction
}

// Var is a value slot created by the generator. Two vars are the same var
// only if they have the same ID.
type Var struct {
	ID   int
	Name string
	Type types.Type
}

func (v *Var) String() string { return v.Name }

// Instruction is implemented by every IR instruction
type Instruction interface {
	Loc() diagnostic.Location
	// Vars lists every var the instruction reads or writes, in operand order.
	Vars() []*Var
	String() string
	instruction()
}

// Position records where an instruction came from in the source
type Position struct {
	Location diagnostic.Location
}

func (p Position) Loc() diagnostic.Location { return p.Location }

// LoadIntConst stores an integer constant into Dest
type LoadIntConst struct {
	Position
	Value int64
	Dest  *Var
}

// LoadBoolConst stores a boolean constant into Dest
type LoadBoolConst struct {
	Position
	Value bool
	Dest  *Var
}

// Copy copies Src into Dest
type Copy struct {
	Position
	Src  *Var
	Dest *Var
}

// Call applies an operator or function to Args and stores the result in Dest
type Call struct {
	Position
	Fun  string
	Args []*Var
	Dest *Var
}

// Label marks a branch target, unique within its function
type Label struct {
	Position
	Name string
}

// Jump transfers control to Label
type Jump struct {
	Position
	Label string
}

// CondJump goes to Then if Cond is true, otherwise to Else
type CondJump struct {
	Position
	Cond *Var
	Then string
	Else string
}

// Return leaves the current function; Value is nil for Unit functions
type Return struct {
	Position
	Value *Var
}

func (*LoadIntConst) instruction()  {}
func (*LoadBoolConst) instruction() {}
func (*Copy) instruction()          {}
func (*Call) instruction()          {}
func (*Label) instruction()         {}
func (*Jump) instruction()          {}
func (*CondJump) instruction()      {}
func (*Return) instruction()        {}

func (i *LoadIntConst) Vars() []*Var  { return []*Var{i.Dest} }
func (i *LoadBoolConst) Vars() []*Var { return []*Var{i.Dest} }
func (i *Copy) Vars() []*Var          { return []*Var{i.Src, i.Dest} }
func (*Label) Vars() []*Var           { return nil }
func (*Jump) Vars() []*Var            { return nil }
func (i *CondJump) Vars() []*Var      { return []*Var{i.Cond} }

func (i *Call) Vars() []*Var {
	vars := make([]*Var, 0, len(i.Args)+1)
	vars = append(vars, i.Args...)
	return append(vars, i.Dest)
}

func (i *Return) Vars() []*Var {
	if i.Value == nil {
		return nil
	}
	return []*Var{i.Value}
}

func (i *LoadIntConst) String() string {
	return fmt.Sprintf("LoadIntConst(%d, %s)", i.Value, i.Dest)
}

func (i *LoadBoolConst) String() string {
	return fmt.Sprintf("LoadBoolConst(%t, %s)", i.Value, i.Dest)
}

func (i *Copy) String() string {
	return fmt.Sprintf("Copy(%s, %s)", i.Src, i.Dest)
}

func (i *Call) String() string {
	return fmt.Sprintf("Call(%s, %s, %s)", i.Fun, varList(i.Args), i.Dest)
}

func (i *Label) String() string {
	return fmt.Sprintf("Label(%s)", i.Name)
}

func (i *Jump) String() string {
	return fmt.Sprintf("Jump(%s)", i.Label)
}

func (i *CondJump) String() string {
	return fmt.Sprintf("CondJump(%s, %s, %s)", i.Cond, i.Then, i.Else)
}

func (i *Return) String() string {
	if i.Value == nil {
		return "Return()"
	}
	return fmt.Sprintf("Return(%s)", i.Value)
}

func varList(vars []*Var) string {
	names := make([]string, len(vars))
	for i, v := range vars {
		names[i] = v.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Function returns the function called name, or nil
func (p *Program) Function(name string) *Function {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// String renders the function header followed by one instruction per line
func (f *Function) String() string {
	var sb strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name + ": " + p.Type.String()
	}
	sb.WriteString(f.Name + "(" + strings.Join(params, ", ") + "): " + f.ReturnType.String() + "\n")
	for _, instr := range f.Instructions {
		sb.WriteString("    " + instr.String() + "\n")
	}
	return sb.String()
}

func (p *Program) String() string {
	parts := make([]string, len(p.Functions))
	for i, fn := range p.Functions {
		parts[i] = fn.String()
	}
	return strings.Join(parts, "\n")
}

// Error reports an inconsistency between the type checker and the generator.
// It indicates a compiler defect, not a problem with the input program.
type Error struct {
	Loc     diagnostic.Location
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Message)
}

// Location returns the position of the expression being lowered
func (e *Error) Location() diagnostic.Location { return e.Loc }

// Internal marks the error as a compiler defect
func (e *Error) Internal() bool { return true }

func varName(t types.Type, id int) string {
	return types.Tag(t) + strconv.Itoa(id)
}
