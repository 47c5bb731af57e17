package interp

import (
	"fmt"
	"strconv"

	"github.com/lhaig/tern/internal/ast"
	"github.com/lhaig/tern/internal/diagnostic"
)

// Tag enumerates the runtime kinds a Value may hold
type Tag int

const (
	TagUnit Tag = iota
	TagInt
	TagBool
	TagFun
)

// Value is the interpreter's runtime carrier. Tag selects the valid field.
type Value struct {
	Tag  Tag
	Int  int64
	Bool bool
	Fun  *Function
}

// Function is a callable value: either a user definition or a builtin
type Function struct {
	Name    string
	Def     *ast.FunctionDefinition
	Builtin func(ip *Interpreter, args []Value) (Value, error)
}

var unit = Value{Tag: TagUnit}

// IntValue wraps an integer
func IntValue(n int64) Value { return Value{Tag: TagInt, Int: n} }

// BoolValue wraps a boolean
func BoolValue(b bool) Value { return Value{Tag: TagBool, Bool: b} }

// UnitValue returns the single Unit value
func UnitValue() Value { return unit }

// String renders the value the way print_int and print_bool do
func (v Value) String() string {
	switch v.Tag {
	case TagInt:
		return strconv.FormatInt(v.Int, 10)
	case TagBool:
		return strconv.FormatBool(v.Bool)
	case TagFun:
		return "<fun " + v.Fun.Name + ">"
	default:
		return "unit"
	}
}

// RuntimeError reports a failure while evaluating a program
type RuntimeError struct {
	Loc     diagnostic.Location
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Message)
}

// Location returns where evaluation failed
func (e *RuntimeError) Location() diagnostic.Location { return e.Loc }
