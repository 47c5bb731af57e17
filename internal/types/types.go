// Package types defines the closed set of types of the language.
package types

import "strings"

// Type is one of Int, Bool, Unit or a *Fun.
type Type interface {
	// String returns the canonical spelling used for equality.
	String() string
	typeNode()
}

type basic string

func (b basic) String() string { return string(b) }
func (basic) typeNode()        {}

// Builtin types
var (
	Int  Type = basic("Int")
	Bool Type = basic("Bool")
	Unit Type = basic("Unit")
)

// Fun is the type of a function value.
type Fun struct {
	Params []Type
	Return Type
}

func (*Fun) typeNode() {}

// String renders the function type as "(Int, Bool) => Int".
func (f *Fun) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	return "(" + strings.Join(params, ", ") + ") => " + f.Return.String()
}

// Equal compares types structurally by canonical spelling.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// Lookup resolves a source-level type name.
func Lookup(name string) (Type, bool) {
	switch name {
	case "Int":
		return Int, true
	case "Bool":
		return Bool, true
	case "Unit":
		return Unit, true
	default:
		return nil, false
	}
}

// Tag returns a short lowercase tag for the type, used to name IR variables.
func Tag(t Type) string {
	switch t {
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Unit:
		return "unit"
	default:
		return "fun"
	}
}

// Builtins returns the signatures of the runtime functions every program can
// call, keyed by name.
func Builtins() map[string]*Fun {
	return map[string]*Fun{
		"print_int":  {Params: []Type{Int}, Return: Unit},
		"print_bool": {Params: []Type{Bool}, Return: Unit},
		"read_int":   {Params: nil, Return: Int},
	}
}
