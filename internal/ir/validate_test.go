package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lhaig/tern/internal/types"
)

func TestValidateGeneratedPrograms(t *testing.T) {
	sources := []string{
		"1 + 2",
		"if 3 > 12 then {1+1} else {2+3}",
		"var x = 0; while x < 10 do { if x % 2 == 0 then print_int(x); x = x + 1 }",
		"true and (false or not true)",
		"fun f(n: Int): Int { if n <= 1 then 1 else n * f(n - 1) } f(5)",
		"var u = print_int(1); u",
	}
	for _, src := range sources {
		prog := parseAndLower(t, src)
		assert.Empty(t, Validate(prog), src)
	}
}

func TestValidateMissingStartLabel(t *testing.T) {
	v := &Var{ID: 1, Name: "int1", Type: types.Int}
	prog := &Program{Functions: []*Function{{
		Name:         "main",
		ReturnType:   types.Unit,
		Instructions: []Instruction{&LoadIntConst{Value: 1, Dest: v}},
	}}}

	errors := Validate(prog)
	assert.Len(t, errors, 1)
	assert.Contains(t, errors[0], "not Label(start)")
}

func TestValidateUseBeforeDefinition(t *testing.T) {
	a := &Var{ID: 1, Name: "int1", Type: types.Int}
	b := &Var{ID: 2, Name: "int2", Type: types.Int}
	prog := &Program{Functions: []*Function{{
		Name:       "main",
		ReturnType: types.Unit,
		Instructions: []Instruction{
			&Label{Name: "start"},
			&Copy{Src: a, Dest: b},
			&LoadIntConst{Value: 1, Dest: a},
		},
	}}}

	errors := Validate(prog)
	assert.Len(t, errors, 1)
	assert.Contains(t, errors[0], "int1 is used before it is defined")
}

func TestValidateParamsCountAsDefined(t *testing.T) {
	p := &Var{ID: 1, Name: "int1", Type: types.Int}
	prog := &Program{Functions: []*Function{
		{Name: "main", ReturnType: types.Unit, Instructions: []Instruction{&Label{Name: "start"}}},
		{
			Name:         "id",
			Params:       []*Var{p},
			ReturnType:   types.Int,
			Instructions: []Instruction{&Label{Name: "start"}, &Return{Value: p}},
		},
	}}
	assert.Empty(t, Validate(prog))
}

func TestValidateLabels(t *testing.T) {
	c := &Var{ID: 1, Name: "bool1", Type: types.Bool}
	prog := &Program{Functions: []*Function{{
		Name:       "main",
		ReturnType: types.Unit,
		Instructions: []Instruction{
			&Label{Name: "start"},
			&LoadBoolConst{Value: true, Dest: c},
			&CondJump{Cond: c, Then: "then1", Else: "else2"},
			&Label{Name: "then1"},
			&Label{Name: "then1"},
			&Jump{Label: "nowhere"},
		},
	}}}

	errors := Validate(prog)
	assert.Len(t, errors, 3)
	assert.Contains(t, errors[0], "duplicate label then1")
	assert.Contains(t, errors[1], "jumps to undefined label else2")
	assert.Contains(t, errors[2], "jumps to undefined label nowhere")
}

func TestValidateProgramShape(t *testing.T) {
	assert.Equal(t, []string{"program must start with function main"}, Validate(&Program{}))

	start := []Instruction{&Label{Name: "start"}}
	prog := &Program{Functions: []*Function{
		{Name: "main", ReturnType: types.Unit, Instructions: start},
		{Name: "f", ReturnType: types.Unit, Instructions: []Instruction{&Label{Name: "start"}, &Return{}}},
		{Name: "f", ReturnType: types.Unit, Instructions: []Instruction{&Label{Name: "start"}, &Return{}}},
	}}
	assert.Equal(t, []string{"function f is defined twice"}, Validate(prog))
}
