package codegen

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhaig/tern/internal/checker"
	"github.com/lhaig/tern/internal/diagnostic"
	"github.com/lhaig/tern/internal/ir"
	"github.com/lhaig/tern/internal/parser"
	"github.com/lhaig/tern/internal/types"
)

func compile(t *testing.T, src string) string {
	t.Helper()
	root, err := parser.ParseString(src, "test.tn")
	require.NoError(t, err)
	_, err = checker.Check(root)
	require.NoError(t, err)
	prog, err := ir.Generate(root)
	require.NoError(t, err)
	asm, err := Generate(prog)
	require.NoError(t, err)
	return asm
}

// lines returns the trimmed non-comment lines of asm
func lines(asm string) []string {
	var out []string
	for _, line := range strings.Split(asm, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func TestGenerateGolden(t *testing.T) {
	asm := compile(t, "1 + 2")
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "add", []byte(asm))
}

func TestGenerateIsDeterministic(t *testing.T) {
	src := "var x = 1; while x < 10 do { x = x * 2 }; x"
	assert.Equal(t, compile(t, src), compile(t, src))
}

func TestHeader(t *testing.T) {
	asm := compile(t, "true")
	assert.True(t, strings.HasPrefix(asm,
		"    .extern print_int\n    .extern print_bool\n    .extern read_int\n    .global main\n    .section .text\n\nmain:\n"))
	assert.Contains(t, asm, "    call print_bool\n")
	assert.True(t, strings.HasSuffix(asm, "    movq $0, %rax\n    movq %rbp, %rsp\n    popq %rbp\n    ret\n"))
}

func TestInstructionsAreAnnotated(t *testing.T) {
	asm := compile(t, "var x = 5; x")
	assert.Contains(t, asm, "    # LoadIntConst(5, int1)\n    movq $5, -8(%rbp)\n")
	assert.Contains(t, asm, "    # Copy(int1, int2)\n    movq -8(%rbp), %rax\n    movq %rax, -16(%rbp)\n")
}

func TestIntrinsicExpansions(t *testing.T) {
	a, b := "-8(%rbp)", "-16(%rbp)"
	tests := []struct {
		op   string
		want []string
	}{
		{"+", []string{"movq -8(%rbp), %rax", "addq -16(%rbp), %rax"}},
		{"-", []string{"movq -8(%rbp), %rax", "subq -16(%rbp), %rax"}},
		{"*", []string{"movq -8(%rbp), %rax", "imulq -16(%rbp), %rax"}},
		{"/", []string{"movq -8(%rbp), %rax", "cqto", "idivq -16(%rbp)"}},
		{"%", []string{"movq -8(%rbp), %rax", "cqto", "idivq -16(%rbp)", "movq %rdx, %rax"}},
		{"<", []string{"xorq %rax, %rax", "movq -8(%rbp), %rdx", "cmpq -16(%rbp), %rdx", "setl %al"}},
		{"<=", []string{"xorq %rax, %rax", "movq -8(%rbp), %rdx", "cmpq -16(%rbp), %rdx", "setle %al"}},
		{">", []string{"xorq %rax, %rax", "movq -8(%rbp), %rdx", "cmpq -16(%rbp), %rdx", "setg %al"}},
		{">=", []string{"xorq %rax, %rax", "movq -8(%rbp), %rdx", "cmpq -16(%rbp), %rdx", "setge %al"}},
		{"==", []string{"xorq %rax, %rax", "movq -8(%rbp), %rdx", "cmpq -16(%rbp), %rdx", "sete %al"}},
		{"!=", []string{"xorq %rax, %rax", "movq -8(%rbp), %rdx", "cmpq -16(%rbp), %rdx", "setne %al"}},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			in, ok := intrinsics[tt.op]
			require.True(t, ok)
			assert.Equal(t, 2, in.arity)
			assert.Equal(t, tt.want, in.expand([]string{a, b}))
		})
	}

	assert.Equal(t, []string{"movq -8(%rbp), %rax", "negq %rax"}, intrinsics["unary_-"].expand([]string{a}))
	assert.Equal(t, []string{"movq -8(%rbp), %rax", "xorq $1, %rax"}, intrinsics["unary_not"].expand([]string{a}))
}

func TestBuiltinsAreNotIntrinsics(t *testing.T) {
	for name := range types.Builtins() {
		assert.False(t, isIntrinsic(name), name)
	}
	assert.True(t, isIntrinsic("unary_not"))
}

func TestLocals(t *testing.T) {
	x := &ir.Var{ID: 1, Name: "int1", Type: types.Int}
	y := &ir.Var{ID: 2, Name: "int2", Type: types.Int}
	z := &ir.Var{ID: 3, Name: "int3", Type: types.Int}
	fn := &ir.Function{
		Name:   "f",
		Params: []*ir.Var{x},
		Instructions: []ir.Instruction{
			&ir.Label{Name: "start"},
			&ir.Call{Fun: "+", Args: []*ir.Var{x, y}, Dest: z},
			&ir.Copy{Src: z, Dest: y},
			&ir.Return{Value: z},
		},
	}
	locals := NewLocals(fn)
	assert.Equal(t, 3, locals.Count())

	off, ok := locals.Offset(x)
	require.True(t, ok)
	assert.Equal(t, -8, off)

	ref, err := locals.Ref(z)
	require.NoError(t, err)
	assert.Equal(t, "-24(%rbp)", ref)

	// 24 bytes round up to 32
	assert.Equal(t, 32, locals.StackUsed())

	_, err = locals.Ref(&ir.Var{ID: 99, Name: "int99"})
	assert.EqualError(t, err, "var int99 has no stack slot")
	_, ok = locals.Offset(nil)
	assert.False(t, ok)
}

func TestStackUsedIsAligned(t *testing.T) {
	for n := 0; n < 9; n++ {
		fn := &ir.Function{Name: "f", Instructions: []ir.Instruction{&ir.Label{Name: "start"}}}
		for i := 1; i <= n; i++ {
			fn.Instructions = append(fn.Instructions, &ir.LoadIntConst{Value: 0, Dest: &ir.Var{ID: i, Name: "v"}})
		}
		used := NewLocals(fn).StackUsed()
		assert.Zero(t, used%16)
		assert.GreaterOrEqual(t, used, 8*n)
		assert.Less(t, used, 8*n+16)
	}
}

func TestLargeConstantUsesMovabs(t *testing.T) {
	asm := compile(t, "9223372036854775807")
	assert.Contains(t, asm, "    movabsq $9223372036854775807, %rax\n    movq %rax, -8(%rbp)\n")

	asm = compile(t, "2147483647")
	assert.Contains(t, asm, "    movq $2147483647, -8(%rbp)\n")
	assert.NotContains(t, asm, "movabsq")
}

func TestBoolConstants(t *testing.T) {
	asm := compile(t, "var t = true; var f = false; t")
	assert.Contains(t, asm, "    movq $1, -8(%rbp)\n")
	assert.Contains(t, asm, "    movq $0, -24(%rbp)\n")
}

func TestUserFunctions(t *testing.T) {
	asm := compile(t, `
fun add(a: Int, b: Int): Int { a + b }
fun show(x: Int) { print_int(x); }
show(add(1, 2))
`)
	assert.Contains(t, asm, "\nadd:\n    pushq %rbp\n    movq %rsp, %rbp\n    subq $32, %rsp\n    movq %rdi, -8(%rbp)\n    movq %rsi, -16(%rbp)\n")
	assert.Contains(t, asm, "    # Return(int3)\n    movq -24(%rbp), %rax\n    movq %rbp, %rsp\n    popq %rbp\n    ret\n")
	assert.Contains(t, asm, "    # Return()\n    movq $0, %rax\n")
	assert.Contains(t, asm, "    movq -8(%rbp), %rdi\n    movq -16(%rbp), %rsi\n    call add\n")

	// main comes first
	assert.Less(t, strings.Index(asm, "\nmain:\n"), strings.Index(asm, "\nadd:\n"))
	assert.Less(t, strings.Index(asm, "\nadd:\n"), strings.Index(asm, "\nshow:\n"))
}

func TestLabelsAndJumps(t *testing.T) {
	asm := compile(t, "if true then { 1 } else { 2 }")
	l := lines(asm)
	assert.Contains(t, l, ".Lmain_start:")
	assert.Contains(t, l, ".Lmain_then1:")
	assert.Contains(t, l, ".Lmain_else2:")
	assert.Contains(t, l, ".Lmain_if_end3:")
	assert.Contains(t, asm, "    cmpq $0, -8(%rbp)\n    jne .Lmain_then1\n    jmp .Lmain_else2\n")
	assert.Contains(t, l, "jmp .Lmain_if_end3")
}

func TestLabelsAreScopedByFunction(t *testing.T) {
	asm := compile(t, "fun f(): Int { if true then { 1 } else { 2 } } f()")
	assert.Contains(t, asm, "\n.Lf_start:\n")
	assert.Contains(t, asm, "\n.Lmain_start:\n")
}

func TestSymbol(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"main", "main"},
		{"add_two", "add_two"},
		{"café", "_T.caf.u0000e9"},
		{"π", "_T..u0003c0"},
		{"_π", "_T._.u0003c0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, symbol(tt.name), tt.name)
	}
}

func TestNonASCIIFunctionNames(t *testing.T) {
	asm := compile(t, "fun doublé(x: Int): Int { if x > 0 then x * 2 else 0 } doublé(4)")
	assert.Contains(t, asm, "\n_T.double.u0000e9:\n")
	assert.Contains(t, asm, "    call _T.double.u0000e9\n")
	assert.Contains(t, asm, "\n.L_T.double.u0000e9_then1:\n")
	assert.NotContains(t, asm, "\ndoublé:")
}

func TestReadIntCall(t *testing.T) {
	asm := compile(t, "read_int() + 1")
	assert.Contains(t, asm, "    call read_int\n    movq %rax, -8(%rbp)\n")
}

func TestGenerateErrors(t *testing.T) {
	loc := diagnostic.Location{File: "test.tn", Line: 1, Column: 1}
	v1 := &ir.Var{ID: 1, Name: "int1", Type: types.Int}

	args := make([]*ir.Var, 7)
	for i := range args {
		args[i] = v1
	}

	tests := []struct {
		name  string
		instr ir.Instruction
		want  string
	}{
		{
			name:  "unknown callee",
			instr: &ir.Call{Position: ir.Position{Location: loc}, Fun: "mystery", Args: []*ir.Var{v1}, Dest: v1},
			want:  "call to unknown function mystery",
		},
		{
			name:  "too many arguments",
			instr: &ir.Call{Position: ir.Position{Location: loc}, Fun: "print_int", Args: args, Dest: v1},
			want:  "call to print_int passes 7 arguments, at most 6 are supported",
		},
		{
			name:  "intrinsic arity",
			instr: &ir.Call{Position: ir.Position{Location: loc}, Fun: "+", Args: []*ir.Var{v1}, Dest: v1},
			want:  "intrinsic + takes 2 arguments, got 1",
		},
		{
			name:  "nil copy source",
			instr: &ir.Copy{Position: ir.Position{Location: loc}, Src: nil, Dest: v1},
			want:  "var <nil> has no stack slot",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := &ir.Program{Functions: []*ir.Function{{
				Name:         "main",
				ReturnType:   types.Unit,
				Instructions: []ir.Instruction{&ir.Label{Name: "start"}, tt.instr},
			}}}
			_, err := Generate(prog)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var cerr *CodegenError
			require.ErrorAs(t, err, &cerr)
			assert.True(t, cerr.Internal())
			assert.Equal(t, loc, cerr.Location())
		})
	}
}

func TestTooManyParameters(t *testing.T) {
	params := make([]*ir.Var, 7)
	for i := range params {
		params[i] = &ir.Var{ID: i + 1, Name: "p", Type: types.Int}
	}
	prog := &ir.Program{Functions: []*ir.Function{
		{Name: "main", ReturnType: types.Unit, Instructions: []ir.Instruction{&ir.Label{Name: "start"}}},
		{Name: "f", Params: params, ReturnType: types.Unit, Instructions: []ir.Instruction{&ir.Label{Name: "start"}}},
	}}
	_, err := Generate(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "function f has 7 parameters")
}
