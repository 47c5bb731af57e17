package interp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhaig/tern/internal/ast"
	"github.com/lhaig/tern/internal/checker"
	"github.com/lhaig/tern/internal/parser"
)

func parseAndCheck(t *testing.T, src string) ast.Expr {
	t.Helper()
	root, err := parser.ParseString(src, "test.tn")
	require.NoError(t, err)
	_, err = checker.Check(root)
	require.NoError(t, err)
	return root
}

// runProgram runs src like the compiled executable and returns its output
func runProgram(t *testing.T, src, stdin string) (string, error) {
	t.Helper()
	root := parseAndCheck(t, src)
	var out bytes.Buffer
	err := New(strings.NewReader(stdin), &out).RunProgram(root)
	return out.String(), err
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		src  string
		want Value
	}{
		{"1 + 2 * 3", IntValue(7)},
		{"(1 + 2) * 3", IntValue(9)},
		{"7 / 2", IntValue(3)},
		{"-7 / 2", IntValue(-3)},
		{"7 % 3", IntValue(1)},
		{"-7 % 3", IntValue(-1)},
		{"- - 4", IntValue(4)},
		{"not true", BoolValue(false)},
		{"1 < 2", BoolValue(true)},
		{"2 <= 1", BoolValue(false)},
		{"3 > 2 and 2 >= 2", BoolValue(true)},
		{"1 == 1", BoolValue(true)},
		{"true != false", BoolValue(true)},
		{"false or true", BoolValue(true)},
		{"9223372036854775807 + 1", IntValue(-9223372036854775808)},
		{"if 1 < 2 then 10 else 20", IntValue(10)},
		{"if 1 > 2 then 10 else 20", IntValue(20)},
		{"var x = 1; x = x + 41; x", IntValue(42)},
		{"var x = 0; var i = 0; while i < 5 do { x = x + i; i = i + 1 }; x", IntValue(10)},
		{"{ 1; 2 }", IntValue(2)},
		{"{ 1; 2; }", UnitValue()},
		{"var a = 1; var b = a = 5; b", IntValue(5)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			root := parseAndCheck(t, tt.src)
			got, err := New(strings.NewReader(""), &bytes.Buffer{}).Run(root)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunProgramPrintsResult(t *testing.T) {
	out, err := runProgram(t, "1 + 2", "")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = runProgram(t, "1 < 2", "")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = runProgram(t, "var x = 1;", "")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestBuiltins(t *testing.T) {
	out, err := runProgram(t, "print_int(-5); print_bool(false); print_int(read_int() + read_int());", "40\n2\n")
	require.NoError(t, err)
	assert.Equal(t, "-5\nfalse\n42\n", out)
}

func TestReadIntAtEndOfInput(t *testing.T) {
	out, err := runProgram(t, "read_int()", "")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)

	out, err = runProgram(t, "read_int()", "17")
	require.NoError(t, err)
	assert.Equal(t, "17\n", out)
}

func TestReadIntInvalid(t *testing.T) {
	_, err := runProgram(t, "read_int()", "abc\n")
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Message, `read_int: invalid integer "abc"`)
}

func TestShortCircuit(t *testing.T) {
	src := `
fun loud(): Bool { print_int(1); true }
print_bool(false and loud());
print_bool(true or loud());
print_bool(true and loud());
`
	out, err := runProgram(t, src, "")
	require.NoError(t, err)
	assert.Equal(t, "false\ntrue\n1\ntrue\n", out)
}

func TestDivisionByZero(t *testing.T) {
	for _, src := range []string{"var z = 0; 1 / z", "var z = 0; 1 % z"} {
		_, err := runProgram(t, src, "")
		var rerr *RuntimeError
		require.ErrorAs(t, err, &rerr, src)
		assert.Equal(t, "division by zero", rerr.Message)
		assert.Equal(t, 1, rerr.Location().Line)
	}
}

func TestDivisionOverflow(t *testing.T) {
	for _, src := range []string{
		"var m = -9223372036854775807 - 1; m / -1",
		"var m = -9223372036854775807 - 1; m % -1",
	} {
		_, err := runProgram(t, src, "")
		var rerr *RuntimeError
		require.ErrorAs(t, err, &rerr, src)
		assert.Equal(t, "integer overflow in division", rerr.Message)
	}

	out, err := runProgram(t, "var m = -9223372036854775807 - 1; m / 1", "")
	require.NoError(t, err)
	assert.Equal(t, "-9223372036854775808\n", out)
}

func TestFunctions(t *testing.T) {
	src := `
fun is_even(n: Int): Bool { if n == 0 then true else is_odd(n - 1) }
fun is_odd(n: Int): Bool { if n == 0 then false else is_even(n - 1) }
fun fact(n: Int): Int { if n <= 1 then 1 else n * fact(n - 1) }
print_bool(is_even(10));
print_int(fact(10));
`
	out, err := runProgram(t, src, "")
	require.NoError(t, err)
	assert.Equal(t, "true\n3628800\n", out)
}

func TestFunctionsDoNotSeeCallerVariables(t *testing.T) {
	src := `
fun f(x: Int): Int { x = x + 1; x }
var x = 10;
print_int(f(1));
x
`
	out, err := runProgram(t, src, "")
	require.NoError(t, err)
	assert.Equal(t, "2\n10\n", out)
}

func TestShadowingInBlocks(t *testing.T) {
	out, err := runProgram(t, "var x = 1; { var x = 2; print_int(x) }; x", "")
	require.NoError(t, err)
	assert.Equal(t, "2\n1\n", out)
}

func TestRecursionLimit(t *testing.T) {
	_, err := runProgram(t, "fun loop(n: Int): Int { loop(n + 1) } loop(0)", "")
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, rerr.Message, "maximum call depth")
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "-3", IntValue(-3).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "unit", UnitValue().String())
	assert.Equal(t, "<fun f>", Value{Tag: TagFun, Fun: &Function{Name: "f"}}.String())
}
