package compiler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhaig/tern/internal/checker"
	"github.com/lhaig/tern/internal/diagnostic"
	"github.com/lhaig/tern/internal/interp"
	"github.com/lhaig/tern/internal/lexer"
	"github.com/lhaig/tern/internal/parser"
	"github.com/lhaig/tern/internal/toolchain"
	"github.com/lhaig/tern/internal/types"
)

func TestCompileValidProgram(t *testing.T) {
	res := Compile("var x = 2; x * 21", "test.tn")
	require.False(t, res.HasErrors(), "unexpected error: %v", res.Err)

	assert.NotEmpty(t, res.Tokens)
	assert.NotNil(t, res.AST)
	assert.Equal(t, types.Int, res.Type)
	require.NotNil(t, res.IR)
	assert.Equal(t, "main", res.IR.Functions[0].Name)
	assert.Contains(t, res.Assembly, "main:\n")
	assert.Contains(t, res.Assembly, "call print_int")
	assert.Zero(t, res.Diagnostics.Count())
}

func TestCompileStageErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		check  func(t *testing.T, err error)
		msg    string
	}{
		{
			name:   "lex error",
			source: "1 $ 2",
			check: func(t *testing.T, err error) {
				var lexErr *lexer.LexError
				assert.True(t, errors.As(err, &lexErr))
			},
			msg: "test.tn:1:3",
		},
		{
			name:   "parse error",
			source: "if true 1",
			check: func(t *testing.T, err error) {
				var parseErr *parser.ParseError
				assert.True(t, errors.As(err, &parseErr))
			},
			msg: `expected "then"`,
		},
		{
			name:   "type error",
			source: "1 + true",
			check: func(t *testing.T, err error) {
				var typeErr *checker.TypeError
				assert.True(t, errors.As(err, &typeErr))
			},
			msg: `operator "+" expects Int and Int, found Int and Bool`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Compile(tt.source, "test.tn")
			require.True(t, res.HasErrors())
			tt.check(t, res.Err)
			assert.Nil(t, res.IR)
			assert.Empty(t, res.Assembly)

			require.True(t, res.Diagnostics.HasErrors())
			assert.Contains(t, res.Diagnostics.Format("test.tn"), tt.msg)
		})
	}
}

func TestCheckStopsBeforeLowering(t *testing.T) {
	res := Check("fun f(): Bool { true } f()", "test.tn")
	require.False(t, res.HasErrors())
	assert.Equal(t, types.Bool, res.Type)
	assert.Nil(t, res.IR)
	assert.Empty(t, res.Assembly)

	res = Check("undefined_name", "test.tn")
	require.True(t, res.HasErrors())
	assert.Contains(t, res.Err.Error(), `undefined variable "undefined_name"`)
}

func TestInterpret(t *testing.T) {
	var out bytes.Buffer
	err := Interpret("var n = read_int(); print_int(n * 2); n > 10", "test.tn", strings.NewReader("21\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "42\ntrue\n", out.String())
}

func TestInterpretErrors(t *testing.T) {
	err := Interpret("1 +", "test.tn", strings.NewReader(""), &bytes.Buffer{})
	var parseErr *parser.ParseError
	assert.ErrorAs(t, err, &parseErr)

	err = Interpret("var z = 0; 10 / z", "test.tn", strings.NewReader(""), &bytes.Buffer{})
	var runErr *interp.RuntimeError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "division by zero", runErr.Message)
}

func TestBuildReportsCompileErrors(t *testing.T) {
	err := Build(context.Background(), "1 + true", "test.tn", t.TempDir()+"/out", toolchain.DefaultConfig())
	var typeErr *checker.TypeError
	assert.ErrorAs(t, err, &typeErr)
}

func TestBuildReportsToolchainErrors(t *testing.T) {
	cfg := toolchain.DefaultConfig()
	cfg.Assembler = "no-such-assembler"
	err := Build(context.Background(), "1", "test.tn", t.TempDir()+"/out", cfg)
	var tcErr *toolchain.ToolchainError
	require.ErrorAs(t, err, &tcErr)
	assert.Equal(t, "assemble", tcErr.Stage)

	diag := diagnostic.FromError(err)
	assert.NotContains(t, diag.Message, "internal compiler error")
}

func TestIndependentCompilationsShareNoState(t *testing.T) {
	first := Compile("var a = 1; a", "a.tn")
	second := Compile("var a = 1; a", "a.tn")
	require.False(t, first.HasErrors())
	assert.Equal(t, first.Assembly, second.Assembly)
	assert.Equal(t, first.IR.String(), second.IR.String())
}
