// Package compiler drives the pipeline: lex, parse, check, lower to IR,
// generate assembly and, for native builds, assemble and link.
package compiler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lhaig/tern/internal/ast"
	"github.com/lhaig/tern/internal/checker"
	"github.com/lhaig/tern/internal/codegen"
	"github.com/lhaig/tern/internal/diagnostic"
	"github.com/lhaig/tern/internal/interp"
	"github.com/lhaig/tern/internal/ir"
	"github.com/lhaig/tern/internal/lexer"
	"github.com/lhaig/tern/internal/parser"
	"github.com/lhaig/tern/internal/toolchain"
	"github.com/lhaig/tern/internal/types"
)

// Result holds the output of every stage that ran. Later fields stay empty
// when an earlier stage fails.
type Result struct {
	Tokens      []lexer.Token
	AST         ast.Expr
	Type        types.Type
	IR          *ir.Program
	Assembly    string
	Diagnostics *diagnostic.Diagnostics
	Err         error
}

// HasErrors reports whether a stage failed
func (r *Result) HasErrors() bool {
	return r.Err != nil
}

func (r *Result) fail(err error) *Result {
	r.Err = err
	r.Diagnostics = diagnostic.Report(err)
	return r
}

// Compiler runs the pipeline and logs stage timings
type Compiler struct {
	logger *slog.Logger
}

// New returns a compiler logging to logger. A nil logger uses slog.Default.
func New(logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{logger: logger}
}

// Compile runs the full pipeline: lex -> parse -> check -> ir -> asm.
// It does not write files or run external tools.
func Compile(source, file string) *Result {
	return New(nil).Compile(source, file)
}

// Check runs lex + parse + check only.
func Check(source, file string) *Result {
	return New(nil).Check(source, file)
}

// Build compiles source and writes a native executable to outPath.
func Build(ctx context.Context, source, file, outPath string, cfg toolchain.Config) error {
	return New(nil).Build(ctx, source, file, outPath, cfg)
}

// Interpret checks source and runs it in the interpreter.
func Interpret(source, file string, in io.Reader, out io.Writer) error {
	return New(nil).Interpret(source, file, in, out)
}

// stage runs f and logs how long it took
func (c *Compiler) stage(name string, f func() error) error {
	start := time.Now()
	err := f()
	c.logger.Debug("stage finished", "stage", name, "elapsed", time.Since(start), "ok", err == nil)
	return err
}

// Check runs the front end and records the tokens, typed AST and root type
func (c *Compiler) Check(source, file string) *Result {
	res := &Result{}

	if err := c.stage("lex", func() (err error) {
		res.Tokens, err = lexer.Tokenize(source, file)
		return err
	}); err != nil {
		return res.fail(err)
	}

	if err := c.stage("parse", func() (err error) {
		res.AST, err = parser.Parse(res.Tokens)
		return err
	}); err != nil {
		return res.fail(err)
	}

	if err := c.stage("check", func() (err error) {
		res.Type, err = checker.Check(res.AST)
		return err
	}); err != nil {
		return res.fail(err)
	}

	res.Diagnostics = diagnostic.New()
	return res
}

// Compile runs the whole pipeline up to assembly text
func (c *Compiler) Compile(source, file string) *Result {
	res := c.Check(source, file)
	if res.HasErrors() {
		return res
	}

	if err := c.stage("ir", func() (err error) {
		res.IR, err = ir.Generate(res.AST)
		if err != nil {
			return err
		}
		if problems := ir.Validate(res.IR); len(problems) > 0 {
			return &ir.Error{Loc: res.AST.Loc(), Message: "invalid IR: " + strings.Join(problems, "; ")}
		}
		return nil
	}); err != nil {
		return res.fail(err)
	}

	if err := c.stage("codegen", func() (err error) {
		res.Assembly, err = codegen.Generate(res.IR)
		return err
	}); err != nil {
		return res.fail(err)
	}
	return res
}

// Build compiles source, assembles and links it, and writes the executable
// to outPath
func (c *Compiler) Build(ctx context.Context, source, file, outPath string, cfg toolchain.Config) error {
	res := c.Compile(source, file)
	if res.HasErrors() {
		return res.Err
	}

	var exe []byte
	if err := c.stage("toolchain", func() (err error) {
		exe, err = toolchain.New(cfg, c.logger).Build(ctx, res.Assembly)
		return err
	}); err != nil {
		return err
	}

	// Ensure output directory exists
	outDir := filepath.Dir(outPath)
	if outDir != "." && outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	if err := os.WriteFile(outPath, exe, 0755); err != nil {
		return fmt.Errorf("failed to write output binary: %w", err)
	}
	c.logger.Info("built executable", "path", outPath, "bytes", len(exe))
	return nil
}

// Interpret checks source and evaluates it the way the compiled program
// would run
func (c *Compiler) Interpret(source, file string, in io.Reader, out io.Writer) error {
	res := c.Check(source, file)
	if res.HasErrors() {
		return res.Err
	}
	return c.stage("interpret", func() error {
		return interp.New(in, out).RunProgram(res.AST)
	})
}
