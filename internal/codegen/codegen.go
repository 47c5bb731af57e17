// Package codegen translates IR programs into x86-64 assembly in AT&T syntax
// for the System V ABI on Linux.
package codegen

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/lhaig/tern/internal/diagnostic"
	"github.com/lhaig/tern/internal/ir"
	"github.com/lhaig/tern/internal/types"
)

// argRegisters holds the SysV integer argument registers in order
var argRegisters = []string{"%rdi", "%rsi", "%rdx", "%rcx", "%r8", "%r9"}

// runtimeFunctions are provided by the runtime stub linked into every program
var runtimeFunctions = []string{"print_int", "print_bool", "read_int"}

// CodegenError reports IR that the generator cannot translate. It indicates
// a defect in an earlier stage.
type CodegenError struct {
	Loc     diagnostic.Location
	Message string
}

func (e *CodegenError) Error() string {
	return fmt.Sprintf("%s: %s", e.Loc, e.Message)
}

// Location returns the position of the instruction being translated
func (e *CodegenError) Location() diagnostic.Location { return e.Loc }

// Internal marks the error as a compiler defect
func (e *CodegenError) Internal() bool { return true }

type generator struct {
	sb     strings.Builder
	fn     *ir.Function
	locals *Locals
	known  map[string]bool
}

// Generate returns the assembly for prog. The output depends only on prog.
func Generate(prog *ir.Program) (string, error) {
	g := &generator{known: make(map[string]bool)}
	for name := range types.Builtins() {
		g.known[name] = true
	}
	for _, fn := range prog.Functions {
		g.known[fn.Name] = true
	}

	for _, name := range runtimeFunctions {
		g.emitLine(".extern " + name)
	}
	g.emitLine(".global main")
	g.emitLine(".section .text")

	for _, fn := range prog.Functions {
		g.sb.WriteString("\n")
		if err := g.generateFunction(fn); err != nil {
			return "", err
		}
	}
	return g.sb.String(), nil
}

// emitLine emits one indented instruction or directive
func (g *generator) emitLine(s string) {
	g.sb.WriteString("    ")
	g.sb.WriteString(s)
	g.sb.WriteString("\n")
}

func (g *generator) emitLinef(format string, args ...any) {
	g.emitLine(fmt.Sprintf(format, args...))
}

// emitLabel emits a label at column zero
func (g *generator) emitLabel(name string) {
	g.sb.WriteString(name)
	g.sb.WriteString(":\n")
}

func (g *generator) label(name string) string {
	return ".L" + symbol(g.fn.Name) + "_" + name
}

// symbol returns the assembler symbol for a function name. ASCII names are
// used as is. Other names get a "_T." prefix and each non-ASCII character
// becomes ".u" plus six hex digits; source names cannot contain '.', so
// distinct names never map to the same symbol.
func symbol(name string) string {
	ascii := true
	for i := 0; i < len(name); i++ {
		if name[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return name
	}

	var sb strings.Builder
	sb.WriteString("_T.")
	for _, r := range name {
		if r < utf8.RuneSelf {
			sb.WriteRune(r)
		} else {
			fmt.Fprintf(&sb, ".u%06x", r)
		}
	}
	return sb.String()
}

func (g *generator) errorf(instr ir.Instruction, format string, args ...any) error {
	return &CodegenError{Loc: instr.Loc(), Message: fmt.Sprintf("%s: %s", g.fn.Name, fmt.Sprintf(format, args...))}
}

// ref returns the stack operand of v
func (g *generator) ref(instr ir.Instruction, v *ir.Var) (string, error) {
	r, err := g.locals.Ref(v)
	if err != nil {
		return "", g.errorf(instr, "%v", err)
	}
	return r, nil
}

func (g *generator) generateFunction(fn *ir.Function) error {
	g.fn = fn
	g.locals = NewLocals(fn)

	if len(fn.Params) > len(argRegisters) {
		return &CodegenError{Message: fmt.Sprintf("function %s has %d parameters, at most %d are supported", fn.Name, len(fn.Params), len(argRegisters))}
	}

	g.emitLabel(symbol(fn.Name))
	g.emitLine("pushq %rbp")
	g.emitLine("movq %rsp, %rbp")
	g.emitLinef("subq $%d, %%rsp", g.locals.StackUsed())

	for i, p := range fn.Params {
		r, err := g.locals.Ref(p)
		if err != nil {
			return &CodegenError{Message: err.Error()}
		}
		g.emitLinef("movq %s, %s", argRegisters[i], r)
	}

	for _, instr := range fn.Instructions {
		g.emitLine("# " + instr.String())
		if err := g.generateInstruction(instr); err != nil {
			return err
		}
	}

	if fn.Name == "main" {
		g.emitLine("movq $0, %rax")
		g.emitEpilogue()
	}
	return nil
}

func (g *generator) emitEpilogue() {
	g.emitLine("movq %rbp, %rsp")
	g.emitLine("popq %rbp")
	g.emitLine("ret")
}

func (g *generator) generateInstruction(instr ir.Instruction) error {
	switch i := instr.(type) {
	case *ir.Label:
		g.emitLabel(g.label(i.Name))

	case *ir.LoadIntConst:
		dest, err := g.ref(instr, i.Dest)
		if err != nil {
			return err
		}
		if i.Value >= math.MinInt32 && i.Value <= math.MaxInt32 {
			g.emitLinef("movq $%d, %s", i.Value, dest)
		} else {
			g.emitLinef("movabsq $%d, %%rax", i.Value)
			g.emitLinef("movq %%rax, %s", dest)
		}

	case *ir.LoadBoolConst:
		dest, err := g.ref(instr, i.Dest)
		if err != nil {
			return err
		}
		value := 0
		if i.Value {
			value = 1
		}
		g.emitLinef("movq $%d, %s", value, dest)

	case *ir.Copy:
		src, err := g.ref(instr, i.Src)
		if err != nil {
			return err
		}
		dest, err := g.ref(instr, i.Dest)
		if err != nil {
			return err
		}
		g.emitLinef("movq %s, %%rax", src)
		g.emitLinef("movq %%rax, %s", dest)

	case *ir.Call:
		return g.generateCall(i)

	case *ir.Jump:
		g.emitLine("jmp " + g.label(i.Label))

	case *ir.CondJump:
		cond, err := g.ref(instr, i.Cond)
		if err != nil {
			return err
		}
		g.emitLinef("cmpq $0, %s", cond)
		g.emitLine("jne " + g.label(i.Then))
		g.emitLine("jmp " + g.label(i.Else))

	case *ir.Return:
		if i.Value != nil {
			value, err := g.ref(instr, i.Value)
			if err != nil {
				return err
			}
			g.emitLinef("movq %s, %%rax", value)
		} else {
			g.emitLine("movq $0, %rax")
		}
		g.emitEpilogue()

	default:
		return g.errorf(instr, "unsupported instruction %T", instr)
	}
	return nil
}

// generateCall expands intrinsics inline and calls everything else through
// the argument registers. Either way the result ends up in %rax.
func (g *generator) generateCall(call *ir.Call) error {
	args := make([]string, len(call.Args))
	for i, arg := range call.Args {
		r, err := g.ref(call, arg)
		if err != nil {
			return err
		}
		args[i] = r
	}
	dest, err := g.ref(call, call.Dest)
	if err != nil {
		return err
	}

	if in, ok := intrinsics[call.Fun]; ok {
		if len(args) != in.arity {
			return g.errorf(call, "intrinsic %s takes %d arguments, got %d", call.Fun, in.arity, len(args))
		}
		for _, line := range in.expand(args) {
			g.emitLine(line)
		}
		g.emitLinef("movq %%rax, %s", dest)
		return nil
	}

	if !g.known[call.Fun] {
		return g.errorf(call, "call to unknown function %s", call.Fun)
	}
	if len(args) > len(argRegisters) {
		return g.errorf(call, "call to %s passes %d arguments, at most %d are supported", call.Fun, len(args), len(argRegisters))
	}
	for i, arg := range args {
		g.emitLinef("movq %s, %s", arg, argRegisters[i])
	}
	g.emitLine("call " + symbol(call.Fun))
	g.emitLinef("movq %%rax, %s", dest)
	return nil
}
