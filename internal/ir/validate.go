package ir

import (
	"fmt"
)

// Validate checks an IR program for structural correctness and returns a list
// of error messages. An empty slice indicates the program is valid.
func Validate(prog *Program) []string {
	var errors []string
	if len(prog.Functions) == 0 || prog.Functions[0].Name != "main" {
		errors = append(errors, "program must start with function main")
	}
	seen := make(map[string]bool)
	for _, fn := range prog.Functions {
		if seen[fn.Name] {
			errors = append(errors, fmt.Sprintf("function %s is defined twice", fn.Name))
		}
		seen[fn.Name] = true
		errors = append(errors, validateFunction(fn)...)
	}
	return errors
}

// validateFunction checks one function's labels, jumps and definition order
func validateFunction(fn *Function) []string {
	var errors []string
	context := "function " + fn.Name

	if len(fn.Instructions) == 0 {
		return append(errors, context+": no instructions")
	}
	if l, ok := fn.Instructions[0].(*Label); !ok || l.Name != "start" {
		errors = append(errors, fmt.Sprintf("%s: first instruction is %s, not Label(start)", context, fn.Instructions[0]))
	}

	labels := make(map[string]bool)
	for _, instr := range fn.Instructions {
		if l, ok := instr.(*Label); ok {
			if labels[l.Name] {
				errors = append(errors, fmt.Sprintf("%s: duplicate label %s", context, l.Name))
			}
			labels[l.Name] = true
		}
	}

	defined := make(map[int]bool)
	for _, p := range fn.Params {
		defined[p.ID] = true
	}
	for i, instr := range fn.Instructions {
		for _, target := range jumpTargets(instr) {
			if !labels[target] {
				errors = append(errors, fmt.Sprintf("%s: %s jumps to undefined label %s", context, instr, target))
			}
		}
		for _, v := range reads(instr) {
			if v == nil {
				errors = append(errors, fmt.Sprintf("%s: instruction %d (%s) reads a nil var", context, i, instr))
				continue
			}
			if !defined[v.ID] {
				errors = append(errors, fmt.Sprintf("%s: %s is used before it is defined in %s", context, v, instr))
			}
		}
		if dest := writes(instr); dest != nil {
			defined[dest.ID] = true
		}
	}
	return errors
}

func jumpTargets(instr Instruction) []string {
	switch i := instr.(type) {
	case *Jump:
		return []string{i.Label}
	case *CondJump:
		return []string{i.Then, i.Else}
	default:
		return nil
	}
}

// reads returns the vars an instruction uses as inputs
func reads(instr Instruction) []*Var {
	switch i := instr.(type) {
	case *Copy:
		return []*Var{i.Src}
	case *Call:
		return i.Args
	case *CondJump:
		return []*Var{i.Cond}
	case *Return:
		if i.Value != nil {
			return []*Var{i.Value}
		}
	}
	return nil
}

// writes returns the var an instruction defines, if any
func writes(instr Instruction) *Var {
	switch i := instr.(type) {
	case *LoadIntConst:
		return i.Dest
	case *LoadBoolConst:
		return i.Dest
	case *Copy:
		return i.Dest
	case *Call:
		return i.Dest
	default:
		return nil
	}
}
