package codegen

import (
	"fmt"

	"github.com/lhaig/tern/internal/ir"
)

// Locals maps every var of a function to a stack slot below %rbp
type Locals struct {
	offsets map[int]int
}

// NewLocals assigns slots in first-seen order over the parameters and then
// the instructions: -8, -16, ...
func NewLocals(fn *ir.Function) *Locals {
	l := &Locals{offsets: make(map[int]int)}
	for _, p := range fn.Params {
		l.add(p)
	}
	for _, instr := range fn.Instructions {
		for _, v := range instr.Vars() {
			l.add(v)
		}
	}
	return l
}

func (l *Locals) add(v *ir.Var) {
	if v == nil {
		return
	}
	if _, ok := l.offsets[v.ID]; ok {
		return
	}
	l.offsets[v.ID] = -8 * (len(l.offsets) + 1)
}

// Offset returns the %rbp-relative offset of v
func (l *Locals) Offset(v *ir.Var) (int, bool) {
	if v == nil {
		return 0, false
	}
	off, ok := l.offsets[v.ID]
	return off, ok
}

// Ref returns the memory operand for v, e.g. -16(%rbp)
func (l *Locals) Ref(v *ir.Var) (string, error) {
	off, ok := l.Offset(v)
	if !ok {
		name := "<nil>"
		if v != nil {
			name = v.Name
		}
		return "", fmt.Errorf("var %s has no stack slot", name)
	}
	return fmt.Sprintf("%d(%%rbp)", off), nil
}

// Count returns the number of slots
func (l *Locals) Count() int {
	return len(l.offsets)
}

// StackUsed returns the frame size, rounded up to keep %rsp 16-byte aligned
func (l *Locals) StackUsed() int {
	size := 8 * len(l.offsets)
	return (size + 15) &^ 15
}
