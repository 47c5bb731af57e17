package ast

import (
	"fmt"

	"github.com/lhaig/tern/internal/diagnostic"
	"github.com/lhaig/tern/internal/types"
)

// Expr is implemented by every expression node. The set of implementations
// is closed: exprNode is unexported.
type Expr interface {
	Loc() diagnostic.Location
	// Type returns the type assigned by the checker, Unit before checking.
	Type() types.Type
	SetType(types.Type)
	exprNode()
}

// node holds the fields every expression carries
type node struct {
	Location diagnostic.Location
	typ      types.Type
}

func (n *node) Loc() diagnostic.Location { return n.Location }

func (n *node) Type() types.Type {
	if n.typ == nil {
		return types.Unit
	}
	return n.typ
}

func (n *node) SetType(t types.Type) { n.typ = t }

func (*node) exprNode() {}

// IntLiteral represents an integer literal
type IntLiteral struct {
	node
	Value int64
}

// BoolLiteral represents true or false
type BoolLiteral struct {
	node
	Value bool
}

// Identifier represents a variable or function name
type Identifier struct {
	node
	Name string
}

// UnaryOp represents "-x" or "not x"
type UnaryOp struct {
	node
	Op      string
	Operand Expr
}

// BinaryOp represents a binary operator application, including assignment
type BinaryOp struct {
	node
	Op    string
	Left  Expr
	Right Expr
}

// Block represents { e1; e2; ... }
type Block struct {
	node
	Exprs []Expr
}

// Unit marks the absence of a value after a trailing separator
type Unit struct {
	node
}

// ConditionalOp represents if-then with an optional else
type ConditionalOp struct {
	node
	Cond Expr
	Then Expr
	Else Expr // nil without an else branch
}

// WhileOp represents while-do
type WhileOp struct {
	node
	Cond Expr
	Body Expr
}

// VariableDef represents var name[: Type] = init
type VariableDef struct {
	node
	Name         string
	DeclaredType string // empty when the type is inferred
	Init         Expr
}

// FunctionCall represents name(args...)
type FunctionCall struct {
	node
	Name string
	Args []Expr
}

// Param is a function parameter
type Param struct {
	Name         string
	DeclaredType string
	Loc          diagnostic.Location
}

// FunctionDefinition represents fun name(params): ReturnType { body }
type FunctionDefinition struct {
	node
	Name       string
	Params     []Param
	ReturnType string // "Unit" when omitted
	Body       *Block
}

// NewIntLiteral creates an integer literal node
func NewIntLiteral(loc diagnostic.Location, value int64) *IntLiteral {
	return &IntLiteral{node: node{Location: loc}, Value: value}
}

// NewBoolLiteral creates a boolean literal node
func NewBoolLiteral(loc diagnostic.Location, value bool) *BoolLiteral {
	return &BoolLiteral{node: node{Location: loc}, Value: value}
}

// NewIdentifier creates an identifier node
func NewIdentifier(loc diagnostic.Location, name string) *Identifier {
	return &Identifier{node: node{Location: loc}, Name: name}
}

// NewUnaryOp creates a unary operator node
func NewUnaryOp(loc diagnostic.Location, op string, operand Expr) *UnaryOp {
	return &UnaryOp{node: node{Location: loc}, Op: op, Operand: operand}
}

// NewBinaryOp creates a binary operator node
func NewBinaryOp(loc diagnostic.Location, op string, left, right Expr) *BinaryOp {
	return &BinaryOp{node: node{Location: loc}, Op: op, Left: left, Right: right}
}

// NewBlock creates a block node
func NewBlock(loc diagnostic.Location, exprs []Expr) *Block {
	return &Block{node: node{Location: loc}, Exprs: exprs}
}

// NewUnit creates a no-value marker
func NewUnit(loc diagnostic.Location) *Unit {
	return &Unit{node: node{Location: loc}}
}

// NewConditionalOp creates an if node; els may be nil
func NewConditionalOp(loc diagnostic.Location, cond, then, els Expr) *ConditionalOp {
	return &ConditionalOp{node: node{Location: loc}, Cond: cond, Then: then, Else: els}
}

// NewWhileOp creates a while node
func NewWhileOp(loc diagnostic.Location, cond, body Expr) *WhileOp {
	return &WhileOp{node: node{Location: loc}, Cond: cond, Body: body}
}

// NewVariableDef creates a var node; declaredType may be empty
func NewVariableDef(loc diagnostic.Location, name, declaredType string, init Expr) *VariableDef {
	return &VariableDef{node: node{Location: loc}, Name: name, DeclaredType: declaredType, Init: init}
}

// NewFunctionCall creates a call node
func NewFunctionCall(loc diagnostic.Location, name string, args []Expr) *FunctionCall {
	return &FunctionCall{node: node{Location: loc}, Name: name, Args: args}
}

// NewFunctionDefinition creates a function definition node
func NewFunctionDefinition(loc diagnostic.Location, name string, params []Param, returnType string, body *Block) *FunctionDefinition {
	return &FunctionDefinition{node: node{Location: loc}, Name: name, Params: params, ReturnType: returnType, Body: body}
}

// Visitor has one method per node kind, so every pass that implements it
// handles the whole node set.
type Visitor[R any] interface {
	VisitIntLiteral(*IntLiteral) (R, error)
	VisitBoolLiteral(*BoolLiteral) (R, error)
	VisitIdentifier(*Identifier) (R, error)
	VisitUnaryOp(*UnaryOp) (R, error)
	VisitBinaryOp(*BinaryOp) (R, error)
	VisitBlock(*Block) (R, error)
	VisitUnit(*Unit) (R, error)
	VisitConditionalOp(*ConditionalOp) (R, error)
	VisitWhileOp(*WhileOp) (R, error)
	VisitVariableDef(*VariableDef) (R, error)
	VisitFunctionCall(*FunctionCall) (R, error)
	VisitFunctionDefinition(*FunctionDefinition) (R, error)
}

// Accept dispatches e to the matching Visitor method
func Accept[R any](e Expr, v Visitor[R]) (R, error) {
	switch n := e.(type) {
	case *IntLiteral:
		return v.VisitIntLiteral(n)
	case *BoolLiteral:
		return v.VisitBoolLiteral(n)
	case *Identifier:
		return v.VisitIdentifier(n)
	case *UnaryOp:
		return v.VisitUnaryOp(n)
	case *BinaryOp:
		return v.VisitBinaryOp(n)
	case *Block:
		return v.VisitBlock(n)
	case *Unit:
		return v.VisitUnit(n)
	case *ConditionalOp:
		return v.VisitConditionalOp(n)
	case *WhileOp:
		return v.VisitWhileOp(n)
	case *VariableDef:
		return v.VisitVariableDef(n)
	case *FunctionCall:
		return v.VisitFunctionCall(n)
	case *FunctionDefinition:
		return v.VisitFunctionDefinition(n)
	default:
		var zero R
		return zero, fmt.Errorf("unknown expression node %T", e)
	}
}

// Children returns the direct sub-expressions of e in evaluation order
func Children(e Expr) []Expr {
	switch n := e.(type) {
	case *UnaryOp:
		return []Expr{n.Operand}
	case *BinaryOp:
		return []Expr{n.Left, n.Right}
	case *Block:
		return n.Exprs
	case *ConditionalOp:
		if n.Else != nil {
			return []Expr{n.Cond, n.Then, n.Else}
		}
		return []Expr{n.Cond, n.Then}
	case *WhileOp:
		return []Expr{n.Cond, n.Body}
	case *VariableDef:
		return []Expr{n.Init}
	case *FunctionCall:
		return n.Args
	case *FunctionDefinition:
		return []Expr{n.Body}
	default:
		return nil
	}
}

// Inspect walks the tree depth-first, calling f for each node. If f returns
// false the node's children are skipped.
func Inspect(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	for _, child := range Children(e) {
		Inspect(child, f)
	}
}
