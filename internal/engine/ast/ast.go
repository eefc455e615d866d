// Package ast defines the closed set of Wolfram Language syntax nodes
// produced by the parser and the visitor protocol every analysis uses.
//
// Node is sealed: only types in this package implement it. Nodes are plain
// pointers without parent links; consumers that need ancestry keep their own
// stack during traversal.
package ast

import (
	"fmt"

	"wlscope/internal/engine/source"
)

// Node is implemented by every syntax node.
type Node interface {
	Kind() Kind
	Span() source.Span
	// Children returns the non-nil child nodes in source order.
	Children() []Node
	Accept(v Visitor)
	node()
}

type Kind int

const (
	KindFunctionDef Kind = iota
	KindCall
	KindAssignment
	KindOperator
	KindIdentifier
	KindLiteral
	KindList
	KindAssociation
	KindControlFlow
	KindLoop
	KindScoping
	KindPattern
	KindPureFunction
	KindPart
	KindSpan
	KindCompound
)

var kindNames = [...]string{
	KindFunctionDef:  "FunctionDef",
	KindCall:         "Call",
	KindAssignment:   "Assignment",
	KindOperator:     "Operator",
	KindIdentifier:   "Identifier",
	KindLiteral:      "Literal",
	KindList:         "List",
	KindAssociation:  "Association",
	KindControlFlow:  "ControlFlow",
	KindLoop:         "Loop",
	KindScoping:      "Scoping",
	KindPattern:      "Pattern",
	KindPureFunction: "PureFunction",
	KindPart:         "Part",
	KindSpan:         "Span",
	KindCompound:     "Compound",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// FunctionDef is a definition of the shape name[params] := body or
// name[params] = body. Body is nil when nothing follows the operator.
type FunctionDef struct {
	Loc     source.Span
	Name    string
	NameLoc source.Span
	// Params are the bound parameter names in declaration order.
	Params []string
	// ParamPatterns are the parsed argument expressions of the left-hand side.
	ParamPatterns []Node
	// Condition is the guard of name[params] /; cond := body, if any.
	Condition Node
	Delayed   bool
	Body      Node
}

// Call is head[args].
type Call struct {
	Loc  source.Span
	Head Node
	Args []Node
	// Open and Close are the spans of the argument brackets. Close is zero
	// when the bracket was never closed.
	Open  source.Span
	Close source.Span
}

// Name returns the head's symbol name, or "" for a compound head.
func (n *Call) Name() string {
	if id, ok := n.Head.(*Identifier); ok {
		return id.Name
	}
	return ""
}

// Assignment covers Set, SetDelayed, UpSet, UpSetDelayed, TagSet and the
// compound arithmetic assignments.
type Assignment struct {
	Loc source.Span
	Op  string
	LHS Node
	RHS Node
}

// Compound reports whether the assignment reads its target before writing.
func (n *Assignment) Compound() bool {
	switch n.Op {
	case "+=", "-=", "*=", "/=":
		return true
	}
	return false
}

type Fixity int

const (
	Infix Fixity = iota
	Prefix
	Postfix
)

// Operator is a unary or binary operator application. Prefix operators set
// Right only, postfix operators set Left only.
type Operator struct {
	Loc    source.Span
	Op     string
	Fixity Fixity
	Left   Node
	Right  Node
}

// Identifier is a symbol reference. Slots (#, #2, ##) are identifiers with
// Slot set.
type Identifier struct {
	Loc  source.Span
	Name string
	Slot bool
}

type LiteralKind int

const (
	LiteralInteger LiteralKind = iota
	LiteralReal
	LiteralString
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralInteger:
		return "Integer"
	case LiteralReal:
		return "Real"
	default:
		return "String"
	}
}

// Literal holds the raw source text of a number or string.
type Literal struct {
	Loc   source.Span
	Type  LiteralKind
	Value string
}

type List struct {
	Loc      source.Span
	Elements []Node
}

// Association is <| k -> v, ... |> or Association[...].
type Association struct {
	Loc     source.Span
	Entries []Node
}

type ControlKind int

const (
	ControlIf ControlKind = iota
	ControlWhich
	ControlSwitch
)

func (k ControlKind) String() string {
	return [...]string{"If", "Which", "Switch"}[k]
}

// ControlFlow is If, Which or Switch with its arguments in source order.
type ControlFlow struct {
	Loc  source.Span
	Type ControlKind
	Args []Node
}

type LoopKind int

const (
	LoopDo LoopKind = iota
	LoopWhile
	LoopFor
	LoopTable
	LoopNestWhile
)

func (k LoopKind) String() string {
	return [...]string{"Do", "While", "For", "Table", "NestWhile"}[k]
}

// Iterator is an iteration specification such as {i, 1, n}.
type Iterator struct {
	Var    *Identifier
	Bounds []Node
	Spec   *List
}

type Loop struct {
	Loc  source.Span
	Type LoopKind
	Args []Node
	// Iterators are the {var, ...} specs of Do and Table.
	Iterators []*Iterator
}

// Body returns the repeatedly evaluated argument, or nil when absent.
func (n *Loop) Body() Node {
	idx := 0
	switch n.Type {
	case LoopWhile:
		idx = 1
	case LoopFor:
		idx = 3
	case LoopNestWhile:
		return nil
	}
	if idx < len(n.Args) {
		return n.Args[idx]
	}
	return nil
}

type ScopingKind int

const (
	ScopingModule ScopingKind = iota
	ScopingBlock
	ScopingWith
)

func (k ScopingKind) String() string {
	return [...]string{"Module", "Block", "With"}[k]
}

// LocalVar is one entry of a scoping declaration list.
type LocalVar struct {
	Name  string
	Ident *Identifier
	// Init is the initializer of x = v, nil for a bare name.
	Init Node
}

// Scoping is Module, Block or With. A construct without a declaration list
// or without a body is Malformed and carries only its raw arguments.
type Scoping struct {
	Loc       source.Span
	Type      ScopingKind
	Args      []Node
	Decls     *List
	Vars      []*LocalVar
	Body      Node
	Malformed bool
}

type PatternKind int

const (
	PatternBlank PatternKind = iota
	PatternNamed
	PatternTyped
	PatternSequence
	PatternTest
	PatternCondition
	PatternOptional
	PatternAlternatives
	PatternRepeated
)

func (k PatternKind) String() string {
	return [...]string{
		"Blank", "Named", "Typed", "Sequence", "Test", "Condition",
		"Optional", "Alternatives", "Repeated",
	}[k]
}

// Pattern covers blanks and the pattern-forming operators.
//
// Blank-based kinds use Name, Head and Blanks (1 for _, 2 for __, 3 for ___).
// Test, Condition, Optional and Repeated wrap Inner. A named pattern x:p has
// Name set and Inner p.
type Pattern struct {
	Loc          source.Span
	Type         PatternKind
	Name         string
	NameLoc      source.Span
	Head         string
	Blanks       int
	Inner        Node
	Test         Node
	Cond         Node
	Default      Node
	Alternatives []Node
}

type PureFunctionKind int

const (
	PureSlot PureFunctionKind = iota
	PureNamed
)

// PureFunction is body & or Function[params, body].
type PureFunction struct {
	Loc     source.Span
	Type    PureFunctionKind
	Params  []*Identifier
	Body    Node
	MaxSlot int
	// Args holds the raw Function[...] arguments for the named form.
	Args []Node
}

// Part is expr[[i, ...]].
type Part struct {
	Loc     source.Span
	Expr    Node
	Indices []Node
}

// SpanExpr is start ;; end ;; step with any part optional.
type SpanExpr struct {
	Loc   source.Span
	Start Node
	End   Node
	Step  Node
}

// Compound is a; b; c. Suppressed is set when it ends with a separator.
type Compound struct {
	Loc        source.Span
	Exprs      []Node
	Suppressed bool
}

func (n *FunctionDef) Kind() Kind  { return KindFunctionDef }
func (n *Call) Kind() Kind         { return KindCall }
func (n *Assignment) Kind() Kind   { return KindAssignment }
func (n *Operator) Kind() Kind     { return KindOperator }
func (n *Identifier) Kind() Kind   { return KindIdentifier }
func (n *Literal) Kind() Kind      { return KindLiteral }
func (n *List) Kind() Kind         { return KindList }
func (n *Association) Kind() Kind  { return KindAssociation }
func (n *ControlFlow) Kind() Kind  { return KindControlFlow }
func (n *Loop) Kind() Kind         { return KindLoop }
func (n *Scoping) Kind() Kind      { return KindScoping }
func (n *Pattern) Kind() Kind      { return KindPattern }
func (n *PureFunction) Kind() Kind { return KindPureFunction }
func (n *Part) Kind() Kind         { return KindPart }
func (n *SpanExpr) Kind() Kind     { return KindSpan }
func (n *Compound) Kind() Kind     { return KindCompound }

func (n *FunctionDef) Span() source.Span  { return n.Loc }
func (n *Call) Span() source.Span         { return n.Loc }
func (n *Assignment) Span() source.Span   { return n.Loc }
func (n *Operator) Span() source.Span     { return n.Loc }
func (n *Identifier) Span() source.Span   { return n.Loc }
func (n *Literal) Span() source.Span      { return n.Loc }
func (n *List) Span() source.Span         { return n.Loc }
func (n *Association) Span() source.Span  { return n.Loc }
func (n *ControlFlow) Span() source.Span  { return n.Loc }
func (n *Loop) Span() source.Span         { return n.Loc }
func (n *Scoping) Span() source.Span      { return n.Loc }
func (n *Pattern) Span() source.Span      { return n.Loc }
func (n *PureFunction) Span() source.Span { return n.Loc }
func (n *Part) Span() source.Span         { return n.Loc }
func (n *SpanExpr) Span() source.Span     { return n.Loc }
func (n *Compound) Span() source.Span     { return n.Loc }

func (*FunctionDef) node()  {}
func (*Call) node()         {}
func (*Assignment) node()   {}
func (*Operator) node()     {}
func (*Identifier) node()   {}
func (*Literal) node()      {}
func (*List) node()         {}
func (*Association) node()  {}
func (*ControlFlow) node()  {}
func (*Loop) node()         {}
func (*Scoping) node()      {}
func (*Pattern) node()      {}
func (*PureFunction) node() {}
func (*Part) node()         {}
func (*SpanExpr) node()     {}
func (*Compound) node()     {}

func collect(nodes ...Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (n *FunctionDef) Children() []Node {
	nodes := make([]Node, 0, len(n.ParamPatterns)+2)
	nodes = append(nodes, n.ParamPatterns...)
	nodes = append(nodes, n.Condition, n.Body)
	return collect(nodes...)
}

func (n *Call) Children() []Node {
	return collect(append([]Node{n.Head}, n.Args...)...)
}

func (n *Assignment) Children() []Node { return collect(n.LHS, n.RHS) }
func (n *Operator) Children() []Node   { return collect(n.Left, n.Right) }
func (n *Identifier) Children() []Node { return nil }
func (n *Literal) Children() []Node    { return nil }
func (n *List) Children() []Node       { return collect(n.Elements...) }
func (n *Association) Children() []Node {
	return collect(n.Entries...)
}
func (n *ControlFlow) Children() []Node { return collect(n.Args...) }
func (n *Loop) Children() []Node        { return collect(n.Args...) }
func (n *Scoping) Children() []Node     { return collect(n.Args...) }

func (n *Pattern) Children() []Node {
	nodes := []Node{n.Inner, n.Test, n.Cond, n.Default}
	nodes = append(nodes, n.Alternatives...)
	return collect(nodes...)
}

func (n *PureFunction) Children() []Node {
	if n.Type == PureNamed && len(n.Args) > 0 {
		return collect(n.Args...)
	}
	return collect(n.Body)
}

func (n *Part) Children() []Node {
	return collect(append([]Node{n.Expr}, n.Indices...)...)
}

func (n *SpanExpr) Children() []Node { return collect(n.Start, n.End, n.Step) }
func (n *Compound) Children() []Node { return collect(n.Exprs...) }
