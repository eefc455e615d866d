package ast

// Visitor receives the node kinds that carry unique semantics. Every other
// kind is compositional: it is dispatched to the matching optional hook
// interface below when the visitor implements it, and otherwise its
// children are visited in order.
//
// Traversal is pre-order and left to right, which matches evaluation order.
type Visitor interface {
	VisitFunctionDef(n *FunctionDef)
	VisitCall(n *Call)
	VisitIdentifier(n *Identifier)
	VisitLiteral(n *Literal)
}

type AssignmentVisitor interface {
	VisitAssignment(n *Assignment)
}

type OperatorVisitor interface {
	VisitOperator(n *Operator)
}

type ListVisitor interface {
	VisitList(n *List)
}

type AssociationVisitor interface {
	VisitAssociation(n *Association)
}

type ControlFlowVisitor interface {
	VisitControlFlow(n *ControlFlow)
}

type LoopVisitor interface {
	VisitLoop(n *Loop)
}

type ScopingVisitor interface {
	VisitScoping(n *Scoping)
}

type PatternVisitor interface {
	VisitPattern(n *Pattern)
}

type PureFunctionVisitor interface {
	VisitPureFunction(n *PureFunction)
}

type PartVisitor interface {
	VisitPart(n *Part)
}

type SpanVisitor interface {
	VisitSpan(n *SpanExpr)
}

type CompoundVisitor interface {
	VisitCompound(n *Compound)
}

func (n *FunctionDef) Accept(v Visitor) { v.VisitFunctionDef(n) }
func (n *Call) Accept(v Visitor)        { v.VisitCall(n) }
func (n *Identifier) Accept(v Visitor)  { v.VisitIdentifier(n) }
func (n *Literal) Accept(v Visitor)     { v.VisitLiteral(n) }

func (n *Assignment) Accept(v Visitor) {
	if h, ok := v.(AssignmentVisitor); ok {
		h.VisitAssignment(n)
		return
	}
	WalkChildren(v, n)
}

func (n *Operator) Accept(v Visitor) {
	if h, ok := v.(OperatorVisitor); ok {
		h.VisitOperator(n)
		return
	}
	WalkChildren(v, n)
}

func (n *List) Accept(v Visitor) {
	if h, ok := v.(ListVisitor); ok {
		h.VisitList(n)
		return
	}
	WalkChildren(v, n)
}

func (n *Association) Accept(v Visitor) {
	if h, ok := v.(AssociationVisitor); ok {
		h.VisitAssociation(n)
		return
	}
	WalkChildren(v, n)
}

func (n *ControlFlow) Accept(v Visitor) {
	if h, ok := v.(ControlFlowVisitor); ok {
		h.VisitControlFlow(n)
		return
	}
	WalkChildren(v, n)
}

func (n *Loop) Accept(v Visitor) {
	if h, ok := v.(LoopVisitor); ok {
		h.VisitLoop(n)
		return
	}
	WalkChildren(v, n)
}

func (n *Scoping) Accept(v Visitor) {
	if h, ok := v.(ScopingVisitor); ok {
		h.VisitScoping(n)
		return
	}
	WalkChildren(v, n)
}

func (n *Pattern) Accept(v Visitor) {
	if h, ok := v.(PatternVisitor); ok {
		h.VisitPattern(n)
		return
	}
	WalkChildren(v, n)
}

func (n *PureFunction) Accept(v Visitor) {
	if h, ok := v.(PureFunctionVisitor); ok {
		h.VisitPureFunction(n)
		return
	}
	WalkChildren(v, n)
}

func (n *Part) Accept(v Visitor) {
	if h, ok := v.(PartVisitor); ok {
		h.VisitPart(n)
		return
	}
	WalkChildren(v, n)
}

func (n *SpanExpr) Accept(v Visitor) {
	if h, ok := v.(SpanVisitor); ok {
		h.VisitSpan(n)
		return
	}
	WalkChildren(v, n)
}

func (n *Compound) Accept(v Visitor) {
	if h, ok := v.(CompoundVisitor); ok {
		h.VisitCompound(n)
		return
	}
	WalkChildren(v, n)
}

// Walk dispatches n to v. A nil node is ignored.
func Walk(v Visitor, n Node) {
	if n == nil {
		return
	}
	n.Accept(v)
}

// WalkChildren visits each child of n in source order.
func WalkChildren(v Visitor, n Node) {
	for _, child := range n.Children() {
		child.Accept(v)
	}
}

// WalkAll visits each node in order.
func WalkAll(v Visitor, nodes []Node) {
	for _, n := range nodes {
		Walk(v, n)
	}
}

// Inspect traverses n in pre-order, calling fn for each node. Children are
// skipped when fn returns false.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range n.Children() {
		Inspect(child, fn)
	}
}
