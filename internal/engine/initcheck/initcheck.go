// Package initcheck finds local variables that are read before any write
// reaches them, following evaluation order within each function definition.
package initcheck

import (
	"unicode"
	"unicode/utf8"

	"wlscope/internal/engine/ast"
	"wlscope/internal/engine/source"
	"wlscope/internal/engine/symbols"
)

// Finding is a tracked (function, variable) pair with the position of the
// first offending read. Line is 1-based, Column 0-based.
type Finding struct {
	Function string
	Name     string
	Line     int
	Column   int
}

// Result holds the analysis of one file. Definitions that share a function
// name are merged.
type Result struct {
	order        []string
	used         map[string][]Finding
	unusedParams map[string][]Finding
}

func newResult() *Result {
	return &Result{
		used:         make(map[string][]Finding),
		unusedParams: make(map[string][]Finding),
	}
}

// VariablesUsedBeforeAssignment returns the reported names for fn in the
// order they were first read. Suppressed names are omitted.
func (r *Result) VariablesUsedBeforeAssignment(fn string) []string {
	var out []string
	for _, f := range r.used[fn] {
		if !IsLikelyFalsePositive(f.Name) {
			out = append(out, f.Name)
		}
	}
	return out
}

// AllVariablesUsedBeforeAssignment returns every function with at least
// one reported name.
func (r *Result) AllVariablesUsedBeforeAssignment() map[string][]string {
	out := make(map[string][]string)
	for _, fn := range r.order {
		if names := r.VariablesUsedBeforeAssignment(fn); len(names) > 0 {
			out[fn] = names
		}
	}
	return out
}

// Findings returns the reported pairs in function order.
func (r *Result) Findings() []Finding {
	var out []Finding
	for _, fn := range r.order {
		for _, f := range r.used[fn] {
			if !IsLikelyFalsePositive(f.Name) {
				out = append(out, f)
			}
		}
	}
	return out
}

// Raw returns every tracked pair, including suppressed names.
func (r *Result) Raw() map[string][]Finding {
	return r.used
}

// Functions returns the analyzed function names in first-definition order.
func (r *Result) Functions() []string {
	return r.order
}

// UnusedParameters returns parameters never read in their definition's body.
func (r *Result) UnusedParameters() []Finding {
	var out []Finding
	for _, fn := range r.order {
		out = append(out, r.unusedParams[fn]...)
	}
	return out
}

func (r *Result) merge(st *fnState) {
	if _, ok := r.used[st.name]; !ok {
		r.order = append(r.order, st.name)
		r.used[st.name] = nil
	}
	have := make(map[string]bool, len(r.used[st.name]))
	for _, f := range r.used[st.name] {
		have[f.Name] = true
	}
	for _, f := range st.flagged {
		if !have[f.Name] {
			r.used[st.name] = append(r.used[st.name], f)
			have[f.Name] = true
		}
	}
	for _, p := range st.params {
		if !st.paramRead[p.name] {
			r.unusedParams[st.name] = append(r.unusedParams[st.name], Finding{
				Function: st.name,
				Name:     p.name,
				Line:     p.loc.Start.Line,
				Column:   p.loc.Start.Column,
			})
		}
	}
}

var commonGlobals = map[string]struct{}{
	"True": {}, "False": {}, "None": {}, "Null": {}, "All": {}, "Automatic": {},
	"Left": {}, "Right": {}, "Top": {}, "Bottom": {}, "Center": {},
	"Red": {}, "Blue": {}, "Green": {}, "Black": {}, "White": {},
	"Input": {}, "Output": {}, "Print": {}, "Message": {},
	"Hold": {}, "HoldAll": {}, "HoldFirst": {}, "HoldRest": {},
	"Listable": {}, "Flat": {}, "OneIdentity": {}, "Orderless": {},
	"Protected": {}, "Locked": {}, "ReadProtected": {},
}

// IsLikelyFalsePositive reports names that are dropped from reports:
// single characters, well-known system symbols, and names longer than 15
// characters that start with an uppercase letter.
func IsLikelyFalsePositive(name string) bool {
	n := utf8.RuneCountInString(name)
	if n <= 1 {
		return true
	}
	if _, ok := commonGlobals[name]; ok {
		return true
	}
	first, _ := utf8.DecodeRuneInString(name)
	return n > 15 && unicode.IsUpper(first)
}

// Analyze runs the analysis over a file's top-level nodes.
func Analyze(nodes []ast.Node) *Result {
	a := &analyzer{res: newResult(), bound: make(map[string]int)}
	ast.WalkAll(a, nodes)
	return a.res
}

type varState struct {
	declared    bool
	initialized bool
	param       bool
}

type paramDecl struct {
	name string
	loc  source.Span
}

type fnState struct {
	name      string
	vars      map[string]varState
	flagged   []Finding
	seen      map[string]bool
	params    []paramDecl
	paramRead map[string]bool
}

type saved struct {
	name    string
	state   varState
	existed bool
}

type analyzer struct {
	res   *Result
	stack []*fnState
	// bound counts active rule and condition bindings per name.
	bound    map[string]int
	patterns symbols.PatternNameCache
}

func (a *analyzer) cur() *fnState {
	if len(a.stack) == 0 {
		return nil
	}
	return a.stack[len(a.stack)-1]
}

func (a *analyzer) isBound(name string) bool { return a.bound[name] > 0 }

func (a *analyzer) withBound(names []string, fn func()) {
	if len(names) == 0 {
		fn()
		return
	}
	for _, name := range names {
		a.bound[name]++
	}
	fn()
	for _, name := range names {
		if a.bound[name]--; a.bound[name] == 0 {
			delete(a.bound, name)
		}
	}
}

// shadow replaces the state of names for the duration of fn.
func (a *analyzer) shadow(st *fnState, names []string, state func(name string) varState, fn func()) {
	var prev []saved
	done := make(map[string]bool, len(names))
	for _, name := range names {
		if done[name] {
			continue
		}
		done[name] = true
		old, ok := st.vars[name]
		prev = append(prev, saved{name: name, state: old, existed: ok})
	}
	for _, name := range names {
		st.vars[name] = state(name)
	}
	fn()
	for _, p := range prev {
		if p.existed {
			st.vars[p.name] = p.state
		} else {
			delete(st.vars, p.name)
		}
	}
}

func (a *analyzer) initialize(name string) {
	st := a.cur()
	if st == nil {
		return
	}
	if v, ok := st.vars[name]; ok {
		v.initialized = true
		st.vars[name] = v
	}
}

func (a *analyzer) VisitFunctionDef(n *ast.FunctionDef) {
	st := &fnState{
		name:      n.Name,
		vars:      make(map[string]varState),
		seen:      make(map[string]bool),
		paramRead: make(map[string]bool),
	}
	for _, p := range n.Params {
		if _, dup := st.vars[p]; dup {
			continue
		}
		st.vars[p] = varState{declared: true, initialized: true, param: true}
		st.params = append(st.params, paramDecl{name: p, loc: paramSpan(n, p)})
	}
	a.stack = append(a.stack, st)
	for _, p := range n.ParamPatterns {
		ast.Walk(a, p)
	}
	ast.Walk(a, n.Condition)
	ast.Walk(a, n.Body)
	a.stack = a.stack[:len(a.stack)-1]
	a.res.merge(st)
}

func paramSpan(n *ast.FunctionDef, name string) source.Span {
	loc := n.NameLoc
	for _, p := range n.ParamPatterns {
		if pat, ok := p.(*ast.Pattern); ok {
			for pat != nil {
				if pat.Name == name {
					return pat.NameLoc
				}
				pat, _ = pat.Inner.(*ast.Pattern)
			}
		}
	}
	return loc
}

func (a *analyzer) VisitCall(n *ast.Call) { ast.WalkChildren(a, n) }

func (a *analyzer) VisitLiteral(*ast.Literal) {}

func (a *analyzer) VisitIdentifier(n *ast.Identifier) {
	st := a.cur()
	if st == nil || n.Slot || a.isBound(n.Name) {
		return
	}
	v, ok := st.vars[n.Name]
	if !ok {
		return
	}
	if v.param {
		st.paramRead[n.Name] = true
	}
	if v.declared && !v.initialized && !st.seen[n.Name] {
		st.seen[n.Name] = true
		st.flagged = append(st.flagged, Finding{
			Function: st.name,
			Name:     n.Name,
			Line:     n.Loc.Start.Line,
			Column:   n.Loc.Start.Column,
		})
	}
}

func (a *analyzer) VisitAssignment(n *ast.Assignment) {
	if a.cur() == nil {
		ast.WalkChildren(a, n)
		return
	}
	switch n.Op {
	case "=", ":=", "+=", "-=", "*=", "/=":
	default:
		ast.WalkChildren(a, n)
		return
	}
	switch lhs := n.LHS.(type) {
	case *ast.Identifier:
		if n.Compound() {
			a.VisitIdentifier(lhs)
		}
		ast.Walk(a, n.RHS)
		a.initialize(lhs.Name)
	case *ast.Part:
		id, ok := lhs.Expr.(*ast.Identifier)
		if ok {
			a.VisitIdentifier(id)
		} else {
			ast.Walk(a, lhs.Expr)
		}
		for _, idx := range lhs.Indices {
			ast.Walk(a, idx)
		}
		ast.Walk(a, n.RHS)
		if ok {
			a.initialize(id.Name)
		}
	case *ast.List:
		ast.Walk(a, n.RHS)
		for _, el := range lhs.Elements {
			if id, ok := el.(*ast.Identifier); ok {
				a.initialize(id.Name)
			} else {
				ast.Walk(a, el)
			}
		}
	default:
		ast.WalkChildren(a, n)
	}
}

func (a *analyzer) VisitOperator(n *ast.Operator) {
	switch n.Op {
	case "->", ":>":
		ast.Walk(a, n.Left)
		a.withBound(a.patterns.Names(n.Left), func() { ast.Walk(a, n.Right) })
		return
	case "++", "--":
		operand := n.Left
		if n.Fixity == ast.Prefix {
			operand = n.Right
		}
		if id, ok := operand.(*ast.Identifier); ok {
			a.VisitIdentifier(id)
			a.initialize(id.Name)
			return
		}
	}
	ast.WalkChildren(a, n)
}

func (a *analyzer) VisitPattern(n *ast.Pattern) {
	if n.Type != ast.PatternCondition {
		ast.WalkChildren(a, n)
		return
	}
	ast.Walk(a, n.Inner)
	a.withBound(a.patterns.Names(n.Inner), func() { ast.Walk(a, n.Cond) })
}

func (a *analyzer) VisitScoping(n *ast.Scoping) {
	st := a.cur()
	if st == nil || n.Malformed {
		ast.WalkChildren(a, n)
		return
	}
	// Initializers run before the locals exist.
	for _, v := range n.Vars {
		ast.Walk(a, v.Init)
	}
	names := make([]string, 0, len(n.Vars))
	initialized := make(map[string]bool, len(n.Vars))
	for _, v := range n.Vars {
		names = append(names, v.Name)
		if v.Init != nil {
			initialized[v.Name] = true
		}
	}
	a.shadow(st, names, func(name string) varState {
		return varState{declared: true, initialized: initialized[name]}
	}, func() {
		for _, arg := range n.Args[1:] {
			ast.Walk(a, arg)
		}
	})
}

func (a *analyzer) VisitPureFunction(n *ast.PureFunction) {
	st := a.cur()
	if st == nil || n.Type != ast.PureNamed {
		ast.WalkChildren(a, n)
		return
	}
	names := make([]string, 0, len(n.Params))
	for _, p := range n.Params {
		names = append(names, p.Name)
	}
	a.shadow(st, names, func(string) varState {
		return varState{declared: true, initialized: true}
	}, func() {
		for _, arg := range n.Args[1:] {
			ast.Walk(a, arg)
		}
	})
}

func (a *analyzer) VisitLoop(n *ast.Loop) {
	st := a.cur()
	if st == nil || len(n.Iterators) == 0 {
		ast.WalkChildren(a, n)
		return
	}
	var names []string
	specs := make(map[ast.Node]bool, len(n.Iterators))
	for _, it := range n.Iterators {
		for _, b := range it.Bounds {
			ast.Walk(a, b)
		}
		specs[it.Spec] = true
		if v, ok := st.vars[it.Var.Name]; ok && v.declared {
			names = append(names, it.Var.Name)
		}
	}
	a.shadow(st, names, func(name string) varState {
		v := st.vars[name]
		v.initialized = true
		return v
	}, func() {
		for _, arg := range n.Args {
			if !specs[arg] {
				ast.Walk(a, arg)
			}
		}
	})
}
