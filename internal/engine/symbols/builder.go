package symbols

import (
	"strings"

	"wlscope/internal/engine/ast"
	"wlscope/internal/engine/source"
)

// Build resolves every identifier in nodes and returns the finished table.
// key identifies the file; src is the text the nodes were parsed from and is
// only used for reference snippets.
func Build(key string, nodes []ast.Node, src string) *Table {
	lines := source.NewLines(src)
	b := &builder{
		t:     newTable(key, lines.Count()),
		lines: lines,
		bound: make(map[string]int),
	}
	ast.WalkAll(b, nodes)
	b.finish()
	return b.t
}

type pendingRead struct {
	name  string
	scope ScopeID
	ref   Reference
}

type builder struct {
	t     *Table
	lines *source.Lines
	cur   ScopeID
	// bound counts the active rule, condition and iterator bindings of
	// names that do not resolve to a declared symbol.
	bound    map[string]int
	patterns PatternNameCache
	pending  []pendingRead
}

func (b *builder) ref(loc source.Span, kind RefKind) Reference {
	return Reference{
		Line:    loc.Start.Line,
		Column:  loc.Start.Column,
		Kind:    kind,
		Context: strings.TrimSpace(b.lines.Line(loc.Start.Line)),
	}
}

func (b *builder) push(typ ScopeType, name string, span source.Span) ScopeID {
	parent := &b.t.scopes[b.cur]
	id := ScopeID(len(b.t.scopes))
	b.t.scopes = append(b.t.scopes, Scope{
		ID:        id,
		Type:      typ,
		Name:      name,
		StartLine: span.Start.Line,
		EndLine:   span.End.Line,
		Parent:    b.cur,
		Depth:     parent.Depth + 1,
		names:     make(map[string]SymbolID),
		pkg:       parent.pkg,
	})
	if typ.packageLevel() {
		b.t.scopes[id].pkg = id
	}
	b.t.scopes[b.cur].Children = append(b.t.scopes[b.cur].Children, id)
	b.cur = id
	return id
}

func (b *builder) pop() {
	if parent := b.t.scopes[b.cur].Parent; parent != NoScope {
		b.cur = parent
	}
}

// declare binds name in scope. A repeated declaration in the same scope
// returns the existing symbol.
func (b *builder) declare(scope ScopeID, name string, loc source.Span) *Symbol {
	if id, ok := b.t.scopes[scope].names[name]; ok {
		return &b.t.symbols[id]
	}
	id := SymbolID(len(b.t.symbols))
	b.t.symbols = append(b.t.symbols, Symbol{
		ID:         id,
		Name:       name,
		Scope:      scope,
		ScopeType:  b.t.scopes[scope].Type,
		DeclLine:   loc.Start.Line,
		DeclColumn: loc.Start.Column,
	})
	s := &b.t.scopes[scope]
	s.names[name] = id
	s.order = append(s.order, id)
	b.t.byName[name] = append(b.t.byName[name], id)
	return &b.t.symbols[id]
}

func (b *builder) packageScope() ScopeID { return b.t.scopes[b.cur].pkg }

func (b *builder) isBound(name string) bool { return b.bound[name] > 0 }

func (b *builder) bind(names []string) {
	for _, name := range names {
		b.bound[name]++
	}
}

func (b *builder) unbind(names []string) {
	for _, name := range names {
		if b.bound[name]--; b.bound[name] == 0 {
			delete(b.bound, name)
		}
	}
}

func (b *builder) read(id *ast.Identifier) {
	if id.Slot || IsBuiltin(id.Name) || b.isBound(id.Name) {
		return
	}
	ref := b.ref(id.Loc, Read)
	if sym, ok := b.t.resolveID(id.Name, b.cur); ok {
		b.t.symbols[sym].addRead(ref)
		return
	}
	// Definitions later in the file may still bind the name.
	b.pending = append(b.pending, pendingRead{name: id.Name, scope: b.cur, ref: ref})
}

// write records an assignment to id, creating an implicit global in the
// nearest package-level scope when the name is not bound.
func (b *builder) write(id *ast.Identifier, kind RefKind) {
	if id.Slot || IsBuiltin(id.Name) {
		return
	}
	sym, ok := b.t.resolveID(id.Name, b.cur)
	if !ok {
		if b.isBound(id.Name) {
			return
		}
		sym = b.declare(b.packageScope(), id.Name, id.Loc).ID
	}
	b.t.symbols[sym].addWrite(b.ref(id.Loc, kind))
}

func (b *builder) finish() {
	for _, p := range b.pending {
		if sym, ok := b.t.resolveID(p.name, p.scope); ok {
			b.t.symbols[sym].addRead(p.ref)
			continue
		}
		b.t.unresolved = append(b.t.unresolved, Unresolved{Name: p.name, Scope: p.scope, Ref: p.ref})
	}
	b.pending = nil
	last := b.lines.Count()
	for i := range b.t.scopes {
		if b.t.scopes[i].EndLine == 0 {
			b.t.scopes[i].EndLine = last
		}
	}
	for i := range b.t.symbols {
		b.t.symbols[i].seen = nil
	}
}

func (b *builder) VisitIdentifier(n *ast.Identifier) { b.read(n) }

func (b *builder) VisitLiteral(*ast.Literal) {}

func (b *builder) VisitCall(n *ast.Call) {
	ast.WalkChildren(b, n)
	if !b.t.scopes[b.cur].Type.packageLevel() {
		return
	}
	switch n.Name() {
	case "BeginPackage":
		b.push(ScopePackage, contextArg(n), source.Span{Start: n.Loc.Start})
	case "Begin":
		b.push(ScopePrivateContext, contextArg(n), source.Span{Start: n.Loc.Start})
	case "End":
		if b.t.scopes[b.cur].Type == ScopePrivateContext {
			b.closeScope(n.Loc.End.Line)
		}
	case "EndPackage":
		for b.cur != 0 {
			typ := b.t.scopes[b.cur].Type
			b.closeScope(n.Loc.End.Line)
			if typ == ScopePackage {
				break
			}
		}
	}
}

func (b *builder) closeScope(line int) {
	b.t.scopes[b.cur].EndLine = line
	b.pop()
}

func contextArg(n *ast.Call) string {
	if len(n.Args) == 0 {
		return ""
	}
	if lit, ok := n.Args[0].(*ast.Literal); ok && lit.Type == ast.LiteralString {
		return strings.Trim(lit.Value, "\"")
	}
	return ""
}

func (b *builder) VisitFunctionDef(n *ast.FunctionDef) {
	b.write(&ast.Identifier{Loc: n.NameLoc, Name: n.Name}, Write)

	b.push(ScopeFunction, n.Name, n.Loc)
	for _, name := range n.Params {
		sym := b.declare(b.cur, name, paramLoc(n, name))
		sym.IsParameter = true
		sym.Initialized = true
	}
	for _, p := range n.ParamPatterns {
		ast.Walk(b, p)
	}
	ast.Walk(b, n.Condition)
	ast.Walk(b, n.Body)
	b.pop()
}

// paramLoc finds the declaring pattern of a parameter, falling back to the
// definition's name.
func paramLoc(n *ast.FunctionDef, name string) source.Span {
	loc := n.NameLoc
	for _, p := range n.ParamPatterns {
		found := false
		ast.Inspect(p, func(node ast.Node) bool {
			if found {
				return false
			}
			if pat, ok := node.(*ast.Pattern); ok && pat.Name == name {
				loc = pat.NameLoc
				found = true
			}
			return true
		})
		if found {
			break
		}
	}
	return loc
}

func (b *builder) VisitAssignment(n *ast.Assignment) {
	kind := Write
	if n.Compound() {
		kind = ReadWrite
	}
	switch n.Op {
	case "=", ":=", "+=", "-=", "*=", "/=":
		b.target(n.LHS, kind)
	default:
		ast.Walk(b, n.LHS)
	}
	ast.Walk(b, n.RHS)
}

func (b *builder) target(lhs ast.Node, kind RefKind) {
	switch t := lhs.(type) {
	case *ast.Identifier:
		b.write(t, kind)
	case *ast.Part:
		if id, ok := t.Expr.(*ast.Identifier); ok {
			b.write(id, ReadWrite)
		} else {
			ast.Walk(b, t.Expr)
		}
		for _, idx := range t.Indices {
			ast.Walk(b, idx)
		}
	case *ast.List:
		for _, el := range t.Elements {
			b.target(el, kind)
		}
	default:
		ast.Walk(b, lhs)
	}
}

func (b *builder) VisitScoping(n *ast.Scoping) {
	typ := map[ast.ScopingKind]ScopeType{
		ast.ScopingModule: ScopeModule,
		ast.ScopingBlock:  ScopeBlock,
		ast.ScopingWith:   ScopeWith,
	}[n.Type]

	if n.Malformed {
		b.push(typ, n.Type.String(), n.Loc)
		ast.WalkChildren(b, n)
		b.pop()
		return
	}

	// Initializers are evaluated before the locals exist.
	for _, v := range n.Vars {
		ast.Walk(b, v.Init)
	}
	b.push(typ, n.Type.String(), n.Loc)
	for _, v := range n.Vars {
		sym := b.declare(b.cur, v.Name, v.Ident.Loc)
		sym.IsLocal = true
		if v.Init != nil {
			sym.Initialized = n.Type == ast.ScopingWith
			sym.addWrite(b.ref(v.Ident.Loc, Write))
		}
	}
	for _, arg := range n.Args[1:] {
		ast.Walk(b, arg)
	}
	b.pop()
}

func (b *builder) VisitPureFunction(n *ast.PureFunction) {
	if n.Type != ast.PureNamed {
		ast.WalkChildren(b, n)
		return
	}
	b.push(ScopeFunction, "Function", n.Loc)
	for _, p := range n.Params {
		sym := b.declare(b.cur, p.Name, p.Loc)
		sym.IsParameter = true
		sym.Initialized = true
	}
	for _, arg := range n.Args[1:] {
		ast.Walk(b, arg)
	}
	b.pop()
}

// VisitPattern skips pattern names, which declare rather than read. The
// condition of x_ /; test sees the names bound on its left.
func (b *builder) VisitPattern(n *ast.Pattern) {
	if n.Type != ast.PatternCondition {
		ast.WalkChildren(b, n)
		return
	}
	ast.Walk(b, n.Inner)
	names := b.unboundNames(b.patterns.Names(n.Inner))
	b.bind(names)
	ast.Walk(b, n.Cond)
	b.unbind(names)
}

func (b *builder) VisitOperator(n *ast.Operator) {
	switch n.Op {
	case "->", ":>":
		ast.Walk(b, n.Left)
		names := b.unboundNames(b.patterns.Names(n.Left))
		b.bind(names)
		ast.Walk(b, n.Right)
		b.unbind(names)
		return
	case "++", "--":
		operand := n.Left
		if n.Fixity == ast.Prefix {
			operand = n.Right
		}
		if id, ok := operand.(*ast.Identifier); ok {
			b.write(id, ReadWrite)
			return
		}
	case "::":
		// the message tag is a name, not a reference
		ast.Walk(b, n.Left)
		return
	case "=.":
		if id, ok := n.Left.(*ast.Identifier); ok {
			b.write(id, Write)
			return
		}
	}
	ast.WalkChildren(b, n)
}

func (b *builder) VisitLoop(n *ast.Loop) {
	if len(n.Iterators) == 0 {
		ast.WalkChildren(b, n)
		return
	}
	var bound []string
	for _, it := range n.Iterators {
		for _, expr := range it.Bounds {
			ast.Walk(b, expr)
		}
		if _, ok := b.t.resolveID(it.Var.Name, b.cur); ok {
			b.write(it.Var, Write)
		} else if !IsBuiltin(it.Var.Name) {
			bound = append(bound, it.Var.Name)
		}
	}
	b.bind(bound)
	for _, arg := range n.Args {
		if isIteratorSpec(n, arg) {
			continue
		}
		ast.Walk(b, arg)
	}
	b.unbind(bound)
}

func isIteratorSpec(n *ast.Loop, arg ast.Node) bool {
	for _, it := range n.Iterators {
		if ast.Node(it.Spec) == arg {
			return true
		}
	}
	return false
}

// unboundNames keeps the names that do not already resolve to a symbol.
func (b *builder) unboundNames(names []string) []string {
	var out []string
	for _, name := range names {
		if _, ok := b.t.resolveID(name, b.cur); !ok {
			out = append(out, name)
		}
	}
	return out
}

// PatternNameCache memoizes the pattern names of subtrees. A walk that asks
// for the names of nested rules and conditions before their parents scans
// each subtree once. The zero value is ready to use.
type PatternNameCache struct {
	memo map[ast.Node][]string
}

// Names returns the distinct names bound by named patterns within n, in
// order of first appearance. The test of a condition binds nothing.
func (c *PatternNameCache) Names(n ast.Node) []string {
	if names, ok := c.memo[n]; ok {
		return names
	}
	var names []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	var visit func(ast.Node) bool
	visit = func(node ast.Node) bool {
		if node != n {
			if cached, ok := c.memo[node]; ok {
				for _, name := range cached {
					add(name)
				}
				return false
			}
		}
		pat, ok := node.(*ast.Pattern)
		if !ok {
			return true
		}
		if pat.Name != "" {
			add(pat.Name)
		}
		if pat.Type == ast.PatternCondition {
			ast.Inspect(pat.Inner, visit)
			return false
		}
		return true
	}
	ast.Inspect(n, visit)
	if c.memo == nil {
		c.memo = make(map[ast.Node][]string)
	}
	c.memo[n] = names
	return names
}
