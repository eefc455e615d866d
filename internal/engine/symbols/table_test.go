package symbols

import (
	"sort"
	"strings"
	"testing"

	"wlscope/internal/engine/ast"
	"wlscope/internal/engine/parser"
	"wlscope/internal/test/scaling"
)

func build(t *testing.T, src string) *Table {
	t.Helper()
	file := parser.Parse(src)
	if len(file.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", file.Diagnostics)
	}
	return Build("test.wl", file.Nodes, src)
}

func names(syms []*Symbol) string {
	out := make([]string, 0, len(syms))
	for _, s := range syms {
		out = append(out, s.Name)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

func only(t *testing.T, table *Table, name string) *Symbol {
	t.Helper()
	syms := table.SymbolsByName(name)
	if len(syms) != 1 {
		t.Fatalf("expected exactly one symbol %q, got %d", name, len(syms))
	}
	return syms[0]
}

func TestBuild_ScopeTreeMirrorsNesting(t *testing.T) {
	src := "f[x_] := Module[{a}, Block[{b}, With[{c = 1}, Function[{d}, d + a + b + c + x]]]]"
	table := build(t, src)

	want := []ScopeType{ScopeGlobal, ScopeFunction, ScopeModule, ScopeBlock, ScopeWith, ScopeFunction}
	if table.ScopeCount() != len(want) {
		t.Fatalf("expected %d scopes, got %d", len(want), table.ScopeCount())
	}
	for i, typ := range want {
		s := table.Scope(ScopeID(i))
		if s.Type != typ || s.Depth != i {
			t.Fatalf("scope %d: got %s depth %d, want %s depth %d", i, s.Type, s.Depth, typ, i)
		}
		if i > 0 && s.Parent != ScopeID(i-1) {
			t.Fatalf("scope %d: unexpected parent %d", i, s.Parent)
		}
	}
	for _, name := range []string{"a", "b", "c", "d", "x"} {
		if only(t, table, name).IsUnused() {
			t.Fatalf("%s should be read", name)
		}
	}
	if !only(t, table, "c").Initialized || only(t, table, "a").Initialized {
		t.Fatalf("only the With binding is pre-initialized")
	}
	if len(table.Unresolved()) != 0 {
		t.Fatalf("unexpected unresolved names %+v", table.Unresolved())
	}
}

func TestBuild_DerivedQueries(t *testing.T) {
	src := "g[a_] := Module[{u, w, r},\n  w = 1;\n  r + a\n]"
	table := build(t, src)

	if got := names(table.UnusedSymbols()); got != "g,u,w" {
		t.Fatalf("unused: got %s", got)
	}
	if got := names(table.AssignedButNeverReadSymbols()); got != "g,w" {
		t.Fatalf("write-only: got %s", got)
	}
	if got := names(table.ReadButNeverAssignedSymbols()); got != "a,r" {
		t.Fatalf("read-only: got %s", got)
	}
	for _, s := range table.AllSymbols() {
		if s.IsUnused() != (len(s.Reads) == 0) {
			t.Fatalf("%s: IsUnused must follow the read list", s.Name)
		}
	}
	r := only(t, table, "r")
	if r.Reads[0].Line != 3 || r.Reads[0].Column != 2 || r.Reads[0].Context != "r + a" {
		t.Fatalf("unexpected reference %+v", r.Reads[0])
	}
}

func TestBuild_ShadowingModuleInsideFunction(t *testing.T) {
	src := "f[x_] := Module[{x}, x = 1; x]"
	table := build(t, src)
	issues := table.ShadowingIssues()
	if len(issues) != 1 {
		t.Fatalf("expected one shadowing pair, got %d", len(issues))
	}
	inner, outer := issues[0].Inner, issues[0].Outer
	if inner.Name != "x" || table.Scope(inner.Scope).Type != ScopeModule {
		t.Fatalf("inner should be the Module local, got %+v", inner)
	}
	if !outer.IsParameter || table.Scope(outer.Scope).Type != ScopeFunction {
		t.Fatalf("outer should be the parameter, got %+v", outer)
	}
}

func TestBuild_ShadowingReportsEveryAncestor(t *testing.T) {
	table := build(t, "x = 0\nf[x_] := Module[{x}, x]")
	if n := len(table.ShadowingIssues()); n != 3 {
		t.Fatalf("expected 3 pairs (module/param, module/global, param/global), got %d", n)
	}
}

func TestBuild_InitializersResolveInOuterScope(t *testing.T) {
	table := build(t, "x = 1\nWith[{x = x + 1}, x]")
	syms := table.SymbolsByName("x")
	if len(syms) != 2 {
		t.Fatalf("expected global and With symbols, got %d", len(syms))
	}
	global, local := syms[0], syms[1]
	if table.Scope(global.Scope).Type != ScopeGlobal || len(global.Reads) != 1 || global.Reads[0].Line != 2 {
		t.Fatalf("initializer read must bind the global: %+v", global)
	}
	if !local.Initialized || len(local.Writes) != 1 || len(local.Reads) != 1 {
		t.Fatalf("unexpected With symbol %+v", local)
	}
}

func TestBuild_ImplicitGlobalsAndUnresolved(t *testing.T) {
	table := build(t, "h[y_] := Module[{a}, b = a; y + zz]")
	b := only(t, table, "b")
	if table.Scope(b.Scope).Type != ScopeGlobal || len(b.Writes) != 1 {
		t.Fatalf("b should be an implicit global with one write: %+v", b)
	}
	un := table.Unresolved()
	if len(un) != 1 || un[0].Name != "zz" {
		t.Fatalf("expected zz unresolved, got %+v", un)
	}
}

func TestBuild_ForwardReferenceToLaterDefinition(t *testing.T) {
	table := build(t, "main[] := helper[1]\nhelper[n_] := n")
	helper := only(t, table, "helper")
	if len(helper.Reads) != 1 || helper.Reads[0].Line != 1 {
		t.Fatalf("forward call should be a read of helper: %+v", helper)
	}
	if len(table.Unresolved()) != 0 {
		t.Fatalf("unexpected unresolved %+v", table.Unresolved())
	}
}

func TestBuild_ReadWriteReferences(t *testing.T) {
	table := build(t, "k[] := Module[{c = 0, l = {1, 2}}, c++; c += 2; l[[1]] = c]")
	c := only(t, table, "c")
	if len(c.Writes) != 3 || len(c.Reads) != 3 {
		t.Fatalf("c: got %d writes, %d reads", len(c.Writes), len(c.Reads))
	}
	l := only(t, table, "l")
	if len(l.Writes) != 2 || l.Writes[1].Kind != ReadWrite {
		t.Fatalf("part assignment should be read-write: %+v", l.Writes)
	}
	if got := len(c.References()); got != 4 {
		t.Fatalf("expected 4 distinct references, got %d", got)
	}
}

func TestBuild_ReadsDeduplicatedByPosition(t *testing.T) {
	s := &Symbol{Name: "x"}
	for i := 0; i < 10000; i++ {
		s.addRead(Reference{Line: 1, Column: 4})
	}
	s.addRead(Reference{Line: 1, Column: 5})
	if len(s.Reads) != 2 {
		t.Fatalf("expected 2 reads, got %d", len(s.Reads))
	}
}

func TestBuild_PatternAndIteratorNamesAreBound(t *testing.T) {
	table := build(t, "r = list /. {x_ :> x^2, {a_, b_} -> a + b}\nTable[i^2, {i, 10}]\nCases[l, v_ /; v > 0]")
	for _, un := range table.Unresolved() {
		if un.Name != "list" && un.Name != "l" {
			t.Fatalf("unexpected unresolved %q", un.Name)
		}
	}
	if len(table.SymbolsByName("i")) != 0 {
		t.Fatalf("loop iterator must not become a global")
	}
}

func TestBuild_PackageScopes(t *testing.T) {
	src := strings.Join([]string{
		"BeginPackage[\"Pkg`\"]",
		"pub::usage = \"pub[x]\";",
		"Begin[\"`Private`\"]",
		"pub[x_] := helper[x]",
		"helper[y_] := y",
		"End[]",
		"EndPackage[]",
		"after = 1",
	}, "\n")
	table := build(t, src)

	pkg := table.Scope(table.Global().Children[0])
	if pkg.Type != ScopePackage || pkg.Name != "Pkg`" || pkg.StartLine != 1 || pkg.EndLine != 7 {
		t.Fatalf("unexpected package scope %+v", pkg)
	}
	priv := table.Scope(pkg.Children[0])
	if priv.Type != ScopePrivateContext || priv.EndLine != 6 {
		t.Fatalf("unexpected private scope %+v", priv)
	}
	if got := table.ScopeAtLine(4); got.Type != ScopeFunction || got.Name != "pub" {
		t.Fatalf("ScopeAtLine(4) = %s %q", got.Type, got.Name)
	}
	after := only(t, table, "after")
	if after.Scope != table.Global().ID {
		t.Fatalf("definitions after EndPackage belong to the global scope")
	}
	helper := only(t, table, "helper")
	if helper.Scope != priv.ID || len(helper.Reads) != 1 {
		t.Fatalf("helper should live in the private context and be read once: %+v", helper)
	}
}

func TestSymbolAtLocation(t *testing.T) {
	table := build(t, "x = 1\nf[x_] :=\n  x + 1\ng[] := x")
	param, ok := table.SymbolAtLocation("x", 3)
	if !ok || !param.IsParameter {
		t.Fatalf("line 3 should resolve the parameter, got %+v", param)
	}
	global, ok := table.SymbolAtLocation("x", 4)
	if !ok || global.IsParameter || global.Scope != table.Global().ID {
		t.Fatalf("line 4 should resolve the global, got %+v", global)
	}
	if _, ok := table.SymbolAtLocation("nope", 1); ok {
		t.Fatalf("unknown names must not resolve")
	}
}

func TestBuild_MalformedScopingStillOpensScope(t *testing.T) {
	table := build(t, "Module[x]")
	if table.ScopeCount() != 2 || table.Scope(1).Type != ScopeModule {
		t.Fatalf("malformed Module should still open a scope")
	}
}

func TestPatternNameCache(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"{x_, y_Integer, x_}", "x,y"},
		{"x_ /; MatchQ[x, y_]", "x"},
		{"(a_ /; a > 0) -> b_", "a,b"},
		{"f[z:_List]", "z"},
		{"1 + 2", ""},
	}
	for _, tt := range tests {
		var c PatternNameCache
		node := parser.Parse(tt.src).Nodes[0]
		if got := strings.Join(c.Names(node), ","); got != tt.want {
			t.Errorf("Names(%q) = %q, want %q", tt.src, got, tt.want)
		}
		if again := c.Names(node); strings.Join(again, ",") != tt.want {
			t.Errorf("cached Names(%q) = %v", tt.src, again)
		}
	}
}

func TestBuild_NestedConditionsBindTheirPatterns(t *testing.T) {
	table := build(t, "f[] := ((x_ /; x > 0) /; x < 9) -> x")
	if n := len(table.Unresolved()); n != 0 {
		t.Fatalf("expected no unresolved reads, got %v", table.Unresolved())
	}
	if len(table.SymbolsByName("x")) != 0 {
		t.Fatalf("pattern name must not become a symbol")
	}
}

func TestBuild_ScalesLinearly(t *testing.T) {
	type parsed struct {
		src   string
		nodes []ast.Node
	}
	for _, shape := range scaling.Shapes {
		t.Run(shape.Name, func(t *testing.T) {
			scaling.AssertLinear(t, 2000, shape.Gen,
				func(src string) parsed { return parsed{src, parser.Parse(src).Nodes} },
				func(in parsed) { Build("scale.wl", in.nodes, in.src) })
		})
	}
}

func TestShadowingIssues_ScalesWithDistinctNames(t *testing.T) {
	src := scaling.NestedModule(4000)
	table := Build("scale.wl", parser.Parse(src).Nodes, src)
	if n := len(table.ShadowingIssues()); n != 0 {
		t.Fatalf("distinct names must not shadow, got %d pairs", n)
	}
	if table.ScopeCount() != 4002 {
		t.Fatalf("expected 4002 scopes, got %d", table.ScopeCount())
	}
}
