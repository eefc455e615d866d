package parser

import (
	"strings"
	"testing"

	"wlscope/internal/engine/ast"
	"wlscope/internal/test/scaling"
)

func parseOne(t *testing.T, src string) ast.Node {
	t.Helper()
	file := Parse(src)
	if len(file.Nodes) != 1 {
		t.Fatalf("expected 1 top-level node, got %d:\n%s", len(file.Nodes), ast.DumpAll(file.Nodes))
	}
	return file.Nodes[0]
}

func TestParse_FunctionDefinitionParams(t *testing.T) {
	src := "f[x_, y_Integer, z_:0] := body"
	file := Parse(src)
	if len(file.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", file.Diagnostics)
	}
	def, ok := file.Nodes[0].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("expected FunctionDef, got %T", file.Nodes[0])
	}
	if def.Name != "f" || !def.Delayed {
		t.Fatalf("unexpected definition %s delayed=%v", def.Name, def.Delayed)
	}
	if got := strings.Join(def.Params, ","); got != "x,y,z" {
		t.Fatalf("expected params x,y,z, got %s", got)
	}
	if id, ok := def.Body.(*ast.Identifier); !ok || id.Name != "body" {
		t.Fatalf("unexpected body %#v", def.Body)
	}
}

func TestParse_ParamNameExtraction(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"g[a_, b__, c___] = 1", "a,b,c"},
		{"g[x_?NumericQ, opts:OptionsPattern[]] := 1", "x,opts"},
		{"g[_, , 1x_, y] := 1", "y"},
		{"g[{a_, b_}, c_List] := 1", "c"},
		{"g[s_String: \"a,b\", n_Integer] := 1", "s,n"},
		{"g[] := 1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			def, ok := parseOne(t, tt.src).(*ast.FunctionDef)
			if !ok {
				t.Fatalf("expected FunctionDef")
			}
			if got := strings.Join(def.Params, ","); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_ImmediateDefinition(t *testing.T) {
	def, ok := parseOne(t, "fib[0] = 1").(*ast.FunctionDef)
	if !ok || def.Delayed {
		t.Fatalf("expected immediate FunctionDef")
	}
	if len(def.Params) != 0 {
		t.Fatalf("literal argument must not become a parameter: %v", def.Params)
	}
}

func TestParse_MissingBodyIsAbsent(t *testing.T) {
	for _, src := range []string{"f[x_] :=", "f[x_] :=   ", "f[x_] := ;"} {
		file := Parse(src)
		if len(file.Diagnostics) != 0 {
			t.Fatalf("%q: unexpected diagnostics %v", src, file.Diagnostics)
		}
		def, ok := file.Nodes[0].(*ast.FunctionDef)
		if !ok {
			t.Fatalf("%q: expected FunctionDef, got %T", src, file.Nodes[0])
		}
		if def.Body != nil {
			t.Fatalf("%q: expected absent body, got %T", src, def.Body)
		}
	}
}

func TestParse_ConditionalDefinition(t *testing.T) {
	def, ok := parseOne(t, "h[n_] /; n > 0 := n").(*ast.FunctionDef)
	if !ok {
		t.Fatalf("expected FunctionDef")
	}
	if def.Condition == nil || def.Params[0] != "n" {
		t.Fatalf("expected guarded definition, got %s", ast.Dump(def))
	}
}

func TestParse_StatementSplitting(t *testing.T) {
	file := Parse("a = 1; b = 2\nc = 3\n\nd[x_] :=\n  x + 1\ne")
	if len(file.Nodes) != 5 {
		t.Fatalf("expected 5 statements, got %d:\n%s", len(file.Nodes), ast.DumpAll(file.Nodes))
	}
	def := file.Nodes[3].(*ast.FunctionDef)
	if def.Body == nil {
		t.Fatalf("body on the following line must continue the definition")
	}
}

func TestParse_ScopingConstructs(t *testing.T) {
	sc, ok := parseOne(t, "Module[{x = 1, y, z := 2}, x + y; z]").(*ast.Scoping)
	if !ok {
		t.Fatalf("expected Scoping")
	}
	if sc.Type != ast.ScopingModule || sc.Malformed {
		t.Fatalf("unexpected scoping %s malformed=%v", sc.Type, sc.Malformed)
	}
	if len(sc.Vars) != 3 || sc.Vars[0].Init == nil || sc.Vars[1].Init != nil {
		t.Fatalf("unexpected locals %+v", sc.Vars)
	}
	body, ok := sc.Body.(*ast.Compound)
	if !ok || len(body.Exprs) != 2 || body.Suppressed {
		t.Fatalf("expected two-element compound body, got %s", ast.Dump(sc.Body))
	}

	for _, src := range []string{"Module[x]", "Block[x, x]", "With[]"} {
		sc, ok := parseOne(t, src).(*ast.Scoping)
		if !ok || !sc.Malformed || sc.Body != nil {
			t.Fatalf("%q: expected malformed scoping", src)
		}
	}
}

func TestParse_SpecializedHeads(t *testing.T) {
	tests := []struct {
		src  string
		kind ast.Kind
	}{
		{"If[a, b, c]", ast.KindControlFlow},
		{"Which[a, 1, True, 2]", ast.KindControlFlow},
		{"Switch[x, 1, a, _, b]", ast.KindControlFlow},
		{"Do[Print[i], {i, 10}]", ast.KindLoop},
		{"While[i < 3, i++]", ast.KindLoop},
		{"For[i = 0, i < 3, i++, Print[i]]", ast.KindLoop},
		{"Table[i^2, {i, 1, 5}]", ast.KindLoop},
		{"NestWhile[f, x, test]", ast.KindLoop},
		{"Function[{x, y}, x + y]", ast.KindPureFunction},
		{"<|a -> 1, \"b\" :> 2|>", ast.KindAssociation},
		{"Association[a -> 1]", ast.KindAssociation},
		{"Set[x, 1]", ast.KindAssignment},
		{"SetDelayed[f[x_], x]", ast.KindFunctionDef},
		{"l[[1, 2]]", ast.KindPart},
		{"1 ;; 3", ast.KindSpan},
		{"Print[x]", ast.KindCall},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			n := parseOne(t, tt.src)
			if n.Kind() != tt.kind {
				t.Fatalf("got %s, want %s", n.Kind(), tt.kind)
			}
		})
	}
}

func TestParse_LoopIterators(t *testing.T) {
	loop := parseOne(t, "Table[i + j, {i, 3}, {j, i, 5}]").(*ast.Loop)
	if len(loop.Iterators) != 2 || loop.Iterators[0].Var.Name != "i" || loop.Iterators[1].Var.Name != "j" {
		t.Fatalf("unexpected iterators %+v", loop.Iterators)
	}
	if loop.Body() != loop.Args[0] {
		t.Fatalf("Table body is its first argument")
	}
	forLoop := parseOne(t, "For[i = 0, i < 3, i++, Print[i]]").(*ast.Loop)
	if forLoop.Body() != forLoop.Args[3] {
		t.Fatalf("For body is its fourth argument")
	}
}

func TestParse_PureFunctions(t *testing.T) {
	pf := parseOne(t, "#1 + #2 &").(*ast.PureFunction)
	if pf.Type != ast.PureSlot || pf.MaxSlot != 2 {
		t.Fatalf("unexpected slot function %+v", pf)
	}
	pf = parseOne(t, "(# + (#3 &)) &").(*ast.PureFunction)
	if pf.MaxSlot != 1 {
		t.Fatalf("nested slots must not count, got %d", pf.MaxSlot)
	}
	named := parseOne(t, "Function[x, x^2]").(*ast.PureFunction)
	if named.Type != ast.PureNamed || len(named.Params) != 1 || named.Params[0].Name != "x" {
		t.Fatalf("unexpected named function %+v", named)
	}
	mapped := parseOne(t, "f = #^2 & /@ list").(*ast.Assignment)
	op, ok := mapped.RHS.(*ast.Operator)
	if !ok || op.Op != "/@" {
		t.Fatalf("expected map of pure function, got %s", ast.Dump(mapped))
	}
}

func TestParse_Patterns(t *testing.T) {
	tests := []struct {
		src  string
		kind ast.PatternKind
	}{
		{"_", ast.PatternBlank},
		{"x_", ast.PatternNamed},
		{"x_Integer", ast.PatternTyped},
		{"x__", ast.PatternSequence},
		{"x_?NumericQ", ast.PatternTest},
		{"x_ /; x > 0", ast.PatternCondition},
		{"x_:0", ast.PatternOptional},
		{"x_.", ast.PatternOptional},
		{"a | b | c", ast.PatternAlternatives},
		{"x:_Integer", ast.PatternNamed},
		{"p..", ast.PatternRepeated},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			pat, ok := parseOne(t, tt.src).(*ast.Pattern)
			if !ok {
				t.Fatalf("expected Pattern")
			}
			if pat.Type != tt.kind {
				t.Fatalf("got %s, want %s", pat.Type, tt.kind)
			}
		})
	}
	alt := parseOne(t, "a | b | c").(*ast.Pattern)
	if len(alt.Alternatives) != 3 {
		t.Fatalf("alternatives must flatten, got %d", len(alt.Alternatives))
	}
}

func TestParse_Precedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a + b * c", "+(a,*(b,c))"},
		{"a * b + c", "+(*(a,b),c)"},
		{"a ^ b ^ c", "^(a,^(b,c))"},
		{"-a ^ 2", "-(^(a,2))"},
		{"x /. a -> b", "/.(x,->(a,b))"},
		{"a -> b -> c", "->(a,->(b,c))"},
		{"2 x y", "*(*(2,x),y)"},
		{"f @ g @ x", "@(f,@(g,x))"},
		{"a == b && c", "&&(==(a,b),c)"},
		{"(a + b) c", "*(+(a,b),c)"},
		{"x // f", "//(x,f)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := sexpr(parseOne(t, tt.src)); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func sexpr(n ast.Node) string {
	switch v := n.(type) {
	case *ast.Identifier:
		return v.Name
	case *ast.Literal:
		return v.Value
	case *ast.Operator:
		var parts []string
		for _, c := range v.Children() {
			parts = append(parts, sexpr(c))
		}
		return v.Op + "(" + strings.Join(parts, ",") + ")"
	default:
		return n.Kind().String()
	}
}

func TestParse_RecoversFromUnclosedBracket(t *testing.T) {
	src := "f[x_] := g[x\nh[y_] := y\n"
	file := Parse(src)
	if len(file.Nodes) != 2 {
		t.Fatalf("expected both definitions to be recovered, got %d:\n%s", len(file.Nodes), ast.DumpAll(file.Nodes))
	}
	if file.Nodes[1].(*ast.FunctionDef).Name != "h" {
		t.Fatalf("second definition not recovered")
	}
	if len(file.Diagnostics) != 1 || !strings.Contains(file.Diagnostics[0].Message, "unclosed") {
		t.Fatalf("expected one unclosed-bracket diagnostic, got %v", file.Diagnostics)
	}
}

func TestParse_RecoversFromStrayCloser(t *testing.T) {
	file := Parse("x = 1]\ny = 2)")
	if len(file.Nodes) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(file.Nodes))
	}
	if len(file.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %v", file.Diagnostics)
	}
}

func TestParse_RecoversFromGarbage(t *testing.T) {
	file := Parse("a = 1 , 2\nb = 2\nf[, , ,]\nc = {1, , }")
	if len(file.Nodes) != 4 {
		t.Fatalf("expected 4 statements, got %d:\n%s", len(file.Nodes), ast.DumpAll(file.Nodes))
	}
	if len(file.Diagnostics) == 0 {
		t.Fatalf("expected a diagnostic for the stray comma")
	}
}

func TestParse_DeepNesting(t *testing.T) {
	depth := 5000
	src := strings.Repeat("f[", depth) + "x" + strings.Repeat("]", depth)
	file := Parse(src)
	if len(file.Nodes) != 1 || len(file.Diagnostics) != 0 {
		t.Fatalf("deep nesting failed: %d nodes, %v", len(file.Nodes), file.Diagnostics)
	}
	src = strings.Repeat("{", depth) + strings.Repeat("}", depth)
	if file := Parse(src); len(file.Nodes) != 1 {
		t.Fatalf("deep list nesting failed")
	}
}

func TestParse_SpanAccuracy(t *testing.T) {
	src := "(* header *)\nf[x_, y_Integer] := Module[{t = x},\n  t = (t + y) * 2;\n  l[[1 ;; t]] // Total\n]\ng = #1 + #2 & ;\n"
	file := Parse(src)
	if len(file.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", file.Diagnostics)
	}
	def := file.Nodes[0].(*ast.FunctionDef)
	wantDef := "f[x_, y_Integer] := Module[{t = x},\n  t = (t + y) * 2;\n  l[[1 ;; t]] // Total\n]"
	if got := def.Span().Text(src); got != wantDef {
		t.Fatalf("definition span text:\n%q\nwant\n%q", got, wantDef)
	}
	if got := file.Nodes[1].Span().Text(src); got != "g = #1 + #2 &" {
		t.Fatalf("assignment span text %q", got)
	}

	for _, top := range file.Nodes {
		checkNested(t, src, top)
	}

	var texts []string
	ast.Inspect(def, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.Part, *ast.SpanExpr, *ast.Operator:
			texts = append(texts, n.Span().Text(src))
		}
		return true
	})
	for _, want := range []string{"l[[1 ;; t]]", "1 ;; t", "(t + y) * 2", "t + y", "l[[1 ;; t]] // Total"} {
		found := false
		for _, got := range texts {
			if got == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("no node spans %q; have %q", want, texts)
		}
	}
}

func checkNested(t *testing.T, src string, n ast.Node) {
	t.Helper()
	if n.Span().Text(src) == "" {
		t.Fatalf("%s has empty span text", ast.Label(n))
	}
	for _, child := range n.Children() {
		if !n.Span().Contains(child.Span()) {
			t.Fatalf("child %s %s escapes parent %s %s", ast.Label(child), child.Span(), ast.Label(n), n.Span())
		}
		checkNested(t, src, child)
	}
}

func TestParse_CommentsReported(t *testing.T) {
	file := Parse("(* a (* b *) *) x (* c *)")
	if len(file.Comments) != 2 || len(file.Nodes) != 1 {
		t.Fatalf("unexpected result: %d comments, %d nodes", len(file.Comments), len(file.Nodes))
	}
}

func TestParse_ScalesLinearly(t *testing.T) {
	for _, shape := range scaling.Shapes {
		t.Run(shape.Name, func(t *testing.T) {
			if file := Parse(shape.Gen(50)); len(file.Nodes) != 1 || len(file.Diagnostics) != 0 {
				t.Fatalf("unexpected parse: %d nodes, %v", len(file.Nodes), file.Diagnostics)
			}
			scaling.AssertLinear(t, 2000, shape.Gen,
				func(src string) string { return src },
				func(src string) { Parse(src) })
		})
	}
}
