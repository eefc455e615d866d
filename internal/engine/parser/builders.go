package parser

import (
	"strings"

	"wlscope/internal/engine/ast"
	"wlscope/internal/engine/lexer"
)

var scopingHeads = map[string]ast.ScopingKind{
	"Module": ast.ScopingModule,
	"Block":  ast.ScopingBlock,
	"With":   ast.ScopingWith,
}

var controlHeads = map[string]ast.ControlKind{
	"If":     ast.ControlIf,
	"Which":  ast.ControlWhich,
	"Switch": ast.ControlSwitch,
}

var loopHeads = map[string]ast.LoopKind{
	"Do":        ast.LoopDo,
	"While":     ast.LoopWhile,
	"For":       ast.LoopFor,
	"Table":     ast.LoopTable,
	"NestWhile": ast.LoopNestWhile,
}

// specialize turns calls with a structural head into their dedicated node.
func (p *parser) specialize(call *ast.Call) ast.Node {
	id, ok := call.Head.(*ast.Identifier)
	if !ok || id.Slot {
		return call
	}
	if kind, ok := scopingHeads[id.Name]; ok {
		return buildScoping(kind, call)
	}
	if kind, ok := controlHeads[id.Name]; ok {
		return &ast.ControlFlow{Loc: call.Loc, Type: kind, Args: call.Args}
	}
	if kind, ok := loopHeads[id.Name]; ok {
		return buildLoop(kind, call)
	}
	switch id.Name {
	case "Function":
		return buildFunction(call)
	case "Association":
		return &ast.Association{Loc: call.Loc, Entries: call.Args}
	case "Set", "SetDelayed":
		if len(call.Args) == 2 {
			op := "="
			if id.Name == "SetDelayed" {
				op = ":="
			}
			def := p.assignment(call.Args[0], op, call.Args[1])
			switch n := def.(type) {
			case *ast.FunctionDef:
				n.Loc = call.Loc
			case *ast.Assignment:
				n.Loc = call.Loc
			}
			return def
		}
	}
	return call
}

func buildScoping(kind ast.ScopingKind, call *ast.Call) *ast.Scoping {
	n := &ast.Scoping{Loc: call.Loc, Type: kind, Args: call.Args}
	if len(call.Args) < 2 {
		n.Malformed = true
		return n
	}
	decls, ok := call.Args[0].(*ast.List)
	if !ok {
		n.Malformed = true
		return n
	}
	n.Decls = decls
	n.Body = call.Args[1]
	for _, el := range decls.Elements {
		switch e := el.(type) {
		case *ast.Identifier:
			if !e.Slot {
				n.Vars = append(n.Vars, &ast.LocalVar{Name: e.Name, Ident: e})
			}
		case *ast.Assignment:
			if e.Op != "=" && e.Op != ":=" {
				continue
			}
			if target, ok := e.LHS.(*ast.Identifier); ok && !target.Slot {
				n.Vars = append(n.Vars, &ast.LocalVar{Name: target.Name, Ident: target, Init: e.RHS})
			}
		}
	}
	return n
}

func buildLoop(kind ast.LoopKind, call *ast.Call) *ast.Loop {
	n := &ast.Loop{Loc: call.Loc, Type: kind, Args: call.Args}
	if kind != ast.LoopDo && kind != ast.LoopTable {
		return n
	}
	for _, arg := range call.Args[min(1, len(call.Args)):] {
		spec, ok := arg.(*ast.List)
		if !ok || len(spec.Elements) < 2 {
			continue
		}
		if v, ok := spec.Elements[0].(*ast.Identifier); ok && !v.Slot {
			n.Iterators = append(n.Iterators, &ast.Iterator{Var: v, Bounds: spec.Elements[1:], Spec: spec})
		}
	}
	return n
}

func buildFunction(call *ast.Call) *ast.PureFunction {
	n := &ast.PureFunction{Loc: call.Loc, Args: call.Args}
	switch len(call.Args) {
	case 0:
		n.Type = ast.PureSlot
		return n
	case 1:
		n.Type = ast.PureSlot
		n.Body = call.Args[0]
		n.MaxSlot = maxSlot(n.Body)
		return n
	}
	n.Type = ast.PureNamed
	n.Body = call.Args[1]
	switch params := call.Args[0].(type) {
	case *ast.Identifier:
		if !params.Slot {
			n.Params = append(n.Params, params)
		}
	case *ast.List:
		for _, el := range params.Elements {
			if id, ok := el.(*ast.Identifier); ok && !id.Slot {
				n.Params = append(n.Params, id)
			}
		}
	}
	return n
}

// assignment builds a FunctionDef for name[params] := body and
// name[params] = body, and an Assignment for every other target.
func (p *parser) assignment(lhs ast.Node, op string, rhs ast.Node) ast.Node {
	start := p.startOf(lhs)
	if op == "=" || op == ":=" {
		target := lhs
		var cond ast.Node
		if pat, ok := lhs.(*ast.Pattern); ok && pat.Type == ast.PatternCondition {
			target = pat.Inner
			cond = pat.Cond
		}
		if call, ok := target.(*ast.Call); ok {
			if id, ok := call.Head.(*ast.Identifier); ok && !id.Slot && lexer.IsIdentifier(id.Name) {
				return &ast.FunctionDef{
					Loc:           p.spanFrom(start),
					Name:          id.Name,
					NameLoc:       id.Loc,
					Params:        paramNames(p.paramText(call)),
					ParamPatterns: call.Args,
					Condition:     cond,
					Delayed:       op == ":=",
					Body:          rhs,
				}
			}
		}
	}
	return &ast.Assignment{Loc: p.spanFrom(start), Op: op, LHS: lhs, RHS: rhs}
}

// paramText returns the raw source between a call's brackets.
func (p *parser) paramText(call *ast.Call) string {
	from := call.Open.End.Offset
	to := call.Loc.End.Offset
	if call.Close.End.Offset > from {
		to = call.Close.Start.Offset
	}
	if from > to || to > len(p.src) {
		return ""
	}
	return p.src[from:to]
}

// paramNames splits a parameter list on top-level commas and extracts the
// bound name of each parameter: the text before the earliest of _ ? : =.
// Entries without a valid name are dropped.
func paramNames(text string) []string {
	var names []string
	for _, param := range splitTopLevel(text) {
		name := param
		if i := strings.IndexAny(param, "_?:="); i >= 0 {
			name = param[:i]
		}
		name = strings.TrimSpace(name)
		if lexer.IsIdentifier(name) {
			names = append(names, name)
		}
	}
	return names
}

// splitTopLevel splits on commas outside brackets, strings and comments.
func splitTopLevel(text string) []string {
	var (
		parts   []string
		depth   int
		start   int
		inStr   bool
		comment int
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case inStr:
			if c == '\\' {
				i++
			} else if c == '"' {
				inStr = false
			}
		case comment > 0:
			if c == '(' && i+1 < len(text) && text[i+1] == '*' {
				comment++
				i++
			} else if c == '*' && i+1 < len(text) && text[i+1] == ')' {
				comment--
				i++
			}
		case c == '(' && i+1 < len(text) && text[i+1] == '*':
			comment++
			i++
		case c == '"':
			inStr = true
		case c == '[' || c == '{' || c == '(':
			depth++
		case c == ']' || c == '}' || c == ')':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			parts = append(parts, text[start:i])
			start = i + 1
		}
	}
	return append(parts, text[start:])
}
