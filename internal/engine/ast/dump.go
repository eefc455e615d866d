package ast

import (
	"fmt"
	"strings"
)

// Dump renders n and its descendants as an indented tree, one node per line.
func Dump(n Node) string {
	var b strings.Builder
	dump(&b, n, 0)
	return b.String()
}

// DumpAll renders a list of top-level nodes.
func DumpAll(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		dump(&b, n, 0)
	}
	return b.String()
}

func dump(b *strings.Builder, n Node, depth int) {
	if n == nil {
		return
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(Label(n))
	fmt.Fprintf(b, " [%s]\n", n.Span())
	for _, child := range n.Children() {
		dump(b, child, depth+1)
	}
}

// Label returns a one-line description of n.
func Label(n Node) string {
	switch v := n.(type) {
	case *FunctionDef:
		op := "="
		if v.Delayed {
			op = ":="
		}
		return fmt.Sprintf("FunctionDef %s[%s] %s", v.Name, strings.Join(v.Params, ", "), op)
	case *Call:
		if name := v.Name(); name != "" {
			return "Call " + name
		}
		return "Call"
	case *Assignment:
		return "Assignment " + v.Op
	case *Operator:
		switch v.Fixity {
		case Prefix:
			return "Operator prefix " + v.Op
		case Postfix:
			return "Operator postfix " + v.Op
		}
		return "Operator " + v.Op
	case *Identifier:
		if v.Slot {
			return "Slot " + v.Name
		}
		return "Identifier " + v.Name
	case *Literal:
		return fmt.Sprintf("Literal %s %s", v.Type, v.Value)
	case *List:
		return fmt.Sprintf("List (%d)", len(v.Elements))
	case *Association:
		return fmt.Sprintf("Association (%d)", len(v.Entries))
	case *ControlFlow:
		return "ControlFlow " + v.Type.String()
	case *Loop:
		return "Loop " + v.Type.String()
	case *Scoping:
		names := make([]string, 0, len(v.Vars))
		for _, lv := range v.Vars {
			names = append(names, lv.Name)
		}
		if v.Malformed {
			return fmt.Sprintf("Scoping %s (malformed)", v.Type)
		}
		return fmt.Sprintf("Scoping %s {%s}", v.Type, strings.Join(names, ", "))
	case *Pattern:
		if v.Name != "" {
			return fmt.Sprintf("Pattern %s %s", v.Type, v.Name)
		}
		return "Pattern " + v.Type.String()
	case *PureFunction:
		if v.Type == PureNamed {
			names := make([]string, 0, len(v.Params))
			for _, p := range v.Params {
				names = append(names, p.Name)
			}
			return fmt.Sprintf("PureFunction (%s)", strings.Join(names, ", "))
		}
		return fmt.Sprintf("PureFunction slots=%d", v.MaxSlot)
	case *Part:
		return "Part"
	case *SpanExpr:
		return "Span"
	case *Compound:
		if v.Suppressed {
			return "Compound ;"
		}
		return "Compound"
	default:
		panic(fmt.Sprintf("ast: unhandled node type %T", n))
	}
}
