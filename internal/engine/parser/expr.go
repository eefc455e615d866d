package parser

import (
	"fmt"
	"strings"

	"wlscope/internal/engine/ast"
	"wlscope/internal/engine/lexer"
	"wlscope/internal/engine/source"
)

type opInfo struct {
	prec  int
	right bool
	// postfix operators take no right operand.
	postfix bool
}

// Binding powers follow the language's operator precedence table.
var infixOps = map[string]opInfo{
	";":   {prec: 10},
	">>":  {prec: 30},
	">>>": {prec: 30},
	"=":   {prec: 40, right: true},
	":=":  {prec: 40, right: true},
	"^=":  {prec: 40, right: true},
	"^:=": {prec: 40, right: true},
	"+=":  {prec: 40, right: true},
	"-=":  {prec: 40, right: true},
	"*=":  {prec: 40, right: true},
	"/=":  {prec: 40, right: true},
	"=.":  {prec: 40, postfix: true},
	"/:":  {prec: 45, right: true},
	"//":  {prec: 70},
	"&":   {prec: 90, postfix: true},
	"/.":  {prec: 110},
	"//.": {prec: 110},
	"->":  {prec: 120, right: true},
	":>":  {prec: 120, right: true},
	"/;":  {prec: 130},
	"~~":  {prec: 135},
	":":   {prec: 140},
	"|":   {prec: 160},
	"..":  {prec: 170, postfix: true},
	"...": {prec: 170, postfix: true},
	"||":  {prec: 215},
	"&&":  {prec: 220},
	"==":  {prec: 290},
	"!=":  {prec: 290},
	"<":   {prec: 290},
	">":   {prec: 290},
	"<=":  {prec: 290},
	">=":  {prec: 290},
	"===": {prec: 290},
	"=!=": {prec: 290},
	";;":  {prec: 305},
	"+":   {prec: 310},
	"-":   {prec: 310},
	"*":   {prec: 400},
	"/":   {prec: 400},
	".":   {prec: 490},
	"^":   {prec: 590, right: true},
	"<>":  {prec: 600},
	"!":   {prec: 610, postfix: true},
	"/@":  {prec: 620, right: true},
	"//@": {prec: 620, right: true},
	"@@":  {prec: 620, right: true},
	"@@@": {prec: 620, right: true},
	"@*":  {prec: 625},
	"/*":  {prec: 625},
	"@":   {prec: 640, right: true},
	"++":  {prec: 660, postfix: true},
	"--":  {prec: 660, postfix: true},
	"'":   {prec: 670, postfix: true},
	"?":   {prec: 680},
	"::":  {prec: 750},
	"[":   {prec: 1000},
}

const (
	precTimes = 400
	precMinus = 480
	precNot   = 230
	precIncr  = 660
	precSpan  = 305
)

var blankTokens = map[string]int{"_": 1, "__": 2, "___": 3, "_.": 1}

// expr parses an expression whose operators all bind tighter than rbp.
// It returns nil without consuming anything when the next token cannot
// start an expression.
func (p *parser) expr(rbp int) ast.Node {
	left := p.prefix()
	if left == nil {
		return nil
	}
	for {
		tok := p.peek()
		if tok.Kind == lexer.EOF || (p.depth == 0 && p.newlineBefore(tok)) {
			return left
		}
		info, implicit, ok := p.infixInfo(tok)
		if !ok || info.prec <= rbp {
			return left
		}
		if implicit {
			left = p.binary(left, "*", p.expr(precTimes))
			continue
		}
		left = p.infix(left, info)
	}
}

func (p *parser) infixInfo(tok lexer.Token) (opInfo, bool, bool) {
	if tok.Kind == lexer.Operator || tok.Kind == lexer.Punctuation {
		if tok.Text == ";" && p.depth == 0 {
			return opInfo{}, false, false
		}
		if info, ok := infixOps[tok.Text]; ok {
			return info, false, true
		}
	}
	if canStartOperand(tok) {
		return opInfo{prec: precTimes}, true, true
	}
	return opInfo{}, false, false
}

// canStartOperand reports whether juxtaposition with tok is an implicit product.
func canStartOperand(tok lexer.Token) bool {
	switch tok.Kind {
	case lexer.Identifier, lexer.Number, lexer.String:
		return true
	case lexer.Punctuation:
		return tok.Text == "(" || tok.Text == "{"
	case lexer.Operator:
		return tok.Text == "<|" || strings.HasPrefix(tok.Text, "#")
	}
	return false
}

func (p *parser) prefix() ast.Node {
	tok := p.peek()
	switch tok.Kind {
	case lexer.EOF:
		return nil
	case lexer.Identifier:
		p.next()
		id := &ast.Identifier{Loc: tok.Span, Name: tok.Text}
		if next := p.peek(); next.Kind == lexer.Operator && adjacent(tok, next) {
			if _, ok := blankTokens[next.Text]; ok {
				return p.blank(id)
			}
		}
		return id
	case lexer.Number:
		p.next()
		kind := ast.LiteralInteger
		if strings.ContainsAny(tok.Text, ".eE") {
			kind = ast.LiteralReal
		}
		return &ast.Literal{Loc: tok.Span, Type: kind, Value: tok.Text}
	case lexer.String:
		p.next()
		return &ast.Literal{Loc: tok.Span, Type: ast.LiteralString, Value: tok.Text}
	}

	if strings.HasPrefix(tok.Text, "#") {
		p.next()
		return &ast.Identifier{Loc: tok.Span, Name: tok.Text, Slot: true}
	}
	if _, ok := blankTokens[tok.Text]; ok {
		return p.blank(nil)
	}

	switch tok.Text {
	case "(":
		return p.group()
	case "{":
		start := p.pos
		elems, _ := p.bracketed(start)
		return &ast.List{Loc: p.spanFrom(tok.Span.Start), Elements: elems}
	case "<|":
		start := p.pos
		elems, _ := p.bracketed(start)
		return &ast.Association{Loc: p.spanFrom(tok.Span.Start), Entries: elems}
	case "-", "+":
		p.next()
		return p.unary(tok, p.expr(precMinus))
	case "!":
		p.next()
		return p.unary(tok, p.expr(precNot))
	case "++", "--":
		p.next()
		return p.unary(tok, p.expr(precIncr))
	case "<<":
		p.next()
		return p.unary(tok, p.expr(precIncr))
	case ";;":
		p.next()
		return p.spanTail(tok.Span.Start, nil)
	}
	return nil
}

func adjacent(a, b lexer.Token) bool {
	return a.Span.End.Offset == b.Span.Start.Offset
}

// blank parses _, __, ___ or _. with an optional adjacent head, bound to
// name when one precedes it.
func (p *parser) blank(name *ast.Identifier) ast.Node {
	tok := p.next()
	start := tok.Span.Start
	pat := &ast.Pattern{Blanks: blankTokens[tok.Text]}
	if name != nil {
		start = name.Loc.Start
		pat.Name = name.Name
		pat.NameLoc = name.Loc
	}
	if head := p.peek(); head.Kind == lexer.Identifier && adjacent(tok, head) {
		p.next()
		pat.Head = head.Text
	}
	switch {
	case tok.Text == "_.":
		pat.Type = ast.PatternOptional
	case pat.Blanks > 1:
		pat.Type = ast.PatternSequence
	case pat.Head != "":
		pat.Type = ast.PatternTyped
	case pat.Name != "":
		pat.Type = ast.PatternNamed
	default:
		pat.Type = ast.PatternBlank
	}
	pat.Loc = p.spanFrom(start)
	return pat
}

func (p *parser) group() ast.Node {
	open := p.pos
	openTok := p.toks[open]
	saved := p.enter(open)
	inner := p.expr(0)
	p.leave(open, saved)
	span := p.spanFrom(openTok.Span.Start)
	if inner == nil {
		return &ast.Compound{Loc: span}
	}
	p.parens[inner] = span
	return inner
}

// enter restricts reading to the region of the opener at idx and returns
// the previous limit.
func (p *parser) enter(idx int) int {
	saved := p.limit
	end := p.match[idx]
	if end < 0 {
		end = p.recoverAt[idx]
	}
	if end > saved {
		end = saved
	}
	p.last = idx
	p.pos = idx + 1
	p.limit = end
	p.depth++
	return saved
}

// leave skips anything left in the region, restores the outer limit and
// consumes the closer. It returns the closer's index, or -1 when the region
// was not closed.
func (p *parser) leave(idx, saved int) int {
	if tok := p.peek(); tok.Kind != lexer.EOF {
		p.warn(tok.Span, fmt.Sprintf("unexpected %q", tok.Text))
	}
	end := p.limit
	if end-1 > p.last {
		p.last = end - 1
	}
	p.pos = end
	p.limit = saved
	p.depth--
	closeIdx := p.match[idx]
	if closeIdx >= 0 && closeIdx == end {
		p.pos = closeIdx + 1
		p.last = closeIdx
		return closeIdx
	}
	return -1
}

// bracketed parses the comma-separated elements of the region opened at idx.
func (p *parser) bracketed(idx int) ([]ast.Node, int) {
	saved := p.enter(idx)
	elems := p.elements()
	return elems, p.leave(idx, saved)
}

func (p *parser) elements() []ast.Node {
	var elems []ast.Node
	for {
		tok := p.peek()
		if tok.Kind == lexer.EOF {
			return elems
		}
		if tok.Is(",") {
			p.next()
			continue
		}
		e := p.expr(0)
		if e == nil {
			p.warn(tok.Span, fmt.Sprintf("unexpected %q", tok.Text))
			p.skip()
			continue
		}
		elems = append(elems, e)
		tok = p.peek()
		switch {
		case tok.Is(","):
			p.next()
		case tok.Kind != lexer.EOF:
			p.warn(tok.Span, fmt.Sprintf("expected ',' before %q", tok.Text))
			p.skip()
		}
	}
}

func (p *parser) unary(op lexer.Token, operand ast.Node) ast.Node {
	if operand == nil {
		p.warn(op.Span, fmt.Sprintf("missing operand after %q", op.Text))
	}
	return &ast.Operator{
		Loc:    p.spanFrom(op.Span.Start),
		Op:     op.Text,
		Fixity: ast.Prefix,
		Right:  operand,
	}
}

func (p *parser) binary(left ast.Node, op string, right ast.Node) ast.Node {
	return &ast.Operator{
		Loc:    p.spanFrom(p.startOf(left)),
		Op:     op,
		Fixity: ast.Infix,
		Left:   left,
		Right:  right,
	}
}

func (p *parser) operand(op lexer.Token, info opInfo) ast.Node {
	rbp := info.prec
	if info.right {
		rbp--
	}
	right := p.expr(rbp)
	if right == nil {
		p.warn(op.Span, fmt.Sprintf("missing operand after %q", op.Text))
	}
	return right
}

func (p *parser) infix(left ast.Node, info opInfo) ast.Node {
	if p.peek().Is("[") {
		return p.callOrPart(left)
	}
	tok := p.next()
	start := p.startOf(left)

	if info.postfix {
		switch tok.Text {
		case "&":
			return &ast.PureFunction{
				Loc:     p.spanFrom(start),
				Type:    ast.PureSlot,
				Body:    left,
				MaxSlot: maxSlot(left),
			}
		case "..", "...":
			return &ast.Pattern{Loc: p.spanFrom(start), Type: ast.PatternRepeated, Inner: left}
		}
		return &ast.Operator{Loc: p.spanFrom(start), Op: tok.Text, Fixity: ast.Postfix, Left: left}
	}

	switch tok.Text {
	case "=", ":=", "^=", "^:=", "+=", "-=", "*=", "/=":
		rbp := info.prec - 1
		return p.assignment(left, tok.Text, p.expr(rbp))
	case ";":
		right := p.expr(info.prec)
		if c, ok := left.(*ast.Compound); ok && !c.Suppressed && !p.isParenthesized(c) && len(c.Exprs) > 0 {
			if right == nil {
				c.Suppressed = true
			} else {
				c.Exprs = append(c.Exprs, right)
			}
			c.Loc = p.spanFrom(start)
			return c
		}
		c := &ast.Compound{Exprs: []ast.Node{left}}
		if right == nil {
			c.Suppressed = true
		} else {
			c.Exprs = append(c.Exprs, right)
		}
		c.Loc = p.spanFrom(start)
		return c
	case ";;":
		return p.spanTail(start, left)
	case "/;":
		cond := p.operand(tok, info)
		return &ast.Pattern{Loc: p.spanFrom(start), Type: ast.PatternCondition, Inner: left, Cond: cond}
	case "?":
		test := p.operand(tok, info)
		return &ast.Pattern{Loc: p.spanFrom(start), Type: ast.PatternTest, Inner: left, Test: test}
	case ":":
		right := p.operand(tok, info)
		if id, ok := left.(*ast.Identifier); ok && !id.Slot {
			return &ast.Pattern{Loc: p.spanFrom(start), Type: ast.PatternNamed, Name: id.Name, NameLoc: id.Loc, Inner: right}
		}
		if _, ok := left.(*ast.Pattern); ok {
			return &ast.Pattern{Loc: p.spanFrom(start), Type: ast.PatternOptional, Inner: left, Default: right}
		}
		return p.binary(left, tok.Text, right)
	case "|":
		right := p.operand(tok, info)
		if alt, ok := left.(*ast.Pattern); ok && alt.Type == ast.PatternAlternatives && !p.isParenthesized(alt) {
			if right != nil {
				alt.Alternatives = append(alt.Alternatives, right)
			}
			alt.Loc = p.spanFrom(start)
			return alt
		}
		alts := []ast.Node{left}
		if right != nil {
			alts = append(alts, right)
		}
		return &ast.Pattern{Loc: p.spanFrom(start), Type: ast.PatternAlternatives, Alternatives: alts}
	}
	return p.binary(left, tok.Text, p.operand(tok, info))
}

// spanTail parses the remainder of start ;; end ;; step after the first ;;.
func (p *parser) spanTail(start source.Pos, first ast.Node) ast.Node {
	n := &ast.SpanExpr{Start: first}
	n.End = p.expr(precSpan)
	if p.peek().Is(";;") {
		p.next()
		n.Step = p.expr(precSpan)
	}
	n.Loc = p.spanFrom(start)
	return n
}

func (p *parser) callOrPart(head ast.Node) ast.Node {
	idx := p.pos
	start := p.startOf(head)
	inner := idx + 1
	if inner < p.limit && p.toks[inner].Is("[") && p.match[idx] >= 0 && p.match[inner] >= 0 && p.match[idx] == p.match[inner]+1 {
		saved := p.enter(idx)
		indices, _ := p.bracketed(inner)
		p.leave(idx, saved)
		return &ast.Part{Loc: p.spanFrom(start), Expr: head, Indices: indices}
	}

	openTok := p.toks[idx]
	args, closeIdx := p.bracketed(idx)
	call := &ast.Call{
		Loc:  p.spanFrom(start),
		Head: head,
		Args: args,
		Open: openTok.Span,
	}
	if closeIdx >= 0 {
		call.Close = p.toks[closeIdx].Span
	}
	return p.specialize(call)
}

// maxSlot returns the highest slot number used by a slot-based body,
// ignoring nested pure functions.
func maxSlot(body ast.Node) int {
	highest := 0
	ast.Inspect(body, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.PureFunction:
			return false
		case *ast.Identifier:
			if v.Slot {
				if k := slotNumber(v.Name); k > highest {
					highest = k
				}
			}
		}
		return true
	})
	return highest
}

func slotNumber(text string) int {
	digits := strings.TrimLeft(text, "#")
	if digits == "" {
		return 1
	}
	k := 0
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 1
		}
		k = k*10 + int(r-'0')
	}
	return k
}
