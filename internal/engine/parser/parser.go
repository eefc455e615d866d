// Package parser builds the AST for Wolfram Language source.
//
// Parsing runs in two passes over the token stream. A bracket pre-pass pairs
// every opener with its closer using an explicit stack, so nested constructs
// are recovered by index rather than by rescanning. The expression pass is a
// precedence-climbing parser that uses those pairs to bound every bracketed
// region, which keeps recovery local: garbage inside a region is skipped to
// its closer, and an unclosed region ends at the next line that starts in
// column 0.
package parser

import (
	"fmt"

	"wlscope/internal/engine/ast"
	"wlscope/internal/engine/lexer"
	"wlscope/internal/engine/source"
)

// File is the result of parsing one source text.
type File struct {
	Nodes []ast.Node
	// Diagnostics holds lexer diagnostics followed by parser diagnostics.
	Diagnostics []source.Diagnostic
	Comments    []source.Span
}

// Parse tokenizes and parses src.
func Parse(src string) *File {
	return ParseTokens(src, lexer.Tokenize(src))
}

// ParseTokens parses an already tokenized source. src must be the text the
// tokens were produced from.
func ParseTokens(src string, lex lexer.Result) *File {
	p := newParser(src, lex)
	nodes := p.statements()
	diags := make([]source.Diagnostic, 0, len(lex.Diagnostics)+len(p.diags))
	diags = append(diags, lex.Diagnostics...)
	diags = append(diags, p.diags...)
	return &File{Nodes: nodes, Diagnostics: diags, Comments: lex.Comments}
}

type parser struct {
	src  string
	toks []lexer.Token
	end  source.Pos

	// match pairs openers and closers by index; -1 when unpaired.
	match []int
	// stray marks closers without an opener; they are skipped on read.
	stray []bool
	// recoverAt bounds the region of an unclosed opener.
	recoverAt []int

	pos   int
	last  int
	limit int
	depth int

	// parens records the full extent of parenthesized expressions.
	parens map[ast.Node]source.Span
	diags  []source.Diagnostic
}

func newParser(src string, lex lexer.Result) *parser {
	p := &parser{
		src:    src,
		toks:   lex.Tokens,
		end:    lex.End,
		last:   -1,
		limit:  len(lex.Tokens),
		parens: make(map[ast.Node]source.Span),
	}
	p.pairBrackets()
	return p
}

func (p *parser) warn(span source.Span, msg string) {
	p.diags = append(p.diags, source.Diagnostic{
		Severity: source.SeverityWarning,
		Span:     span,
		Message:  msg,
	})
}

func (p *parser) eof() lexer.Token {
	pos := p.end
	if p.limit < len(p.toks) {
		pos = p.toks[p.limit].Span.Start
	}
	return lexer.Token{Kind: lexer.EOF, Span: source.Span{Start: pos, End: pos}}
}

// peek returns the next token inside the current region, or EOF at the
// region's end.
func (p *parser) peek() lexer.Token {
	for p.pos < p.limit && p.stray[p.pos] {
		p.pos++
	}
	if p.pos >= p.limit {
		return p.eof()
	}
	return p.toks[p.pos]
}

func (p *parser) next() lexer.Token {
	tok := p.peek()
	if tok.Kind != lexer.EOF {
		p.last = p.pos
		p.pos++
	}
	return tok
}

// skip consumes one token, or a whole bracketed group when the token opens one.
func (p *parser) skip() {
	tok := p.peek()
	if tok.Kind == lexer.EOF {
		return
	}
	if closeIdx := p.match[p.pos]; closeIdx > p.pos && closeIdx < p.limit {
		p.pos = closeIdx
	}
	p.next()
}

func (p *parser) lastEnd() source.Pos {
	if p.last < 0 {
		return source.Pos{Line: 1}
	}
	return p.toks[p.last].Span.End
}

func (p *parser) spanFrom(start source.Pos) source.Span {
	end := p.lastEnd()
	if end.Offset < start.Offset {
		end = start
	}
	return source.Span{Start: start, End: end}
}

// newlineBefore reports whether tok starts on a later line than the last
// consumed token ends.
func (p *parser) newlineBefore(tok lexer.Token) bool {
	return p.last >= 0 && tok.Span.Start.Line > p.toks[p.last].Span.End.Line
}

// startOf returns where n begins in the source, including any parentheses
// wrapped around it.
func (p *parser) startOf(n ast.Node) source.Pos {
	if span, ok := p.parens[n]; ok {
		return span.Start
	}
	return n.Span().Start
}

func (p *parser) isParenthesized(n ast.Node) bool {
	_, ok := p.parens[n]
	return ok
}

// statements parses top-level statements separated by ';' or by line
// breaks after complete expressions.
func (p *parser) statements() []ast.Node {
	var nodes []ast.Node
	for {
		tok := p.peek()
		if tok.Kind == lexer.EOF {
			return nodes
		}
		if tok.Is(";") {
			p.next()
			continue
		}
		n := p.expr(0)
		if n != nil {
			nodes = append(nodes, n)
		}
		tok = p.peek()
		switch {
		case tok.Kind == lexer.EOF:
		case tok.Is(";"):
			p.next()
		case n != nil && p.newlineBefore(tok):
		default:
			p.warn(tok.Span, fmt.Sprintf("unexpected %q", tok.Text))
			p.resync(tok)
		}
	}
}

// resync skips to the next plausible statement start: a token on a later
// line than bad, or just past a ';'.
func (p *parser) resync(bad lexer.Token) {
	p.skip()
	for {
		tok := p.peek()
		if tok.Kind == lexer.EOF || tok.Span.Start.Line > bad.Span.Start.Line {
			return
		}
		if tok.Is(";") {
			p.next()
			return
		}
		p.skip()
	}
}
