package parser

import (
	"fmt"

	"wlscope/internal/engine/lexer"
)

var closerFor = map[string]string{
	"[":  "]",
	"{":  "}",
	"(":  ")",
	"<|": "|>",
}

var openerFor = map[string]string{
	"]":  "[",
	"}":  "{",
	")":  "(",
	"|>": "<|",
}

// pairBrackets fills match, stray and recoverAt in one linear pass.
//
// A closer that matches an opener deeper in the stack closes it and leaves
// every opener above it unclosed. A closer whose kind has no open opener is
// stray. Per-kind open counts make both checks O(1), and every opener is
// popped at most once.
func (p *parser) pairBrackets() {
	n := len(p.toks)
	p.match = make([]int, n)
	p.stray = make([]bool, n)
	p.recoverAt = make([]int, n)
	for i := range p.match {
		p.match[i] = -1
	}

	nextLineStart := p.lineStarts()
	open := make(map[string]int, len(closerFor))
	var stack []int

	unclosed := func(idx int) {
		tok := p.toks[idx]
		p.recoverAt[idx] = nextLineStart[idx+1]
		p.warn(tok.Span, fmt.Sprintf("unclosed %q", tok.Text))
	}

	for i, tok := range p.toks {
		if tok.Kind != lexer.Punctuation && tok.Kind != lexer.Operator {
			continue
		}
		if _, ok := closerFor[tok.Text]; ok {
			stack = append(stack, i)
			open[tok.Text]++
			continue
		}
		want, ok := openerFor[tok.Text]
		if !ok {
			continue
		}
		if open[want] == 0 {
			p.stray[i] = true
			p.warn(tok.Span, fmt.Sprintf("unmatched %q", tok.Text))
			continue
		}
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			open[p.toks[top].Text]--
			if p.toks[top].Text == want {
				p.match[top] = i
				p.match[i] = top
				break
			}
			unclosed(top)
		}
	}
	for _, idx := range stack {
		unclosed(idx)
	}
}

// lineStarts returns, for every index i, the index of the first token at or
// after i that begins in column 0. The extra trailing entry is len(toks).
func (p *parser) lineStarts() []int {
	out := make([]int, len(p.toks)+1)
	next := len(p.toks)
	out[len(p.toks)] = next
	for i := len(p.toks) - 1; i >= 0; i-- {
		if p.toks[i].Span.Start.Column == 0 {
			next = i
		}
		out[i] = next
	}
	return out
}
