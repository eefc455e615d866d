// Package lexer turns Wolfram Language source text into a token stream.
//
// The scanner is a single forward pass: nested comments are tracked with a
// depth counter and strings are consumed character by character, so the
// cost is linear in the input regardless of nesting or literal length.
package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"wlscope/internal/engine/source"
)

type Kind int

const (
	EOF Kind = iota
	Identifier
	Number
	String
	Operator
	Punctuation
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Identifier:
		return "identifier"
	case Number:
		return "number"
	case String:
		return "string"
	case Operator:
		return "operator"
	case Punctuation:
		return "punctuation"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Token struct {
	Kind Kind
	Text string
	Span source.Span
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q @%s", t.Kind, t.Text, t.Span.Start)
}

// Is reports whether t is an operator or punctuation token with the given text.
func (t Token) Is(text string) bool {
	return (t.Kind == Operator || t.Kind == Punctuation) && t.Text == text
}

type Result struct {
	Tokens      []Token
	Comments    []source.Span
	Diagnostics []source.Diagnostic
	// End is the position just past the last byte of input.
	End source.Pos
}

// Longest first within each group.
var (
	operators3 = []string{"===", "=!=", "//.", "//@", "@@@", "^:=", "___", "...", ">>>"}
	operators2 = []string{
		":=", "->", ":>", "/@", "@@", "//", "/.", "/;", "/:", "==", "!=", "<=", ">=", "=.",
		"&&", "||", "++", "--", "+=", "-=", "*=", "/=", "^=", ";;", "<>", "<|", "|>",
		"__", "..", "::", "@*", "/*", "~~", "_.", "<<", ">>",
	}
)

const (
	singleOperators = "+-*/^=<>!&|;,.@?:~'_%"
	punctuation     = "[]{}()"
)

type scanner struct {
	src string
	pos source.Pos
	out Result
}

// Tokenize scans src. It never fails: problems are reported as diagnostics
// and scanning continues.
func Tokenize(src string) Result {
	s := &scanner{src: src, pos: source.Pos{Line: 1}}
	for s.pos.Offset < len(s.src) {
		c := s.src[s.pos.Offset]
		switch {
		case c == '(' && s.at(1) == '*':
			s.comment()
		case c == '"':
			s.string()
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			s.advance()
		case isDigit(c) || (c == '.' && isDigit(s.at(1))):
			s.number()
		case c == '#':
			s.slot()
		default:
			r, _ := utf8.DecodeRuneInString(s.src[s.pos.Offset:])
			if isIdentStart(r) {
				s.identifier()
				continue
			}
			if !s.operator() {
				start := s.pos
				s.advance()
				s.note(source.SeverityNote, start, fmt.Sprintf("skipping unrecognized character %q", r))
			}
		}
	}
	s.out.End = s.pos
	return s.out
}

func (s *scanner) at(n int) byte {
	if s.pos.Offset+n < len(s.src) {
		return s.src[s.pos.Offset+n]
	}
	return 0
}

func (s *scanner) advance() {
	r, size := utf8.DecodeRuneInString(s.src[s.pos.Offset:])
	s.pos.Offset += size
	if r == '\n' {
		s.pos.Line++
		s.pos.Column = 0
		return
	}
	s.pos.Column++
}

// advanceASCII moves over n single-byte characters on the current line.
func (s *scanner) advanceASCII(n int) {
	s.pos.Offset += n
	s.pos.Column += n
}

func (s *scanner) emit(kind Kind, start source.Pos) {
	s.out.Tokens = append(s.out.Tokens, Token{
		Kind: kind,
		Text: s.src[start.Offset:s.pos.Offset],
		Span: source.Span{Start: start, End: s.pos},
	})
}

func (s *scanner) note(sev source.Severity, start source.Pos, msg string) {
	s.out.Diagnostics = append(s.out.Diagnostics, source.Diagnostic{
		Severity: sev,
		Span:     source.Span{Start: start, End: s.pos},
		Message:  msg,
	})
}

func (s *scanner) comment() {
	start := s.pos
	s.advanceASCII(2)
	depth := 1
	for s.pos.Offset < len(s.src) {
		switch {
		case s.src[s.pos.Offset] == '(' && s.at(1) == '*':
			depth++
			s.advanceASCII(2)
		case s.src[s.pos.Offset] == '*' && s.at(1) == ')':
			depth--
			s.advanceASCII(2)
			if depth == 0 {
				s.out.Comments = append(s.out.Comments, source.Span{Start: start, End: s.pos})
				return
			}
		default:
			s.advance()
		}
	}
	s.out.Comments = append(s.out.Comments, source.Span{Start: start, End: s.pos})
	s.note(source.SeverityWarning, start, "unterminated comment")
}

func (s *scanner) string() {
	start := s.pos
	s.advanceASCII(1)
	for s.pos.Offset < len(s.src) {
		switch s.src[s.pos.Offset] {
		case '\\':
			s.advanceASCII(1)
			if s.pos.Offset < len(s.src) {
				s.advance()
			}
		case '"':
			s.advanceASCII(1)
			s.emit(String, start)
			return
		default:
			s.advance()
		}
	}
	s.emit(String, start)
	s.note(source.SeverityWarning, start, "unterminated string literal")
}

func (s *scanner) number() {
	start := s.pos
	for isDigit(s.at(0)) {
		s.advanceASCII(1)
	}
	// "1..2" is Repeated, not a real followed by ".2".
	if s.at(0) == '.' && s.at(1) != '.' {
		s.advanceASCII(1)
		for isDigit(s.at(0)) {
			s.advanceASCII(1)
		}
	}
	if c := s.at(0); c == 'e' || c == 'E' {
		n := 1
		if sign := s.at(1); sign == '+' || sign == '-' {
			n = 2
		}
		if isDigit(s.at(n)) {
			s.advanceASCII(n)
			for isDigit(s.at(0)) {
				s.advanceASCII(1)
			}
		}
	}
	s.emit(Number, start)
}

// slot scans #, #n, ##, ##n and #name as a single operator token.
func (s *scanner) slot() {
	start := s.pos
	s.advanceASCII(1)
	if s.at(0) == '#' {
		s.advanceASCII(1)
	}
	if isDigit(s.at(0)) {
		for isDigit(s.at(0)) {
			s.advanceASCII(1)
		}
	} else if s.pos.Offset-start.Offset == 1 && isASCIILetter(s.at(0)) {
		for isASCIILetter(s.at(0)) || isDigit(s.at(0)) {
			s.advanceASCII(1)
		}
	}
	s.emit(Operator, start)
}

func (s *scanner) identifier() {
	start := s.pos
	for s.pos.Offset < len(s.src) {
		r, _ := utf8.DecodeRuneInString(s.src[s.pos.Offset:])
		switch {
		case isIdentStart(r) || unicode.IsDigit(r):
			s.advance()
		case r == '`' && s.pos.Offset+1 < len(s.src):
			next, _ := utf8.DecodeRuneInString(s.src[s.pos.Offset+1:])
			if !isIdentStart(next) {
				s.emit(Identifier, start)
				return
			}
			s.advance()
		default:
			s.emit(Identifier, start)
			return
		}
	}
	s.emit(Identifier, start)
}

func (s *scanner) operator() bool {
	rest := s.src[s.pos.Offset:]
	for _, group := range [][]string{operators3, operators2} {
		for _, op := range group {
			if len(rest) >= len(op) && rest[:len(op)] == op {
				start := s.pos
				s.advanceASCII(len(op))
				s.emit(Operator, start)
				return true
			}
		}
	}
	c := rest[0]
	for i := 0; i < len(punctuation); i++ {
		if punctuation[i] == c {
			start := s.pos
			s.advanceASCII(1)
			s.emit(Punctuation, start)
			return true
		}
	}
	for i := 0; i < len(singleOperators); i++ {
		if singleOperators[i] == c {
			start := s.pos
			s.advanceASCII(1)
			s.emit(Operator, start)
			return true
		}
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentStart(r rune) bool {
	return r == '$' || unicode.IsLetter(r)
}

// IsIdentifier reports whether name is a valid symbol name, optionally
// qualified with context marks.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	expectStart := true
	for _, r := range name {
		switch {
		case expectStart:
			if !isIdentStart(r) {
				return false
			}
			expectStart = false
		case r == '`':
			expectStart = true
		case !isIdentStart(r) && !unicode.IsDigit(r):
			return false
		}
	}
	return !expectStart
}
