// Package findings turns pipeline output into the flat diagnostics a host
// reports, one rule ID per kind of problem.
package findings

import (
	"fmt"
	"sort"

	"wlscope/internal/engine/pipeline"
	"wlscope/internal/engine/source"
	"wlscope/internal/engine/symbols"
)

const (
	RuleUsedBeforeAssignment = "WL001"
	RuleUnusedLocal          = "WL002"
	RuleWriteOnlyLocal       = "WL003"
	RuleShadowing            = "WL004"
	RuleUnusedParameter      = "WL005"
	RuleParse                = "WL100"
	RuleLex                  = "WL101"
	RuleInternal             = "WL900"
)

type Rule struct {
	ID          string
	Name        string
	Description string
	Severity    source.Severity
}

// Rules lists every rule in ID order.
var Rules = []Rule{
	{RuleUsedBeforeAssignment, "used-before-assignment", "A local variable is read before any assignment reaches it.", source.SeverityWarning},
	{RuleUnusedLocal, "unused-local", "A scoped local variable is declared but never used.", source.SeverityNote},
	{RuleWriteOnlyLocal, "write-only-local", "A scoped local variable is assigned but never read.", source.SeverityNote},
	{RuleShadowing, "shadowing", "A declaration hides a declaration of the same name in an enclosing scope.", source.SeverityNote},
	{RuleUnusedParameter, "unused-parameter", "A function parameter is never read in the definition body.", source.SeverityNote},
	{RuleParse, "parse-diagnostic", "The parser recovered from malformed source.", source.SeverityWarning},
	{RuleLex, "lex-diagnostic", "The lexer met an unknown character or unterminated token.", source.SeverityWarning},
	{RuleInternal, "internal-error", "The file could not be analyzed.", source.SeverityError},
}

// RuleByID returns the rule with the given ID.
func RuleByID(id string) (Rule, bool) {
	for _, r := range Rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

type Finding struct {
	RuleID   string          `json:"rule_id" yaml:"rule_id"`
	Severity source.Severity `json:"-" yaml:"-"`
	Level    string          `json:"severity" yaml:"severity"`
	File     string          `json:"file" yaml:"file"`
	Line     int             `json:"line" yaml:"line"`
	Column   int             `json:"column" yaml:"column"`
	Message  string          `json:"message" yaml:"message"`
}

func newFinding(rule, file string, sev source.Severity, line, col int, format string, args ...any) Finding {
	return Finding{
		RuleID:   rule,
		Severity: sev,
		Level:    sev.String(),
		File:     file,
		Line:     line,
		Column:   col,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Collect converts one file's result into findings sorted by position.
func Collect(res *pipeline.FileResult) []Finding {
	var out []Finding
	key := res.Key

	for _, d := range res.LexDiagnostics() {
		out = append(out, newFinding(RuleLex, key, d.Severity, d.Span.Start.Line, d.Span.Start.Column, "%s", d.Message))
	}
	for _, d := range res.ParseDiagnostics() {
		out = append(out, newFinding(RuleParse, key, d.Severity, d.Span.Start.Line, d.Span.Start.Column, "%s", d.Message))
	}

	for _, f := range res.Init.Findings() {
		out = append(out, newFinding(RuleUsedBeforeAssignment, key, source.SeverityWarning, f.Line, f.Column,
			"%s is used before assignment in %s", f.Name, f.Function))
	}
	for _, p := range res.Init.UnusedParameters() {
		out = append(out, newFinding(RuleUnusedParameter, key, source.SeverityNote, p.Line, p.Column,
			"parameter %s of %s is never used", p.Name, p.Function))
	}

	for _, sym := range res.Table.AllSymbols() {
		if !sym.IsLocal {
			continue
		}
		switch {
		case len(sym.Reads) == 0 && len(sym.Writes) == 0:
			out = append(out, newFinding(RuleUnusedLocal, key, source.SeverityNote, sym.DeclLine, sym.DeclColumn,
				"local %s is declared in %s but never used", sym.Name, sym.ScopeType))
		case sym.IsAssignedButNeverRead():
			out = append(out, newFinding(RuleWriteOnlyLocal, key, source.SeverityNote, sym.DeclLine, sym.DeclColumn,
				"local %s is assigned but never read", sym.Name))
		}
	}

	for _, pair := range res.Table.ShadowingIssues() {
		out = append(out, shadowing(key, pair))
	}

	Sort(out)
	return out
}

func shadowing(key string, pair symbols.ShadowingPair) Finding {
	return newFinding(RuleShadowing, key, source.SeverityNote, pair.Inner.DeclLine, pair.Inner.DeclColumn,
		"%s shadows the declaration at line %d", pair.Inner.Name, pair.Outer.DeclLine)
}

// Failure reports a file that could not be analyzed.
func Failure(key string, err error) Finding {
	return newFinding(RuleInternal, key, source.SeverityError, 0, 0, "analysis failed: %v", err)
}

// Sort orders findings by file, position and rule.
func Sort(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.RuleID < b.RuleID
	})
}

// Filter drops findings whose rule is disabled or below min severity.
func Filter(fs []Finding, disabled []string, min source.Severity) []Finding {
	off := make(map[string]bool, len(disabled))
	for _, id := range disabled {
		off[id] = true
	}
	out := fs[:0:0]
	for _, f := range fs {
		if off[f.RuleID] || f.Severity < min {
			continue
		}
		out = append(out, f)
	}
	return out
}
