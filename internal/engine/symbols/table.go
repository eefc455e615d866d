// Package symbols builds the scope tree and symbol bindings for a parsed
// file and answers resolution queries against them.
//
// Scopes and symbols live in two arenas owned by a Table and refer to each
// other by index. A Table is immutable once Build returns, so it can be
// shared between goroutines without locking.
package symbols

import (
	"fmt"
	"sort"
)

type ScopeID int32

// NoScope is the parent of the global scope.
const NoScope ScopeID = -1

type SymbolID int32

type ScopeType int

const (
	ScopeGlobal ScopeType = iota
	// ScopeModule is one static scope per source-level Module; all calls of
	// the enclosing function share its symbols.
	ScopeModule
	ScopeBlock
	ScopeWith
	ScopeFunction
	ScopePackage
	ScopePrivateContext
)

func (t ScopeType) String() string {
	switch t {
	case ScopeGlobal:
		return "global"
	case ScopeModule:
		return "module"
	case ScopeBlock:
		return "block"
	case ScopeWith:
		return "with"
	case ScopeFunction:
		return "function"
	case ScopePackage:
		return "package"
	case ScopePrivateContext:
		return "private-context"
	default:
		return fmt.Sprintf("scope(%d)", int(t))
	}
}

// packageLevel reports whether implicit globals are created in scopes of this type.
func (t ScopeType) packageLevel() bool {
	return t == ScopeGlobal || t == ScopePackage || t == ScopePrivateContext
}

type Scope struct {
	ID        ScopeID
	Type      ScopeType
	Name      string
	StartLine int
	EndLine   int
	Parent    ScopeID
	Children  []ScopeID
	Depth     int

	names map[string]SymbolID
	order []SymbolID
	// pkg is the nearest package-level scope, possibly the scope itself.
	pkg ScopeID
}

// Lookup returns the symbol bound directly in this scope.
func (s *Scope) Lookup(name string) (SymbolID, bool) {
	id, ok := s.names[name]
	return id, ok
}

// SymbolIDs returns the scope's own symbols in declaration order.
func (s *Scope) SymbolIDs() []SymbolID {
	return s.order
}

func (s *Scope) containsLine(line int) bool {
	return s.StartLine <= line && line <= s.EndLine
}

type RefKind int

const (
	Read RefKind = iota
	Write
	ReadWrite
)

func (k RefKind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "read-write"
	}
}

// Reference is one occurrence of a symbol. Line is 1-based, Column 0-based.
type Reference struct {
	Line    int
	Column  int
	Kind    RefKind
	Context string
}

func (r Reference) IsRead() bool  { return r.Kind == Read || r.Kind == ReadWrite }
func (r Reference) IsWrite() bool { return r.Kind == Write || r.Kind == ReadWrite }

type refKey struct {
	line, col int
}

type Symbol struct {
	ID          SymbolID
	Name        string
	Scope       ScopeID
	DeclLine    int
	DeclColumn  int
	IsParameter bool
	// IsLocal is set for names declared by Module, Block or With.
	IsLocal bool
	// Initialized is set for parameters and With bindings with a value.
	Initialized bool
	ScopeType   ScopeType
	Writes      []Reference
	Reads       []Reference

	seen map[refKey]struct{}
}

func (s *Symbol) IsUnused() bool               { return len(s.Reads) == 0 }
func (s *Symbol) IsAssignedButNeverRead() bool { return len(s.Writes) > 0 && len(s.Reads) == 0 }
func (s *Symbol) IsReadButNeverAssigned() bool { return len(s.Reads) > 0 && len(s.Writes) == 0 }

// References returns reads and writes ordered by position. A read-write
// reference appears once.
func (s *Symbol) References() []Reference {
	out := make([]Reference, 0, len(s.Reads)+len(s.Writes))
	out = append(out, s.Writes...)
	for _, r := range s.Reads {
		if r.Kind != ReadWrite {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

func (s *Symbol) addRead(ref Reference) {
	key := refKey{ref.Line, ref.Column}
	if s.seen == nil {
		s.seen = make(map[refKey]struct{})
	}
	if _, dup := s.seen[key]; dup {
		return
	}
	s.seen[key] = struct{}{}
	s.Reads = append(s.Reads, ref)
}

func (s *Symbol) addWrite(ref Reference) {
	s.Writes = append(s.Writes, ref)
	if ref.Kind == ReadWrite {
		s.addRead(ref)
	}
}

// Unresolved is a read of a name with no binding in any enclosing scope.
type Unresolved struct {
	Name  string
	Scope ScopeID
	Ref   Reference
}

// ShadowingPair is a symbol bound in a scope strictly nested inside another
// scope that binds the same name.
type ShadowingPair struct {
	Inner *Symbol
	Outer *Symbol
}

type Table struct {
	Key        string
	scopes     []Scope
	symbols    []Symbol
	byName     map[string][]SymbolID
	unresolved []Unresolved
}

func newTable(key string, lines int) *Table {
	t := &Table{Key: key, byName: make(map[string][]SymbolID)}
	t.scopes = append(t.scopes, Scope{
		ID:        0,
		Type:      ScopeGlobal,
		StartLine: 1,
		EndLine:   lines,
		Parent:    NoScope,
		names:     make(map[string]SymbolID),
	})
	return t
}

func (t *Table) Global() *Scope { return &t.scopes[0] }

func (t *Table) Scope(id ScopeID) *Scope { return &t.scopes[id] }

func (t *Table) Symbol(id SymbolID) *Symbol { return &t.symbols[id] }

func (t *Table) ScopeCount() int { return len(t.scopes) }

func (t *Table) Unresolved() []Unresolved { return t.unresolved }

// Resolve walks from scope outward and returns the first binding of name.
func (t *Table) Resolve(name string, scope ScopeID) (*Symbol, bool) {
	if id, ok := t.resolveID(name, scope); ok {
		return &t.symbols[id], true
	}
	return nil, false
}

func (t *Table) resolveID(name string, scope ScopeID) (SymbolID, bool) {
	for s := scope; s != NoScope; s = t.scopes[s].Parent {
		if id, ok := t.scopes[s].Lookup(name); ok {
			return id, true
		}
	}
	return 0, false
}

// AllSymbols returns every symbol in declaration order.
func (t *Table) AllSymbols() []*Symbol {
	return t.filter(func(*Symbol) bool { return true })
}

func (t *Table) SymbolsByName(name string) []*Symbol {
	ids := t.byName[name]
	out := make([]*Symbol, 0, len(ids))
	for _, id := range ids {
		out = append(out, &t.symbols[id])
	}
	return out
}

// ScopeAtLine returns the innermost scope whose line range contains line.
func (t *Table) ScopeAtLine(line int) *Scope {
	cur := &t.scopes[0]
	for {
		var next *Scope
		for _, child := range cur.Children {
			if t.scopes[child].containsLine(line) {
				next = &t.scopes[child]
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// SymbolAtLocation resolves name from the innermost scope at line.
func (t *Table) SymbolAtLocation(name string, line int) (*Symbol, bool) {
	return t.Resolve(name, t.ScopeAtLine(line).ID)
}

func (t *Table) UnusedSymbols() []*Symbol {
	return t.filter((*Symbol).IsUnused)
}

func (t *Table) AssignedButNeverReadSymbols() []*Symbol {
	return t.filter((*Symbol).IsAssignedButNeverRead)
}

func (t *Table) ReadButNeverAssignedSymbols() []*Symbol {
	return t.filter((*Symbol).IsReadButNeverAssigned)
}

// ShadowingIssues returns every (inner, outer) pair where outer is bound
// under the same name in a strict ancestor of inner's scope. Pairs are
// ordered by inner symbol, nearest outer binding first.
func (t *Table) ShadowingIssues() []ShadowingPair {
	var pairs []ShadowingPair
	active := make(map[string][]SymbolID)
	var visit func(id ScopeID)
	visit = func(id ScopeID) {
		scope := &t.scopes[id]
		for _, sym := range scope.SymbolIDs() {
			name := t.symbols[sym].Name
			outer := active[name]
			for i := len(outer) - 1; i >= 0; i-- {
				pairs = append(pairs, ShadowingPair{Inner: &t.symbols[sym], Outer: &t.symbols[outer[i]]})
			}
			active[name] = append(outer, sym)
		}
		for _, child := range scope.Children {
			visit(child)
		}
		for _, sym := range scope.SymbolIDs() {
			name := t.symbols[sym].Name
			if rest := active[name][:len(active[name])-1]; len(rest) > 0 {
				active[name] = rest
			} else {
				delete(active, name)
			}
		}
	}
	visit(0)
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Inner.ID < pairs[j].Inner.ID })
	return pairs
}

func (t *Table) filter(keep func(*Symbol) bool) []*Symbol {
	var out []*Symbol
	for i := range t.symbols {
		if keep(&t.symbols[i]) {
			out = append(out, &t.symbols[i])
		}
	}
	return out
}
