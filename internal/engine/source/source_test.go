package source

import "testing"

func TestLines(t *testing.T) {
	l := NewLines("first\r\nsecond\n\nlast")
	if l.Count() != 4 {
		t.Fatalf("expected 4 lines, got %d", l.Count())
	}
	for n, want := range map[int]string{1: "first", 2: "second", 3: "", 4: "last", 0: "", 5: ""} {
		if got := l.Line(n); got != want {
			t.Errorf("Line(%d) = %q, want %q", n, got, want)
		}
	}
	if got := l.LineOf(0); got != 1 {
		t.Errorf("LineOf(0) = %d, want 1", got)
	}
	if got := l.LineOf(7); got != 2 {
		t.Errorf("LineOf(7) = %d, want 2", got)
	}
}

func TestSpan(t *testing.T) {
	src := "abc def"
	a := Span{Start: Pos{Offset: 0}, End: Pos{Offset: 3}}
	b := Span{Start: Pos{Offset: 4}, End: Pos{Offset: 7}}
	if a.Text(src) != "abc" || b.Text(src) != "def" {
		t.Fatalf("unexpected text %q %q", a.Text(src), b.Text(src))
	}
	j := Join(b, a)
	if j.Text(src) != src || !j.Contains(a) || !j.Contains(b) || a.Contains(j) {
		t.Fatalf("unexpected join %v", j)
	}
	if (Span{Start: Pos{Offset: 5}, End: Pos{Offset: 2}}).Text(src) != "" {
		t.Fatal("inverted span must have no text")
	}
}

func TestParseSeverity(t *testing.T) {
	for _, s := range []Severity{SeverityNote, SeverityWarning, SeverityError} {
		got, ok := ParseSeverity(s.String())
		if !ok || got != s {
			t.Errorf("ParseSeverity(%q) = %v, %v", s.String(), got, ok)
		}
	}
	if _, ok := ParseSeverity("fatal"); ok {
		t.Error("expected unknown severity to be rejected")
	}
}
