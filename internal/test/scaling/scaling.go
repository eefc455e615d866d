// Package scaling generates sources of growing size and checks that an
// analysis phase handles them in near-linear time.
package scaling

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

// Shape builds a source whose size grows with n.
type Shape struct {
	Name string
	Gen  func(n int) string
}

// Shapes are the nesting and repetition patterns every phase must scale on.
var Shapes = []Shape{
	{"nested Module", NestedModule},
	{"nested conditions", NestedConditions},
	{"nested rule patterns", NestedRules},
	{"chained rules", ChainedRules},
	{"many reads", ManyReads},
}

// NestedModule nests n Modules, each reading its own local and the
// parameter of the enclosing definition.
func NestedModule(n int) string {
	var b strings.Builder
	b.WriteString("f[p_] := ")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "Module[{v%d = p}, v%d + ", i, i)
	}
	b.WriteString("p")
	b.WriteString(strings.Repeat("]", n))
	return b.String()
}

// NestedConditions is (((x_ /; x) /; x) ... /; x).
func NestedConditions(n int) string {
	return "f[] := " + strings.Repeat("(", n) + "x_" + strings.Repeat(" /; x)", n)
}

// NestedRules nests rules in their own left-hand sides.
func NestedRules(n int) string {
	return "f[] := " + strings.Repeat("(", n) + "x_" + strings.Repeat(" -> x)", n)
}

// ChainedRules is a -> a -> ... -> a.
func ChainedRules(n int) string {
	return "f[] := " + strings.Repeat("a -> ", n) + "a"
}

// ManyReads reads one local n times.
func ManyReads(n int) string {
	return "f[] := Module[{x = 1}, " + strings.Repeat("x; ", n) + "x]"
}

// AssertLinear fails t when processing the shape at four times base takes
// more than ten times as long as at base. Quadratic work grows sixteenfold.
func AssertLinear[T any](t testing.TB, base int, gen func(int) string, prepare func(string) T, run func(T)) {
	t.Helper()
	small := fastest(prepare(gen(base)), run)
	large := fastest(prepare(gen(4*base)), run)
	if limit := 10*small + 2*time.Millisecond; large > limit {
		t.Fatalf("n=%d took %v, n=%d took %v (limit %v)", base, small, 4*base, large, limit)
	}
}

func fastest[T any](in T, run func(T)) time.Duration {
	var best time.Duration
	for i := 0; i < 3; i++ {
		start := time.Now()
		run(in)
		if d := time.Since(start); i == 0 || d < best {
			best = d
		}
	}
	return best
}
