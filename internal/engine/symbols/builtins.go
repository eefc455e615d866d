package symbols

import "strings"

// builtins are system symbols that are never declared or reported as
// unresolved.
var builtins = toSet(
	// control flow
	"If", "Which", "Switch", "Do", "While", "For", "Return", "Break", "Continue",
	"Catch", "Throw", "Check", "Quiet", "Abort", "CompoundExpression",
	// functional
	"Map", "MapAt", "MapIndexed", "MapThread", "Apply", "Scan", "Fold", "FoldList",
	"Nest", "NestList", "NestWhile", "NestWhileList", "FixedPoint", "FixedPointList",
	"Composition", "RightComposition", "Identity", "Through", "Sow", "Reap",
	// scoping
	"Module", "Block", "With", "Function", "DynamicModule", "Slot", "SlotSequence",
	// lists
	"Table", "Range", "Array", "ConstantArray", "List", "Join", "Append", "Prepend",
	"AppendTo", "PrependTo", "Insert", "Delete", "Take", "Drop", "Part", "Extract",
	"Select", "Cases", "DeleteCases", "DeleteDuplicates", "Flatten", "Partition",
	"Split", "Riffle", "Thread", "Transpose", "Reverse", "Sort", "SortBy", "GatherBy",
	"GroupBy", "Tally", "Counts", "Span", "All",
	"Length", "First", "Last", "Rest", "Most", "MemberQ", "FreeQ", "Count",
	"Position", "FirstPosition", "Dimensions",
	// predicates and types
	"Head", "AtomQ", "ListQ", "NumberQ", "NumericQ", "IntegerQ", "RealQ", "StringQ",
	"SymbolQ", "VectorQ", "MatrixQ", "ArrayQ", "AssociationQ", "EvenQ", "OddQ",
	"Integer", "Real", "String", "Symbol", "Rational", "Complex",
	// associations
	"Key", "Lookup", "Keys", "Values", "KeyExistsQ", "KeyDrop", "KeyTake", "Association",
	// strings
	"StringJoin", "StringLength", "StringTake", "StringDrop", "StringReplace",
	"StringSplit", "StringMatchQ", "StringContainsQ", "StringTemplate", "ToString",
	"ToExpression", "StringExpression",
	// arithmetic
	"Plus", "Times", "Subtract", "Divide", "Power", "Mod", "Quotient",
	"Min", "Max", "Abs", "Sign", "Round", "Floor", "Ceiling", "N",
	"Sin", "Cos", "Tan", "Exp", "Log", "Sqrt", "Total", "Mean",
	"Integrate", "D", "Sum", "Product", "Solve", "NSolve", "FindRoot",
	"Pi", "E", "I", "Infinity", "Degree",
	// comparison and logic
	"Equal", "Unequal", "Less", "Greater", "LessEqual", "GreaterEqual",
	"SameQ", "UnsameQ", "MatchQ", "And", "Or", "Not", "Xor", "Nand", "Nor",
	"TrueQ",
	// constants
	"True", "False", "Null", "None", "Automatic", "Missing", "Failure",
	"$Failed", "$Context", "$ContextPath", "$Aborted",
	// patterns and rules
	"Replace", "ReplaceAll", "ReplaceRepeated", "ReplacePart", "Rule", "RuleDelayed",
	"Blank", "BlankSequence", "BlankNullSequence", "Pattern", "PatternTest",
	"Condition", "Alternatives", "Optional", "Repeated", "Verbatim", "HoldPattern",
	"OptionsPattern", "OptionValue", "Options", "SetOptions",
	// sets
	"Union", "Intersection", "Complement", "Subsets", "Tuples",
	// definitions and evaluation control
	"Set", "SetDelayed", "Unset", "Clear", "ClearAll", "Protect", "Unprotect",
	"SetAttributes", "Attributes", "Hold", "HoldAll", "HoldFirst", "HoldRest",
	"HoldComplete", "ReleaseHold", "Evaluate", "Unevaluated", "Listable",
	"Flat", "OneIdentity", "Orderless", "Protected", "Locked", "ReadProtected",
	// packages
	"BeginPackage", "EndPackage", "Begin", "End", "Needs", "Get",
	// output
	"Print", "Echo", "Message", "MessageName", "Plot", "ListPlot", "Show", "Graphics",
	"General", "Input", "Output", "Left", "Right", "Top", "Bottom", "Center",
	"Red", "Blue", "Green", "Black", "White",
)

func toSet(names ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// IsBuiltin reports whether name is a system symbol. Names qualified with
// the System` context are builtins as well.
func IsBuiltin(name string) bool {
	if _, ok := builtins[name]; ok {
		return true
	}
	return strings.HasPrefix(name, "System`")
}
