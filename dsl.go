package veloxql

import "github.com/syssam/veloxql/schema/field"

// Const returns a constant that is inlined as a literal.
func Const(v any) *Constant { return &Constant{Value: v} }

// Var returns a captured value that is bound as a parameter.
func Var(v any) *ParameterRef { return &ParameterRef{Value: v} }

// Null returns the NULL literal.
func Null() *Constant { return &Constant{} }

// EQ returns l = r. Comparing with NULL renders IS NULL.
func EQ(l, r Node) *Binary { return &Binary{Op: OpEQ, Left: l, Right: r} }

// NE returns l <> r. Comparing with NULL renders IS NOT NULL.
func NE(l, r Node) *Binary { return &Binary{Op: OpNE, Left: l, Right: r} }

// GT returns l > r.
func GT(l, r Node) *Binary { return &Binary{Op: OpGT, Left: l, Right: r} }

// GE returns l >= r.
func GE(l, r Node) *Binary { return &Binary{Op: OpGE, Left: l, Right: r} }

// LT returns l < r.
func LT(l, r Node) *Binary { return &Binary{Op: OpLT, Left: l, Right: r} }

// LE returns l <= r.
func LE(l, r Node) *Binary { return &Binary{Op: OpLE, Left: l, Right: r} }

// IsNull returns x IS NULL.
func IsNull(x Node) *Binary { return EQ(x, Null()) }

// NotNull returns x IS NOT NULL.
func NotNull(x Node) *Binary { return NE(x, Null()) }

// And conjoins the predicates left to right. Nil predicates are skipped.
func And(preds ...Node) Node { return fold(OpAnd, preds) }

// Or disjoins the predicates left to right. Nil predicates are skipped.
func Or(preds ...Node) Node { return fold(OpOr, preds) }

func fold(op Op, preds []Node) Node {
	var acc Node
	for _, p := range preds {
		switch {
		case p == nil:
		case acc == nil:
			acc = p
		default:
			acc = &Binary{Op: op, Left: acc, Right: p}
		}
	}
	return acc
}

// Not negates a predicate.
func Not(x Node) *Unary { return &Unary{Op: OpNot, X: x} }

// Neg returns -x.
func Neg(x Node) *Unary { return &Unary{Op: OpNeg, X: x} }

// Add returns l + r. On strings it renders the dialect concatenation.
func Add(l, r Node) *Binary { return &Binary{Op: OpAdd, Left: l, Right: r} }

// Sub returns l - r.
func Sub(l, r Node) *Binary { return &Binary{Op: OpSub, Left: l, Right: r} }

// Mul returns l * r.
func Mul(l, r Node) *Binary { return &Binary{Op: OpMul, Left: l, Right: r} }

// Div returns l / r.
func Div(l, r Node) *Binary { return &Binary{Op: OpDiv, Left: l, Right: r} }

// Mod returns l % r.
func Mod(l, r Node) *Binary { return &Binary{Op: OpMod, Left: l, Right: r} }

// If returns test ? then : els.
func If(test, then, els Node) *Conditional {
	return &Conditional{Test: test, Then: then, Else: els}
}

// Coalesce returns l ?? r.
func Coalesce(l, r Node) *CoalesceExpr { return &CoalesceExpr{Left: l, Right: r} }

// In returns x IN (values...). A single Const or Var holding a slice is
// expanded to its elements.
func In(x Node, values ...Node) *InExpr { return &InExpr{X: x, Values: values} }

// NotIn returns x NOT IN (values...).
func NotIn(x Node, values ...Node) *InExpr { return &InExpr{X: x, Values: values, Not: true} }

// InList returns x IN (...) over the elements of a captured slice. Each
// element is bound as a parameter.
func InList(x Node, list any) *InExpr { return In(x, Var(list)) }

// InQuery returns x IN (SELECT ...).
func InQuery(x Node, q *Query) *InExpr { return &InExpr{X: x, Query: q} }

// NotInQuery returns x NOT IN (SELECT ...).
func NotInQuery(x Node, q *Query) *InExpr { return &InExpr{X: x, Query: q, Not: true} }

// Exists returns EXISTS(SELECT * ...).
func Exists(q *Query) *ExistsExpr { return &ExistsExpr{Query: q} }

// NotExists returns NOT EXISTS(SELECT * ...).
func NotExists(q *Query) *ExistsExpr { return &ExistsExpr{Query: q, Not: true} }

// Subquery returns a scalar sub-query.
func Subquery(q *Query) *SubqueryExpr { return &SubqueryExpr{Query: q} }

// Call returns a call of a canonical function. The target is the receiver
// of method-style calls and may be nil.
func Call(target Node, name string, args ...Node) *CallExpr {
	return &CallExpr{Target: target, Name: name, Args: args}
}

// Cast converts x to the given type.
func Cast(x Node, t field.Type) *CastExpr { return &CastExpr{X: x, To: t} }

// ToString converts x to a string.
func ToString(x Node) *CallExpr { return Call(x, "ToString") }

// String functions.

// Contains returns a substring match of x against s.
func Contains(x, s Node) *CallExpr { return Call(x, "Contains", s) }

// StartsWith returns a prefix match of x against s.
func StartsWith(x, s Node) *CallExpr { return Call(x, "StartsWith", s) }

// EndsWith returns a suffix match of x against s.
func EndsWith(x, s Node) *CallExpr { return Call(x, "EndsWith", s) }

// ToUpper returns x in upper case.
func ToUpper(x Node) *CallExpr { return Call(x, "ToUpper") }

// ToLower returns x in lower case.
func ToLower(x Node) *CallExpr { return Call(x, "ToLower") }

// Trim returns x without leading and trailing spaces.
func Trim(x Node) *CallExpr { return Call(x, "Trim") }

// TrimStart returns x without leading spaces.
func TrimStart(x Node) *CallExpr { return Call(x, "TrimStart") }

// TrimEnd returns x without trailing spaces.
func TrimEnd(x Node) *CallExpr { return Call(x, "TrimEnd") }

// Length returns the number of characters of x.
func Length(x Node) *CallExpr { return Call(x, "Length") }

// Substring returns the characters of x from the zero-based index start.
// An optional length limits the result.
func Substring(x, start Node, length ...Node) *CallExpr {
	return Call(x, "Substring", append([]Node{start}, length...)...)
}

// Replace replaces all occurrences of old in x with repl.
func Replace(x, old, repl Node) *CallExpr { return Call(x, "Replace", old, repl) }

// IndexOf returns the zero-based index of s in x, or -1.
func IndexOf(x, s Node) *CallExpr { return Call(x, "IndexOf", s) }

// Concat concatenates strings.
func Concat(xs ...Node) *CallExpr { return Call(nil, "Concat", xs...) }

// IsNullOrEmpty reports if x is NULL or the empty string.
func IsNullOrEmpty(x Node) *CallExpr { return Call(nil, "IsNullOrEmpty", x) }

// CompareTo returns 0 if a equals b, 1 if a is greater and -1 otherwise.
func CompareTo(a, b Node) *CallExpr { return Call(a, "CompareTo", b) }

// Compare is the static form of CompareTo.
func Compare(a, b Node) *CallExpr { return Call(nil, "Compare", a, b) }

// Date and time functions.

// AddYears returns x plus n years.
func AddYears(x, n Node) *CallExpr { return Call(x, "AddYears", n) }

// AddMonths returns x plus n months.
func AddMonths(x, n Node) *CallExpr { return Call(x, "AddMonths", n) }

// AddDays returns x plus n days.
func AddDays(x, n Node) *CallExpr { return Call(x, "AddDays", n) }

// AddHours returns x plus n hours.
func AddHours(x, n Node) *CallExpr { return Call(x, "AddHours", n) }

// AddMinutes returns x plus n minutes.
func AddMinutes(x, n Node) *CallExpr { return Call(x, "AddMinutes", n) }

// AddSeconds returns x plus n seconds.
func AddSeconds(x, n Node) *CallExpr { return Call(x, "AddSeconds", n) }

// Year returns the year of x.
func Year(x Node) *CallExpr { return Call(x, "Year") }

// Month returns the month of x.
func Month(x Node) *CallExpr { return Call(x, "Month") }

// Day returns the day of month of x.
func Day(x Node) *CallExpr { return Call(x, "Day") }

// Hour returns the hour of x.
func Hour(x Node) *CallExpr { return Call(x, "Hour") }

// Minute returns the minute of x.
func Minute(x Node) *CallExpr { return Call(x, "Minute") }

// Second returns the second of x.
func Second(x Node) *CallExpr { return Call(x, "Second") }

// DayOfWeek returns the day of week of x, Sunday being 0.
func DayOfWeek(x Node) *CallExpr { return Call(x, "DayOfWeek") }

// DayOfYear returns the day of year of x.
func DayOfYear(x Node) *CallExpr { return Call(x, "DayOfYear") }

// DateOf returns the date part of x.
func DateOf(x Node) *CallExpr { return Call(x, "Date") }

// Now returns the current local time of the database.
func Now() *CallExpr { return Call(nil, "Now") }

// UtcNow returns the current UTC time of the database.
func UtcNow() *CallExpr { return Call(nil, "UtcNow") }

// Today returns the current date of the database.
func Today() *CallExpr { return Call(nil, "Today") }

// Math functions.

// Abs returns |x|.
func Abs(x Node) *CallExpr { return Call(nil, "Abs", x) }

// Ceiling returns the least integer not less than x.
func Ceiling(x Node) *CallExpr { return Call(nil, "Ceiling", x) }

// Floor returns the greatest integer not greater than x.
func Floor(x Node) *CallExpr { return Call(nil, "Floor", x) }

// Round rounds x, optionally to the given number of digits.
func Round(x Node, digits ...Node) *CallExpr {
	return Call(nil, "Round", append([]Node{x}, digits...)...)
}

// Sqrt returns the square root of x.
func Sqrt(x Node) *CallExpr { return Call(nil, "Sqrt", x) }

// Pow returns x**y.
func Pow(x, y Node) *CallExpr { return Call(nil, "Pow", x, y) }

// Sign returns the sign of x.
func Sign(x Node) *CallExpr { return Call(nil, "Sign", x) }

// Exp returns e**x.
func Exp(x Node) *CallExpr { return Call(nil, "Exp", x) }

// Log returns the natural logarithm of x.
func Log(x Node) *CallExpr { return Call(nil, "Log", x) }

// Log10 returns the decimal logarithm of x.
func Log10(x Node) *CallExpr { return Call(nil, "Log10", x) }

// Aggregates.

// Count returns COUNT(*).
func Count() *Aggregate { return &Aggregate{Func: AggCount} }

// CountOf returns COUNT(x).
func CountOf(x Node) *Aggregate { return &Aggregate{Func: AggCount, Arg: x} }

// CountDistinct returns COUNT(DISTINCT x).
func CountDistinct(x Node) *Aggregate { return &Aggregate{Func: AggCount, Arg: x, Distinct: true} }

// CountAs returns COUNT(*) cast to t.
func CountAs(t field.Type) *Aggregate { return &Aggregate{Func: AggCount, CastTo: t} }

// Sum returns SUM(x).
func Sum(x Node) *Aggregate { return &Aggregate{Func: AggSum, Arg: x} }

// SumAs returns SUM(x) over x cast to t.
func SumAs(x Node, t field.Type) *Aggregate { return &Aggregate{Func: AggSum, Arg: x, CastTo: t} }

// Avg returns AVG(x).
func Avg(x Node) *Aggregate { return &Aggregate{Func: AggAvg, Arg: x} }

// AvgAs returns AVG(x) over x cast to t.
func AvgAs(x Node, t field.Type) *Aggregate { return &Aggregate{Func: AggAvg, Arg: x, CastTo: t} }

// Max returns MAX(x).
func Max(x Node) *Aggregate { return &Aggregate{Func: AggMax, Arg: x} }

// MaxAs returns MAX(x) over x cast to t.
func MaxAs(x Node, t field.Type) *Aggregate { return &Aggregate{Func: AggMax, Arg: x, CastTo: t} }

// Min returns MIN(x).
func Min(x Node) *Aggregate { return &Aggregate{Func: AggMin, Arg: x} }

// MinAs returns MIN(x) over x cast to t.
func MinAs(x Node, t field.Type) *Aggregate { return &Aggregate{Func: AggMin, Arg: x, CastTo: t} }
