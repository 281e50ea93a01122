package veloxql

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/schema/field"
)

// callArgs returns the receiver followed by the arguments of a call.
func callArgs(x *CallExpr) []Node {
	if x.Target == nil {
		return x.Args
	}
	return append([]Node{x.Target}, x.Args...)
}

func (c *compiler) call(sc *scope, x *CallExpr, path string) (string, error) {
	args := callArgs(x)
	switch x.Name {
	case "Contains", "StartsWith", "EndsWith":
		return c.like(sc, x, path, false)
	case "CompareTo", "Compare":
		if len(args) != 2 {
			return "", unsupported(x, path, "expects two operands")
		}
		return c.compare(sc, args[0], args[1], path)
	case "Equals":
		if len(args) != 2 {
			return "", unsupported(x, path, "expects two operands")
		}
		return c.comparison(sc, EQ(args[0], args[1]), path)
	case "ToString":
		if len(args) != 1 {
			return "", unsupported(x, path, "expects one operand")
		}
		return c.expr(sc, Cast(args[0], field.TypeString), path, nil)
	case "Concat":
		return c.concat(sc, args, path)
	case "Substring":
		// Positions are zero-based in expressions and one-based in SQL.
		if len(args) >= 2 {
			args = append([]Node(nil), args...)
			if n, ok := constInt(args[1]); ok {
				args[1] = Const(n + 1)
			} else {
				args[1] = Add(args[1], Const(1))
			}
		}
	}
	tmpl, ok := c.dialect.MapFunction(x.Name, len(args))
	if !ok {
		return "", unsupported(x, path, "no "+c.dialect.Name()+" mapping with "+strconv.Itoa(len(args))+" arguments")
	}
	return c.apply(sc, tmpl, args, path)
}

// apply renders a function template. Arguments that are compound
// expressions are parenthesized unless they fill a whole argument slot of
// the template.
func (c *compiler) apply(sc *scope, tmpl string, args []Node, path string) (string, error) {
	rendered := make([]string, len(args))
	for i, a := range args {
		s, err := c.expr(sc, a, path+"/Arg"+strconv.Itoa(i), nil)
		if err != nil {
			return "", err
		}
		if c.precedence(a) < 8 && !slotted(tmpl, i) {
			s = "(" + s + ")"
		}
		rendered[i] = s
	}
	return dialect.Expand(tmpl, rendered), nil
}

// slotted reports if every occurrence of {i} in tmpl is delimited by
// parentheses or commas.
func slotted(tmpl string, i int) bool {
	ph := "{" + strconv.Itoa(i) + "}"
	for rest, off := tmpl, 0; ; {
		j := strings.Index(rest, ph)
		if j < 0 {
			return true
		}
		at := off + j
		end := at + len(ph)
		if at == 0 || !strings.ContainsRune("(,", rune(tmpl[at-1])) {
			return false
		}
		if end >= len(tmpl) || !strings.ContainsRune("),", rune(tmpl[end])) {
			return false
		}
		rest, off = tmpl[end:], end
	}
}

func (c *compiler) concat(sc *scope, parts []Node, path string) (string, error) {
	if len(parts) == 1 {
		return c.expr(sc, parts[0], path, nil)
	}
	tmpl, ok := c.dialect.MapFunction("Concat", len(parts))
	if !ok {
		return "", unsupported(Concat(parts...), path, "no string concatenation in "+c.dialect.Name())
	}
	return c.apply(sc, tmpl, parts, path)
}

// like lowers the substring matches. Constant patterns are inlined, other
// patterns are concatenated with the wildcards.
func (c *compiler) like(sc *scope, x *CallExpr, path string, not bool) (string, error) {
	args := callArgs(x)
	if len(args) != 2 {
		return "", unsupported(x, path, "expects two operands")
	}
	lhs, err := c.operand(sc, args[0], path, nil, OpEQ.precedence()+1)
	if err != nil {
		return "", err
	}
	prefix, suffix := "%", "%"
	switch x.Name {
	case "StartsWith":
		prefix = ""
	case "EndsWith":
		suffix = ""
	}
	var pattern string
	if k, ok := args[1].(*Constant); ok {
		s, ok := k.Value.(string)
		if !ok {
			return "", unsupported(x, path, "pattern must be a string")
		}
		pattern = c.dialect.Literals().QuoteString(prefix + s + suffix)
	} else {
		var parts []Node
		if prefix != "" {
			parts = append(parts, &Constant{Value: prefix})
		}
		parts = append(parts, args[1])
		if suffix != "" {
			parts = append(parts, &Constant{Value: suffix})
		}
		if pattern, err = c.concat(sc, parts, path); err != nil {
			return "", err
		}
	}
	if not {
		return lhs + " NOT LIKE " + pattern, nil
	}
	return lhs + " LIKE " + pattern, nil
}

func (c *compiler) compare(sc *scope, a, b Node, path string) (string, error) {
	lhint, rhint := c.fieldOf(sc, a), c.fieldOf(sc, b)
	l, err := c.operand(sc, a, path+"/Left", rhint, OpEQ.precedence()+1)
	if err != nil {
		return "", err
	}
	r, err := c.operand(sc, b, path+"/Right", lhint, OpEQ.precedence()+1)
	if err != nil {
		return "", err
	}
	return "CASE WHEN " + l + "=" + r + " THEN 0 WHEN " + l + ">" + r + " THEN 1 ELSE -1 END", nil
}

func (c *compiler) aggregate(sc *scope, x *Aggregate, path string) (string, error) {
	path += "/" + x.Func.String()
	var cast string
	if x.CastTo != field.TypeInvalid {
		name, ok := c.dialect.CastTypeName(x.CastTo)
		if !ok {
			return "", unsupported(x, path, "no cast target for "+x.CastTo.String())
		}
		cast = name
	}
	if x.Arg == nil {
		if x.Func != AggCount {
			return "", unsupported(x, path, "aggregate needs an argument")
		}
		if cast != "" {
			return "CAST(COUNT(*) AS " + cast + ")", nil
		}
		return "COUNT(*)", nil
	}
	arg, err := c.expr(sc, x.Arg, path, nil)
	if err != nil {
		return "", err
	}
	if cast != "" {
		arg = "CAST(" + arg + " AS " + cast + ")"
	}
	if x.Distinct {
		arg = "DISTINCT " + arg
	}
	return x.Func.String() + "(" + arg + ")", nil
}

// constInt returns the integer value of a constant node.
func constInt(n Node) (int64, bool) {
	k, ok := n.(*Constant)
	if !ok || k.Value == nil {
		return 0, false
	}
	rv := reflect.ValueOf(k.Value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()), true
	}
	return 0, false
}
