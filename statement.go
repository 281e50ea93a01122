package veloxql

import "strings"

// Record is a row object. It is the input of WithBy and Insert and the
// output of the execution adapter. Keys are field names.
type Record map[string]any

// OutputField is one column of a compiled SELECT list. Navigation is the
// include path the column belongs to, empty for columns of the root shape.
type OutputField struct {
	Name       string
	Navigation string
}

// ProjectionSpec tells a materializer how to bind result columns to output
// fields. Fields are in SELECT list order.
type ProjectionSpec struct {
	Shape  string
	Fields []OutputField
}

// Index returns the position of the named field of a navigation, or -1.
func (p *ProjectionSpec) Index(navigation, name string) int {
	if p == nil {
		return -1
	}
	for i, f := range p.Fields {
		if f.Navigation == navigation && f.Name == name {
			return i
		}
	}
	return -1
}

// CompiledStatement is the output of compiling a query or DML statement.
type CompiledStatement struct {
	SQL        string
	Parameters []Parameter
	// Projection is nil for DML statements.
	Projection *ProjectionSpec
	// Includes are the deferred collection loads the caller runs after the
	// main query, each compiled with IncludeSpec.Compile.
	Includes []*IncludeSpec
	// Statements is the number of semicolon-separated statements in SQL.
	Statements int
}

// Parameter returns the bound parameter with the given name.
func (s *CompiledStatement) Parameter(name string) (Parameter, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Values returns the parameter values in binding order.
func (s *CompiledStatement) Values() []any {
	vs := make([]any, len(s.Parameters))
	for i, p := range s.Parameters {
		vs[i] = p.Value
	}
	return vs
}

// String returns the SQL text.
func (s *CompiledStatement) String() string {
	return s.SQL
}

// joinStatements joins batch statements.
func joinStatements(stmts []string) string {
	return strings.Join(stmts, ";")
}
