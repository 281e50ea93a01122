package veloxql

import "fmt"

// Cte is a named common table expression. It is used as a source with
// FromWith, joined like a table, or appended with NextWith.
type Cte struct {
	def *CteDefinition
	err error
}

// Cte returns a common table expression over body. Columns default to the
// output names of body.
func (c *Client) Cte(name string, body *Query, columns ...string) *Cte {
	cte := &Cte{def: &CteDefinition{Name: name, Columns: columns}}
	switch {
	case name == "":
		cte.err = NewInvalidClauseStateError("Cte", "missing name")
	case body == nil:
		cte.err = NewInvalidClauseStateError("Cte", fmt.Sprintf("%s: nil body", name))
	case body.err != nil:
		cte.err = body.err
	default:
		body.frozen = true
		cte.def.Anchor = body.plan
		if len(columns) > 0 && len(columns) != len(body.plan.columnNames()) {
			cte.err = NewInvalidClauseStateError("Cte", fmt.Sprintf("%s: %d columns for %d outputs", name, len(columns), len(body.plan.columnNames())))
		}
	}
	return cte
}

// CteRecursive returns a recursive common table expression. The rows of
// anchor seed it and member is evaluated against the rows produced so far,
// joined as self.
func (c *Client) CteRecursive(name string, anchor *Query, member func(self *Cte) *Query) *Cte {
	cte := c.Cte(name, anchor)
	if cte.err != nil {
		return cte
	}
	cte.def.Recursive = true
	m := member(cte)
	switch {
	case m == nil:
		cte.err = NewInvalidClauseStateError("CteRecursive", fmt.Sprintf("%s: nil recursive member", name))
	case m.err != nil:
		cte.err = m.err
	case len(m.plan.columnNames()) != len(cte.def.columnNames()):
		cte.err = NewInvalidClauseStateError("CteRecursive", fmt.Sprintf("%s: recursive member has %d columns, anchor has %d", name, len(m.plan.columnNames()), len(cte.def.columnNames())))
	default:
		m.frozen = true
		cte.def.RecursiveMember = m.plan
	}
	return cte
}

// Name returns the name of the expression.
func (c *Cte) Name() string { return c.def.Name }

// Definition returns the clause model of the expression.
func (c *Cte) Definition() *CteDefinition { return c.def }

// Err returns the error recorded while building the expression.
func (c *Cte) Err() error {
	if c == nil {
		return NewInvalidClauseStateError("With", "nil common table expression")
	}
	return c.err
}
