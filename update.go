package veloxql

import (
	"fmt"
	"strings"

	"github.com/syssam/veloxql/schema"
	"github.com/syssam/veloxql/schema/field"
)

// Update is an UPDATE statement builder.
type Update struct {
	q      *Query
	entity *schema.Entity
	sets   []assignment
	rows   []Record
}

// assignment is one SET term. Exactly one of value and expr is used.
type assignment struct {
	field *field.Descriptor
	value any
	expr  Node
}

// Update starts an UPDATE of the table of e.
func (c *Client) Update(e *schema.Entity) *Update {
	return &Update{q: c.From(e), entity: e}
}

func (u *Update) lookup(clause, name string) *field.Descriptor {
	if u.q.err != nil {
		return nil
	}
	f, ok := u.entity.Field(name)
	if !ok {
		u.q.fail(&AliasResolutionError{Table: u.entity.Name(), Field: name, Path: clause})
		return nil
	}
	if f.Key {
		u.q.fail(NewInvalidClauseStateError(clause, fmt.Sprintf("key field %q cannot be assigned", name)))
		return nil
	}
	return f
}

func (u *Update) assign(clause, name string, a assignment) *Update {
	if !u.q.mutable(clause) {
		return u
	}
	if a.field = u.lookup(clause, name); a.field == nil {
		return u
	}
	for i, s := range u.sets {
		if s.field == a.field {
			u.sets[i] = a
			return u
		}
	}
	u.sets = append(u.sets, a)
	return u
}

// Set assigns a value to a field. The value is bound as @Field and shared
// by every row of a batch.
func (u *Update) Set(name string, value any) *Update {
	return u.assign("Set", name, assignment{value: value})
}

// SetExpr assigns the result of an expression to a field.
func (u *Update) SetExpr(name string, fn func(Tables) Node) *Update {
	if u.q.err != nil {
		return u
	}
	return u.assign("SetExpr", name, assignment{expr: fn(u.q.tables)})
}

// SetIf assigns a value to a field if cond is true.
func (u *Update) SetIf(cond bool, name string, value any) *Update {
	if !cond {
		return u
	}
	return u.Set(name, value)
}

// Where adds a predicate. Repeated calls are joined with AND.
func (u *Update) Where(fn func(Tables) Node) *Update {
	u.q.Where(fn)
	return u
}

// WhereIf adds a predicate if cond is true.
func (u *Update) WhereIf(cond bool, fn func(Tables) Node) *Update {
	u.q.WhereIf(cond, fn)
	return u
}

// WithBy updates rows by key. Every non-key field present in a row is
// assigned, unless Set assigns it. More than one row compiles to one
// statement per row with index-suffixed parameters.
func (u *Update) WithBy(rows ...Record) *Update {
	if !u.q.mutable("WithBy") {
		return u
	}
	for _, r := range rows {
		if err := checkRow(u.entity, r); err != nil {
			u.q.fail(err)
			return u
		}
	}
	u.rows = append(u.rows, rows...)
	return u
}

// Err returns the first error recorded on the statement.
func (u *Update) Err() error { return u.q.err }

// Compile finalizes and compiles the statement.
func (u *Update) Compile() (*CompiledStatement, error) {
	if u.q.err != nil {
		return nil, u.q.err
	}
	u.q.frozen = true
	if u.q.plan.Where == nil && len(u.rows) == 0 {
		return nil, NewInvalidClauseStateError("Update", "missing Where or WithBy")
	}
	stmt, err := u.q.client.newCompiler().update(u)
	if err != nil {
		return nil, err
	}
	u.q.client.logCompiled("update", stmt)
	return stmt, nil
}

// ToSQL compiles the statement and returns its SQL text and parameters.
func (u *Update) ToSQL() (string, []Parameter, error) {
	stmt, err := u.Compile()
	if err != nil {
		return "", nil, err
	}
	return stmt.SQL, stmt.Parameters, nil
}

func (c *compiler) update(u *Update) (*CompiledStatement, error) {
	sc := dmlScope(u.q)
	table := c.dialect.QuoteIdentifier(u.entity.TableName())
	// Shared assignments are translated once, before the rows.
	shared := make([]string, len(u.sets))
	assigned := make(map[string]bool, len(u.sets))
	for i, a := range u.sets {
		var (
			v   string
			err error
		)
		if a.expr != nil {
			v, err = c.expr(sc, a.expr, "SetExpr/"+a.field.Name, a.field)
		} else {
			v, err = c.binder.bindNamed(a.field.Name, a.value, a.field, false, "Set/"+a.field.Name)
		}
		if err != nil {
			return nil, err
		}
		shared[i] = c.dialect.QuoteIdentifier(a.field.ColumnName()) + "=" + v
		assigned[a.field.Name] = true
	}
	rows := u.rows
	if len(rows) == 0 {
		if len(shared) == 0 {
			return nil, NewInvalidClauseStateError("Update", "no assignments")
		}
		where, err := c.pred(sc, u.q.plan.Where, "Where")
		if err != nil {
			return nil, err
		}
		return &CompiledStatement{
			SQL:        "UPDATE " + table + " SET " + strings.Join(shared, ",") + " WHERE " + where,
			Parameters: c.binder.params,
			Statements: 1,
		}, nil
	}
	var where string
	stmts := make([]string, len(rows))
	batch := len(rows) > 1
	for i, r := range rows {
		sets := append([]string(nil), shared...)
		for _, f := range rowFields(u.entity, r, assigned) {
			ph, err := c.binder.bindNamed(batchName(f.Name, i, batch), r[f.Name], f, batch, "WithBy/"+f.Name)
			if err != nil {
				return nil, err
			}
			sets = append(sets, c.dialect.QuoteIdentifier(f.ColumnName())+"="+ph)
		}
		if len(sets) == 0 {
			return nil, NewInvalidClauseStateError("Update", fmt.Sprintf("row %d has no fields to assign", i))
		}
		keys, err := keyValues(u.entity, r)
		if err != nil {
			return nil, err
		}
		match, err := c.keyMatch(sc, u.entity, keys, i, batch)
		if err != nil {
			return nil, err
		}
		if u.q.plan.Where != nil {
			// The predicate is shared by every row and binds where the
			// first statement reads it.
			if i == 0 {
				if where, err = c.pred(sc, u.q.plan.Where, "Where"); err != nil {
					return nil, err
				}
			}
			match += " AND " + parenOr(u.q.plan.Where, where)
		}
		stmts[i] = "UPDATE " + table + " SET " + strings.Join(sets, ",") + " WHERE " + match
	}
	return &CompiledStatement{
		SQL:        joinStatements(stmts),
		Parameters: c.binder.params,
		Statements: len(stmts),
	}, nil
}

// parenOr parenthesizes a rendered predicate that is a disjunction, so it
// can be conjoined.
func parenOr(n Node, s string) string {
	if b, ok := lambdaBody(n).(*Binary); ok && b.Op == OpOr {
		return "(" + s + ")"
	}
	return s
}
