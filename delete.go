package veloxql

import (
	"github.com/syssam/veloxql/schema"
)

// Delete is a DELETE statement builder.
type Delete struct {
	q      *Query
	entity *schema.Entity
	keys   []any
}

// Delete starts a DELETE from the table of e.
func (c *Client) Delete(e *schema.Entity) *Delete {
	return &Delete{q: c.From(e), entity: e}
}

// Where adds a predicate. Repeated calls are joined with AND.
func (d *Delete) Where(fn func(Tables) Node) *Delete {
	d.q.Where(fn)
	return d
}

// WhereIf adds a predicate if cond is true.
func (d *Delete) WhereIf(cond bool, fn func(Tables) Node) *Delete {
	d.q.WhereIf(cond, fn)
	return d
}

// WithBy deletes rows by key. A key is a Record holding the key fields, or
// the key value itself for entities with a single key. More than one key
// compiles to one statement per key.
func (d *Delete) WithBy(keys ...any) *Delete {
	if !d.q.mutable("WithBy") {
		return d
	}
	for _, k := range keys {
		if r, ok := k.(Record); ok {
			if err := checkRow(d.entity, r); err != nil {
				d.q.fail(err)
				return d
			}
		}
	}
	d.keys = append(d.keys, keys...)
	return d
}

// Err returns the first error recorded on the statement.
func (d *Delete) Err() error { return d.q.err }

// Compile finalizes and compiles the statement.
func (d *Delete) Compile() (*CompiledStatement, error) {
	if d.q.err != nil {
		return nil, d.q.err
	}
	d.q.frozen = true
	if d.q.plan.Where == nil && len(d.keys) == 0 {
		return nil, NewInvalidClauseStateError("Delete", "missing Where or WithBy")
	}
	stmt, err := d.q.client.newCompiler().delete(d)
	if err != nil {
		return nil, err
	}
	d.q.client.logCompiled("delete", stmt)
	return stmt, nil
}

// ToSQL compiles the statement and returns its SQL text and parameters.
func (d *Delete) ToSQL() (string, []Parameter, error) {
	stmt, err := d.Compile()
	if err != nil {
		return "", nil, err
	}
	return stmt.SQL, stmt.Parameters, nil
}

func (c *compiler) delete(d *Delete) (*CompiledStatement, error) {
	sc := dmlScope(d.q)
	prefix := "DELETE FROM " + c.dialect.QuoteIdentifier(d.entity.TableName()) + " WHERE "
	if len(d.keys) == 0 {
		where, err := c.pred(sc, d.q.plan.Where, "Where")
		if err != nil {
			return nil, err
		}
		return &CompiledStatement{SQL: prefix + where, Parameters: c.binder.params, Statements: 1}, nil
	}
	var where string
	batch := len(d.keys) > 1
	stmts := make([]string, len(d.keys))
	for i, k := range d.keys {
		values, err := keyValues(d.entity, k)
		if err != nil {
			return nil, err
		}
		match, err := c.keyMatch(sc, d.entity, values, i, batch)
		if err != nil {
			return nil, err
		}
		if d.q.plan.Where != nil {
			if i == 0 {
				if where, err = c.pred(sc, d.q.plan.Where, "Where"); err != nil {
					return nil, err
				}
			}
			match += " AND " + parenOr(d.q.plan.Where, where)
		}
		stmts[i] = prefix + match
	}
	return &CompiledStatement{SQL: joinStatements(stmts), Parameters: c.binder.params, Statements: len(stmts)}, nil
}
