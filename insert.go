package veloxql

import (
	"fmt"
	"strings"

	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/schema"
	"github.com/syssam/veloxql/schema/field"
)

// Insert is an INSERT statement builder.
type Insert struct {
	q        *Query
	entity   *schema.Entity
	rows     []Record
	upsert   bool
	onUpdate []string
}

// Insert starts an INSERT into the table of e.
func (c *Client) Insert(e *schema.Entity) *Insert {
	return &Insert{q: c.From(e), entity: e}
}

// Values appends rows. Every row must set the same fields. Auto-increment
// keys may be left out.
func (in *Insert) Values(rows ...Record) *Insert {
	if !in.q.mutable("Values") {
		return in
	}
	for _, r := range rows {
		if err := checkRow(in.entity, r); err != nil {
			in.q.fail(err)
			return in
		}
	}
	in.rows = append(in.rows, rows...)
	return in
}

// OnConflictUpdate turns the insert into an upsert. Rows that conflict on
// the key update the given fields, or every inserted non-key field when
// none are given.
func (in *Insert) OnConflictUpdate(fields ...string) *Insert {
	if !in.q.mutable("OnConflictUpdate") {
		return in
	}
	for _, name := range fields {
		if _, ok := in.entity.Field(name); !ok {
			in.q.fail(&AliasResolutionError{Table: in.entity.Name(), Field: name, Path: "OnConflictUpdate"})
			return in
		}
	}
	in.upsert, in.onUpdate = true, fields
	return in
}

// Err returns the first error recorded on the statement.
func (in *Insert) Err() error { return in.q.err }

// Compile finalizes and compiles the statement.
func (in *Insert) Compile() (*CompiledStatement, error) {
	if in.q.err != nil {
		return nil, in.q.err
	}
	in.q.frozen = true
	if len(in.rows) == 0 {
		return nil, NewInvalidClauseStateError("Insert", "no rows")
	}
	stmt, err := in.q.client.newCompiler().insert(in)
	if err != nil {
		return nil, err
	}
	in.q.client.logCompiled("insert", stmt)
	return stmt, nil
}

// ToSQL compiles the statement and returns its SQL text and parameters.
func (in *Insert) ToSQL() (string, []Parameter, error) {
	stmt, err := in.Compile()
	if err != nil {
		return "", nil, err
	}
	return stmt.SQL, stmt.Parameters, nil
}

// insertFields returns the columns of an insert: the fields set by the
// first row, in entity order.
func insertFields(e *schema.Entity, rows []Record) ([]*field.Descriptor, error) {
	var fields []*field.Descriptor
	for _, f := range e.FieldList() {
		if _, ok := rows[0][f.Name]; ok {
			fields = append(fields, f)
		} else if f.Key && !f.AutoIncrement {
			return nil, NewInvalidClauseStateError("Insert", fmt.Sprintf("missing value for key %q", f.Name))
		}
	}
	for i, r := range rows[1:] {
		if len(r) != len(fields) {
			return nil, NewInvalidClauseStateError("Insert", fmt.Sprintf("row %d sets %d fields, row 0 sets %d", i+1, len(r), len(fields)))
		}
		for _, f := range fields {
			if _, ok := r[f.Name]; !ok {
				return nil, NewInvalidClauseStateError("Insert", fmt.Sprintf("row %d has no value for %q", i+1, f.Name))
			}
		}
	}
	return fields, nil
}

func (c *compiler) insert(in *Insert) (*CompiledStatement, error) {
	fields, err := insertFields(in.entity, in.rows)
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = c.dialect.QuoteIdentifier(f.ColumnName())
	}
	batch := len(in.rows) > 1
	tuples := make([]string, len(in.rows))
	for i, r := range in.rows {
		phs := make([]string, len(fields))
		for j, f := range fields {
			if phs[j], err = c.binder.bindNamed(batchName(f.Name, i, batch), r[f.Name], f, batch, "Values/"+f.Name); err != nil {
				return nil, err
			}
		}
		tuples[i] = "(" + strings.Join(phs, ",") + ")"
	}
	sql := "INSERT INTO " + c.dialect.QuoteIdentifier(in.entity.TableName()) +
		" (" + strings.Join(cols, ",") + ") VALUES " + strings.Join(tuples, ",")
	if in.upsert {
		clause, err := c.upsert(in, fields)
		if err != nil {
			return nil, err
		}
		sql += " " + clause
	}
	return &CompiledStatement{SQL: sql, Parameters: c.binder.params, Statements: 1}, nil
}

func (c *compiler) upsert(in *Insert, inserted []*field.Descriptor) (string, error) {
	if !c.dialect.SupportsFeature(dialect.FeatureUpsert) {
		return "", NewInvalidClauseStateError("OnConflictUpdate", c.dialect.Name()+" does not support upserts")
	}
	var keys, columns []string
	for _, k := range in.entity.Keys() {
		keys = append(keys, k.ColumnName())
	}
	if len(in.onUpdate) > 0 {
		for _, name := range in.onUpdate {
			f, _ := in.entity.Field(name)
			columns = append(columns, f.ColumnName())
		}
	} else {
		for _, f := range inserted {
			if !f.Key {
				columns = append(columns, f.ColumnName())
			}
		}
	}
	return c.dialect.Upsert(keys, columns), nil
}
