package veloxql

import (
	"fmt"
	"strconv"

	"github.com/syssam/veloxql/schema"
	"github.com/syssam/veloxql/schema/field"
)

// dmlScope returns the scope of a DML statement over the root source of q.
// Columns are qualified by table name when the statement nests a query.
func dmlScope(q *Query) *scope {
	sub := planHasSubquery(q.plan)
	return &scope{plan: q.plan, qualify: sub, byTable: sub}
}

// batchName returns the parameter name of a row value. Batches suffix the
// row index.
func batchName(name string, row int, batch bool) string {
	if !batch {
		return name
	}
	return name + strconv.Itoa(row)
}

// keyValues returns the key values of a row, in key order. A scalar is
// accepted for entities with a single key.
func keyValues(e *schema.Entity, row any) ([]any, error) {
	keys := e.Keys()
	if len(keys) == 0 {
		return nil, NewInvalidClauseStateError("WithBy", fmt.Sprintf("entity %q has no key fields", e.Name()))
	}
	r, ok := row.(Record)
	if !ok {
		if m, isMap := row.(map[string]any); isMap {
			r, ok = Record(m), true
		}
	}
	if !ok {
		if len(keys) != 1 {
			return nil, NewInvalidClauseStateError("WithBy", fmt.Sprintf("entity %q has a composite key, rows must be records", e.Name()))
		}
		return []any{row}, nil
	}
	values := make([]any, len(keys))
	for i, k := range keys {
		v, ok := r[k.Name]
		if !ok {
			return nil, NewInvalidClauseStateError("WithBy", fmt.Sprintf("row has no value for key %q", k.Name))
		}
		values[i] = v
	}
	return values, nil
}

// checkRow validates the field names of a row.
func checkRow(e *schema.Entity, r Record) error {
	for name := range r {
		if _, ok := e.Field(name); !ok {
			return &AliasResolutionError{Table: e.Name(), Field: name, Path: "WithBy"}
		}
	}
	return nil
}

// keyMatch renders the key predicate of one row: `Id`=@kId.
func (c *compiler) keyMatch(sc *scope, e *schema.Entity, values []any, row int, batch bool) (string, error) {
	var s string
	for i, k := range e.Keys() {
		col, _, err := c.column(sc, sc.plan.Tables[0].handle.Col(k.Name), "WithBy")
		if err != nil {
			return "", err
		}
		ph, err := c.binder.bindNamed(batchName("k"+k.Name, row, batch), values[i], k, batch, "WithBy/"+k.Name)
		if err != nil {
			return "", err
		}
		if i > 0 {
			s += " AND "
		}
		s += col + "=" + ph
	}
	return s, nil
}

// rowFields returns the fields of a row in entity order, skipping keys and
// the excluded names.
func rowFields(e *schema.Entity, r Record, exclude map[string]bool) []*field.Descriptor {
	var fields []*field.Descriptor
	for _, f := range e.FieldList() {
		if _, ok := r[f.Name]; ok && !f.Key && !exclude[f.Name] {
			fields = append(fields, f)
		}
	}
	return fields
}
