package sql

import (
	"fmt"
	"strings"

	"github.com/syssam/veloxql"
)

// scanRecords reads the rows into records shaped by spec. Columns tagged
// with a navigation are nested under it, one record per path element. A
// navigation whose columns are all NULL is nil.
func scanRecords(rows ColumnScanner, spec *veloxql.ProjectionSpec) ([]veloxql.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if spec != nil && len(spec.Fields) != len(columns) {
		return nil, fmt.Errorf("projection has %d fields, result has %d columns", len(spec.Fields), len(columns))
	}
	var records []veloxql.Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		records = append(records, shape(columns, values, spec))
	}
	return records, rows.Err()
}

func shape(columns []string, values []any, spec *veloxql.ProjectionSpec) veloxql.Record {
	var (
		root  = make(veloxql.Record, len(columns))
		navs  = make(map[string]veloxql.Record)
		valid = make(map[string]bool)
		order []string
	)
	var nested func(path string) veloxql.Record
	nested = func(path string) veloxql.Record {
		if path == "" {
			return root
		}
		if r, ok := navs[path]; ok {
			return r
		}
		parent, name := splitPath(path)
		r := make(veloxql.Record)
		nested(parent)[name] = r
		navs[path] = r
		order = append(order, path)
		return r
	}
	for i, v := range values {
		name, nav := columns[i], ""
		if spec != nil {
			f := spec.Fields[i]
			if f.Name != "" {
				name = f.Name
			}
			nav = f.Navigation
		}
		nested(nav)[name] = v
		if v != nil {
			valid[nav] = true
		}
	}
	for _, path := range order {
		if !valid[path] {
			parent, name := splitPath(path)
			nested(parent)[name] = nil
		}
	}
	return root
}

// splitPath splits a navigation path into its parent path and last name.
func splitPath(path string) (string, string) {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

// navigate returns the records reached from rs by a navigation path.
// Missing and nil navigations are skipped.
func navigate(rs []veloxql.Record, path string) []veloxql.Record {
	if path == "" {
		return rs
	}
	for _, name := range strings.Split(path, ".") {
		var next []veloxql.Record
		for _, r := range rs {
			if n, ok := r[name].(veloxql.Record); ok && n != nil {
				next = append(next, n)
			}
		}
		rs = next
	}
	return rs
}
