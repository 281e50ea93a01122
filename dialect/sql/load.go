package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/veloxql"
)

// loadIncludes runs the deferred collection queries of a statement and
// attaches their rows to the parent records under the navigation name.
// The queries run concurrently; parents are stitched after all of them
// succeed, so a failure leaves the records untouched.
func (c Conn) loadIncludes(ctx context.Context, incs []*veloxql.IncludeSpec, records []veloxql.Record) error {
	if len(incs) == 0 || len(records) == 0 {
		return nil
	}
	var (
		parents = make([][]veloxql.Record, len(incs))
		results = make([][]veloxql.Record, len(incs))
	)
	g, gctx := errgroup.WithContext(ctx)
	// A transaction is bound to one connection.
	if _, ok := c.ExecQuerier.(*sql.Tx); ok {
		g.SetLimit(1)
	}
	for i, inc := range incs {
		parent, _ := splitPath(inc.Path)
		parents[i] = navigate(records, parent)
		keys := distinctKeys(parents[i], inc.ParentKeys)
		if len(keys) == 0 {
			continue
		}
		g.Go(func() error {
			stmt, err := inc.Compile(keys)
			if err != nil {
				return fmt.Errorf("dialect/sql: include %s: %w", inc.Path, err)
			}
			rs, err := c.Query(gctx, stmt)
			if err != nil {
				return fmt.Errorf("dialect/sql: include %s: %w", inc.Path, err)
			}
			results[i] = rs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, inc := range incs {
		stitch(parents[i], results[i], inc)
	}
	return nil
}

// distinctKeys returns the key tuples of the records, in first-seen order.
func distinctKeys(rs []veloxql.Record, fields []string) [][]any {
	var (
		keys [][]any
		seen = make(map[string]bool)
	)
	for _, r := range rs {
		tuple := make([]any, len(fields))
		null := false
		for i, f := range fields {
			tuple[i] = r[f]
			null = null || r[f] == nil
		}
		k := keyString(tuple)
		if null || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, tuple)
	}
	return keys
}

// stitch sets the collection of every parent. Parents without children get
// an empty collection.
func stitch(parents, children []veloxql.Record, inc *veloxql.IncludeSpec) {
	groups := make(map[string][]veloxql.Record)
	for _, child := range children {
		k := keyString(tupleOf(child, inc.TargetKeys))
		groups[k] = append(groups[k], child)
	}
	for _, p := range parents {
		rs := groups[keyString(tupleOf(p, inc.ParentKeys))]
		if rs == nil {
			rs = []veloxql.Record{}
		}
		p[inc.Name] = rs
	}
}

func tupleOf(r veloxql.Record, fields []string) []any {
	tuple := make([]any, len(fields))
	for i, f := range fields {
		tuple[i] = r[f]
	}
	return tuple
}

// keyString renders a key tuple for matching. Drivers may report the same
// key as a number or as text depending on the protocol, so values are
// compared by their text.
func keyString(tuple []any) string {
	parts := make([]string, len(tuple))
	for i, v := range tuple {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "\x00")
}
