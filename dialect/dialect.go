package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/veloxql/schema/field"
)

// Dialect names.
const (
	MySQL     = "mysql"
	Postgres  = "postgres"
	SQLite    = "sqlite"
	SQLServer = "sqlserver"
)

// Feature is an optional capability of a dialect.
type Feature uint

// Dialect features.
const (
	// FeatureCTE is support for WITH clauses.
	FeatureCTE Feature = 1 << iota
	// FeatureRecursiveCTE is support for self-referencing CTE bodies.
	FeatureRecursiveCTE
	// FeatureRecursiveKeyword reports if recursive CTEs need WITH RECURSIVE.
	FeatureRecursiveKeyword
	// FeatureUpsert is support for row-level insert-or-update syntax.
	FeatureUpsert
	// FeatureTop renders take-only paging as SELECT TOP n.
	FeatureTop
	// FeatureOffsetRequiresOrder reports if OFFSET needs an ORDER BY clause.
	FeatureOffsetRequiresOrder
)

// Provider supplies the database-specific rules of one dialect.
type Provider interface {
	// Name returns the dialect name.
	Name() string
	// QuoteIdentifier quotes a table, column or CTE name.
	QuoteIdentifier(name string) string
	// MapFunction returns the SQL template of a canonical function with
	// argc arguments.
	MapFunction(name string, argc int) (string, bool)
	// CastTypeName returns the type name used in CAST(x AS <type>).
	CastTypeName(t field.Type) (string, bool)
	// PagingClause returns the trailing paging fragment, or an empty string.
	PagingClause(skip, take *int) string
	// SupportsFeature reports if the dialect supports the given feature.
	SupportsFeature(f Feature) bool
	// Placeholder returns the SQL text of the named parameter.
	Placeholder(name string) string
	// Literals returns the rules for formatting inlined literals.
	Literals() LiteralStyle
	// Upsert renders the conflict clause of an INSERT statement.
	Upsert(keys, columns []string) string
}

// LiteralStyle holds the literal formatting rules of a dialect.
type LiteralStyle struct {
	True, False string
	TimeLayout  string
	QuoteString func(string) string
	FormatBytes func([]byte) string
}

// Lookup returns a new provider for the dialect name.
func Lookup(name string) (Provider, error) {
	switch name {
	case MySQL:
		return NewMySQL(), nil
	case Postgres, "postgresql", "pgx":
		return NewPostgres(), nil
	case SQLite, "sqlite3":
		return NewSQLite(), nil
	case SQLServer, "mssql":
		return NewSQLServer(), nil
	default:
		return nil, fmt.Errorf("dialect: unsupported dialect %q", name)
	}
}

// provider is a table-driven Provider implementation shared by the
// built-in dialects.
type provider struct {
	name     string
	quote    func(string) string
	funcs    map[string]string
	variadic map[string]func(argc int) string
	casts    map[field.Type]string
	paging   func(skip, take *int) string
	features Feature
	literals LiteralStyle
	upsert   func(keys, columns []string, quote func(string) string) string
}

func (p *provider) Name() string                       { return p.name }
func (p *provider) QuoteIdentifier(name string) string { return p.quote(name) }
func (p *provider) SupportsFeature(f Feature) bool     { return p.features&f == f }
func (p *provider) Placeholder(name string) string     { return "@" + name }
func (p *provider) Literals() LiteralStyle             { return p.literals }

func (p *provider) MapFunction(name string, argc int) (string, bool) {
	if tmpl, ok := p.funcs[name+"/"+strconv.Itoa(argc)]; ok {
		return tmpl, true
	}
	if gen, ok := p.variadic[name]; ok && argc > 0 {
		return gen(argc), true
	}
	return "", false
}

func (p *provider) CastTypeName(t field.Type) (string, bool) {
	s, ok := p.casts[t]
	return s, ok
}

func (p *provider) PagingClause(skip, take *int) string {
	if skip == nil && take == nil {
		return ""
	}
	return p.paging(skip, take)
}

func (p *provider) Upsert(keys, columns []string) string {
	if p.upsert == nil {
		return ""
	}
	return p.upsert(keys, columns, p.quote)
}

// Expand replaces the {i} placeholders of a function template with args.
func Expand(tmpl string, args []string) string {
	var b strings.Builder
	b.Grow(len(tmpl))
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] == '{' {
			if j := strings.IndexByte(tmpl[i:], '}'); j > 1 {
				if n, err := strconv.Atoi(tmpl[i+1 : i+j]); err == nil && n >= 0 && n < len(args) {
					b.WriteString(args[n])
					i += j
					continue
				}
			}
		}
		b.WriteByte(tmpl[i])
	}
	return b.String()
}

// joinArgs renders "{0}<sep>{1}<sep>...{argc-1}".
func joinArgs(argc int, sep string) string {
	parts := make([]string, argc)
	for i := range parts {
		parts[i] = "{" + strconv.Itoa(i) + "}"
	}
	return strings.Join(parts, sep)
}

func limitOffset(maxLimit string) func(skip, take *int) string {
	return func(skip, take *int) string {
		switch {
		case take != nil && skip != nil:
			return fmt.Sprintf("LIMIT %d OFFSET %d", *take, *skip)
		case take != nil:
			return fmt.Sprintf("LIMIT %d", *take)
		case maxLimit != "":
			return fmt.Sprintf("LIMIT %s OFFSET %d", maxLimit, *skip)
		default:
			return fmt.Sprintf("OFFSET %d", *skip)
		}
	}
}

func quoteWith(open, close string) func(string) string {
	return func(name string) string {
		return open + strings.ReplaceAll(name, close, close+close) + close
	}
}

func quoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func hexBytes(prefix, suffix string) func([]byte) string {
	return func(b []byte) string {
		return fmt.Sprintf("%s%X%s", prefix, b, suffix)
	}
}
