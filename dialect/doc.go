// Package dialect provides the database-specific rules the query compiler
// consults: identifier quoting, function mapping, casts, paging and literal
// formatting.
//
// # Supported Dialects
//
// Each dialect is identified by a constant string:
//
//	dialect.MySQL     = "mysql"
//	dialect.Postgres  = "postgres"
//	dialect.SQLite    = "sqlite"
//	dialect.SQLServer = "sqlserver"
//
// # Providers
//
// A Provider is built once per connection profile and is read-only
// afterwards. Providers are looked up by name, there is no global registry:
//
//	p, err := dialect.Lookup(dialect.Postgres)
//	p.QuoteIdentifier("sys_user")          // "sys_user"
//	p.MapFunction("ToUpper", 1)            // UPPER({0})
//	p.PagingClause(intp(10), intp(20))     // LIMIT 20 OFFSET 10
//
// # Function Templates
//
// MapFunction returns a template whose {0}, {1}, ... placeholders are
// replaced with the rendered arguments by Expand:
//
//	dialect.Expand("LOCATE({1},{0})-1", []string{"`Name`", "'x'"})
//	// LOCATE('x',`Name`)-1
package dialect
