// Package sql runs veloxql compiled statements over database/sql.
//
// The compiler emits @name parameters in every dialect. Before a statement
// reaches the driver it is rebound to the driver's placeholder style:
//
//	postgres         WHERE "Id"=$1
//	mysql, sqlite    WHERE `Id`=?
//	sqlserver        WHERE [Id]=@p0 with sql.Named arguments
//
// # Reading
//
// Query materializes rows into veloxql.Record values using the projection
// of the statement. Columns of a joined include are nested under the
// navigation name, and a LEFT JOIN that matched no row yields nil:
//
//	drv, _ := sql.Open("mysql", dsn)
//	orders, err := drv.All(ctx, client.From(order).Include("Buyer").IncludeMany("Details"))
//	buyer := orders[0]["Buyer"].(veloxql.Record)
//	details := orders[0]["Details"].([]veloxql.Record)
//
// Deferred collections are loaded with one query per include, run
// concurrently, and stitched to their parents by key.
//
// # Writing
//
// Exec runs a DML statement. Batch statements from WithBy run one
// statement at a time inside a transaction.
//
// # Statistics
//
// StatsDriver counts statements and reports slow ones through log/slog.
// Constraint violations are returned as *ConstraintError.
package sql
