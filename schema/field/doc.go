// Package field provides fluent builders for declaring entity fields.
//
// A field has a logical name, used by expressions and projections, and a
// column name, used in emitted SQL. The column defaults to the name:
//
//	field.Int("Id").Key().AutoIncrement()   // column "Id"
//	field.String("Name").Column("user_name")
//	field.Enum("Status").AsString()          // bound by member name
//	field.Time("DeletedAt").Nullable()
//
package field
