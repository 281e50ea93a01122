// Package gen generates Go declarations for a veloxql schema.
//
// For a registry loaded from a YAML schema file the generator writes:
//
//	registry.go       one variable per entity and a Registry function
//	<entity>.go       field and navigation name constants, and a typed
//	                  view of the entity table in a query
//
// The typed view replaces string column names in lambdas:
//
//	client.From(model.Order).
//	    Where(func(t veloxql.Tables) veloxql.Node {
//	        return model.OrderOf(t[0]).State().EQ(veloxql.Const("Paid"))
//	    }).
//	    Include(model.OrderEdgeBuyer)
//
// Files are rendered with github.com/dave/jennifer, in parallel.
//
// # Error Handling
//
//   - SchemaError: an identifier is not valid Go or collides
//   - ConfigError: an invalid option
//   - GenerationError: a file could not be rendered or written
//
// Each matches its sentinel with errors.Is:
//
//	if errors.Is(err, gen.ErrInvalidSchema) {
//	    // rename the entity or field
//	}
package gen
