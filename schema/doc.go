// Package schema describes the entities a query is compiled against: the
// table each entity maps to, its fields and key, and the navigations used by
// Include and IncludeMany.
//
//	var User = schema.New("User").Table("sys_user").Fields(
//	    field.Int("Id").Key().AutoIncrement(),
//	    field.String("Name"),
//	).Edges(
//	    edge.Many("Orders", "Order").Ref("BuyerId"),
//	)
//
// A Registry resolves navigation targets and shorthand join keys. It is
// built once and is read-only afterwards:
//
//	reg, err := schema.NewRegistry(User, Order)
//
// Registries can also be loaded from YAML files with Load and LoadFile.
package schema
