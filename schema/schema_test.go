package schema_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/syssam/veloxql/schema"
	"github.com/syssam/veloxql/schema/edge"
	"github.com/syssam/veloxql/schema/field"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shop() []*schema.Entity {
	return []*schema.Entity{
		schema.New("Order").Fields(
			field.Int("Id").Key().AutoIncrement(),
			field.Int("BuyerId"),
		).Edges(
			edge.Many("Details", "OrderDetail").Ref("OrderId"),
			edge.One("Buyer", "User").Field("BuyerId"),
		),
		schema.New("OrderDetail").Fields(
			field.Int("Id").Key(),
			field.Int("OrderId"),
		),
		schema.New("User").Table("sys_user").Fields(
			field.Int("Id").Key(),
			field.String("Name"),
		),
	}
}

func TestEntity(t *testing.T) {
	e := schema.New("OrderDetail").Fields(
		field.Int("Id").Key(),
		field.Int("OrderId"),
		field.Decimal("Price").Column("unit_price"),
	)
	require.NoError(t, e.Err())
	assert.Equal(t, "OrderDetail", e.Name())
	assert.Equal(t, "order_detail", e.TableName())
	assert.Len(t, e.FieldList(), 3)
	require.Len(t, e.Keys(), 1)
	assert.Equal(t, "Id", e.Keys()[0].Name)

	f, ok := e.Field("Price")
	require.True(t, ok)
	assert.Equal(t, "unit_price", f.ColumnName())
	_, ok = e.Field("Missing")
	assert.False(t, ok)

	e.Table("order_details")
	assert.Equal(t, "order_details", e.TableName())
}

func TestEntity_Err(t *testing.T) {
	t.Run("duplicate field", func(t *testing.T) {
		e := schema.New("User").Fields(field.Int("Id"), field.String("Id"))
		assert.ErrorContains(t, e.Err(), "duplicate field")
	})
	t.Run("no fields", func(t *testing.T) {
		assert.Error(t, schema.New("User").Err())
	})
	t.Run("invalid edge", func(t *testing.T) {
		e := schema.New("User").Fields(field.Int("Id")).Edges(edge.Many("Orders", "Order"))
		assert.ErrorContains(t, e.Err(), "missing join keys")
	})
}

func TestNewRegistry(t *testing.T) {
	reg, err := schema.NewRegistry(shop()...)
	require.NoError(t, err)
	assert.Len(t, reg.Entities(), 3)

	order, ok := reg.Lookup("Order")
	require.True(t, ok)

	details, ok := order.Edge("Details")
	require.True(t, ok)
	assert.Equal(t, []edge.Pair{{Source: "Id", Target: "OrderId"}}, details.Pairs)

	buyer, ok := order.Edge("Buyer")
	require.True(t, ok)
	assert.Equal(t, []edge.Pair{{Source: "BuyerId", Target: "Id"}}, buyer.Pairs)

	_, ok = reg.Lookup("Missing")
	assert.False(t, ok)
}

func TestNewRegistry_Errors(t *testing.T) {
	tests := []struct {
		name     string
		entities []*schema.Entity
		want     string
	}{
		{
			name: "unknown target",
			entities: []*schema.Entity{
				schema.New("Order").Fields(field.Int("Id").Key()).Edges(edge.Many("Details", "Detail").Ref("OrderId")),
			},
			want: "unknown target entity",
		},
		{
			name: "unknown field",
			entities: []*schema.Entity{
				schema.New("Order").Fields(field.Int("Id").Key()).Edges(edge.Many("Details", "Detail").Ref("OrderId")),
				schema.New("Detail").Fields(field.Int("Id").Key()),
			},
			want: `unknown field "OrderId"`,
		},
		{
			name: "duplicate entity",
			entities: []*schema.Entity{
				schema.New("Order").Fields(field.Int("Id").Key()),
				schema.New("Order").Fields(field.Int("Id").Key()),
			},
			want: "duplicate entity",
		},
		{
			name: "composite key shorthand",
			entities: []*schema.Entity{
				schema.New("Order").Fields(field.Int("A").Key(), field.Int("B").Key()).Edges(edge.Many("Details", "Detail").Ref("OrderId")),
				schema.New("Detail").Fields(field.Int("Id").Key(), field.Int("OrderId")),
			},
			want: "single key field",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.NewRegistry(tt.entities...)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

// =============================================================================
// YAML loading
// =============================================================================

const shopYAML = `
entities:
  - name: User
    table: sys_user
    fields:
      - {name: Id, type: int, key: true, auto_increment: true}
      - {name: Name, type: string}
      - {name: Status, type: enum, as_string: true}
    edges:
      - {name: Orders, target: Order, cardinality: many, ref: BuyerId}
  - name: Order
    fields:
      - {name: Id, type: int, key: true}
      - {name: BuyerId, type: int, column: buyer_id}
    edges:
      - name: Buyer
        target: User
        on:
          - {source: BuyerId, target: Id}
`

func TestLoad(t *testing.T) {
	reg, err := schema.Load(strings.NewReader(shopYAML))
	require.NoError(t, err)

	user, ok := reg.Lookup("User")
	require.True(t, ok)
	assert.Equal(t, "sys_user", user.TableName())
	status, ok := user.Field("Status")
	require.True(t, ok)
	assert.Equal(t, field.TypeEnum, status.Type)
	assert.True(t, status.EnumAsString)

	orders, ok := user.Edge("Orders")
	require.True(t, ok)
	assert.Equal(t, edge.ToMany, orders.Cardinality)
	assert.Equal(t, []string{"BuyerId"}, orders.TargetFields())

	order, ok := reg.Lookup("Order")
	require.True(t, ok)
	assert.Equal(t, "order", order.TableName())
	buyer, ok := order.Edge("Buyer")
	require.True(t, ok)
	assert.Equal(t, edge.ToOne, buyer.Cardinality)
	assert.Equal(t, []string{"BuyerId"}, buyer.SourceFields())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(shopYAML), 0o600))
	reg, err := schema.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, reg.Entities(), 2)

	_, err = schema.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_Errors(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown type":        "entities:\n  - name: A\n    fields:\n      - {name: Id, type: money}\n",
		"unknown key":         "entities:\n  - name: A\n    colour: red\n",
		"unknown cardinality": "entities:\n  - name: A\n    fields:\n      - {name: Id, type: int, key: true}\n    edges:\n      - {name: B, target: A, cardinality: few, ref: Id}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := schema.Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
