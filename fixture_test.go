package veloxql_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxql"
	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/schema"
	"github.com/syssam/veloxql/schema/edge"
	"github.com/syssam/veloxql/schema/field"
)

// userStatus is a numeric enum.
type userStatus int

const (
	statusPending userStatus = iota
	statusActive
	statusBanned
)

// orderState is an enum stored by name.
type orderState int

const (
	stateOpen orderState = iota
	statePaid
)

func (s orderState) String() string {
	if s == statePaid {
		return "Paid"
	}
	return "Open"
}

// shop is the schema the compiler tests run against.
type shop struct {
	User, Order, OrderDetail, Product, Menu, UserRole *schema.Entity
	Registry                                           *schema.Registry
}

func newShop(t testing.TB) *shop {
	t.Helper()
	s := &shop{
		User: schema.New("User").Table("sys_user").Fields(
			field.Int("Id").Key().AutoIncrement(),
			field.String("Name"),
			field.String("Email").Nullable(),
			field.Int("Age"),
			field.Bool("Active"),
			field.Enum("Status"),
			field.Time("Created"),
		).Edges(
			edge.Many("Orders", "Order").Ref("BuyerId"),
		),
		Order: schema.New("Order").Fields(
			field.Int("Id").Key().AutoIncrement(),
			field.Int("BuyerId"),
			field.Decimal("Total"),
			field.Enum("State").AsString(),
			field.Time("Created").Column("created_at"),
		).Edges(
			edge.One("Buyer", "User").Field("BuyerId"),
			edge.Many("Details", "OrderDetail").Ref("OrderId"),
		),
		OrderDetail: schema.New("OrderDetail").Fields(
			field.Int("Id").Key().AutoIncrement(),
			field.Int("OrderId"),
			field.Int("ProductId"),
			field.Int("Quantity"),
			field.Float64("Price").Column("unit_price"),
		).Edges(
			edge.One("Order", "Order").Field("OrderId"),
			edge.One("Product", "Product").Field("ProductId"),
		),
		Product: schema.New("Product").Fields(
			field.Int("Id").Key(),
			field.String("Name"),
			field.Decimal("Price"),
		),
		Menu: schema.New("Menu").Table("sys_menu").Fields(
			field.Int("Id").Key().AutoIncrement(),
			field.String("Name"),
			field.Int("ParentId").Nullable(),
		).Edges(
			edge.Many("Children", "Menu").Ref("ParentId"),
		),
		UserRole: schema.New("UserRole").Fields(
			field.Int("UserId").Key(),
			field.Int("RoleId").Key(),
			field.Bool("Granted"),
		),
	}
	reg, err := schema.NewRegistry(s.User, s.Order, s.OrderDetail, s.Product, s.Menu, s.UserRole)
	require.NoError(t, err)
	s.Registry = reg
	return s
}

// newClient returns a client for d over the shop schema.
func newClient(t testing.TB, d dialect.Provider) (*veloxql.Client, *shop) {
	t.Helper()
	s := newShop(t)
	return veloxql.NewClient(d, veloxql.WithRegistry(s.Registry)), s
}

// values returns the parameter values in binding order.
func values(params []veloxql.Parameter) []any {
	vs := make([]any, len(params))
	for i, p := range params {
		vs[i] = p.Value
	}
	return vs
}

// names returns the parameter names in binding order.
func names(params []veloxql.Parameter) []string {
	ns := make([]string, len(params))
	for i, p := range params {
		ns[i] = p.Name
	}
	return ns
}

type (
	tables = veloxql.Tables
	node   = veloxql.Node
	proj   = veloxql.Projection
)
