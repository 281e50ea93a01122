package veloxql_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxql"
	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/schema"
	"github.com/syssam/veloxql/schema/field"
)

func TestUpdate(t *testing.T) {
	t.Parallel()
	c, s := newClient(t, dialect.NewMySQL())

	t.Run("set where", func(t *testing.T) {
		stmt, err := c.Update(s.User).
			Set("Name", "bob").
			Set("Age", 30).
			Where(func(t tables) node { return t[0].Col("Id").EQ(veloxql.Var(7)) }).
			Compile()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE `sys_user` SET `Name`=@Name,`Age`=@Age WHERE `Id`=@p0", stmt.SQL)
		assert.Equal(t, []string{"Name", "Age", "p0"}, names(stmt.Parameters))
		assert.Equal(t, []any{"bob", int64(30), int64(7)}, stmt.Values())
		assert.Nil(t, stmt.Projection)
		assert.Equal(t, 1, stmt.Statements)
	})

	t.Run("set expression", func(t *testing.T) {
		sql, params, err := c.Update(s.User).
			SetExpr("Age", func(t tables) node { return veloxql.Add(t[0].Col("Age"), veloxql.Const(1)) }).
			Where(func(t tables) node { return t[0].Col("Active") }).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE `sys_user` SET `Age`=`Age`+1 WHERE `Active`=1", sql)
		assert.Empty(t, params)
	})

	t.Run("set if", func(t *testing.T) {
		sql, _, err := c.Update(s.User).
			SetIf(false, "Name", "x").
			SetIf(true, "Age", 1).
			Where(func(t tables) node { return t[0].Col("Id").EQ(veloxql.Const(1)) }).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE `sys_user` SET `Age`=@Age WHERE `Id`=1", sql)
	})

	t.Run("single row", func(t *testing.T) {
		stmt, err := c.Update(s.User).
			WithBy(veloxql.Record{"Id": 7, "Name": "bob", "Age": 30}).
			Compile()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE `sys_user` SET `Name`=@Name,`Age`=@Age WHERE `Id`=@kId", stmt.SQL)
		assert.Equal(t, []string{"Name", "Age", "kId"}, names(stmt.Parameters))
		for _, p := range stmt.Parameters {
			assert.False(t, p.IsBatchIndexed)
		}
		p, ok := stmt.Parameter("kId")
		require.True(t, ok)
		assert.Equal(t, "Id", p.SourceField)
	})

	t.Run("batch", func(t *testing.T) {
		stmt, err := c.Update(s.User).
			WithBy(
				veloxql.Record{"Id": 1, "Name": "a"},
				veloxql.Record{"Id": 2, "Name": "b"},
			).
			Compile()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE `sys_user` SET `Name`=@Name0 WHERE `Id`=@kId0;"+
			"UPDATE `sys_user` SET `Name`=@Name1 WHERE `Id`=@kId1", stmt.SQL)
		assert.Equal(t, 2, stmt.Statements)
		assert.Equal(t, []any{"a", int64(1), "b", int64(2)}, stmt.Values())
		for _, p := range stmt.Parameters {
			assert.True(t, p.IsBatchIndexed, p.Name)
		}
	})

	t.Run("batch with shared set and where", func(t *testing.T) {
		stmt, err := c.Update(s.User).
			Set("Active", true).
			Where(func(t tables) node { return t[0].Col("Age").GT(veloxql.Var(18)) }).
			WithBy(
				veloxql.Record{"Id": 1, "Name": "a"},
				veloxql.Record{"Id": 2, "Name": "b"},
			).
			Compile()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE `sys_user` SET `Active`=@Active,`Name`=@Name0 WHERE `Id`=@kId0 AND `Age`>@p0;"+
			"UPDATE `sys_user` SET `Active`=@Active,`Name`=@Name1 WHERE `Id`=@kId1 AND `Age`>@p0", stmt.SQL)
		assert.Equal(t, []string{"Active", "Name0", "kId0", "p0", "Name1", "kId1"}, names(stmt.Parameters))
		active, _ := stmt.Parameter("Active")
		assert.False(t, active.IsBatchIndexed)
	})

	t.Run("set overrides row field", func(t *testing.T) {
		sql, _, err := c.Update(s.User).
			Set("Name", "fixed").
			WithBy(veloxql.Record{"Id": 1, "Name": "ignored"}).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE `sys_user` SET `Name`=@Name WHERE `Id`=@kId", sql)
	})

	t.Run("subquery qualifies by table name", func(t *testing.T) {
		sql, _, err := c.Update(s.User).
			Set("Active", false).
			Where(func(u tables) node {
				return veloxql.Exists(u.From(s.Order).Where(func(o tables) node {
					return o[0].Col("BuyerId").EQ(u[0].Col("Id"))
				}))
			}).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE `sys_user` SET `Active`=@Active WHERE EXISTS(SELECT * FROM `order` b WHERE b.`BuyerId`=`sys_user`.`Id`)", sql)
	})

	t.Run("postgres", func(t *testing.T) {
		pg, s := newClient(t, dialect.NewPostgres())
		sql, _, err := pg.Update(s.Order).
			Set("Total", decimal.RequireFromString("9.50")).
			Where(func(t tables) node { return t[0].Col("State").EQ(veloxql.Const(statePaid)) }).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "order" SET "Total"=@Total WHERE "State"='Paid'`, sql)
	})
}

func TestUpdate_Errors(t *testing.T) {
	t.Parallel()
	c, s := newClient(t, dialect.NewMySQL())

	t.Run("key assignment", func(t *testing.T) {
		_, err := c.Update(s.User).Set("Id", 1).Where(func(t tables) node { return veloxql.Const(true) }).Compile()
		var ierr *veloxql.InvalidClauseStateError
		require.ErrorAs(t, err, &ierr)
		assert.Equal(t, "Set", ierr.Clause)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := c.Update(s.User).Set("Nickname", "x").Compile()
		assert.True(t, veloxql.IsAliasResolution(err))

		_, err = c.Update(s.User).WithBy(veloxql.Record{"Id": 1, "Nickname": "x"}).Compile()
		assert.True(t, veloxql.IsAliasResolution(err))
	})

	t.Run("unbounded", func(t *testing.T) {
		_, err := c.Update(s.User).Set("Name", "x").Compile()
		assert.True(t, veloxql.IsInvalidClauseState(err))
	})

	t.Run("row without key", func(t *testing.T) {
		_, err := c.Update(s.User).WithBy(veloxql.Record{"Name": "x"}).Compile()
		assert.True(t, veloxql.IsInvalidClauseState(err))
	})

	t.Run("row without fields", func(t *testing.T) {
		_, err := c.Update(s.User).WithBy(veloxql.Record{"Id": 1}).Compile()
		assert.True(t, veloxql.IsInvalidClauseState(err))
	})

	t.Run("frozen", func(t *testing.T) {
		u := c.Update(s.User).Set("Name", "x").Where(func(t tables) node { return t[0].Col("Id").EQ(veloxql.Const(1)) })
		_, err := u.Compile()
		require.NoError(t, err)
		u.Set("Age", 2)
		assert.True(t, veloxql.IsInvalidClauseState(u.Err()))
	})

	t.Run("field named like a key parameter", func(t *testing.T) {
		widget := schema.New("Widget").Fields(
			field.Int("Id").Key(),
			field.Int("kId"),
		)
		reg, err := schema.NewRegistry(widget)
		require.NoError(t, err)
		wc := veloxql.NewClient(dialect.NewMySQL(), veloxql.WithRegistry(reg))

		_, err = wc.Update(widget).Set("kId", 5).WithBy(veloxql.Record{"Id": 1}).Compile()
		var ierr *veloxql.InvalidClauseStateError
		require.ErrorAs(t, err, &ierr)
		assert.Equal(t, "WithBy", ierr.Clause)
		assert.Contains(t, ierr.Error(), "@kId")

		// The same value under the same name binds once.
		stmt, err := wc.Update(widget).Set("kId", 1).WithBy(veloxql.Record{"Id": 1}).Compile()
		require.NoError(t, err)
		assert.Equal(t, "UPDATE `widget` SET `kId`=@kId WHERE `Id`=@kId", stmt.SQL)
		assert.Equal(t, []any{int64(1)}, stmt.Values())
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()
	c, s := newClient(t, dialect.NewMySQL())

	t.Run("where", func(t *testing.T) {
		sql, params, err := c.Delete(s.User).
			Where(func(t tables) node { return t[0].Col("Age").LT(veloxql.Const(18)) }).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM `sys_user` WHERE `Age`<18", sql)
		assert.Empty(t, params)
	})

	t.Run("single key", func(t *testing.T) {
		stmt, err := c.Delete(s.User).WithBy(5).Compile()
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM `sys_user` WHERE `Id`=@kId", stmt.SQL)
		assert.Equal(t, []any{int64(5)}, stmt.Values())
	})

	t.Run("batch", func(t *testing.T) {
		stmt, err := c.Delete(s.User).WithBy(1, 2).Compile()
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM `sys_user` WHERE `Id`=@kId0;DELETE FROM `sys_user` WHERE `Id`=@kId1", stmt.SQL)
		assert.Equal(t, 2, stmt.Statements)
		assert.Equal(t, []string{"kId0", "kId1"}, names(stmt.Parameters))
	})

	t.Run("composite key", func(t *testing.T) {
		sql, params, err := c.Delete(s.UserRole).
			WithBy(veloxql.Record{"UserId": 1, "RoleId": 2}).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM `user_role` WHERE `UserId`=@kUserId AND `RoleId`=@kRoleId", sql)
		assert.Equal(t, []any{int64(1), int64(2)}, values(params))

		_, err = c.Delete(s.UserRole).WithBy(1).Compile()
		assert.True(t, veloxql.IsInvalidClauseState(err))
	})

	t.Run("disjunction with keys", func(t *testing.T) {
		stmt, err := c.Delete(s.User).
			Where(func(t tables) node {
				return veloxql.Or(t[0].Col("Active").EQ(veloxql.Const(false)), t[0].Col("Age").LT(veloxql.Var(18)))
			}).
			WithBy(3).
			Compile()
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM `sys_user` WHERE `Id`=@kId AND (`Active`=0 OR `Age`<@p0)", stmt.SQL)
		assert.Equal(t, []string{"kId", "p0"}, names(stmt.Parameters))
	})

	t.Run("disjunction with key batch", func(t *testing.T) {
		stmt, err := c.Delete(s.User).
			Where(func(t tables) node {
				return veloxql.Or(t[0].Col("Active").EQ(veloxql.Const(false)), t[0].Col("Age").LT(veloxql.Var(18)))
			}).
			WithBy(3, 4).
			Compile()
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM `sys_user` WHERE `Id`=@kId0 AND (`Active`=0 OR `Age`<@p0);"+
			"DELETE FROM `sys_user` WHERE `Id`=@kId1 AND (`Active`=0 OR `Age`<@p0)", stmt.SQL)
		assert.Equal(t, []string{"kId0", "p0", "kId1"}, names(stmt.Parameters))
	})

	t.Run("unbounded", func(t *testing.T) {
		_, err := c.Delete(s.User).Compile()
		assert.True(t, veloxql.IsInvalidClauseState(err))
	})

	t.Run("sql server", func(t *testing.T) {
		ms, s := newClient(t, dialect.NewSQLServer())
		sql, _, err := ms.Delete(s.User).
			Where(func(t tables) node { return t[0].Col("Name").EQ(veloxql.Const("o'neil")) }).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM [sys_user] WHERE [Name]=N'o''neil'", sql)
	})
}

func TestInsert(t *testing.T) {
	t.Parallel()
	c, s := newClient(t, dialect.NewMySQL())

	t.Run("single row", func(t *testing.T) {
		stmt, err := c.Insert(s.User).Values(veloxql.Record{"Name": "bob", "Age": 30}).Compile()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `sys_user` (`Name`,`Age`) VALUES (@Name,@Age)", stmt.SQL)
		assert.Equal(t, []any{"bob", int64(30)}, stmt.Values())
		assert.Equal(t, 1, stmt.Statements)
	})

	t.Run("batch", func(t *testing.T) {
		stmt, err := c.Insert(s.User).Values(
			veloxql.Record{"Name": "a", "Age": 1},
			veloxql.Record{"Age": 2, "Name": "b"},
		).Compile()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `sys_user` (`Name`,`Age`) VALUES (@Name0,@Age0),(@Name1,@Age1)", stmt.SQL)
		assert.Equal(t, []string{"Name0", "Age0", "Name1", "Age1"}, names(stmt.Parameters))
		assert.Equal(t, 1, stmt.Statements)
	})

	t.Run("enum values", func(t *testing.T) {
		_, params, err := c.Insert(s.Order).
			Values(veloxql.Record{"BuyerId": 1, "State": statePaid}).
			ToSQL()
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1), "Paid"}, values(params))
	})

	t.Run("upsert", func(t *testing.T) {
		row := veloxql.Record{"Id": 1, "Name": "pen", "Price": decimal.RequireFromString("1.25")}
		sql, params, err := c.Insert(s.Product).Values(row).OnConflictUpdate().ToSQL()
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO `product` (`Id`,`Name`,`Price`) VALUES (@Id,@Name,@Price) "+
			"ON DUPLICATE KEY UPDATE `Name`=VALUES(`Name`),`Price`=VALUES(`Price`)", sql)
		assert.True(t, decimal.RequireFromString("1.25").Equal(params[2].Value.(decimal.Decimal)))

		pg, ps := newClient(t, dialect.NewPostgres())
		sql, _, err = pg.Insert(ps.Product).Values(row).OnConflictUpdate().ToSQL()
		require.NoError(t, err)
		assert.Equal(t, `INSERT INTO "product" ("Id","Name","Price") VALUES (@Id,@Name,@Price) `+
			`ON CONFLICT ("Id") DO UPDATE SET "Name"=EXCLUDED."Name","Price"=EXCLUDED."Price"`, sql)

		sql, _, err = pg.Insert(ps.Product).Values(row).OnConflictUpdate("Price").ToSQL()
		require.NoError(t, err)
		assert.Contains(t, sql, `DO UPDATE SET "Price"=EXCLUDED."Price"`)

		ms, ss := newClient(t, dialect.NewSQLServer())
		_, err = ms.Insert(ss.Product).Values(row).OnConflictUpdate().Compile()
		var ierr *veloxql.InvalidClauseStateError
		require.ErrorAs(t, err, &ierr)
		assert.Equal(t, "OnConflictUpdate", ierr.Clause)
	})
}

func TestInsert_Errors(t *testing.T) {
	t.Parallel()
	c, s := newClient(t, dialect.NewMySQL())

	tests := []struct {
		name  string
		build func() *veloxql.Insert
		check func(error) bool
	}{
		{
			name:  "no rows",
			build: func() *veloxql.Insert { return c.Insert(s.User) },
			check: veloxql.IsInvalidClauseState,
		},
		{
			name:  "missing key",
			build: func() *veloxql.Insert { return c.Insert(s.Product).Values(veloxql.Record{"Name": "pen"}) },
			check: veloxql.IsInvalidClauseState,
		},
		{
			name: "mismatched rows",
			build: func() *veloxql.Insert {
				return c.Insert(s.User).Values(veloxql.Record{"Name": "a", "Age": 1}, veloxql.Record{"Name": "b"})
			},
			check: veloxql.IsInvalidClauseState,
		},
		{
			name: "mismatched fields",
			build: func() *veloxql.Insert {
				return c.Insert(s.User).Values(veloxql.Record{"Name": "a"}, veloxql.Record{"Age": 1})
			},
			check: veloxql.IsInvalidClauseState,
		},
		{
			name:  "unknown field",
			build: func() *veloxql.Insert { return c.Insert(s.User).Values(veloxql.Record{"Nickname": "a"}) },
			check: veloxql.IsAliasResolution,
		},
		{
			name: "unknown conflict field",
			build: func() *veloxql.Insert {
				return c.Insert(s.Product).Values(veloxql.Record{"Id": 1}).OnConflictUpdate("Stock")
			},
			check: veloxql.IsAliasResolution,
		},
		{
			name: "unsupported value",
			build: func() *veloxql.Insert {
				return c.Insert(s.User).Values(veloxql.Record{"Name": struct{}{}})
			},
			check: veloxql.IsTypeConversion,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile()
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}
