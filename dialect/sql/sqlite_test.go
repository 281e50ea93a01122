package sql_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/veloxql"
	"github.com/syssam/veloxql/dialect"
	"github.com/syssam/veloxql/dialect/sql"
)

const libraryDDL = `
CREATE TABLE "author" ("Id" INTEGER PRIMARY KEY AUTOINCREMENT, "Name" TEXT NOT NULL);
CREATE TABLE "book" (
	"Id" INTEGER PRIMARY KEY AUTOINCREMENT,
	"AuthorId" INTEGER NULL REFERENCES "author"("Id"),
	"Title" TEXT NOT NULL,
	"Price" REAL NOT NULL
);`

func openSQLite(t *testing.T) *sql.Driver {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "library.db") + "?_pragma=foreign_keys(1)"
	drv, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	_, err = drv.DB().Exec(libraryDDL)
	require.NoError(t, err)
	return drv
}

func TestSQLite(t *testing.T) {
	var (
		ctx = context.Background()
		l   = newLibrary(t, dialect.NewSQLite())
		drv = openSQLite(t)
	)
	assert.Equal(t, dialect.SQLite, drv.Dialect())

	_, err := drv.Run(ctx, l.client.Insert(l.Author).Values(
		veloxql.Record{"Name": "Rob"},
		veloxql.Record{"Name": "Ken"},
		veloxql.Record{"Name": "Dennis"},
	))
	require.NoError(t, err)
	_, err = drv.Run(ctx, l.client.Insert(l.Book).Values(
		veloxql.Record{"AuthorId": 1, "Title": "Go", "Price": 9.5},
		veloxql.Record{"AuthorId": 2, "Title": "Unix", "Price": 7.0},
		veloxql.Record{"AuthorId": 1, "Title": "Plan 9", "Price": 5.0},
		veloxql.Record{"AuthorId": nil, "Title": "Anon", "Price": 1.0},
	))
	require.NoError(t, err)

	t.Run("include many", func(t *testing.T) {
		authors, err := drv.All(ctx, l.client.From(l.Author).
			OrderBy(func(t veloxql.Tables) veloxql.Node { return t[0].Col("Id") }).
			IncludeMany("Books", func(b *veloxql.Table) veloxql.Node { return b.Col("Price").GT(veloxql.Var(6.0)) }))
		require.NoError(t, err)
		require.Len(t, authors, 3)
		assert.Equal(t, "Rob", authors[0]["Name"])
		require.Len(t, authors[0]["Books"], 1)
		assert.Equal(t, "Go", authors[0]["Books"].([]veloxql.Record)[0]["Title"])
		assert.Len(t, authors[1]["Books"], 1)
		assert.Equal(t, []veloxql.Record{}, authors[2]["Books"])
	})

	t.Run("include one", func(t *testing.T) {
		books, err := drv.All(ctx, l.client.From(l.Book).
			Include("Author").
			OrderBy(func(t veloxql.Tables) veloxql.Node { return t[0].Col("Id") }))
		require.NoError(t, err)
		require.Len(t, books, 4)
		assert.Equal(t, veloxql.Record{"Id": int64(1), "Name": "Rob"}, books[0]["Author"])
		assert.Nil(t, books[3]["Author"])
		assert.Nil(t, books[3]["AuthorId"])
	})

	t.Run("update batch", func(t *testing.T) {
		res, err := drv.Run(ctx, l.client.Update(l.Book).WithBy(
			veloxql.Record{"Id": 1, "Price": 11.0},
			veloxql.Record{"Id": 2, "Price": 8.0},
		))
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		res, err = drv.Run(ctx, l.client.Update(l.Book).
			SetExpr("Price", func(t veloxql.Tables) veloxql.Node { return veloxql.Add(t[0].Col("Price"), veloxql.Const(1)) }).
			Where(func(t veloxql.Tables) veloxql.Node { return veloxql.IsNull(t[0].Col("AuthorId")) }))
		require.NoError(t, err)
		n, _ = res.RowsAffected()
		assert.Equal(t, int64(1), n)

		books, err := drv.All(ctx, l.client.From(l.Book).
			Where(func(t veloxql.Tables) veloxql.Node { return t[0].Col("Price").GE(veloxql.Var(2.0)) }).
			OrderBy(func(t veloxql.Tables) veloxql.Node { return t[0].Col("Id") }))
		require.NoError(t, err)
		var prices []float64
		for _, b := range books {
			prices = append(prices, b["Price"].(float64))
		}
		assert.Equal(t, []float64{11, 8, 5, 2}, prices)
	})

	t.Run("upsert", func(t *testing.T) {
		_, err := drv.Run(ctx, l.client.Insert(l.Author).
			Values(veloxql.Record{"Id": 1, "Name": "Robert"}).
			OnConflictUpdate())
		require.NoError(t, err)
		authors, err := drv.All(ctx, l.client.From(l.Author).
			Where(func(t veloxql.Tables) veloxql.Node { return t[0].Col("Id").EQ(veloxql.Var(1)) }))
		require.NoError(t, err)
		require.Len(t, authors, 1)
		assert.Equal(t, "Robert", authors[0]["Name"])
	})

	t.Run("constraints", func(t *testing.T) {
		_, err := drv.Run(ctx, l.client.Insert(l.Author).Values(veloxql.Record{"Id": 2, "Name": "Ken"}))
		require.Error(t, err)
		assert.True(t, sql.IsUniqueConstraintError(err))

		_, err = drv.Run(ctx, l.client.Insert(l.Book).Values(veloxql.Record{"AuthorId": 99, "Title": "Ghost", "Price": 1.0}))
		require.Error(t, err)
		assert.True(t, sql.IsForeignKeyConstraintError(err))
	})

	t.Run("transaction", func(t *testing.T) {
		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		_, err = tx.Run(ctx, l.client.Delete(l.Book).WithBy(3, 4))
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		books, err := drv.All(ctx, l.client.From(l.Book))
		require.NoError(t, err)
		assert.Len(t, books, 4)
	})

	t.Run("delete", func(t *testing.T) {
		res, err := drv.Run(ctx, l.client.Delete(l.Book).
			Where(func(t veloxql.Tables) veloxql.Node { return t[0].Col("Price").LT(veloxql.Var(6.0)) }))
		require.NoError(t, err)
		n, _ := res.RowsAffected()
		assert.Equal(t, int64(2), n)
	})
}
