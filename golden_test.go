package veloxql_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxql"
	"github.com/syssam/veloxql/dialect"
)

// snapshot renders a compiled statement as the text stored in golden
// files: the SQL followed by one line per parameter.
func snapshot(b *strings.Builder, stmt *veloxql.CompiledStatement) {
	b.WriteString(stmt.SQL)
	b.WriteByte('\n')
	for _, p := range stmt.Parameters {
		fmt.Fprintf(b, "  @%s = %v\n", p.Name, p.Value)
	}
}

func assertGolden(t *testing.T, name string, stmts ...*veloxql.CompiledStatement) {
	t.Helper()
	var b strings.Builder
	for _, stmt := range stmts {
		snapshot(&b, stmt)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(b.String()))
}

func TestGolden_RecursiveCte(t *testing.T) {
	t.Parallel()
	for _, d := range []dialect.Provider{dialect.NewMySQL(), dialect.NewPostgres(), dialect.NewSQLServer()} {
		t.Run(d.Name(), func(t *testing.T) {
			c, s := newClient(t, d)
			stmt, err := c.FromWithRecursive("menu_tree",
				c.From(s.Menu).Where(func(t tables) node { return t[0].Col("ParentId").IsNull() }),
				func(self *veloxql.Cte) *veloxql.Query {
					return c.From(s.Menu).InnerJoin(self, func(t tables) node {
						return t[0].Col("ParentId").EQ(t[1].Col("Id"))
					})
				}).
				OrderBy(func(t tables) node { return t[0].Col("Name") }).
				Compile()
			require.NoError(t, err)
			assertGolden(t, "recursive_cte_"+d.Name(), stmt)
		})
	}
}

func TestGolden_Include(t *testing.T) {
	t.Parallel()
	c, s := newClient(t, dialect.NewMySQL())
	stmt, err := c.From(s.Order).
		Include("Buyer").
		IncludeMany("Details").ThenInclude("Product").
		Compile()
	require.NoError(t, err)
	require.Len(t, stmt.Includes, 1)
	details, err := stmt.Includes[0].Compile([][]any{{1}, {2}})
	require.NoError(t, err)
	assertGolden(t, "include_orders", stmt, details)
}
