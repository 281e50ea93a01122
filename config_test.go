package veloxql_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxql"
	"github.com/syssam/veloxql/dialect"
)

const menuSchema = `entities:
  - name: Menu
    table: sys_menu
    fields:
      - {name: Id, type: int, key: true, auto_increment: true}
      - {name: Name, type: string}
      - {name: ParentId, type: int, nullable: true}
    edges:
      - {name: Children, target: Menu, cardinality: many, ref: ParentId}
`

func TestParseConfig(t *testing.T) {
	t.Parallel()
	cfg, err := veloxql.ParseConfig(strings.NewReader(`
dialect: postgres
dsn: postgres://localhost/shop
schema: schema.yaml
log_level: warn
slow_threshold: 200ms
`))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Dialect)
	assert.Equal(t, "postgres://localhost/shop", cfg.DSN)
	assert.Equal(t, "schema.yaml", cfg.Schema)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowThreshold)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	cfg, err = veloxql.ParseConfig(strings.NewReader("dialect: sqlite\n"))
	require.NoError(t, err)
	level, err = cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestParseConfig_Errors(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"empty":           "",
		"missing dialect": "dsn: x\n",
		"unknown dialect": "dialect: oracle\n",
		"unknown field":   "dialect: mysql\npool: 3\n",
		"bad level":       "dialect: mysql\nlog_level: loud\n",
		"bad duration":    "dialect: mysql\nslow_threshold: soon\n",
		"negative":        "dialect: mysql\nslow_threshold: -1s\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := veloxql.ParseConfig(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.yaml"), []byte(menuSchema), 0o600))
	path := filepath.Join(dir, "veloxql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dialect: mysql\nschema: schema.yaml\n"), 0o600))

	cfg, err := veloxql.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "schema.yaml"), cfg.Schema)

	c, err := veloxql.Open(cfg)
	require.NoError(t, err)
	assert.Equal(t, dialect.MySQL, c.Dialect().Name())
	menu, ok := c.Entity("Menu")
	require.True(t, ok)
	sql, _, err := c.From(menu).Where(func(t tables) node { return t[0].Col("ParentId").IsNull() }).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `Id`,`Name`,`ParentId` FROM `sys_menu` WHERE `ParentId` IS NULL", sql)

	_, err = veloxql.LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	_, err = veloxql.Open(&veloxql.Config{Dialect: "mysql", Schema: filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}

func TestClient(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	s := newShop(t)
	c := veloxql.NewClient(dialect.NewSQLite(),
		veloxql.WithRegistry(s.Registry),
		veloxql.WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)
	assert.Same(t, s.Registry, c.Registry())

	user, ok := c.Entity("User")
	require.True(t, ok)
	assert.Same(t, s.User, user)
	_, ok = c.Entity("Nope")
	assert.False(t, ok)

	_, err := c.From(user).Compile()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "veloxql: compiled statement")
	assert.Contains(t, buf.String(), "kind=select")
	assert.Contains(t, buf.String(), "dialect=sqlite")

	buf.Reset()
	_, err = c.Delete(user).WithBy(1).Compile()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "kind=delete")

	t.Run("no registry", func(t *testing.T) {
		_, ok := veloxql.NewClient(dialect.NewMySQL()).Entity("User")
		assert.False(t, ok)
	})
}
