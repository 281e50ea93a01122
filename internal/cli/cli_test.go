package cli

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const menuSchema = `entities:
  - name: Menu
    table: sys_menu
    fields:
      - {name: Id, type: int, key: true, auto_increment: true}
      - {name: Name, type: string}
      - {name: ParentId, type: int, nullable: true}
    edges:
      - {name: Parent, target: Menu, field: ParentId}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// =============================================================================
// gen
// =============================================================================

func TestGen(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	writeFile(t, schemaPath, menuSchema)
	out := filepath.Join(dir, "model")

	stdout, err := execute(t, "gen", "--schema", schemaPath, "--out", out, "--pkg", "shop")
	require.NoError(t, err)
	assert.Contains(t, stdout, "generated 2 files in "+out)

	src, err := os.ReadFile(filepath.Join(out, "menu.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package shop")
	assert.Contains(t, string(src), "func (v MenuTable) ParentId() *veloxql.Column")
	_, err = os.Stat(filepath.Join(out, "registry.go"))
	assert.NoError(t, err)
}

func TestGen_ConfigSchema(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schema.yaml"), menuSchema)
	config := filepath.Join(dir, "veloxql.yaml")
	writeFile(t, config, "dialect: sqlite\nschema: schema.yaml\n")

	stdout, err := execute(t, "gen", "--config", config, "--out", filepath.Join(dir, "model"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "generated 2 files")
}

func TestGen_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "gen", "--config", filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "no --schema given")

	config := filepath.Join(dir, "veloxql.yaml")
	writeFile(t, config, "dialect: sqlite\n")
	_, err = execute(t, "gen", "--config", config)
	assert.ErrorContains(t, err, "sets no schema")

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "entities:\n  - name: Menu\n    colour: red\n")
	_, err = execute(t, "gen", "--schema", bad, "--out", filepath.Join(dir, "model"))
	assert.Error(t, err)

	schemaPath := filepath.Join(dir, "schema.yaml")
	writeFile(t, schemaPath, menuSchema)
	_, err = execute(t, "gen", "--schema", schemaPath, "--out", filepath.Join(dir, "model"), "--pkg", "my-model")
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	writeFile(t, path, menuSchema)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, path, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// The watcher is installed asynchronously; write until it reports.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
loop:
	for {
		select {
		case <-changed:
			break loop
		case <-tick.C:
			writeFile(t, path, menuSchema)
			writeFile(t, filepath.Join(dir, "other.yaml"), "x")
		case <-deadline:
			t.Fatal("no change reported")
		}
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

// =============================================================================
// check
// =============================================================================

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "shop.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE "sys_menu" ("Id" INTEGER PRIMARY KEY, "Name" TEXT, "ParentId" INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	writeFile(t, filepath.Join(dir, "schema.yaml"), menuSchema)
	config := filepath.Join(dir, "veloxql.yaml")
	writeFile(t, config, "dialect: sqlite\ndsn: "+dbPath+"\nschema: schema.yaml\nlog_level: error\n")

	stdout, err := execute(t, "check", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok   Menu (sys_menu)")

	writeFile(t, filepath.Join(dir, "schema.yaml"), menuSchema+`  - name: Role
    fields:
      - {name: Id, type: int, key: true}
`)
	stdout, err = execute(t, "check", "--config", config)
	assert.ErrorContains(t, err, "1 of 2 entities failed")
	assert.Contains(t, stdout, "ok   Menu (sys_menu)")
	assert.Contains(t, stdout, "FAIL Role (role)")
	assert.Contains(t, stdout, "no such table")
}

func TestCheck_Errors(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "veloxql.yaml")
	writeFile(t, config, "dialect: sqlite\ndsn: x.db\n")
	_, err := execute(t, "check", "--config", config)
	assert.ErrorContains(t, err, "sets no schema")

	_, err = execute(t, "check", "--config", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDriverSource(t *testing.T) {
	name, dsn, err := driverSource("mysql", "root:pass@tcp(localhost:3306)/shop")
	require.NoError(t, err)
	assert.Equal(t, "mysql", name)
	assert.Contains(t, dsn, "parseTime=true")

	_, _, err = driverSource("mysql", "not a dsn")
	assert.Error(t, err)

	name, dsn, err = driverSource("postgres", "postgres://localhost/shop")
	require.NoError(t, err)
	assert.Equal(t, "postgres", name)
	assert.Equal(t, "postgres://localhost/shop", dsn)

	_, _, err = driverSource("sqlserver", "sqlserver://localhost")
	assert.ErrorContains(t, err, "no database/sql driver")
}
