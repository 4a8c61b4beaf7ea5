package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	out := run(t, "version")
	assert.Equal(t, "pagedb "+version+"\n", out)
}

func TestQueryCommandRoundTrip(t *testing.T) {
	dir := t.TempDir()

	run(t, "--data-dir", dir, "query", "CREATE TABLE users (id INT PRIMARY KEY, name TEXT)")
	run(t, "--data-dir", dir, "query", "INSERT INTO users VALUES (1, 'ada'), (2, 'alan')")

	out := run(t, "--data-dir", dir, "query", "-f", "csv", "SELECT name FROM users WHERE id = 2")
	assert.Equal(t, "name\nalan\n", out)
}

func TestQueryCommandReportsAffectedRows(t *testing.T) {
	dir := t.TempDir()

	run(t, "--data-dir", dir, "query", "CREATE TABLE t (n INT)")
	out := run(t, "--data-dir", dir, "query", "INSERT INTO t VALUES (1), (2), (3)")
	assert.Contains(t, out, "OK, 3 row(s) affected")
}

func TestQueryCommandSurfacesStatementErrors(t *testing.T) {
	dir := t.TempDir()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--data-dir", dir, "query", "SELECT * FROM nowhere"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNKNOWN_TABLE")
}

func TestShellRunsUntilQuit(t *testing.T) {
	dir := t.TempDir()

	script := strings.Join([]string{
		"CREATE TABLE kv (k TEXT PRIMARY KEY, v INT)",
		"INSERT INTO kv VALUES ('hits', 7)",
		"-- a comment, skipped",
		"SELECT * FROM nowhere",
		"SELECT v FROM kv WHERE k = 'hits'",
		`\q`,
	}, "\n") + "\n"

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(script))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--data-dir", dir, "shell", "-f", "csv"})
	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "pagedb> ")
	assert.Contains(t, out.String(), "error:")
	assert.Contains(t, out.String(), "v\n7\n")
}

func TestInspectCatalogListsDefinitions(t *testing.T) {
	dir := t.TempDir()

	run(t, "--data-dir", dir, "query", "CREATE TABLE users (id INT PRIMARY KEY, name TEXT)")
	run(t, "--data-dir", dir, "query", "CREATE INDEX by_name ON users (name)")

	out := run(t, "--data-dir", dir, "inspect", "catalog")
	assert.Contains(t, out, "table users")
	assert.Contains(t, out, "index pk_users on (id)")
	assert.Contains(t, out, "index by_name on (name)")
}
