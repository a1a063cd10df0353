package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/ctb/internal/graph"
)

const testTrace = `VM Entry Points
entry app.Main.main(java.lang.String[]):void
    directly calls app.Service.run():void
        virtually calls app.Repo.load():void
        directly calls app.Service.run():void
entry app.Worker.call():void
    directly calls app.Service.run():void
`

func writeTrace(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call_tree.txt")
	require.NoError(t, os.WriteFile(path, []byte(testTrace), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestStatsJSON(t *testing.T) {
	out, err := run(t, "stats", "-f", writeTrace(t), "--format", "json")
	require.NoError(t, err)

	var stats graph.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 4, stats.Classes)
	assert.Equal(t, 4, stats.Methods)
	assert.Equal(t, 4, stats.Edges)
	assert.Equal(t, 2, stats.Entrypoints)
}

func TestClassesAndEntrypoints(t *testing.T) {
	path := writeTrace(t)

	out, err := run(t, "classes", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "app.Main\napp.Repo\napp.Service\napp.Worker\n\n4 classes\n", out)

	out, err = run(t, "entrypoints", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "app.Main.main(java.lang.String[])\napp.Worker.call()\n", out)
}

func TestMethod(t *testing.T) {
	out, err := run(t, "method", "-f", writeTrace(t), "app.Repo", "load()")
	require.NoError(t, err)
	assert.Equal(t, "method app.Repo.load()\n\nCalling:\n  (none)\n\nCalled by:\n  virtually called by app.Service.run()\n", out)
}

func TestMethod_NotFound(t *testing.T) {
	_, err := run(t, "method", "-f", writeTrace(t), "app.Repo", "save()")
	assert.ErrorIs(t, err, graph.ErrMethodNotFound)
}

func TestDownstream(t *testing.T) {
	out, err := run(t, "downstream", "-f", writeTrace(t), "app.Main", "main(java.lang.String[])")
	require.NoError(t, err)
	assert.Contains(t, out, "Main.main(String[])\n└── Service.run()")
	assert.Contains(t, out, "virtually calls")
	assert.Contains(t, out, "(cycle)")
}

func TestUpstream_JSON(t *testing.T) {
	out, err := run(t, "upstream", "-f", writeTrace(t), "--format", "json", "--depth", "1", "app.Service", "run()")
	require.NoError(t, err)

	var tree []*graph.TreeNode
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	require.Len(t, tree, 3)
	assert.Equal(t, "directly called by", tree[0].Edge.Type)
	assert.Equal(t, "app.Main", tree[0].Edge.Class)
}

func TestSearch(t *testing.T) {
	path := writeTrace(t)

	out, err := run(t, "search", "-f", path, "--format", "json", "nothing-matches")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	out, err = run(t, "search", "-f", path, "load")
	require.NoError(t, err)
	assert.Contains(t, out, "app.Repo.load()")
}

func TestImpact(t *testing.T) {
	out, err := run(t, "impact", "-f", writeTrace(t), "app.Repo", "load()")
	require.NoError(t, err)
	assert.Contains(t, out, "Callers (3)")
	assert.Contains(t, out, "Callees\n└── (none)\n")
}

func TestExport(t *testing.T) {
	path := writeTrace(t)
	dir := t.TempDir()

	md := filepath.Join(dir, "calls.md")
	_, err := run(t, "export", "-f", path, "-o", md)
	require.NoError(t, err)
	data, err := os.ReadFile(md)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Call tree\n")

	db := filepath.Join(dir, "calls.db")
	_, err = run(t, "export", "-f", path, "--format", "sqlite", "-o", db)
	require.NoError(t, err)
	assert.FileExists(t, db)

	_, err = run(t, "export", "-f", path, "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestErrors(t *testing.T) {
	t.Setenv("CTB_FILE", "")

	_, err := run(t, "stats")
	assert.ErrorContains(t, err, "no trace file")

	_, err = run(t, "stats", "-f", writeTrace(t), "--format", "yaml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, "downstream", "-f", writeTrace(t), "--depth", "-1", "app.Main", "main(java.lang.String[])")
	assert.Error(t, err)
}
