package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/ctb/internal/graph"
	"github.com/zheng/ctb/internal/storage"
)

const testTrace = `VM Entry Points
entry app.Main.main(java.lang.String[]):void
    directly calls app.Service.run():void
        virtually calls app.Repo.load(java.util.Map<K, V>):void
        directly calls app.Service.run():void
entry app.Worker.call():void
    directly calls app.Service.run():void
`

func testStore(t *testing.T) *graph.Store {
	t.Helper()
	s, err := graph.Read(strings.NewReader(testTrace), graph.DefaultLoadOptions())
	require.NoError(t, err)
	return s
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter(testStore(t)).JSON(&buf))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 4, doc.Stats.Edges)
	assert.Equal(t, []graph.MethodRef{
		{Class: "app.Main", Signature: "main(java.lang.String[])"},
		{Class: "app.Worker", Signature: "call()"},
	}, doc.Entrypoints)

	require.Len(t, doc.Classes, 4)
	assert.Equal(t, "app.Main", doc.Classes[0].Name)
	service := doc.Classes[2]
	assert.Equal(t, "app.Service", service.Name)
	require.Len(t, service.Methods, 1)
	assert.Len(t, service.Methods[0].Forward, 2)
	assert.Equal(t, "directly called by", service.Methods[0].Reverse[0].Type)
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter(testStore(t)).Markdown(&buf, DefaultExportOptions()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Call tree\n"))
	assert.Contains(t, out, "> Classes: 4 | Methods: 4 | Call edges: 4 | Entry points: 2")
	assert.Contains(t, out, "- `app.Main`.main(java.lang.String[])")
	assert.Contains(t, out, "```mermaid")
	assert.Contains(t, out, "-->|virtually calls|")
	assert.Contains(t, out, "### app.Service")
	assert.Contains(t, out, "| `run()` | 3 | 2 |")
	assert.Contains(t, out, "#### load(java.util.Map&lt;K, V&gt;)")
	assert.Contains(t, out, "- virtually called by `app.Service`.run()")
	assert.NotContains(t, out, "Map<K, V>)\n", "generic signatures are escaped outside code spans")
}

func TestMarkdown_NoDiagramNoEdges(t *testing.T) {
	opts := DefaultExportOptions()
	opts.IncludeMermaid = false
	opts.IncludeEdges = false

	var buf bytes.Buffer
	require.NoError(t, NewExporter(testStore(t)).Markdown(&buf, opts))
	assert.NotContains(t, buf.String(), "mermaid")
	assert.NotContains(t, buf.String(), "**Calling:**")
}

func TestSQLite(t *testing.T) {
	store := testStore(t)
	path := filepath.Join(t.TempDir(), "graph.db")
	require.NoError(t, NewExporter(store).SQLite(path))
	// Exporting twice replaces the contents.
	require.NoError(t, NewExporter(store).SQLite(path))

	db, err := storage.Open(path)
	require.NoError(t, err)
	defer db.Close()

	classes, methods, edges, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 4, 4}, []int64{classes, methods, edges})

	entries, err := db.GetEntrypoints()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "app.Main", entries[0].Class)
	assert.Equal(t, "app.Worker", entries[1].Class)

	run, err := db.GetMethod("app.Service", "run()")
	require.NoError(t, err)
	require.NotNil(t, run)
	callers, err := db.GetCallers(run.ID)
	require.NoError(t, err)

	want, err := store.ReverseEdges(graph.MethodRef{Class: "app.Service", Signature: "run()"})
	require.NoError(t, err)
	require.Len(t, callers, len(want))
	for i, c := range callers {
		assert.Equal(t, want[i].Class, c.Other.Class)
		assert.Equal(t, want[i].Type, graph.Invert(graph.CallType(c.Type)))
	}

	src, err := db.GetSource()
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, store.Source().Checksum, src.Checksum)
}

func TestNeo4jRows(t *testing.T) {
	store := testStore(t)

	classes := classRows(store)
	assert.Len(t, classes, 4)
	assert.Equal(t, "app.Main", classes[0]["name"])

	methods := methodRows(store)
	require.Len(t, methods, 4)
	assert.Equal(t, "app.Main.main(java.lang.String[])", methods[0]["key"])
	assert.Equal(t, true, methods[0]["entrypoint"])
	assert.Equal(t, 0, methods[0]["entry_rank"])
	assert.Equal(t, false, methods[1]["entrypoint"])
	assert.Nil(t, methods[1]["entry_rank"])

	calls := callRows(store)
	require.Len(t, calls, 4)
	assert.Equal(t, map[string]any{
		"caller": "app.Main.main(java.lang.String[])",
		"callee": "app.Service.run()",
		"type":   "directly calls",
		"seq":    0,
	}, calls[0])
}

func TestBatches(t *testing.T) {
	rows := make([]map[string]any, 7)
	got := batches(rows, 3)
	require.Len(t, got, 3)
	assert.Len(t, got[0], 3)
	assert.Len(t, got[2], 1)
	assert.Empty(t, batches(nil, 3))
}
