package impact

import (
	"strings"
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

var (
	mainRef   = graph.MethodRef{Class: "app.Main", Signature: "main(java.lang.String[])"}
	workerRef = graph.MethodRef{Class: "app.Worker", Signature: "call()"}
	runRef    = graph.MethodRef{Class: "app.Service", Signature: "run()"}
	loadRef   = graph.MethodRef{Class: "app.Repo", Signature: "load()"}
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	s, err := graph.Read(strings.NewReader(testTrace), graph.DefaultLoadOptions())
	require.NoError(t, err)
	return NewAnalyzer(s)
}

func TestAnalyze_Upstream(t *testing.T) {
	report, err := newAnalyzer(t).Analyze(loadRef, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []graph.MethodRef{runRef}, report.DirectCallers)
	assert.Equal(t, []graph.MethodRef{mainRef, workerRef}, report.IndirectCallers)
	assert.Empty(t, report.DirectCallees)
	assert.Empty(t, report.IndirectCallees)
	assert.Equal(t, []graph.MethodRef{mainRef, workerRef}, report.Entrypoints)
}

func TestAnalyze_DepthLimit(t *testing.T) {
	report, err := newAnalyzer(t).Analyze(loadRef, 1, 1)
	require.NoError(t, err)

	assert.Equal(t, []graph.MethodRef{runRef}, report.DirectCallers)
	assert.Empty(t, report.IndirectCallers)
	assert.Empty(t, report.Entrypoints)
}

func TestAnalyze_Downstream(t *testing.T) {
	report, err := newAnalyzer(t).Analyze(mainRef, 0, 0)
	require.NoError(t, err)

	assert.Empty(t, report.DirectCallers)
	assert.Equal(t, []graph.MethodRef{runRef}, report.DirectCallees)
	assert.Equal(t, []graph.MethodRef{loadRef}, report.IndirectCallees, "self call is not repeated")
	assert.Equal(t, []graph.MethodRef{mainRef}, report.Entrypoints)
}

func TestAnalyze_Errors(t *testing.T) {
	a := newAnalyzer(t)

	_, err := a.Analyze(graph.MethodRef{Class: "app.Missing", Signature: "x()"}, 0, 0)
	assert.ErrorIs(t, err, graph.ErrNotFound)

	_, err = a.Analyze(runRef, -1, 0)
	assert.Error(t, err)
}

func TestReportFormatting(t *testing.T) {
	report, err := newAnalyzer(t).Analyze(loadRef, 0, 0)
	require.NoError(t, err)

	tree := report.FormatTree()
	assert.True(t, strings.HasPrefix(tree, "Repo.load()\n\n"))
	assert.Contains(t, tree, "Callers (3)\n├── direct    Service.run()\n")
	assert.Contains(t, tree, "└── indirect  Worker.call()\n")
	assert.Contains(t, tree, "Callees\n└── (none)\n")

	md := report.FormatMarkdown()
	assert.Contains(t, md, "## Change impact: Repo.load()")
	assert.Contains(t, md, "| `app.Service` | `run()` |")
	assert.Contains(t, md, "_no direct callees_")

	assert.Equal(t,
		"Target: Repo.load(), Direct Callers: 1, Indirect Callers: 2, Direct Callees: 0, Indirect Callees: 0, Entry Points: 2",
		report.Summary())
}
