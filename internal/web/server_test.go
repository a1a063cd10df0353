package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/ctb/internal/config"
	"github.com/zheng/ctb/internal/display"
	"github.com/zheng/ctb/internal/graph"
)

const testTrace = `VM Entry Points
entry app.Main.main(java.lang.String[]):void
    directly calls app.Service.run():void
        interfacially calls java.util.Map.get(java.lang.Object):java.lang.Object
        virtually calls app.Service.apply(java.util.Map<K, V>):void
    directly calls app.Service.run():void
entry app.Worker.call():void
    directly calls app.Service.run():void
`

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := graph.Read(strings.NewReader(testTrace), graph.DefaultLoadOptions())
	require.NoError(t, err)
	return NewServer(graph.NewHandle(store), config.Default().Server)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func methodPath(prefix, cls, sig string) string {
	return prefix + display.EncodeSignature(cls) + "/" + display.EncodeSignature(sig)
}

func TestPages_Entrypoints(t *testing.T) {
	rec := get(t, setupTestServer(t), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>VM entry-points</h1>")
	assert.Contains(t, body, `href="/method/app.Main/main%28java.lang.String%5B%5D%29"`)
	assert.Less(t, strings.Index(body, "app.Main."), strings.Index(body, "app.Worker."))
}

func TestPages_Classes(t *testing.T) {
	rec := get(t, setupTestServer(t), "/classes")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, cls := range []string{"app.Main", "app.Service", "app.Worker", "java.util.Map"} {
		assert.Contains(t, body, `<a href="/class/`+cls+`">`+cls+`</a>`)
	}
}

func TestPages_Class(t *testing.T) {
	s := setupTestServer(t)

	rec := get(t, s, "/class/app.Service")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>class app.Service</h1>")
	assert.Contains(t, body, "IN 2")
	assert.Contains(t, body, "OUT 2")
	assert.Contains(t, body, "apply(java.util.Map&lt;K, V&gt;)")

	rec = get(t, s, "/class/Nonexistent")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Class Nonexistent not found\n", rec.Body.String())
}

func TestPages_Method(t *testing.T) {
	s := setupTestServer(t)

	rec := get(t, s, methodPath("/method/", "app.Service", "apply(java.util.Map<K, V>)"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>method apply(java.util.Map&lt;K, V&gt;)</h1>")
	assert.Contains(t, body, "virtually called by")

	rec = get(t, s, methodPath("/method/", "app.Service", "run()"))
	require.Equal(t, http.StatusOK, rec.Code)
	body = rec.Body.String()
	calling := strings.Index(body, "<h2>Calling:</h2>")
	calledBy := strings.Index(body, "<h2>Called by</h2>")
	require.True(t, calling >= 0 && calledBy > calling)
	assert.Contains(t, body[calling:calledBy], "interfacially calls")
	assert.Contains(t, body[calledBy:], "directly called by")

	rec = get(t, s, methodPath("/method/", "app.Service", "missing()"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Method missing() not found\n", rec.Body.String())

	rec = get(t, s, methodPath("/method/", "Nope", "run()"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Class Nope not found\n", rec.Body.String())
}

func TestAPI_Stats(t *testing.T) {
	rec := get(t, setupTestServer(t), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats graph.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, 4, stats.Classes)
	assert.Equal(t, 2, stats.Entrypoints)
	assert.Equal(t, 4, stats.Edges)
}

func TestAPI_Class(t *testing.T) {
	s := setupTestServer(t)

	rec := get(t, s, "/api/class/app.Service")
	require.Equal(t, http.StatusOK, rec.Code)
	var info graph.ClassInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, []graph.MethodSummary{
		{Signature: "apply(java.util.Map<K, V>)", ForwardCount: 0, ReverseCount: 1},
		{Signature: "run()", ForwardCount: 2, ReverseCount: 2},
	}, info.Methods)

	rec = get(t, s, "/api/class/Nonexistent")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Method(t *testing.T) {
	s := setupTestServer(t)

	rec := get(t, s, methodPath("/api/method/", "java.util.Map", "get(java.lang.Object)"))
	require.Equal(t, http.StatusOK, rec.Code)
	var info graph.MethodInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Empty(t, info.Forward)
	assert.Equal(t, []graph.EdgeInfo{
		{Type: "interfacially called by", Class: "app.Service", Signature: "run()"},
	}, info.Reverse)
}

func TestAPI_Tree(t *testing.T) {
	s := setupTestServer(t)

	rec := get(t, s, methodPath("/api/tree/", "java.util.Map", "get(java.lang.Object)")+"?direction=upstream&depth=0")
	require.Equal(t, http.StatusOK, rec.Code)
	var tree TreeData
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tree))
	assert.Equal(t, graph.Upstream, tree.Direction)
	require.Len(t, tree.Children, 1)
	run := tree.Children[0]
	assert.Equal(t, "run()", run.Edge.Signature)
	require.Len(t, run.Children, 2)
	assert.Equal(t, "app.Main", run.Children[0].Edge.Class)
	assert.Equal(t, "app.Worker", run.Children[1].Edge.Class)

	rec = get(t, s, methodPath("/api/tree/", "app.Main", "main(java.lang.String[])")+"?direction=sideways")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, s, methodPath("/api/tree/", "app.Main", "main(java.lang.String[])")+"?depth=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Search(t *testing.T) {
	s := setupTestServer(t)

	rec := get(t, s, "/api/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, s, "/api/search?q=run")
	require.Equal(t, http.StatusOK, rec.Code)
	var refs []graph.MethodRef
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&refs))
	assert.Equal(t, []graph.MethodRef{{Class: "app.Service", Signature: "run()"}}, refs)

	rec = get(t, s, "/api/search?q=zzz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	get(t, s, "/api/stats")
	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ctb_http_requests_total")
	assert.Contains(t, rec.Body.String(), "ctb_graph_classes")
}

func TestServe_Shutdown(t *testing.T) {
	s := setupTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/stats")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestAPI_MethodEscapedSignature(t *testing.T) {
	s := setupTestServer(t)

	target := methodPath("/api/method/", "app.Service", "apply(java.util.Map<K, V>)")
	require.Contains(t, target, "%2C", "comma is escaped in the path segment")
	rec := get(t, s, target)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var info graph.MethodInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, "apply(java.util.Map<K, V>)", info.Signature)
	sig, err := display.DecodeSignature(display.EncodeSignature(info.Signature))
	require.NoError(t, err)
	assert.Equal(t, info.Signature, sig)
}
