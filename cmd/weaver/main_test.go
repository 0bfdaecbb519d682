package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alvmarrod/forum-weaver/internal/storage"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threadPage = `<html><body>
<div id="msgs-tree"></div>
<div class="inner-left-component">
  <div class="msg-item" id="m1"><span class="msg-author">Ann</span><time class="msg-date" datetime="2026-03-02T09:00:00Z"></time>
    <div class="msg-item" id="m2"><span class="msg-author">Bob</span><time class="msg-date" datetime="2026-03-02T09:30:00Z"></time></div>
  </div>
</div>
</body></html>`

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Path == "/t/1" {
			fmt.Fprint(w, threadPage)
			return
		}
		fmt.Fprint(w, `<html><body><h1>welcome</h1></body></html>`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WEAVER_METRICS_PATH", filepath.Join(dir, "metrics.json"))
	t.Setenv("WEAVER_PAGE_DELAY_MS", "0")

	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestThreadCommand(t *testing.T) {
	srv := testServer(t)
	out := filepath.Join(t.TempDir(), "graph.json")

	require.NoError(t, execute(t, "thread", srv.URL+"/t/1", "--output", out, "--direction", "parent-to-reply"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var g thread.Graph
	require.NoError(t, json.Unmarshal(data, &g))

	require.Len(t, g.Edges, 1)
	assert.Equal(t, "Ann", g.Edges[0].SourceID)
	assert.Equal(t, "Bob", g.Edges[0].TargetID)
	require.Len(t, g.Nodes, 2)
	assert.NotZero(t, g.Nodes[0].X)

	metricsData, err := os.ReadFile(os.Getenv("WEAVER_METRICS_PATH"))
	require.NoError(t, err)
	var m storage.Metrics
	require.NoError(t, json.Unmarshal(metricsData, &m))
	assert.Equal(t, "completed", m.TerminationReason)
	assert.Equal(t, 1, m.PagesFetched)
	assert.Equal(t, 2, m.MessagesRecorded)
}

func TestThreadCommand_NotAForum(t *testing.T) {
	srv := testServer(t)
	out := filepath.Join(t.TempDir(), "graph.json")

	err := execute(t, "thread", srv.URL+"/home", "--output", out)

	require.Error(t, err)
	msg, ok := thread.Diagnostic(err)
	assert.True(t, ok)
	assert.Equal(t, "No messages detected, are you in a forum?", msg)
	assert.NoFileExists(t, out)
}

func TestThreadCommand_InvalidFlags(t *testing.T) {
	assert.ErrorContains(t, execute(t, "thread", "https://forum.example/t/1", "--direction", "sideways"), "invalid configuration")
	assert.ErrorContains(t, execute(t, "thread", "https://forum.example/t/1", "--format", "csv"), "invalid configuration")
	assert.ErrorContains(t, execute(t, "thread"), "start_url is required")
}
