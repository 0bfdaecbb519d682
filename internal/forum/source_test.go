package forum

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alvmarrod/forum-weaver/internal/config"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageOne = `<html><body>
<div id="msgs-tree"></div>
<div class="inner-left-component">
  <div class="msg-item" id="m1"><span class="msg-author">Ann</span><time class="msg-date" datetime="2026-03-02T09:00:00Z">9:00</time>
    <div class="msg-item" id="m2"><span class="msg-author">Bob</span><time class="msg-date" datetime="2026-03-02T09:10:00Z">9:10</time>
      <div class="msg-item" id="m3"><span class="msg-author">Cat</span><time class="msg-date" datetime="2026-03-02T09:20:00Z">9:20</time></div>
    </div>
    <div class="msg-item" id="m4"><time class="msg-date" datetime="2026-03-02T09:25:00Z">9:25</time></div>
  </div>
</div>
<ul class="pager">
  <li class="disabled"><a class="lnk-first-page" href="/t/1">first</a></li>
  <li><a class="lnk-next-page" href="/t/1?page=2">next</a></li>
</ul>
</body></html>`

// Page two repeats m1 and m2 as context for the replies it reveals
const pageTwo = `<html><body>
<div id="msgs-tree"></div>
<div class="inner-left-component">
  <div class="msg-item" id="m1"><span class="msg-author">Ann</span><time class="msg-date" datetime="2026-03-02T09:00:00Z">9:00</time>
    <div class="msg-item" id="m5"><span class="msg-author">Dan</span><time class="msg-date" datetime="2026-03-02T09:40:00Z">9:40</time></div>
    <div class="msg-item" id="m2"><span class="msg-author">Bob</span><time class="msg-date" datetime="2026-03-02T09:10:00Z">9:10</time>
      <div class="msg-item" id="m6"><span class="msg-author">Ann</span><time class="msg-date" datetime="2026-03-02T09:50:00Z">9:50</time></div>
    </div>
  </div>
  <div class="msg-item" id="m7"><span class="msg-author">Eve</span><time class="msg-date" datetime="2026-03-02T10:00:00Z">10:00</time></div>
</div>
<ul class="pager">
  <li><a class="lnk-first-page" href="/t/1">first</a></li>
  <li class="disabled"><a class="lnk-next-page" href="/t/1?page=3">next</a></li>
</ul>
</body></html>`

type pageCounter struct {
	fetched int
	failed  int
}

func (p *pageCounter) PageFetched(time.Duration) { p.fetched++ }
func (p *pageCounter) PageFailed()               { p.failed++ }

func forumServer(t *testing.T, hits map[string]int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/t/1", func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.RequestURI()]++
		w.Header().Set("Content-Type", "text/html")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, pageTwo)
			return
		}
		fmt.Fprint(w, pageOne)
	})
	mux.HandleFunc("/blog", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><p>no thread here</p></body></html>`)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><div id="msgs-tree"></div>
<div class="inner-left-component"><div class="msg-item" id="x1"><span class="msg-author">Zed</span><time class="msg-date" datetime="2026-03-02T09:00:00Z"></time></div></div>
<a class="lnk-next-page" href="/loop#again">next</a></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, startURL string) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.StartURL = startURL
	cfg.PageDelayMs = 0
	return cfg
}

func TestSource_FirstPageMessages(t *testing.T) {
	srv := forumServer(t, map[string]int{})
	src := NewSource(testConfig(t, srv.URL+"/t/1"), nil)

	require.NoError(t, src.Open(context.Background()))
	msgs, err := src.Page(context.Background())
	require.NoError(t, err)

	require.Len(t, msgs, 4)
	assert.Equal(t, "Ann", msgs[0].Author)
	assert.Equal(t, "2026-03-02T09:00:00Z", msgs[0].Timestamp)
	assert.Equal(t, "", msgs[3].Author)

	assert.True(t, src.Contains(msgs[0].Ref, msgs[2].Ref))
	assert.True(t, src.Contains(msgs[1].Ref, msgs[2].Ref))
	assert.False(t, src.Contains(msgs[2].Ref, msgs[1].Ref))
	assert.False(t, src.Contains(msgs[1].Ref, msgs[3].Ref))
	assert.True(t, src.HasMore())
}

func TestSource_ExtractAcrossPages(t *testing.T) {
	hits := map[string]int{}
	srv := forumServer(t, hits)
	counter := &pageCounter{}
	src := NewSource(testConfig(t, srv.URL+"/t/1"), counter)
	state := thread.NewState(src, thread.DefaultOptions())

	g, err := thread.Extract(context.Background(), src, state)
	require.NoError(t, err)

	assert.Equal(t, []thread.Interaction{
		{SourceID: "Bob", TargetID: "Ann", TimeDiff: thread.Some(10 * time.Minute)},
		{SourceID: "Cat", TargetID: "Bob", TimeDiff: thread.Some(10 * time.Minute)},
		{SourceID: "Dan", TargetID: "Ann", TimeDiff: thread.Some(40 * time.Minute)},
		{SourceID: "Ann", TargetID: "Bob", TimeDiff: thread.Some(40 * time.Minute)},
	}, g.Edges)

	ann, ok := g.Node("Ann")
	require.True(t, ok)
	assert.Equal(t, 2, ann.Size)
	assert.Equal(t, 2, ann.InDegree)
	eve, ok := g.Node("Eve")
	require.True(t, ok)
	assert.Equal(t, 0, eve.InDegree)
	assert.Len(t, g.Nodes, 5)

	assert.Equal(t, 1, state.Skipped())
	assert.Equal(t, 2, counter.fetched)
	assert.Equal(t, 1, hits["/t/1"])
	assert.Equal(t, 1, hits["/t/1?page=2"])
	assert.Len(t, src.Visited(), 2)
}

func TestSource_JumpsToFirstPage(t *testing.T) {
	hits := map[string]int{}
	srv := forumServer(t, hits)
	src := NewSource(testConfig(t, srv.URL+"/t/1?page=2"), nil)

	g, err := thread.Extract(context.Background(), src, thread.NewState(src, thread.DefaultOptions()))
	require.NoError(t, err)

	assert.Len(t, g.Edges, 4)
	assert.Equal(t, []string{srv.URL + "/t/1", srv.URL + "/t/1?page=2"}, src.Visited())
	assert.Equal(t, 2, hits["/t/1?page=2"])
}

func TestSource_StructureNotFound(t *testing.T) {
	srv := forumServer(t, map[string]int{})
	src := NewSource(testConfig(t, srv.URL+"/blog"), nil)

	_, err := thread.Extract(context.Background(), src, thread.NewState(src, thread.DefaultOptions()))

	require.ErrorIs(t, err, thread.ErrStructureNotFound)
	msg, ok := thread.Diagnostic(err)
	assert.True(t, ok)
	assert.NotEmpty(t, msg)
}

func TestSource_StopsOnPaginationLoop(t *testing.T) {
	srv := forumServer(t, map[string]int{})
	src := NewSource(testConfig(t, srv.URL+"/loop"), nil)

	g, err := thread.Extract(context.Background(), src, thread.NewState(src, thread.DefaultOptions()))
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 1)
	assert.Len(t, src.Visited(), 1)
}

func TestSource_FetchFailure(t *testing.T) {
	srv := forumServer(t, map[string]int{})
	counter := &pageCounter{}
	src := NewSource(testConfig(t, srv.URL+"/missing"), counter)

	err := src.Open(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, thread.ErrStructureNotFound)
	assert.Equal(t, 1, counter.failed)
}

func TestSource_CloseIsIdempotent(t *testing.T) {
	srv := forumServer(t, map[string]int{})
	src := NewSource(testConfig(t, srv.URL+"/t/1"), nil)
	require.NoError(t, src.Open(context.Background()))

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	assert.False(t, src.HasMore())
	_, err := src.Page(context.Background())
	assert.Error(t, err)
}
