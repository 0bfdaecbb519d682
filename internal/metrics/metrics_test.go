package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alvmarrod/forum-weaver/internal/storage"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(tr *Tracker) {
	tr.PageFetched(200 * time.Millisecond)
	tr.PageFetched(400 * time.Millisecond)
	tr.PageFailed()
	tr.MessageRecorded(thread.Message{Author: "Ann"})
	tr.MessageRecorded(thread.Message{Author: "Bob"})
	tr.MessageSkipped(thread.RawMessage{}, errors.New("no author"))
	tr.InteractionRecorded(thread.Interaction{SourceID: "Bob", TargetID: "Ann"})
}

func TestTracker_Snapshot(t *testing.T) {
	tr := NewTracker()
	feed(tr)

	snap := tr.GetSnapshot()
	assert.Equal(t, 2, snap.PagesFetched)
	assert.Equal(t, 1, snap.PagesFailed)
	assert.Equal(t, 2, snap.MessagesRecorded)
	assert.Equal(t, 1, snap.MessagesSkipped)
	assert.Equal(t, 1, snap.InteractionsCreated)
	assert.Equal(t, int64(600), snap.TotalFetchTimeMs)
	assert.Equal(t, int64(300), snap.AvgFetchTimeMs)

	assert.Equal(t, "Pages: 2 fetched, 1 failed | Messages: 2 recorded, 1 skipped | Interactions: 1", tr.LogProgress())
}

func TestTracker_WriteToFile(t *testing.T) {
	tr := NewTracker()
	feed(tr)
	path := filepath.Join(t.TempDir(), "metrics.json")

	require.NoError(t, tr.WriteToFile(path, "completed"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got storage.Metrics
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "completed", got.TerminationReason)
	assert.False(t, got.EndTime.Before(got.StartTime))
	assert.Equal(t, 2, got.MessagesRecorded)
}

func TestTracker_Exposure(t *testing.T) {
	tr := NewTracker()
	feed(tr)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	tr.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `forum_weaver_pages_total{result="ok"} 2`)
	assert.Contains(t, body, `forum_weaver_pages_total{result="failed"} 1`)
	assert.Contains(t, body, `forum_weaver_messages_total{outcome="skipped"} 1`)
	assert.Contains(t, body, "forum_weaver_interactions_total 1")
	assert.Contains(t, body, "forum_weaver_page_fetch_seconds_count 2")
}

func TestTracker_StartServerDisabled(t *testing.T) {
	assert.Nil(t, NewTracker().StartServer(""))
}
