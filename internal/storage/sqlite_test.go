package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStorage_NodesAreScopedByRun(t *testing.T) {
	store := openTestStorage(t)
	require.NoError(t, store.CreateRun(Run{RunID: "r1", SourceURL: "https://forum.example/t/1", Direction: "reply-to-parent", CreatedAt: time.Now()}))
	require.NoError(t, store.CreateRun(Run{RunID: "r2", SourceURL: "https://forum.example/t/2", Direction: "reply-to-parent", CreatedAt: time.Now()}))

	id1, err := store.UpsertNode(Node{RunID: "r1", Name: "ann", Label: "Ann", Kind: "participant", Size: 2})
	require.NoError(t, err)
	id2, err := store.UpsertNode(Node{RunID: "r2", Name: "ann", Label: "Ann", Kind: "participant", Size: 5})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	again, err := store.UpsertNode(Node{RunID: "r1", Name: "ann", Label: "Ann", Kind: "participant", Size: 3,
		ResponseTimeMean: sql.NullInt64{Int64: 60000, Valid: true}})
	require.NoError(t, err)
	assert.Equal(t, id1, again)

	n, err := store.GetNode("r1", "ann")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 3, n.Size)
	assert.Equal(t, int64(60000), n.ResponseTimeMean.Int64)
	assert.False(t, n.ResponseTimeMin.Valid)

	missing, err := store.GetNode("r1", "bob")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStorage_EdgeWeightAccumulates(t *testing.T) {
	store := openTestStorage(t)
	require.NoError(t, store.CreateRun(Run{RunID: "r1", SourceURL: "https://forum.example/t/1", Direction: "reply-to-parent", CreatedAt: time.Now()}))

	ann, err := store.UpsertNode(Node{RunID: "r1", Name: "ann", Kind: "participant"})
	require.NoError(t, err)
	bob, err := store.UpsertNode(Node{RunID: "r1", Name: "bob", Kind: "participant"})
	require.NoError(t, err)

	require.NoError(t, store.AddEdgeWeight("r1", bob, ann, 2))
	require.NoError(t, store.AddEdgeWeight("r1", bob, ann, 1))
	require.NoError(t, store.AddEdgeWeight("r1", ann, bob, 1))

	edges, err := store.LoadEdges("r1")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, Edge{EdgeID: edges[0].EdgeID, FromNodeID: bob, ToNodeID: ann, Weight: 3}, edges[0])
	assert.Equal(t, 1, edges[1].Weight)
}

func TestStorage_FinishRun(t *testing.T) {
	store := openTestStorage(t)
	require.NoError(t, store.CreateRun(Run{RunID: "r1", SourceURL: "https://forum.example/t/1", Direction: "parent-to-reply", CreatedAt: time.Now()}))

	require.NoError(t, store.FinishRun("r1", Metrics{
		EndTime:             time.Now(),
		PagesFetched:        2,
		MessagesRecorded:    7,
		MessagesSkipped:     1,
		InteractionsCreated: 4,
		TerminationReason:   "completed",
	}))

	var reason string
	var recorded int
	err := store.db.QueryRow("SELECT termination_reason, messages_recorded FROM runs WHERE run_id = ?", "r1").Scan(&reason, &recorded)
	require.NoError(t, err)
	assert.Equal(t, "completed", reason)
	assert.Equal(t, 7, recorded)
}
