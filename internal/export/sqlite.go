package export

import (
	"fmt"
	"time"

	"github.com/alvmarrod/forum-weaver/internal/memory"
	"github.com/alvmarrod/forum-weaver/internal/storage"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/google/uuid"
)

// WriteSQLite stores the graph as a new run in the database at path and
// returns the generated run id. Existing runs in the file are kept.
func WriteSQLite(path string, g *thread.Graph, info RunInfo) (string, error) {
	mg, err := memory.FromGraph(g)
	if err != nil {
		return "", fmt.Errorf("failed to index graph: %w", err)
	}

	store, err := storage.NewStorage(path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	runID := uuid.NewString()
	if err := store.CreateRun(storage.Run{
		RunID:     runID,
		SourceURL: info.SourceURL,
		Direction: info.Direction.String(),
		CreatedAt: time.Now(),
	}); err != nil {
		return "", err
	}

	if err := mg.Flush(store, runID); err != nil {
		return "", fmt.Errorf("failed to flush graph: %w", err)
	}

	if info.Metrics != nil {
		if err := store.FinishRun(runID, *info.Metrics); err != nil {
			return "", err
		}
	}

	return runID, nil
}
