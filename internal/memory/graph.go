package memory

import (
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alvmarrod/forum-weaver/internal/storage"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/sirupsen/logrus"
)

type edgeKey struct {
	from, to int
}

// WeightedEdge is an aggregated edge between two numbered nodes
type WeightedEdge struct {
	From, To int
	Weight   int
}

// MemoryGraph holds a numbered, weighted view of a thread graph for export
type MemoryGraph struct {
	nodes       map[string]*storage.Node // name -> node
	nodesById   map[int]*storage.Node    // nodeID -> node
	edges       map[edgeKey]int          // (fromID, toID) -> weight
	nodeCounter int                      // auto-increment for node IDs
	mu          sync.RWMutex
}

// NewMemoryGraph creates a new in-memory graph
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodes:     make(map[string]*storage.Node),
		nodesById: make(map[int]*storage.Node),
		edges:     make(map[edgeKey]int),
	}
}

// FromGraph numbers the nodes of g in order and folds its edges into weights
func FromGraph(g *thread.Graph) (*MemoryGraph, error) {
	mg := NewMemoryGraph()
	for _, n := range g.Nodes {
		mg.UpsertNode(toStorageNode(n))
	}
	for _, e := range g.Edges {
		from, ok := mg.nodes[e.SourceID]
		if !ok {
			return nil, fmt.Errorf("edge source %q has no node", e.SourceID)
		}
		to, ok := mg.nodes[e.TargetID]
		if !ok {
			return nil, fmt.Errorf("edge target %q has no node", e.TargetID)
		}
		if err := mg.UpsertEdge(from.NodeID, to.NodeID); err != nil {
			return nil, err
		}
	}
	return mg, nil
}

func toStorageNode(n *thread.Node) storage.Node {
	return storage.Node{
		Name:             n.ID,
		Label:            n.Name,
		Kind:             string(n.Kind),
		Color:            n.Color,
		Size:             n.Size,
		InDegree:         n.InDegree,
		OutDegree:        n.OutDegree,
		ResponseTimeMin:  millis(n.ResponseTimeMin),
		ResponseTimeMax:  millis(n.ResponseTimeMax),
		ResponseTimeMean: millis(n.ResponseTimeMean),
		X:                n.X,
		Y:                n.Y,
	}
}

// millis stores a latency as whole milliseconds, NULL when absent
func millis(d thread.NullDuration) sql.NullInt64 {
	if !d.Valid {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: d.Duration.Milliseconds(), Valid: true}
}

// UpsertNode inserts a node or replaces the attributes of an existing one
// Returns the node_id of the inserted/existing node
func (mg *MemoryGraph) UpsertNode(n storage.Node) int {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	if node, exists := mg.nodes[n.Name]; exists {
		n.NodeID = node.NodeID
		*node = n
		return node.NodeID
	}

	mg.nodeCounter++
	node := n
	node.NodeID = mg.nodeCounter

	mg.nodes[node.Name] = &node
	mg.nodesById[node.NodeID] = &node

	return node.NodeID
}

// GetNode retrieves a node by name
func (mg *MemoryGraph) GetNode(name string) *storage.Node {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	if node, exists := mg.nodes[name]; exists {
		// Return a copy to prevent external modifications
		nodeCopy := *node
		return &nodeCopy
	}

	return nil
}

// UpsertEdge inserts a new edge or increments weight if it exists
func (mg *MemoryGraph) UpsertEdge(fromID, toID int) error {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	// Verify nodes exist
	if _, exists := mg.nodesById[fromID]; !exists {
		return fmt.Errorf("source node %d not found", fromID)
	}
	if _, exists := mg.nodesById[toID]; !exists {
		return fmt.Errorf("target node %d not found", toID)
	}

	mg.edges[edgeKey{fromID, toID}]++
	return nil
}

// GetStats returns current graph statistics
func (mg *MemoryGraph) GetStats() (nodeCount, edgeCount int) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	return len(mg.nodes), len(mg.edges)
}

// Nodes returns copies of all nodes ordered by id
func (mg *MemoryGraph) Nodes() []storage.Node {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	out := make([]storage.Node, 0, len(mg.nodesById))
	for id := 1; id <= mg.nodeCounter; id++ {
		if n, ok := mg.nodesById[id]; ok {
			out = append(out, *n)
		}
	}
	return out
}

// Edges returns the weighted edges ordered by (from, to)
func (mg *MemoryGraph) Edges() []WeightedEdge {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	out := make([]WeightedEdge, 0, len(mg.edges))
	for k, w := range mg.edges {
		out = append(out, WeightedEdge{From: k.from, To: k.to, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Flush writes all in-memory data to SQLite storage under the given run
func (mg *MemoryGraph) Flush(store *storage.Storage, runID string) error {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	startTime := time.Now()
	logrus.Info("Starting flush to database...")

	nodesWritten := 0
	edgesWritten := 0
	var firstErr error

	// Build ID mapping: memory ID -> DB ID
	idMap := make(map[int]int)
	for id := 1; id <= mg.nodeCounter; id++ {
		node, ok := mg.nodesById[id]
		if !ok {
			continue
		}
		row := *node
		row.RunID = runID
		dbID, err := store.UpsertNode(row)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logrus.Warnf("Failed to flush node %s: %v", node.Name, err)
			continue
		}
		idMap[node.NodeID] = dbID
		nodesWritten++
	}

	for k, weight := range mg.edges {
		dbFromID, fromExists := idMap[k.from]
		dbToID, toExists := idMap[k.to]

		if !fromExists || !toExists {
			logrus.Warnf("Skipping edge %d->%d: node ID mapping not found", k.from, k.to)
			continue
		}

		if err := store.AddEdgeWeight(runID, dbFromID, dbToID, weight); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			logrus.Warnf("Failed to flush edge %d->%d: %v", dbFromID, dbToID, err)
			continue
		}

		edgesWritten++
	}

	duration := time.Since(startTime)
	logrus.Infof("Flush complete: %d nodes, %d edges written in %v", nodesWritten, edgesWritten, duration)

	return firstErr
}
