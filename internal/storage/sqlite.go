package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Storage handles all database operations
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		direction TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP,
		pages_fetched INTEGER DEFAULT 0,
		messages_recorded INTEGER DEFAULT 0,
		messages_skipped INTEGER DEFAULT 0,
		interactions_created INTEGER DEFAULT 0,
		termination_reason TEXT
	);

	CREATE TABLE IF NOT EXISTS nodes (
		node_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		label TEXT,
		kind TEXT NOT NULL,
		color TEXT,
		size INTEGER DEFAULT 0,
		in_degree INTEGER DEFAULT 0,
		out_degree INTEGER DEFAULT 0,
		response_time_min_ms INTEGER,
		response_time_max_ms INTEGER,
		response_time_mean_ms INTEGER,
		x REAL DEFAULT 0,
		y REAL DEFAULT 0,
		FOREIGN KEY (run_id) REFERENCES runs(run_id),
		UNIQUE(run_id, name)
	);

	CREATE TABLE IF NOT EXISTS edges (
		edge_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		from_node_id INTEGER NOT NULL,
		to_node_id INTEGER NOT NULL,
		weight INTEGER DEFAULT 1,
		FOREIGN KEY (run_id) REFERENCES runs(run_id),
		FOREIGN KEY (from_node_id) REFERENCES nodes(node_id),
		FOREIGN KEY (to_node_id) REFERENCES nodes(node_id),
		UNIQUE(run_id, from_node_id, to_node_id)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_run ON nodes(run_id, name);
	CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_node_id);
	CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_node_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateRun registers a new analysis run
func (s *Storage) CreateRun(run Run) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, source_url, direction, created_at)
		VALUES (?, ?, ?, ?)
	`, run.RunID, run.SourceURL, run.Direction, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun stores the final extraction counters of a run
func (s *Storage) FinishRun(runID string, m Metrics) error {
	_, err := s.db.Exec(`
		UPDATE runs SET
			finished_at = ?,
			pages_fetched = ?,
			messages_recorded = ?,
			messages_skipped = ?,
			interactions_created = ?,
			termination_reason = ?
		WHERE run_id = ?
	`, m.EndTime, m.PagesFetched, m.MessagesRecorded, m.MessagesSkipped, m.InteractionsCreated, m.TerminationReason, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// UpsertNode inserts a node for a run or updates its attributes if it exists
// Returns the node_id of the inserted/existing node
func (s *Storage) UpsertNode(n Node) (int, error) {
	_, err := s.db.Exec(`
		INSERT INTO nodes (run_id, name, label, kind, color, size, in_degree, out_degree,
			response_time_min_ms, response_time_max_ms, response_time_mean_ms, x, y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, name) DO UPDATE SET
			label = EXCLUDED.label,
			kind = EXCLUDED.kind,
			color = EXCLUDED.color,
			size = EXCLUDED.size,
			in_degree = EXCLUDED.in_degree,
			out_degree = EXCLUDED.out_degree,
			response_time_min_ms = EXCLUDED.response_time_min_ms,
			response_time_max_ms = EXCLUDED.response_time_max_ms,
			response_time_mean_ms = EXCLUDED.response_time_mean_ms,
			x = EXCLUDED.x,
			y = EXCLUDED.y
	`, n.RunID, n.Name, n.Label, n.Kind, n.Color, n.Size, n.InDegree, n.OutDegree,
		n.ResponseTimeMin, n.ResponseTimeMax, n.ResponseTimeMean, n.X, n.Y)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert node: %w", err)
	}

	// Get the node_id
	var nodeID int
	err = s.db.QueryRow("SELECT node_id FROM nodes WHERE run_id = ? AND name = ?", n.RunID, n.Name).Scan(&nodeID)
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve node_id: %w", err)
	}

	return nodeID, nil
}

// GetNode retrieves a node of a run by name, returns nil if not found
func (s *Storage) GetNode(runID, name string) (*Node, error) {
	var node Node
	err := s.db.QueryRow(`
		SELECT node_id, run_id, name, label, kind, color, size, in_degree, out_degree,
			response_time_min_ms, response_time_max_ms, response_time_mean_ms, x, y
		FROM nodes
		WHERE run_id = ? AND name = ?
	`, runID, name).Scan(&node.NodeID, &node.RunID, &node.Name, &node.Label, &node.Kind, &node.Color,
		&node.Size, &node.InDegree, &node.OutDegree,
		&node.ResponseTimeMin, &node.ResponseTimeMax, &node.ResponseTimeMean, &node.X, &node.Y)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	return &node, nil
}

// AddEdgeWeight inserts a new edge or increases its weight if it exists
func (s *Storage) AddEdgeWeight(runID string, fromID, toID, weight int) error {
	_, err := s.db.Exec(`
		INSERT INTO edges (run_id, from_node_id, to_node_id, weight)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, from_node_id, to_node_id) DO UPDATE SET
			weight = weight + EXCLUDED.weight
	`, runID, fromID, toID, weight)

	if err != nil {
		return fmt.Errorf("failed to upsert edge: %w", err)
	}
	return nil
}

// LoadEdges returns all edges of a run ordered by id
func (s *Storage) LoadEdges(runID string) ([]Edge, error) {
	rows, err := s.db.Query(`
		SELECT edge_id, from_node_id, to_node_id, weight
		FROM edges
		WHERE run_id = ?
		ORDER BY edge_id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.EdgeID, &e.FromNodeID, &e.ToNodeID, &e.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		edges = append(edges, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
