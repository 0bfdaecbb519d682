package storage

import (
	"database/sql"
	"time"
)

// Run is one analysis run exported to the database
type Run struct {
	RunID     string
	SourceURL string
	Direction string
	CreatedAt time.Time
}

// Node represents a participant or synthetic entity in an exported graph
type Node struct {
	NodeID           int
	RunID            string
	Name             string
	Label            string
	Kind             string
	Color            string
	Size             int
	InDegree         int
	OutDegree        int
	ResponseTimeMin  sql.NullInt64 // milliseconds, NULL when no reply was received
	ResponseTimeMax  sql.NullInt64
	ResponseTimeMean sql.NullInt64
	X, Y             float64
}

// Edge represents the weighted link between two nodes of a run
type Edge struct {
	EdgeID     int
	FromNodeID int
	ToNodeID   int
	Weight     int
}

// Metrics tracks extraction statistics for export on exit
type Metrics struct {
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	PagesFetched        int       `json:"pages_fetched"`
	PagesFailed         int       `json:"pages_failed"`
	MessagesRecorded    int       `json:"messages_recorded"`
	MessagesSkipped     int       `json:"messages_skipped"`
	InteractionsCreated int       `json:"interactions_created"`
	TotalFetchTimeMs    int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs      int64     `json:"avg_fetch_time_ms"`
	TerminationReason   string    `json:"termination_reason"`
}
