package store

import (
	"encoding/json"
	"time"
)

// Revision is one stored version of a graph document. Numbers start at 1 and
// grow by one per distinct content hash within a graph.
type Revision struct {
	ID        string          `json:"id"`
	GraphID   string          `json:"graph_id"`
	GraphName string          `json:"graph_name"`
	Number    int             `json:"number"`
	Hash      string          `json:"hash"`
	Document  json.RawMessage `json:"document"`
	CreatedAt time.Time       `json:"created_at"`
}

// RevisionFilter selects revisions for ListRevisions. Zero fields match all.
type RevisionFilter struct {
	GraphID string
	Since   *time.Time
	Limit   int
	Offset  int
}

// Driver names accepted by Open.
const (
	DriverLibSQL   = "libsql"
	DriverPostgres = "postgres"
)
