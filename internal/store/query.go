package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRevision(row rowScanner) (*Revision, error) {
	r := &Revision{}
	var doc string
	if err := row.Scan(&r.ID, &r.GraphID, &r.GraphName, &r.Number, &r.Hash, &doc, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.Document = json.RawMessage(doc)
	return r, nil
}

// listQuery builds the ListRevisions statement. ph renders the n-th
// (1-based) bind placeholder for the dialect.
func listQuery(columns string, filter RevisionFilter, ph func(n int) string) (string, []any) {
	var where []string
	var args []any

	if filter.GraphID != "" {
		args = append(args, filter.GraphID)
		where = append(where, "graph_id = "+ph(len(args)))
	}
	if filter.Since != nil {
		args = append(args, filter.Since.UTC())
		where = append(where, "created_at >= "+ph(len(args)))
	}

	query := "SELECT " + columns + " FROM revisions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, number DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}
	return query, args
}

// pruneQuery deletes every revision more than keep numbers behind its
// graph's newest one. Numbers are dense per graph, so this keeps exactly keep.
const pruneQuery = `DELETE FROM revisions WHERE number <= (
	SELECT MAX(r.number) FROM revisions r WHERE r.graph_id = revisions.graph_id
) - %s`

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
