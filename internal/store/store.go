package store

import (
	"context"
	"fmt"

	"github.com/rendis/edgraph/pkg/edgraph"
)

// Store persists graph revisions.
// All implementations must be safe for concurrent use.
type Store interface {
	// SaveRevision assigns rev the next number for its graph. When the latest
	// revision already has rev.Hash, nothing is written and rev is filled in
	// from that revision instead.
	SaveRevision(ctx context.Context, rev *Revision) error
	GetRevision(ctx context.Context, graphID string, number int) (*Revision, error)
	LatestRevision(ctx context.Context, graphID string) (*Revision, error)
	// ListRevisions returns matches newest first.
	ListRevisions(ctx context.Context, filter RevisionFilter) ([]*Revision, error)
	// PruneRevisions keeps the newest keep revisions of every graph and
	// returns how many were deleted.
	PruneRevisions(ctx context.Context, keep int) (int64, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Open connects to the store named by driver and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch driver {
	case DriverLibSQL, "":
		s, err = NewLibSQLStore(dsn)
	case DriverPostgres:
		s, err = NewPostgresStore(ctx, dsn)
	default:
		return nil, edgraph.NewErrorf(edgraph.ErrCodeValidation, "unknown store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate %s store: %w", driver, err)
	}
	return s, nil
}

func checkRevision(rev *Revision) error {
	switch {
	case rev == nil:
		return edgraph.NewError(edgraph.ErrCodeValidation, "revision is nil")
	case rev.GraphID == "":
		return edgraph.NewError(edgraph.ErrCodeValidation, "revision has no graph id")
	case rev.Hash == "":
		return edgraph.NewError(edgraph.ErrCodeValidation, "revision has no content hash")
	case len(rev.Document) == 0:
		return edgraph.NewError(edgraph.ErrCodeValidation, "revision has no document")
	}
	return nil
}

func checkKeep(keep int) error {
	if keep < 1 {
		return edgraph.NewErrorf(edgraph.ErrCodeValidation, "keep must be at least 1, got %d", keep)
	}
	return nil
}

func revisionNotFound(graphID string, number int) *edgraph.Error {
	if number == 0 {
		return edgraph.NewErrorf(edgraph.ErrCodeNotFound, "graph %s has no revisions", graphID)
	}
	return edgraph.NewErrorf(edgraph.ErrCodeNotFound, "graph %s has no revision %d", graphID, number)
}
