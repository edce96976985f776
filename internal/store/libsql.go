package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"
)

const libsqlColumns = "id, graph_id, graph_name, number, hash, document, created_at"

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/edgraph.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

func (s *LibSQLStore) SaveRevision(ctx context.Context, rev *Revision) error {
	if err := checkRevision(rev); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save revision: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	latest, err := scanRevision(tx.QueryRowContext(ctx,
		`SELECT `+libsqlColumns+` FROM revisions WHERE graph_id = ? ORDER BY number DESC LIMIT 1`, rev.GraphID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read latest revision: %w", err)
	}
	if latest != nil && latest.Hash == rev.Hash {
		*rev = *latest
		return nil
	}

	rev.Number = 1
	if latest != nil {
		rev.Number = latest.Number + 1
	}
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	rev.CreatedAt = timeOrNow(rev.CreatedAt)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (id, graph_id, graph_name, number, hash, document, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.GraphID, rev.GraphName, rev.Number, rev.Hash, string(rev.Document), rev.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return tx.Commit()
}

func (s *LibSQLStore) GetRevision(ctx context.Context, graphID string, number int) (*Revision, error) {
	r, err := scanRevision(s.db.QueryRowContext(ctx,
		`SELECT `+libsqlColumns+` FROM revisions WHERE graph_id = ? AND number = ?`, graphID, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, revisionNotFound(graphID, number)
	}
	return r, err
}

func (s *LibSQLStore) LatestRevision(ctx context.Context, graphID string) (*Revision, error) {
	r, err := scanRevision(s.db.QueryRowContext(ctx,
		`SELECT `+libsqlColumns+` FROM revisions WHERE graph_id = ? ORDER BY number DESC LIMIT 1`, graphID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, revisionNotFound(graphID, 0)
	}
	return r, err
}

func (s *LibSQLStore) ListRevisions(ctx context.Context, filter RevisionFilter) ([]*Revision, error) {
	query, args := listQuery(libsqlColumns, filter, func(int) string { return "?" })
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []*Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

func (s *LibSQLStore) PruneRevisions(ctx context.Context, keep int) (int64, error) {
	if err := checkKeep(keep); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(pruneQuery, "?"), keep)
	if err != nil {
		return 0, fmt.Errorf("prune revisions: %w", err)
	}
	return res.RowsAffected()
}
