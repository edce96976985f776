package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresColumns = "id::text, graph_id, graph_name, number, hash, document::text, created_at"

// PostgresStore implements Store on PostgreSQL via pgx.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore connects a pool to url.
func NewPostgresStore(ctx context.Context, url string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: pool}, nil
}

// NewPostgresStoreFromPool wraps an existing pool. Close closes it.
func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return runPostgresMigrations(ctx, s.db)
}

func (s *PostgresStore) Vacuum(ctx context.Context) error {
	_, err := s.db.Exec(ctx, "VACUUM ANALYZE revisions")
	return err
}

func (s *PostgresStore) SaveRevision(ctx context.Context, rev *Revision) error {
	if err := checkRevision(rev); err != nil {
		return err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save revision: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialise writers of the same graph for the rest of the transaction.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rev.GraphID); err != nil {
		return fmt.Errorf("lock graph %s: %w", rev.GraphID, err)
	}

	latest, err := scanRevision(tx.QueryRow(ctx,
		`SELECT `+postgresColumns+` FROM revisions WHERE graph_id = $1 ORDER BY number DESC LIMIT 1`, rev.GraphID))
	if err != nil && !isNoRows(err) {
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
	if _, err := tx.Exec(ctx,
		`INSERT INTO revisions (id, graph_id, graph_name, number, hash, document, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rev.ID, rev.GraphID, rev.GraphName, rev.Number, rev.Hash, string(rev.Document), rev.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetRevision(ctx context.Context, graphID string, number int) (*Revision, error) {
	r, err := scanRevision(s.db.QueryRow(ctx,
		`SELECT `+postgresColumns+` FROM revisions WHERE graph_id = $1 AND number = $2`, graphID, number))
	if isNoRows(err) {
		return nil, revisionNotFound(graphID, number)
	}
	return r, err
}

func (s *PostgresStore) LatestRevision(ctx context.Context, graphID string) (*Revision, error) {
	r, err := scanRevision(s.db.QueryRow(ctx,
		`SELECT `+postgresColumns+` FROM revisions WHERE graph_id = $1 ORDER BY number DESC LIMIT 1`, graphID))
	if isNoRows(err) {
		return nil, revisionNotFound(graphID, 0)
	}
	return r, err
}

func (s *PostgresStore) ListRevisions(ctx context.Context, filter RevisionFilter) ([]*Revision, error) {
	query, args := listQuery(postgresColumns, filter, func(n int) string { return "$" + strconv.Itoa(n) })
	rows, err := s.db.Query(ctx, query, args...)
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

func (s *PostgresStore) PruneRevisions(ctx context.Context, keep int) (int64, error) {
	if err := checkKeep(keep); err != nil {
		return 0, err
	}
	ct, err := s.db.Exec(ctx, fmt.Sprintf(pruneQuery, "$1"), keep)
	if err != nil {
		return 0, fmt.Errorf("prune revisions: %w", err)
	}
	return ct.RowsAffected(), nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
